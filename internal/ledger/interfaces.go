package ledger

import (
	"context"
	"math/big"

	"github.com/stakevault/nft-staking-service/internal/types"
)

// Custodian is the external registry that holds custody of staked tokens.
// The ledger never assumes a transfer happened without a nil error back from
// the custodian.
type Custodian interface {
	// OwnerOf returns the identity currently holding the token.
	OwnerOf(ctx context.Context, tokenID uint64) (string, error)
	// IsAuthorized reports whether operator may move the given token on
	// behalf of owner.
	IsAuthorized(ctx context.Context, owner, operator string, tokenID uint64) (bool, error)
	TransferIn(ctx context.Context, from, to string, tokenID uint64) error
	TransferOut(ctx context.Context, from, to string, tokenID uint64) error
}

// RewardLedger is the external fungible balance store rewards are paid from.
type RewardLedger interface {
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
	Transfer(ctx context.Context, to string, amount *big.Int) error
}

// EventSink receives journal events as they are committed. Emit is called
// while the ledger is mid-operation, so implementations must be fast and must
// never call back into the ledger.
type EventSink interface {
	Emit(event types.Event)
}

type noopSink struct{}

func (noopSink) Emit(types.Event) {}
