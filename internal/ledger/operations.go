package ledger

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakevault/nft-staking-service/internal/types"
)

// Stake deposits a batch of tokens owned by owner into the vault and starts
// reward accrual on them. The batch is all-or-nothing: the whole batch is
// validated against the registry and the custodian before any token moves,
// and a custodian failure mid-transfer unwinds the tokens already moved.
//
// If the owner already has stakes, their pending reward is settled first so
// the new deposits cannot disturb the already-open accrual windows.
func (l *Ledger) Stake(ctx context.Context, owner string, tokenIDs []uint64) error {
	if err := l.acquire(); err != nil {
		return err
	}
	defer l.release()

	if len(tokenIDs) == 0 {
		return ErrEmptyBatch
	}
	if len(tokenIDs) > MaxBatchSize {
		return errors.Wrapf(ErrBatchTooLarge, "%d tokens, limit %d", len(tokenIDs), MaxBatchSize)
	}
	if l.paused {
		return ErrPaused
	}

	seen := make(map[uint64]struct{}, len(tokenIDs))
	for _, id := range tokenIDs {
		if _, dup := seen[id]; dup {
			return errors.Wrapf(ErrAlreadyStaked, "token %d repeated in batch", id)
		}
		seen[id] = struct{}{}
		if _, staked := l.records[id]; staked {
			return errors.Wrapf(ErrAlreadyStaked, "token %d", id)
		}
		current, err := l.custodian.OwnerOf(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "custodian owner lookup for token %d", id)
		}
		if current != owner {
			return errors.Wrapf(ErrNotOwner, "token %d", id)
		}
		authorized, err := l.custodian.IsAuthorized(ctx, owner, l.vaultAddress, id)
		if err != nil {
			return errors.Wrapf(err, "custodian authorization lookup for token %d", id)
		}
		if !authorized {
			return errors.Wrapf(ErrNotApproved, "token %d", id)
		}
	}

	now := l.clock.Now()
	if l.userTokens[owner].Len() > 0 {
		if _, err := l.settle(ctx, owner, now); err != nil {
			return err
		}
	}

	var staked []uint64
	for _, id := range tokenIDs {
		if err := l.custodian.TransferIn(ctx, owner, l.vaultAddress, id); err != nil {
			return l.unwindStake(ctx, owner, staked,
				errors.Wrapf(err, "custodian transfer-in of token %d", id))
		}
		l.recordStake(owner, id, now)
		staked = append(staked, id)
	}

	for _, id := range staked {
		tokenID := id
		l.emit(types.Event{
			Type:          types.StakedEventType,
			StakerAddress: owner,
			TokenID:       &tokenID,
			Timestamp:     now,
		})
	}
	return nil
}

// unwindStake reverses the part of a stake batch that already ran: records
// are dropped and the tokens are sent back. A token whose return transfer
// fails stays in the vault untracked and is reported for manual recovery.
func (l *Ledger) unwindStake(ctx context.Context, owner string, staked []uint64, cause error) error {
	for i := len(staked) - 1; i >= 0; i-- {
		id := staked[i]
		if _, err := l.recordUnstake(owner, id); err != nil {
			cause = errors.Wrapf(cause, "unwind of token %d: %v", id, err)
			continue
		}
		if err := l.custodian.TransferOut(ctx, l.vaultAddress, owner, id); err != nil {
			cause = errors.Wrapf(cause, "unwind transfer-out of token %d stranded it in the vault: %v", id, err)
		}
	}
	return cause
}

// Unstake settles the owner's pending reward, then removes a batch of the
// owner's tokens from the registry and returns them from the vault. The batch
// is all-or-nothing. Unstaking stays available while staking is paused.
func (l *Ledger) Unstake(ctx context.Context, owner string, tokenIDs []uint64) error {
	if err := l.acquire(); err != nil {
		return err
	}
	defer l.release()

	if len(tokenIDs) == 0 {
		return ErrEmptyBatch
	}
	if len(tokenIDs) > MaxBatchSize {
		return errors.Wrapf(ErrBatchTooLarge, "%d tokens, limit %d", len(tokenIDs), MaxBatchSize)
	}

	seen := make(map[uint64]struct{}, len(tokenIDs))
	for _, id := range tokenIDs {
		if _, dup := seen[id]; dup {
			return errors.Wrapf(ErrNotStaked, "token %d repeated in batch", id)
		}
		seen[id] = struct{}{}
		rec, ok := l.records[id]
		if !ok {
			return errors.Wrapf(ErrNotStaked, "token %d", id)
		}
		if rec.Owner != owner {
			return errors.Wrapf(ErrNotOwner, "token %d", id)
		}
	}

	// Settle before any record is dropped; a dropped record's accrual would
	// otherwise be lost. A settlement failure aborts the whole unstake.
	now := l.clock.Now()
	if _, err := l.settle(ctx, owner, now); err != nil {
		return err
	}

	var removed []StakeRecord
	for _, id := range tokenIDs {
		rec, err := l.recordUnstake(owner, id)
		if err != nil {
			return l.unwindUnstake(ctx, owner, removed, err)
		}
		if err := l.custodian.TransferOut(ctx, l.vaultAddress, owner, id); err != nil {
			// This token never left the vault; its record goes straight back.
			l.restoreRecord(rec)
			return l.unwindUnstake(ctx, owner, removed,
				errors.Wrapf(err, "custodian transfer-out of token %d", id))
		}
		removed = append(removed, rec)
	}

	for _, rec := range removed {
		tokenID := rec.TokenID
		l.emit(types.Event{
			Type:          types.UnstakedEventType,
			StakerAddress: owner,
			TokenID:       &tokenID,
			Timestamp:     now,
		})
	}
	return nil
}

// unwindUnstake re-custodies tokens a failed unstake batch already sent out.
// A record is reinstated only once its token is confirmed back in the vault;
// a token that cannot be pulled back is left with the owner, unstaked.
func (l *Ledger) unwindUnstake(ctx context.Context, owner string, removed []StakeRecord, cause error) error {
	for i := len(removed) - 1; i >= 0; i-- {
		rec := removed[i]
		if err := l.custodian.TransferIn(ctx, owner, l.vaultAddress, rec.TokenID); err != nil {
			cause = errors.Wrapf(cause, "unwind transfer-in of token %d left it unstaked with the owner: %v", rec.TokenID, err)
			continue
		}
		l.restoreRecord(rec)
	}
	return cause
}

// ClaimRewards settles the owner's full pending reward. Claiming twice at the
// same instant succeeds with a zero amount on the second call.
func (l *Ledger) ClaimRewards(ctx context.Context, owner string) (*big.Int, error) {
	if err := l.acquire(); err != nil {
		return nil, err
	}
	defer l.release()

	if l.userTokens[owner].Len() == 0 {
		return nil, ErrNothingStaked
	}
	return l.settle(ctx, owner, l.clock.Now())
}
