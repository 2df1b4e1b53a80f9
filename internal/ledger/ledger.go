package ledger

import (
	"math/big"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/stakevault/nft-staking-service/internal/types"
	"github.com/stakevault/nft-staking-service/internal/utils"
)

// MaxBatchSize is the protocol limit on token ids per stake or unstake call.
const MaxBatchSize = 20

// StakeRecord tracks one currently-staked token. A record exists exactly
// while its token is staked. LastAccrualCheckpoint only moves forward, and
// only at points where reward up to that instant is being paid out.
type StakeRecord struct {
	Owner                 string
	TokenID               uint64
	StakedAt              int64
	LastAccrualCheckpoint int64
}

// Snapshot is the ledger's full persistent state, used to restore the
// in-memory ledger on startup and to write it back out.
type Snapshot struct {
	Records      []StakeRecord
	RewardRate   *big.Int
	Paused       bool
	LastEventSeq uint64
}

// Params carries the static identity and initial rate of a ledger.
type Params struct {
	// VaultAddress is the account this service custodies tokens under and
	// pays rewards from.
	VaultAddress string
	// OwnerAddress receives administrative fund withdrawals.
	OwnerAddress string
	// InitialRate is the reward rate per second per staked token.
	InitialRate *big.Int
}

// Ledger is the staking state machine. It owns the token-id -> stake record
// mapping and the per-user token sets, accrues rewards against its Clock, and
// drives the external custodian and reward ledger.
//
// Callers must serialize mutating operations; the ledger itself carries no
// lock. The busy flag only rejects reentrant invocation from inside a running
// operation, e.g. a collaborator callback trying to stake mid-stake.
type Ledger struct {
	clock     Clock
	custodian Custodian
	rewards   RewardLedger
	sink      EventSink

	vaultAddress string
	ownerAddress string

	busy atomic.Bool

	records     map[uint64]*StakeRecord
	userTokens  map[string]*tokenSet
	rewardRate  *big.Int
	paused      bool
	totalStaked uint64
	seq         uint64
}

func New(params Params, clock Clock, custodian Custodian, rewards RewardLedger, sink EventSink) (*Ledger, error) {
	vault, err := utils.NormalizeAddress(params.VaultAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid vault address")
	}
	owner, err := utils.NormalizeAddress(params.OwnerAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid owner address")
	}
	rate := new(big.Int)
	if params.InitialRate != nil {
		if params.InitialRate.Sign() < 0 {
			return nil, ErrInvalidRate
		}
		rate.Set(params.InitialRate)
	}
	if clock == nil {
		return nil, errors.New("ledger: clock is required")
	}
	if custodian == nil {
		return nil, errors.New("ledger: custodian is required")
	}
	if rewards == nil {
		return nil, errors.New("ledger: reward ledger is required")
	}
	if sink == nil {
		sink = noopSink{}
	}
	return &Ledger{
		clock:        clock,
		custodian:    custodian,
		rewards:      rewards,
		sink:         sink,
		vaultAddress: vault,
		ownerAddress: owner,
		records:      make(map[uint64]*StakeRecord),
		userTokens:   make(map[string]*tokenSet),
		rewardRate:   rate,
	}, nil
}

// Restore loads a snapshot into an empty ledger. It rejects snapshots that
// violate the registry invariants rather than serving from corrupt state.
func (l *Ledger) Restore(snap Snapshot) error {
	if len(l.records) != 0 {
		return errors.New("ledger: restore into non-empty ledger")
	}
	if snap.RewardRate != nil {
		if snap.RewardRate.Sign() < 0 {
			return ErrInvalidRate
		}
		l.rewardRate = new(big.Int).Set(snap.RewardRate)
	}
	for _, rec := range snap.Records {
		owner, err := utils.NormalizeAddress(rec.Owner)
		if err != nil {
			return errors.Wrapf(err, "stake record for token %d", rec.TokenID)
		}
		if _, dup := l.records[rec.TokenID]; dup {
			return errors.Wrapf(ErrAlreadyStaked, "duplicate token %d in snapshot", rec.TokenID)
		}
		if rec.LastAccrualCheckpoint < rec.StakedAt {
			return errors.Errorf("ledger: token %d checkpoint %d is before stake time %d",
				rec.TokenID, rec.LastAccrualCheckpoint, rec.StakedAt)
		}
		l.recordStake(owner, rec.TokenID, rec.StakedAt)
		l.records[rec.TokenID].LastAccrualCheckpoint = rec.LastAccrualCheckpoint
	}
	l.paused = snap.Paused
	l.seq = snap.LastEventSeq
	return nil
}

// Snapshot copies out the ledger's full persistent state.
func (l *Ledger) Snapshot() Snapshot {
	records := make([]StakeRecord, 0, len(l.records))
	for _, rec := range l.records {
		records = append(records, *rec)
	}
	return Snapshot{
		Records:      records,
		RewardRate:   new(big.Int).Set(l.rewardRate),
		Paused:       l.paused,
		LastEventSeq: l.seq,
	}
}

func (l *Ledger) VaultAddress() string {
	return l.vaultAddress
}

func (l *Ledger) OwnerAddress() string {
	return l.ownerAddress
}

// acquire flips the in-progress flag, rejecting reentrant invocation. Every
// mutating operation acquires on entry and releases on all exit paths.
func (l *Ledger) acquire() error {
	if !l.busy.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (l *Ledger) release() {
	l.busy.Store(false)
}

// emit stamps the next journal sequence number onto the event and hands it to
// the sink. The sequence is part of ledger state so that restored ledgers
// continue the journal without gaps or reuse.
func (l *Ledger) emit(ev types.Event) {
	l.seq++
	ev.Seq = l.seq
	l.sink.Emit(ev)
}

// recordStake creates the stake record and indexes it under the owner.
// Registry mutation only: custody movement is the caller's business.
func (l *Ledger) recordStake(owner string, tokenID uint64, now int64) {
	l.records[tokenID] = &StakeRecord{
		Owner:                 owner,
		TokenID:               tokenID,
		StakedAt:              now,
		LastAccrualCheckpoint: now,
	}
	set := l.userTokens[owner]
	if set == nil {
		set = newTokenSet()
		l.userTokens[owner] = set
	}
	set.Add(tokenID)
	l.totalStaked++
}

// recordUnstake removes the stake record and unindexes it, returning the
// removed record so failed batches can put it back.
func (l *Ledger) recordUnstake(owner string, tokenID uint64) (StakeRecord, error) {
	rec, ok := l.records[tokenID]
	if !ok {
		return StakeRecord{}, errors.Wrapf(ErrNotStaked, "token %d", tokenID)
	}
	if rec.Owner != owner {
		return StakeRecord{}, errors.Wrapf(ErrNotOwner, "token %d", tokenID)
	}
	removed := *rec
	delete(l.records, tokenID)
	set := l.userTokens[owner]
	set.Remove(tokenID)
	if set.Len() == 0 {
		delete(l.userTokens, owner)
	}
	l.totalStaked--
	return removed, nil
}

// restoreRecord reinstates a previously removed record verbatim. Used only on
// unstake rollback paths, after the token is confirmed back in custody.
func (l *Ledger) restoreRecord(rec StakeRecord) {
	l.recordStake(rec.Owner, rec.TokenID, rec.StakedAt)
	l.records[rec.TokenID].LastAccrualCheckpoint = rec.LastAccrualCheckpoint
}
