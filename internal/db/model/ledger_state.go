package model

// LedgerStateId is the fixed _id of the singleton ledger state document.
const LedgerStateId = "ledger"

// LedgerStateDocument holds the accrual parameters that must survive a
// restart: the reward rate, the pause flag and the highest event sequence
// number that has been archived.
type LedgerStateDocument struct {
	Id           string `bson:"_id"`
	RewardRate   string `bson:"reward_rate"`
	Paused       bool   `bson:"paused"`
	LastEventSeq uint64 `bson:"last_event_seq"`
	UpdatedAt    int64  `bson:"updated_at"`
}

func NewLedgerStateDocument(rewardRate string, paused bool, lastEventSeq uint64, updatedAt int64) *LedgerStateDocument {
	return &LedgerStateDocument{
		Id:           LedgerStateId,
		RewardRate:   rewardRate,
		Paused:       paused,
		LastEventSeq: lastEventSeq,
		UpdatedAt:    updatedAt,
	}
}
