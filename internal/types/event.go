package types

import (
	"encoding/json"
	"fmt"
	"math/big"
)

type EventType string

const (
	StakedEventType         EventType = "staked"
	UnstakedEventType       EventType = "unstaked"
	RewardsClaimedEventType EventType = "rewards_claimed"
	RateUpdatedEventType    EventType = "rate_updated"
)

func (e EventType) ToString() string {
	return string(e)
}

func EventTypeFromString(s string) (EventType, error) {
	switch s {
	case StakedEventType.ToString():
		return StakedEventType, nil
	case UnstakedEventType.ToString():
		return UnstakedEventType, nil
	case RewardsClaimedEventType.ToString():
		return RewardsClaimedEventType, nil
	case RateUpdatedEventType.ToString():
		return RateUpdatedEventType, nil
	default:
		return "", fmt.Errorf("unknown event type: %s", s)
	}
}

// Event is a single entry of the ledger's append-only journal. Seq is assigned
// by the ledger under its write lock, so the sequence is gapless and strictly
// increasing. Fields that do not apply to a given event type are left unset:
// TokenID is only set for staked/unstaked, Amount only for rewards_claimed and
// NewRate only for rate_updated.
type Event struct {
	Seq           uint64    `json:"seq"`
	Type          EventType `json:"type"`
	StakerAddress string    `json:"staker_address,omitempty"`
	TokenID       *uint64   `json:"token_id,omitempty"`
	Amount        *big.Int  `json:"amount,omitempty"`
	NewRate       *big.Int  `json:"new_rate,omitempty"`
	Timestamp     int64     `json:"timestamp"`
}

// eventJSON mirrors Event with big.Int fields rendered as decimal strings so
// that consumers in languages without arbitrary-precision JSON numbers parse
// amounts losslessly.
type eventJSON struct {
	Seq           uint64    `json:"seq"`
	Type          EventType `json:"type"`
	StakerAddress string    `json:"staker_address,omitempty"`
	TokenID       *uint64   `json:"token_id,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	NewRate       string    `json:"new_rate,omitempty"`
	Timestamp     int64     `json:"timestamp"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		Seq:           e.Seq,
		Type:          e.Type,
		StakerAddress: e.StakerAddress,
		TokenID:       e.TokenID,
		Timestamp:     e.Timestamp,
	}
	if e.Amount != nil {
		out.Amount = e.Amount.String()
	}
	if e.NewRate != nil {
		out.NewRate = e.NewRate.String()
	}
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var in eventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.Seq = in.Seq
	e.Type = in.Type
	e.StakerAddress = in.StakerAddress
	e.TokenID = in.TokenID
	e.Timestamp = in.Timestamp
	e.Amount = nil
	e.NewRate = nil
	if in.Amount != "" {
		v, ok := new(big.Int).SetString(in.Amount, 10)
		if !ok {
			return fmt.Errorf("invalid amount in event: %s", in.Amount)
		}
		e.Amount = v
	}
	if in.NewRate != "" {
		v, ok := new(big.Int).SetString(in.NewRate, 10)
		if !ok {
			return fmt.Errorf("invalid new_rate in event: %s", in.NewRate)
		}
		e.NewRate = v
	}
	return nil
}
