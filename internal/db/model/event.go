package model

import (
	"fmt"
	"math/big"

	"github.com/stakevault/nft-staking-service/internal/types"
)

// EventDocument is the archived form of a ledger event. The sequence number is
// the primary key, which makes archiving idempotent: replaying a batch after a
// partial failure hits duplicate key errors instead of writing twice.
type EventDocument struct {
	Seq           uint64  `bson:"_id"`
	EventType     string  `bson:"event_type"`
	StakerAddress string  `bson:"staker_address,omitempty"`
	TokenID       *uint64 `bson:"token_id,omitempty"`
	Amount        string  `bson:"amount,omitempty"`
	NewRate       string  `bson:"new_rate,omitempty"`
	Timestamp     int64   `bson:"timestamp"`
}

func FromEvent(e types.Event) *EventDocument {
	doc := &EventDocument{
		Seq:           e.Seq,
		EventType:     e.Type.ToString(),
		StakerAddress: e.StakerAddress,
		TokenID:       e.TokenID,
		Timestamp:     e.Timestamp,
	}
	if e.Amount != nil {
		doc.Amount = e.Amount.String()
	}
	if e.NewRate != nil {
		doc.NewRate = e.NewRate.String()
	}
	return doc
}

func (d *EventDocument) ToEvent() (types.Event, error) {
	eventType, err := types.EventTypeFromString(d.EventType)
	if err != nil {
		return types.Event{}, err
	}
	event := types.Event{
		Seq:           d.Seq,
		Type:          eventType,
		StakerAddress: d.StakerAddress,
		TokenID:       d.TokenID,
		Timestamp:     d.Timestamp,
	}
	if d.Amount != "" {
		v, ok := new(big.Int).SetString(d.Amount, 10)
		if !ok {
			return types.Event{}, fmt.Errorf("invalid amount in archived event %d: %s", d.Seq, d.Amount)
		}
		event.Amount = v
	}
	if d.NewRate != "" {
		v, ok := new(big.Int).SetString(d.NewRate, 10)
		if !ok {
			return types.Event{}, fmt.Errorf("invalid new_rate in archived event %d: %s", d.Seq, d.NewRate)
		}
		event.NewRate = v
	}
	return event, nil
}

type EventBySeqPagination struct {
	Seq uint64 `json:"seq"`
}

func BuildEventBySeqPaginationToken(d EventDocument) (string, error) {
	page := &EventBySeqPagination{
		Seq: d.Seq,
	}
	token, err := GetPaginationToken(page)
	if err != nil {
		return "", err
	}
	return token, nil
}
