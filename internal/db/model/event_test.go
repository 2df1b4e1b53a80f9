package model

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakevault/nft-staking-service/internal/types"
)

func TestEventDocumentRoundTrip(t *testing.T) {
	tokenID := uint64(42)
	event := types.Event{
		Seq:           7,
		Type:          types.StakedEventType,
		StakerAddress: "0x00000000000000000000000000000000000000aa",
		TokenID:       &tokenID,
		Timestamp:     1700000000,
	}

	doc := FromEvent(event)
	require.Equal(t, uint64(7), doc.Seq)
	require.Equal(t, "staked", doc.EventType)
	require.Empty(t, doc.Amount)

	restored, err := doc.ToEvent()
	require.NoError(t, err)
	require.Equal(t, event, restored)
}

func TestEventDocumentCarriesAmountsAsDecimalStrings(t *testing.T) {
	amount, ok := new(big.Int).SetString("340282366920938463463374607431768211456", 10)
	require.True(t, ok)

	event := types.Event{
		Seq:           9,
		Type:          types.RewardsClaimedEventType,
		StakerAddress: "0x00000000000000000000000000000000000000aa",
		Amount:        amount,
		Timestamp:     1700000123,
	}

	doc := FromEvent(event)
	require.Equal(t, "340282366920938463463374607431768211456", doc.Amount)

	restored, err := doc.ToEvent()
	require.NoError(t, err)
	require.Zero(t, restored.Amount.Cmp(amount))
}

func TestEventDocumentRejectsCorruptFields(t *testing.T) {
	doc := &EventDocument{Seq: 1, EventType: "melted", Timestamp: 1}
	_, err := doc.ToEvent()
	require.Error(t, err)

	doc = &EventDocument{Seq: 2, EventType: "rewards_claimed", Amount: "not-a-number", Timestamp: 1}
	_, err = doc.ToEvent()
	require.Error(t, err)
}

func TestPaginationTokenRoundTrip(t *testing.T) {
	token, err := BuildEventBySeqPaginationToken(EventDocument{Seq: 1234})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := DecodePaginationToken[EventBySeqPagination](token)
	require.NoError(t, err)
	require.Equal(t, uint64(1234), decoded.Seq)

	_, err = DecodePaginationToken[EventBySeqPagination]("not a token")
	require.Error(t, err)
}
