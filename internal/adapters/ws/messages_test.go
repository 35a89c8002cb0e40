package ws

import (
	"testing"

	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientMessage(t *testing.T) {
	auctionID := uuid.New()

	msg, err := ParseClientMessage([]byte(`{"type":"join_auction","auction_id":"` + auctionID.String() + `"}`))
	require.NoError(t, err)
	assert.Equal(t, MessageTypeJoinAuction, msg.Type)
	require.NotNil(t, msg.AuctionID)
	assert.Equal(t, auctionID, *msg.AuctionID)

	_, err = ParseClientMessage([]byte(`{not json`))
	assert.Error(t, err)

	_, err = ParseClientMessage([]byte(`{"auction_id":"` + auctionID.String() + `"}`))
	assert.ErrorIs(t, err, shared.ErrMessageTypeRequired)
}

func TestClientMessageValidate(t *testing.T) {
	auctionID := uuid.New()

	tests := []struct {
		name    string
		msg     ClientMessage
		wantErr error
	}{
		{"join_with_auction", ClientMessage{Type: MessageTypeJoinAuction, AuctionID: &auctionID}, nil},
		{"leave_with_auction", ClientMessage{Type: MessageTypeLeaveAuction, AuctionID: &auctionID}, nil},
		{"ping", ClientMessage{Type: MessageTypePing}, nil},
		{"join_without_auction", ClientMessage{Type: MessageTypeJoinAuction}, shared.ErrAuctionIDRequired},
		{"leave_nil_uuid", ClientMessage{Type: MessageTypeLeaveAuction, AuctionID: &uuid.Nil}, shared.ErrAuctionIDRequired},
		{"place_bid_rejected", ClientMessage{Type: MessageTypePlaceBid, AuctionID: &auctionID}, shared.ErrObserveOnlyChannel},
		{"unknown_type", ClientMessage{Type: "subscribe_all"}, shared.ErrUnknownMessageType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEventToMessage(t *testing.T) {
	auctionID := uuid.New()

	newBid := EventToMessage(outbound.Event{
		Type:      outbound.EventTypeBidAccepted,
		AuctionID: auctionID,
		Data:      map[string]interface{}{"new_current_price": 10500.0},
		Timestamp: 1234,
	})
	assert.Equal(t, MessageTypeNewBid, newBid.Type)
	assert.Equal(t, auctionID, *newBid.AuctionID)
	assert.Equal(t, 10500.0, newBid.Data["new_current_price"])
	assert.Equal(t, int64(1234), newBid.Timestamp)

	ended := EventToMessage(outbound.Event{
		Type:      outbound.EventTypeAuctionEnded,
		AuctionID: auctionID,
	})
	assert.Equal(t, MessageTypeAuctionEnded, ended.Type)
}
