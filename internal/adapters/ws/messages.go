package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
)

type MessageType string

const (
	// Client to Server message types. The live channel is observe-only:
	// joining and leaving auction channels is all a client can do.
	MessageTypeJoinAuction  MessageType = "join_auction"
	MessageTypeLeaveAuction MessageType = "leave_auction"
	MessageTypePing         MessageType = "ping"

	// Server to Client message types
	MessageTypeNewBid       MessageType = "new_bid"
	MessageTypeAuctionEnded MessageType = "auction_ended"
	MessageTypeBidError     MessageType = "bid_error"
	MessageTypeAck          MessageType = "ack"
	MessageTypePong         MessageType = "pong"

	// rejected with a bid_error pointing at the HTTP API; kept as a named
	// constant so the rejection is explicit rather than an unknown-type error
	MessageTypePlaceBid MessageType = "place_bid"
)

// ClientMessage represents a message received from a connected viewer
type ClientMessage struct {
	Type      MessageType `json:"type"`
	AuctionID *uuid.UUID  `json:"auction_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type      MessageType            `json:"type"`
	AuctionID *uuid.UUID             `json:"auction_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now().Unix(),
	}
}

func NewBidErrorMessage(err string, auctionID *uuid.UUID) *ServerMessage {
	return &ServerMessage{
		Type:      MessageTypeBidError,
		AuctionID: auctionID,
		Error:     &err,
		Timestamp: time.Now().Unix(),
	}
}

// ParseClientMessage parses a JSON message from client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeJoinAuction, MessageTypeLeaveAuction:
		if m.AuctionID == nil || *m.AuctionID == uuid.Nil {
			return shared.ErrAuctionIDRequired
		}
	case MessageTypePing:

	case MessageTypePlaceBid:
		// the channel carries no mutation capability
		return shared.ErrObserveOnlyChannel

	default:
		return shared.ErrUnknownMessageType
	}

	return nil
}

// EventToMessage converts a broadcast event into the wire message served to
// viewers
func EventToMessage(event outbound.Event) *ServerMessage {
	msg := &ServerMessage{
		AuctionID: &event.AuctionID,
		Data:      event.Data,
		Timestamp: event.Timestamp,
	}

	switch event.Type {
	case outbound.EventTypeBidAccepted:
		msg.Type = MessageTypeNewBid
	case outbound.EventTypeAuctionEnded:
		msg.Type = MessageTypeAuctionEnded
	default:
		msg.Type = MessageTypeAck
	}

	return msg
}
