package broadcaster

import (
	"context"
	"testing"

	"motorline-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBroadcasterDeliversToSubscribers(t *testing.T) {
	hub := NewLocalBroadcaster(zerolog.Nop())
	defer hub.Close()
	ctx := context.Background()
	auctionID := uuid.New()

	chanA := make(chan outbound.Event, 10)
	chanB := make(chan outbound.Event, 10)
	require.NoError(t, hub.Subscribe(ctx, auctionID, "client-a", chanA))
	require.NoError(t, hub.Subscribe(ctx, auctionID, "client-b", chanB))

	assert.True(t, hub.IsSubscribed(ctx, auctionID, "client-a"))
	assert.False(t, hub.IsSubscribed(ctx, uuid.New(), "client-a"))

	event := outbound.Event{Type: outbound.EventTypeBidAccepted, AuctionID: auctionID}
	require.NoError(t, hub.Publish(ctx, auctionID, event))

	got := <-chanA
	assert.Equal(t, outbound.EventTypeBidAccepted, got.Type)
	got = <-chanB
	assert.Equal(t, auctionID, got.AuctionID)
}

func TestLocalBroadcasterScopesDeliveryPerAuction(t *testing.T) {
	hub := NewLocalBroadcaster(zerolog.Nop())
	defer hub.Close()
	ctx := context.Background()
	watched := uuid.New()
	other := uuid.New()

	eventChan := make(chan outbound.Event, 10)
	require.NoError(t, hub.Subscribe(ctx, watched, "client-a", eventChan))

	require.NoError(t, hub.Publish(ctx, other, outbound.Event{Type: outbound.EventTypeBidAccepted, AuctionID: other}))
	assert.Empty(t, eventChan)
}

func TestLocalBroadcasterDropsWhenSubscriberIsSlow(t *testing.T) {
	hub := NewLocalBroadcaster(zerolog.Nop())
	defer hub.Close()
	ctx := context.Background()
	auctionID := uuid.New()

	full := make(chan outbound.Event, 1)
	require.NoError(t, hub.Subscribe(ctx, auctionID, "slow", full))

	event := outbound.Event{Type: outbound.EventTypeBidAccepted, AuctionID: auctionID}
	require.NoError(t, hub.Publish(ctx, auctionID, event))
	// the second delivery finds the buffer full and must not block
	require.NoError(t, hub.Publish(ctx, auctionID, event))

	assert.Len(t, full, 1)
}

func TestLocalBroadcasterUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewLocalBroadcaster(zerolog.Nop())
	defer hub.Close()
	ctx := context.Background()
	auctionID := uuid.New()

	eventChan := make(chan outbound.Event, 10)
	require.NoError(t, hub.Subscribe(ctx, auctionID, "client-a", eventChan))

	require.NoError(t, hub.Unsubscribe(ctx, auctionID, "client-a"))
	assert.False(t, hub.IsSubscribed(ctx, auctionID, "client-a"))

	// repeated and unknown unsubscribes are no-ops
	require.NoError(t, hub.Unsubscribe(ctx, auctionID, "client-a"))
	require.NoError(t, hub.Unsubscribe(ctx, uuid.New(), "nobody"))

	// the channel stays open; it belongs to the caller, not the hub
	require.NoError(t, hub.Publish(ctx, auctionID, outbound.Event{Type: outbound.EventTypeBidAccepted, AuctionID: auctionID}))
	assert.Empty(t, eventChan)
}

func TestLocalBroadcasterChannelSurvivesLeaveThenRejoin(t *testing.T) {
	hub := NewLocalBroadcaster(zerolog.Nop())
	defer hub.Close()
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()

	eventChan := make(chan outbound.Event, 10)
	require.NoError(t, hub.Subscribe(ctx, first, "client-a", eventChan))

	// leaving the only auction and joining another must keep the same
	// channel usable
	require.NoError(t, hub.Unsubscribe(ctx, first, "client-a"))
	require.NoError(t, hub.Subscribe(ctx, second, "client-a", eventChan))

	require.NotPanics(t, func() {
		require.NoError(t, hub.Publish(ctx, second, outbound.Event{Type: outbound.EventTypeBidAccepted, AuctionID: second}))
	})

	got := <-eventChan
	assert.Equal(t, second, got.AuctionID)
}

func TestLocalBroadcasterOneChannelManyAuctions(t *testing.T) {
	hub := NewLocalBroadcaster(zerolog.Nop())
	defer hub.Close()
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()

	eventChan := make(chan outbound.Event, 10)
	require.NoError(t, hub.Subscribe(ctx, first, "client-a", eventChan))
	require.NoError(t, hub.Subscribe(ctx, second, "client-a", eventChan))

	require.NoError(t, hub.Publish(ctx, first, outbound.Event{Type: outbound.EventTypeBidAccepted, AuctionID: first}))
	require.NoError(t, hub.Publish(ctx, second, outbound.Event{Type: outbound.EventTypeAuctionEnded, AuctionID: second}))
	assert.Len(t, eventChan, 2)

	// leaving one auction keeps the channel open for the other
	require.NoError(t, hub.Unsubscribe(ctx, first, "client-a"))
	require.NoError(t, hub.Publish(ctx, second, outbound.Event{Type: outbound.EventTypeBidAccepted, AuctionID: second}))
	assert.Len(t, eventChan, 3)
}

func TestLocalBroadcasterClose(t *testing.T) {
	hub := NewLocalBroadcaster(zerolog.Nop())
	ctx := context.Background()
	auctionID := uuid.New()

	eventChan := make(chan outbound.Event, 10)
	require.NoError(t, hub.Subscribe(ctx, auctionID, "client-a", eventChan))

	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())

	assert.False(t, hub.IsSubscribed(ctx, auctionID, "client-a"))
	require.NoError(t, hub.Publish(ctx, auctionID, outbound.Event{Type: outbound.EventTypeBidAccepted, AuctionID: auctionID}))
	assert.Empty(t, eventChan)
}
