package ws

import (
	"context"
	"net/http"
	"sync"

	"motorline-auction-service/internal/adapters/monitoring"
	"motorline-auction-service/internal/adapters/rest"
	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WsHandler manages live-channel connections. Connected viewers only join
// and leave per-auction channels and receive events; every mutation goes
// through the HTTP API.
type WsHandler struct {
	clients       map[string]*WsClient // clientID -> Client
	clientsMu     sync.RWMutex
	eventChannels map[string]chan outbound.Event // clientID -> local event channel
	channelsMu    sync.RWMutex
	upgrader      websocket.Upgrader
	broadcaster   outbound.Broadcaster
	verifier      *rest.TokenVerifier
	logger        zerolog.Logger
}

type WsHandlerParams struct {
	Upgrader    websocket.Upgrader
	Broadcaster outbound.Broadcaster
	Verifier    *rest.TokenVerifier
	Logger      zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:       make(map[string]*WsClient),
		eventChannels: make(map[string]chan outbound.Event),
		upgrader:      params.Upgrader,
		broadcaster:   params.Broadcaster,
		verifier:      params.Verifier,
		logger:        params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket authenticates and upgrades a live-channel connection.
// The token travels in the query string because browsers cannot set headers
// on websocket upgrades.
func (h *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token is required", http.StatusUnauthorized)
		return
	}

	identity, err := h.verifier.Verify(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		Identity: identity,
		Conn:     conn,
		Handler:  h,
		Logger:   h.logger,
	})

	h.registerClient(client)
	h.createEventChannel(client.id)

	client.Start()
	go h.listenForClientEvents(client)

	// Wait for client to disconnect
	go func() {
		<-client.ctx.Done()
		h.unregisterClient(client)
	}()

	monitoring.ClientConnected()
	h.logger.Info().
		Str("client_id", client.id).
		Str("user_id", identity.UserID.String()).
		Msg("WebSocket client connected")
}

// createEventChannel creates a local event channel for a client
func (h *WsHandler) createEventChannel(clientID string) chan outbound.Event {
	h.channelsMu.Lock()
	defer h.channelsMu.Unlock()

	if eventChan, exists := h.eventChannels[clientID]; exists {
		return eventChan
	}

	eventChan := make(chan outbound.Event, 100)
	h.eventChannels[clientID] = eventChan
	return eventChan
}

func (h *WsHandler) getEventChannel(clientID string) chan outbound.Event {
	h.channelsMu.RLock()
	defer h.channelsMu.RUnlock()

	return h.eventChannels[clientID]
}

func (h *WsHandler) removeEventChannel(clientID string) {
	h.channelsMu.Lock()
	defer h.channelsMu.Unlock()

	// the handler owns the channel; it is closed exactly once, on
	// disconnect, after every broadcaster subscription has been released
	if eventChan, ok := h.eventChannels[clientID]; ok {
		close(eventChan)
		delete(h.eventChannels, clientID)
	}
}

func (h *WsHandler) registerClient(client *WsClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[client.id] = client
}

func (h *WsHandler) unregisterClient(client *WsClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	delete(h.clients, client.id)

	// release broadcaster subscriptions before the client goes away
	for _, auctionID := range client.joinedAuctions() {
		if err := h.broadcaster.Unsubscribe(context.Background(), auctionID, client.id); err != nil {
			h.logger.Error().Err(err).Str("client_id", client.id).Msg("Failed to unsubscribe departing client")
		}
	}

	client.Stop()
	h.removeEventChannel(client.id)
	monitoring.ClientDisconnected()

	h.logger.Info().
		Str("client_id", client.id).
		Str("user_id", client.identity.UserID.String()).
		Int("total_clients", len(h.clients)).
		Msg("WebSocket client disconnected")
}

// listenForClientEvents forwards broadcast events to the websocket
func (h *WsHandler) listenForClientEvents(client *WsClient) {
	eventChan := h.getEventChannel(client.id)
	if eventChan == nil {
		h.logger.Error().Str("client_id", client.id).Msg("No event channel found for client")
		return
	}

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := client.Send(EventToMessage(event)); err != nil {
				h.logger.Warn().Err(err).
					Str("client_id", client.id).
					Str("event_type", string(event.Type)).
					Msg("Failed to deliver event to client")
			}

		case <-client.ctx.Done():
			return
		}
	}
}

// HandleClientMessage routes a validated client message
func (h *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	switch msg.Type {
	case MessageTypeJoinAuction:
		return h.handleJoin(client, msg)

	case MessageTypeLeaveAuction:
		return h.handleLeave(client, msg)

	default:
		return shared.ErrUnknownMessageType
	}
}

func (h *WsHandler) handleJoin(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	eventChan := h.getEventChannel(client.id)
	if eventChan == nil {
		return shared.ErrUserNotSubscribed
	}

	if err := h.broadcaster.Subscribe(ctx, *msg.AuctionID, client.id, eventChan); err != nil {
		h.logger.Error().Err(err).
			Str("client_id", client.id).
			Str("auction_id", msg.AuctionID.String()).
			Msg("Failed to join auction channel")
		return err
	}

	client.markJoined(*msg.AuctionID, true)

	response := NewServerMessage(MessageTypeAck)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "joined"

	return client.Send(response)
}

func (h *WsHandler) handleLeave(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	if err := h.broadcaster.Unsubscribe(ctx, *msg.AuctionID, client.id); err != nil {
		return err
	}

	client.markJoined(*msg.AuctionID, false)

	response := NewServerMessage(MessageTypeAck)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "left"

	return client.Send(response)
}

// GetConnectedClients returns the number of connected clients
func (h *WsHandler) GetConnectedClients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
