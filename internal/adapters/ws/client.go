package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"motorline-auction-service/internal/config"
	"motorline-auction-service/internal/domain/shared"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WsClient is one connected viewer. The caller identity is pinned at
// construction from the authenticated upgrade request; there is no ambient
// connection state to consult later.
type WsClient struct {
	id         string
	identity   shared.Identity
	conn       *websocket.Conn
	sendChan   chan *ServerMessage
	ctx        context.Context
	cancel     context.CancelFunc
	handler    *WsHandler
	workerPool *pond.WorkerPool
	joined     map[uuid.UUID]bool
	stopped    bool
	mu         sync.Mutex
	logger     zerolog.Logger
}

type WsClientParams struct {
	Identity shared.Identity
	Conn     *websocket.Conn
	Handler  *WsHandler
	Logger   zerolog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(params WsClientParams) *WsClient {
	ctx, cancel := context.WithCancel(context.Background())

	pool := pond.New(
		config.WSMaxWorkers,
		config.WSMaxCapacity,
		pond.Context(ctx),
		pond.Strategy(pond.Balanced()),
	)

	id := uuid.New().String()
	return &WsClient{
		id:         id,
		identity:   params.Identity,
		conn:       params.Conn,
		sendChan:   make(chan *ServerMessage, 100),
		ctx:        ctx,
		cancel:     cancel,
		handler:    params.Handler,
		workerPool: pool,
		joined:     make(map[uuid.UUID]bool),
		logger: params.Logger.With().
			Str("client_id", id).
			Str("user_id", params.Identity.UserID.String()).
			Logger(),
	}
}

// markJoined records membership of an auction channel
func (c *WsClient) markJoined(auctionID uuid.UUID, joined bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if joined {
		c.joined[auctionID] = true
	} else {
		delete(c.joined, auctionID)
	}
}

// joinedAuctions snapshots the channels this client is a member of
func (c *WsClient) joinedAuctions() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(c.joined))
	for id := range c.joined {
		ids = append(ids, id)
	}
	return ids
}

func (c *WsClient) Start() {
	go c.messageSender()
	go c.messageReceiver()
}

func (c *WsClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Prevent double closing
	if c.stopped {
		return
	}
	c.stopped = true

	// sendChan is never closed: a Send racing Stop may still be queueing a
	// message after the stopped check. messageSender exits via ctx.Done and
	// anything left in the buffer is garbage collected with the client.
	c.cancel()
	c.conn.Close()

	if c.workerPool != nil {
		c.workerPool.Stop()
	}
}

// Send sends a message to the client
func (c *WsClient) Send(msg *ServerMessage) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return fmt.Errorf("client is stopped")
	}
	c.mu.Unlock()

	select {
	case c.sendChan <- msg:
		return nil
	default:
		// channel is full, try once more with a timeout before dropping
		select {
		case c.sendChan <- msg:
			return nil
		case <-time.After(100 * time.Millisecond):
			return fmt.Errorf("client send channel is full")
		}
	}
}

func (c *WsClient) messageSender() {
	for {
		select {
		case msg := <-c.sendChan:
			if err := c.sendMessage(msg); err != nil {
				c.logger.Error().Err(err).Msg("Failed to send message to client")
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *WsClient) messageReceiver() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, message, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.logger.Error().Err(err).Msg("WebSocket read error")
				} else {
					c.logger.Info().Str("error", err.Error()).Msg("WebSocket connection closed")
				}
				// Cancel context to notify handler about disconnection
				c.cancel()
				return
			}

			c.workerPool.Submit(func() {
				if err := c.handleMessage(message); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to handle client message")
					c.sendMessage(NewBidErrorMessage(err.Error(), nil))
				}
			})
		}
	}
}

func (c *WsClient) sendMessage(msg *ServerMessage) error {
	return c.conn.WriteJSON(msg)
}

func (c *WsClient) handleMessage(data []byte) error {
	msg, err := ParseClientMessage(data)
	if err != nil {
		return fmt.Errorf("invalid message format: %w", err)
	}

	if err := msg.Validate(); err != nil {
		return err
	}

	if msg.Type == MessageTypePing {
		return c.Send(NewServerMessage(MessageTypePong))
	}

	if c.handler != nil {
		return c.handler.HandleClientMessage(c, msg)
	}
	return fmt.Errorf("handler not available")
}
