package events

import (
	"context"
	"encoding/json"
	"expvar"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rurikon/gallery-api/internal/domain/gallery"
)

// EventType for WebSocket messages
type EventType string

const EventGalleryChanged EventType = "gallery_changed"

// Redis channel shared by every API instance
const galleryChannel = "gallery:events"

var (
	wsConnectionsGauge   = expvar.NewInt("gallery_websocket_connections")
	wsEventsSentTotal    = expvar.NewInt("gallery_websocket_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("gallery_websocket_events_dropped_total")
)

// Event tells dashboards which photos and categories to refetch.
type Event struct {
	Type      EventType `json:"type"`
	Operation string    `json:"operation"`
	PhotoIDs  []string  `json:"photoIds,omitempty"`
	Slugs     []string  `json:"slugs,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	At        time.Time `json:"at"`
}

type relayMessage struct {
	Payload          json.RawMessage `json:"payload"`
	SenderInstanceID string          `json:"sender_instance_id"`
}

// Client is one dashboard WebSocket connection
type Client struct {
	Identity string
	Conn     *websocket.Conn
	Send     chan []byte
}

// Hub fans gallery changes out to connected dashboards. With Redis, changes
// committed on other instances are relayed too.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client

	redis  *redis.Client
	pubsub *redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc

	instanceID string
	publishFn  func(ctx context.Context, channel string, payload []byte) error
}

// NewHub creates a hub. redisClient may be nil for a single instance.
func NewHub(redisClient *redis.Client) *Hub {
	return NewHubWithInstanceID(redisClient, uuid.NewString())
}

// NewHubWithInstanceID creates a hub with an explicit instance identifier.
func NewHubWithInstanceID(redisClient *redis.Client, instanceID string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		redis:      redisClient,
		ctx:        ctx,
		cancel:     cancel,
		instanceID: instanceID,
	}

	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, galleryChannel)
		h.publishFn = func(ctx context.Context, channel string, payload []byte) error {
			return redisClient.Publish(ctx, channel, payload).Err()
		}
	}

	return h
}

// Run starts the hub (call in goroutine)
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			wsConnectionsGauge.Add(1)
			log.Debug().Str("identity", c.Identity).Msg("Dashboard connected to WebSocket")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
				wsConnectionsGauge.Add(-1)
			}
			h.mu.Unlock()
			log.Debug().Str("identity", c.Identity).Msg("Dashboard disconnected from WebSocket")
		}
	}
}

func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleRelayPayload(msg.Payload)
		}
	}
}

// handleRelayPayload broadcasts a change published by another instance.
// Our own publications were already delivered locally.
func (h *Hub) handleRelayPayload(payload string) {
	var msg relayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return
	}
	if msg.SenderInstanceID == h.instanceID {
		return
	}
	h.broadcastLocal(msg.Payload)
}

// Notify implements gallery.Notifier.
func (h *Hub) Notify(ctx context.Context, change gallery.Change) {
	data, err := json.Marshal(Event{
		Type:      EventGalleryChanged,
		Operation: change.Operation,
		PhotoIDs:  change.PhotoIDs,
		Slugs:     change.Slugs,
		Actor:     change.Actor,
		At:        change.At,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal gallery event")
		return
	}

	h.broadcastLocal(data)

	if h.publishFn == nil {
		return
	}
	relay, err := json.Marshal(relayMessage{Payload: data, SenderInstanceID: h.instanceID})
	if err != nil {
		return
	}
	if err := h.publishFn(ctx, galleryChannel, relay); err != nil {
		log.Error().Err(err).Str("channel", galleryChannel).Msg("Redis publish failed")
	}
}

// broadcastLocal sends data to clients connected to THIS server
func (h *Hub) broadcastLocal(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.Send <- data:
			wsEventsSentTotal.Add(1)
		default:
			// Buffer full, skip this message
			wsEventsDroppedTotal.Add(1)
			log.Warn().Str("identity", c.Identity).Msg("WebSocket send buffer full")
		}
	}
}

// Register adds a connection
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes a connection
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// ConnectionCount returns number of local connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown gracefully shuts down the hub
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
