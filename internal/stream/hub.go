package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/EJ-pro/Walky/internal/walk"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "walk:"
	channelSuffix  = ":state"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Hub fans walk snapshots out to the websocket clients of each walker.
// With redis configured, snapshots travel through pubsub so every instance sees them.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	cancel  context.CancelFunc
	clients map[string]map[*Client]struct{}
	last    map[string][]byte
	mu      sync.RWMutex
}

type Client struct {
	UserID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		clients: map[string]map[*Client]struct{}{},
		last:    map[string][]byte{},
	}
	if redisClient == nil {
		return h
	}

	ctx, cancel := context.WithCancel(context.Background())
	pubsub := redisClient.PSubscribe(ctx, channelPattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("redis subscribe error, streaming locally: %v", err)
		_ = pubsub.Close()
		cancel()
		return h
	}
	h.redis = redisClient
	h.pubsub = pubsub
	h.cancel = cancel
	go h.subscribeRedis(pubsub)
	return h
}

func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
		_ = h.pubsub.Close()
	}
}

// Register adds a client and queues the walker's latest snapshot, if any.
func (h *Hub) Register(userID string) *Client {
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][client] = struct{}{}
	if payload, ok := h.last[userID]; ok {
		client.Send <- payload
	}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients := h.clients[client.UserID]
	if _, ok := userClients[client]; !ok {
		return
	}
	delete(userClients, client)
	if len(userClients) == 0 {
		delete(h.clients, client.UserID)
	}
	close(client.Send)
}

// Publish implements walk.Publisher.
func (h *Hub) Publish(userID string, snap walk.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		log.Printf("snapshot encode error: %v", err)
		return
	}
	h.Broadcast(userID, payload)
}

func (h *Hub) Broadcast(userID string, payload []byte) {
	h.mu.Lock()
	h.last[userID] = payload
	h.mu.Unlock()

	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(userID), payload).Err()
		if err == nil {
			return
		}
		log.Printf("redis publish error: %v", err)
	}
	h.deliver(userID, payload)
}

// deliver drops the payload for clients whose buffer is full; the next snapshot supersedes it.
func (h *Hub) deliver(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		userID := userIDFromChannel(msg.Channel)
		if userID == "" {
			continue
		}
		h.deliver(userID, []byte(msg.Payload))
	}
}

func redisChannel(userID string) string {
	return channelPrefix + userID + channelSuffix
}

func userIDFromChannel(ch string) string {
	// walk:{user}:state
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) || len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
