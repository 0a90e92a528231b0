package stream

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "changes:"

// Hub fans change notifications out to in-process subscribers. With redis
// configured every instance publishes to redis and delivers what comes back
// from its pattern subscription, so subscribers on other instances see the
// same stream.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	done    chan struct{}
}

type Client struct {
	Topic string
	Send  chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		clients: map[string]map[*Client]struct{}{},
		done:    make(chan struct{}),
	}

	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		pubsub := redisClient.PSubscribe(ctx, channelPrefix+"*")
		if _, err := pubsub.Receive(ctx); err != nil {
			slog.Warn("redis subscribe failed, delivering locally", "error", err)
			_ = pubsub.Close()
		} else {
			h.redis = redisClient
			h.pubsub = pubsub
			go h.subscribeRedis()
		}
	}
	return h
}

func (h *Hub) Subscribe(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	return client
}

func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topicClients, ok := h.clients[client.Topic]
	if !ok {
		return
	}
	if _, ok := topicClients[client]; !ok {
		return
	}
	delete(topicClients, client)
	if len(topicClients) == 0 {
		delete(h.clients, client.Topic)
	}
	close(client.Send)
}

// Broadcast notifies every subscriber of topic. Slow subscribers drop messages.
func (h *Hub) Broadcast(ctx context.Context, topic string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(ctx, redisChannel(topic), payload).Err()
		if err == nil {
			return
		}
		slog.Error("redis publish error", "topic", topic, "error", err)
	}
	h.deliver(topic, payload)
}

func (h *Hub) Close() {
	select {
	case <-h.done:
		return
	default:
		close(h.done)
	}
	if h.pubsub != nil {
		_ = h.pubsub.Close()
	}
}

func (h *Hub) deliver(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ch := h.pubsub.Channel()
	for {
		select {
		case <-h.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			topic := topicFromChannel(msg.Channel)
			if topic == "" {
				continue
			}
			h.deliver(topic, []byte(msg.Payload))
		}
	}
}

func redisChannel(topic string) string {
	return channelPrefix + topic
}

func topicFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) {
		return ""
	}
	return strings.TrimPrefix(ch, channelPrefix)
}
