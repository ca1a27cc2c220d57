/*
hub.go - Topic broker that fans engine events out to subscribers

PURPOSE:
  Implements attendance.Notifier. The engine publishes to an employee topic
  or the admin topic; the hub queues the message and a single distribution
  goroutine copies it into every subscriber of that topic.

DELIVERY:
  Publish never blocks. A message is dropped (and counted) when the hub
  queue or a subscriber queue is full. Clients that miss messages re-read
  state through the HTTP API.

TOPICS:
  /topic/attendance/{employeeId}   personal updates
  /topic/attendance/admin          dashboard updates

SEE ALSO:
  - ws.go: WebSocket transport for subscribers
  - attendance/notifier.go: Notifier contract and Payload
*/
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/log"
	"github.com/warp/attendance-engine/metrics"
)

const (
	topicPrefix = "/topic/attendance/"

	// AdminTopic receives dashboard updates for all employees.
	AdminTopic = topicPrefix + "admin"

	DefaultQueueSize      = 256
	DefaultSubscriberSize = 64
)

// EmployeeTopic returns the personal topic of one employee.
func EmployeeTopic(id generic.EmployeeID) string {
	return topicPrefix + string(id)
}

// Message is one payload addressed to a topic.
type Message struct {
	Topic     string
	Payload   attendance.Payload
	Timestamp time.Time
}

// Subscription receives the messages of a single topic on C. C is closed by
// Unsubscribe or Stop.
type Subscription struct {
	ID    string
	Topic string
	C     chan *Message
}

// Hub manages subscriptions and distribution.
type Hub struct {
	subscribers map[string]map[*Subscription]bool
	mu          sync.RWMutex
	queue       chan *Message
	stopCh      chan struct{}
	stopOnce    sync.Once
	subSize     int
	logger      zerolog.Logger
}

var _ attendance.Notifier = (*Hub)(nil)

// NewHub creates a hub. Non-positive sizes use the defaults.
func NewHub(queueSize, subscriberSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if subscriberSize <= 0 {
		subscriberSize = DefaultSubscriberSize
	}
	return &Hub{
		subscribers: make(map[string]map[*Subscription]bool),
		queue:       make(chan *Message, queueSize),
		stopCh:      make(chan struct{}),
		subSize:     subscriberSize,
		logger:      log.WithComponent("notify"),
	}
}

// Start begins the distribution loop.
func (h *Hub) Start() {
	go h.run()
}

// Stop ends distribution and closes every subscription.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)

		h.mu.Lock()
		defer h.mu.Unlock()
		for topic, subs := range h.subscribers {
			for sub := range subs {
				close(sub.C)
				metrics.Subscribers.Dec()
			}
			delete(h.subscribers, topic)
		}
	})
}

// Subscribe registers a new subscription to topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{
		ID:    uuid.NewString(),
		Topic: topic,
		C:     make(chan *Message, h.subSize),
	}
	subs, ok := h.subscribers[topic]
	if !ok {
		subs = make(map[*Subscription]bool)
		h.subscribers[topic] = subs
	}
	subs[sub] = true
	metrics.Subscribers.Inc()

	h.logger.Debug().Str("topic", topic).Str("subscription", sub.ID).Msg("subscribed")
	return sub
}

// Unsubscribe removes sub and closes its channel. It is safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[sub.Topic]
	if !ok || !subs[sub] {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, sub.Topic)
	}
	close(sub.C)
	metrics.Subscribers.Dec()
}

// SubscriberCount returns the number of active subscriptions on topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

// Publish queues p for topic without blocking.
func (h *Hub) Publish(topic string, p attendance.Payload) {
	msg := &Message{Topic: topic, Payload: p, Timestamp: time.Now()}

	select {
	case <-h.stopCh:
		return
	default:
	}

	select {
	case h.queue <- msg:
	default:
		metrics.NotificationsDropped.Inc()
		h.logger.Warn().Str("topic", topic).Str("type", string(p.Type)).Msg("hub queue full, notification dropped")
	}
}

// PublishEmployeeUpdate implements attendance.Notifier.
func (h *Hub) PublishEmployeeUpdate(_ context.Context, id generic.EmployeeID, p attendance.Payload) {
	h.Publish(EmployeeTopic(id), p)
}

// PublishAdminUpdate implements attendance.Notifier.
func (h *Hub) PublishAdminUpdate(_ context.Context, p attendance.Payload) {
	h.Publish(AdminTopic, p)
}

func (h *Hub) run() {
	for {
		select {
		case msg := <-h.queue:
			h.broadcast(msg)
		case <-h.stopCh:
			return
		}
	}
}

func (h *Hub) broadcast(msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Stop may have closed the channels between the queue read and the lock.
	select {
	case <-h.stopCh:
		return
	default:
	}

	for sub := range h.subscribers[msg.Topic] {
		select {
		case sub.C <- msg:
			metrics.NotificationsPublished.WithLabelValues(string(msg.Payload.Type)).Inc()
		default:
			metrics.NotificationsDropped.Inc()
			h.logger.Debug().Str("subscription", sub.ID).Msg("subscriber buffer full, skip")
		}
	}
}
