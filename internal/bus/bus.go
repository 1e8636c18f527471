// Package bus implements the multi-producer multi-consumer subscriber bus:
// every subscriber gets a bounded, non-blocking queue, with a Lagged(n)
// marker delivered in place of messages dropped when that queue is full.
// Grounded on the non-blocking select{case send<-msg: default: ...} pattern
// of a websocket hub, extended to report the drop rather than silently
// disconnecting the subscriber.
package bus

import (
	"sync"

	"github.com/google/uuid"
)

// MessageKind distinguishes the four push-message types the bus carries.
type MessageKind int

const (
	KindConfluenceUpdate MessageKind = iota
	KindSessionChanged
	KindLagged
	KindError
)

// Message is the envelope delivered to every subscriber.
type Message struct {
	Kind    MessageKind
	Payload any // *ConfluenceUpdate, *SessionChanged, *Lagged, *ErrorEvent
}

// ConfluenceUpdate matches the subscriber interface from spec.md §6.
type ConfluenceUpdate struct {
	Symbol            string
	TimeframeSet       []string
	OverallBias        string
	OverallBullish     float64
	OverallBearish     float64
	OverallConfidence  float64
	TimeframeDetails   []any
	TopFactors         []any
	SetupStatus        string
	Direction          string
	RawCandles         []any
	SessionID          string
}

// SessionChanged matches spec.md §6.
type SessionChanged struct {
	OldAccount any
	NewAccount any
}

// Lagged matches spec.md §6.
type Lagged struct {
	DroppedCount int
}

// ErrorEvent matches spec.md §6.
type ErrorEvent struct {
	Kind    string
	Message string
}

// DefaultQueueSize is the bounded per-subscriber queue size.
const DefaultQueueSize = 64

type subscriber struct {
	id      string
	ch      chan Message
	dropped int
	mu      sync.Mutex
}

// Bus is the broadcast hub. Publish never blocks: a full subscriber queue
// drops its oldest pending message and records the drop, later surfaced as
// a Lagged marker.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	queueSize   int
}

// New constructs an empty Bus with the default bounded queue size.
func New() *Bus {
	return &Bus{subscribers: make(map[string]*subscriber), queueSize: DefaultQueueSize}
}

// Subscribe registers a new subscriber and returns its ID and receive-only
// channel. Callers must eventually call Unsubscribe.
func (b *Bus) Subscribe() (string, <-chan Message) {
	id := uuid.New().String()
	sub := &subscriber{id: id, ch: make(chan Message, b.queueSize)}
	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()
	return id, sub.ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.ch)
	}
}

// Publish delivers msg to every subscriber without blocking on any of
// them: a subscriber whose queue is full has its oldest message dropped to
// make room, and its drop counter incremented so a Lagged marker can be
// emitted on the next successful delivery.
func (b *Bus) Publish(msg Message) {
	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		s.deliver(msg)
	}
}

func (s *subscriber) deliver(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dropped > 0 {
		select {
		case s.ch <- Message{Kind: KindLagged, Payload: &Lagged{DroppedCount: s.dropped}}:
			s.dropped = 0
		default:
			s.evictOldest()
			s.dropped++
		}
	}

	select {
	case s.ch <- msg:
	default:
		s.evictOldest()
		s.dropped++
		select {
		case s.ch <- msg:
		default:
			s.dropped++
		}
	}
}

func (s *subscriber) evictOldest() {
	select {
	case <-s.ch:
	default:
	}
}

// SubscriberCount reports the current number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
