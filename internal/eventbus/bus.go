package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/schema"
)

type subscription struct {
	types map[schema.EventType]struct{}
}

func (s subscription) wants(t schema.EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus fans engine events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan schema.Event]subscription
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan schema.Event]subscription),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the given event types, or for every
// type when none are given, and returns a channel + cancel.
func (b *Bus) Subscribe(types ...schema.EventType) (<-chan schema.Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	sub := subscription{}
	if len(types) > 0 {
		sub.types = make(map[schema.EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}
	ch := make(chan schema.Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = sub
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "subs", count, "types", len(types))
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			close(ch)
			b.mu.Unlock()
			b.log.Debug("eventbus unsubscribe")
		})
	}
}

// OnEvent publishes an event.
func (b *Bus) OnEvent(event schema.Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	dropped := 0
	for ch, sub := range b.subs {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "type", string(event.Type), "count", dropped)
	}
}
