package queue

import (
	"context"
	"sync"
)

// Publisher delivers document events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

var _ Publisher = (*NopPublisher)(nil)

type NopPublisher struct{}

func NewNopPublisher() *NopPublisher {
	return &NopPublisher{}
}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() {}

var _ Publisher = (*MemoryPublisher)(nil)

// MemoryPublisher keeps every published event in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (m *MemoryPublisher) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the events published so far.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func (m *MemoryPublisher) Close() {}
