package testutil

import (
	"context"
	"sync"

	"github.com/adforge/adforge/internal/domain/events"
	"github.com/adforge/adforge/internal/publisher"
	"github.com/samber/lo"
)

// InMemoryPublisherService records published events for assertions
type InMemoryPublisherService struct {
	mu     sync.RWMutex
	events []*events.Event
}

var _ publisher.EventPublisher = (*InMemoryPublisherService)(nil)

// NewInMemoryEventPublisher creates a new instance of InMemoryPublisherService
func NewInMemoryEventPublisher() *InMemoryPublisherService {
	return &InMemoryPublisherService{
		events: make([]*events.Event, 0),
	}
}

// Publish implements publisher.EventPublisher
func (p *InMemoryPublisherService) Publish(ctx context.Context, event *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// GetEvents returns all published events
func (p *InMemoryPublisherService) GetEvents() []*events.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// EventNames returns the names of the published events in order
func (p *InMemoryPublisherService) EventNames() []string {
	return lo.Map(p.GetEvents(), func(e *events.Event, _ int) string {
		return e.EventName
	})
}

// Clear removes all published events
func (p *InMemoryPublisherService) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = make([]*events.Event, 0)
}
