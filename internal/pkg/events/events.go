// Package events publishes domain events about explorers and subscriptions.
package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
)

const (
	ExplorerCreated        = "explorer.created"
	ExplorerDeleted        = "explorer.deleted"
	ExplorerSyncRequested  = "explorer.sync.requested"
	SubscriptionChanged    = "subscription.changed"
	SubscriptionCanceled   = "subscription.canceled"
	SubscriptionTrialStart = "subscription.trial_started"
)

// Event is a domain event. Name doubles as the routing key.
type Event struct {
	Name       string                 `json:"name"`
	ExplorerID uint                   `json:"explorer_id"`
	UserID     uint                   `json:"user_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// New builds an event stamped with the current time.
func New(name string, explorerID, userID uint, data map[string]interface{}) Event {
	return Event{Name: name, ExplorerID: explorerID, UserID: userID, Data: data, OccurredAt: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Names returns the names of recorded events in publish order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		names = append(names, ev.Name)
	}
	return names
}

// NewPublisherFromEnv connects to AMQP_URL, or returns Noop when unset or unreachable.
func NewPublisherFromEnv() Publisher {
	uri := strings.TrimSpace(env.GetEnv("AMQP_URL", ""))
	if uri == "" {
		log.Info("[Events] AMQP_URL not set, domain events disabled")
		return Noop{}
	}
	p, err := NewAMQPPublisher(uri, DefaultExchange)
	if err != nil {
		log.Errorf("[Events] AMQP connect failed, domain events disabled: %v", err)
		return Noop{}
	}
	return p
}

// PublishSafe publishes and logs failures instead of returning them.
func PublishSafe(ctx context.Context, p Publisher, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warnf("[Events] publish %s for explorer %d failed: %v", ev.Name, ev.ExplorerID, err)
	}
}
