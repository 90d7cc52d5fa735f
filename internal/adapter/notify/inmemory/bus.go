package inmemory

import (
	"context"
	"sync"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"wildtrek/internal/app/ports"
	"wildtrek/internal/domain/expedition"
)

// Filter selects notifications; empty fields match everything.
type Filter struct {
	Category     expedition.NotificationCategory
	ExpeditionID string
}

func (f Filter) Match(n expedition.Notification) bool {
	if f.Category != "" && f.Category != n.Category {
		return false
	}
	if f.ExpeditionID != "" && f.ExpeditionID != n.ExpeditionID {
		return false
	}
	return true
}

type Handler func(n expedition.Notification)

type subscriber struct {
	filter  Filter
	handler Handler
}

// Bus fans notifications out to subscribers and tees them into an optional
// log. Publish runs handlers synchronously on the caller's goroutine, which
// may hold an expedition lock, so handlers must not call back into services.
type Bus struct {
	Log ports.NotificationLog

	mu     sync.RWMutex
	nextID int
	subs   map[int]subscriber
}

func NewBus(log ports.NotificationLog) *Bus {
	return &Bus{Log: log, subs: map[int]subscriber{}}
}

// Subscribe registers fn and returns a function that removes it again.
func (b *Bus) Subscribe(filter Filter, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[id] = subscriber{filter: filter, handler: fn}
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

func (b *Bus) Publish(n expedition.Notification) {
	if b.Log != nil {
		if err := b.Log.Append(context.Background(), []expedition.Notification{n}); err != nil {
			hlog.Warnf("notification log append %s/%s: %v", n.Category, n.Action, err)
		}
	}
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.filter.Match(n) {
			targets = append(targets, s.handler)
		}
	}
	b.mu.RUnlock()
	for _, fn := range targets {
		fn(n)
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
