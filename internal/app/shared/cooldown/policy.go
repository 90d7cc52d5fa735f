package cooldown

import (
	"sync"
	"time"
)

const (
	KindTemplate = "template"
	KindChoice   = "choice"
	KindAction   = "action"
)

func Key(kind, id string) string {
	return kind + ":" + id
}

// Table keeps cooldown expiry times keyed by entity. Entries whose expiry has
// passed are treated as absent and dropped lazily on the next lookup.
type Table struct {
	mu    sync.Mutex
	until map[string]time.Time
}

func NewTable() *Table {
	return &Table{until: map[string]time.Time{}}
}

func (t *Table) Start(key string, now time.Time, d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.until[key] = now.Add(d)
}

func (t *Table) Active(key string, now time.Time) bool {
	_, ok := t.Remaining(key, now)
	return ok
}

func (t *Table) Remaining(key string, now time.Time) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	until, ok := t.until[key]
	if !ok {
		return 0, false
	}
	remaining := until.Sub(now)
	if remaining <= 0 {
		delete(t.until, key)
		return 0, false
	}
	return remaining, true
}

func (t *Table) RemainingSeconds(key string, now time.Time) (int, bool) {
	remaining, ok := t.Remaining(key, now)
	if !ok {
		return 0, false
	}
	remainingSeconds := int((remaining + time.Second - 1) / time.Second)
	if remainingSeconds < 1 {
		remainingSeconds = 1
	}
	return remainingSeconds, true
}

func (t *Table) RemainingByKey(now time.Time) map[string]int {
	t.mu.Lock()
	keys := make([]string, 0, len(t.until))
	for k := range t.until {
		keys = append(keys, k)
	}
	t.mu.Unlock()

	out := map[string]int{}
	for _, k := range keys {
		if remaining, ok := t.RemainingSeconds(k, now); ok {
			out[k] = remaining
		}
	}
	return out
}

func Minutes(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Minute
}
