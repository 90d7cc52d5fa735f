package memory

import (
	"context"

	"wildtrek/internal/domain/expedition"
)

type NotificationRepo struct {
	store *Store
}

func NewNotificationRepo(store *Store) NotificationRepo {
	return NotificationRepo{store: store}
}

func (r NotificationRepo) Append(_ context.Context, items []expedition.Notification) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, n := range items {
		key := n.ExpeditionID
		if key == "" {
			key = "global"
		}
		r.store.notifications[key] = append(r.store.notifications[key], n)
	}
	return nil
}

func (r NotificationRepo) ListByExpedition(_ context.Context, expeditionID string, limit int) ([]expedition.Notification, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	items := r.store.notifications[expeditionID]
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return append([]expedition.Notification(nil), items...), nil
}
