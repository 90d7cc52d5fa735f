package memory

import (
	"context"

	"wildtrek/internal/app/ports"
)

type ArchiveRepo struct {
	store *Store
}

func NewArchiveRepo(store *Store) ArchiveRepo {
	return ArchiveRepo{store: store}
}

func (r ArchiveRepo) Save(_ context.Context, rec ports.ArchivedExpedition) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id := rec.Expedition.ID
	if _, exists := r.store.archive[id]; exists {
		return ports.ErrConflict
	}
	r.store.archive[id] = rec
	trainer := rec.Expedition.TrainerID
	r.store.byTrainer[trainer] = append(r.store.byTrainer[trainer], id)
	return nil
}

func (r ArchiveRepo) GetByID(_ context.Context, expeditionID string) (ports.ArchivedExpedition, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	rec, ok := r.store.archive[expeditionID]
	if !ok {
		return ports.ArchivedExpedition{}, ports.ErrNotFound
	}
	return rec, nil
}

func (r ArchiveRepo) ListByTrainer(_ context.Context, trainerID string, limit int) ([]ports.ArchivedExpedition, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	ids := r.store.trainerIDsNewestFirst(trainerID)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]ports.ArchivedExpedition, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.store.archive[id])
	}
	return out, nil
}
