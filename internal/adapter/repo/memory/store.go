package memory

import (
	"sort"
	"sync"

	"wildtrek/internal/app/ports"
	"wildtrek/internal/domain/expedition"
)

// Store keeps archived expeditions and the notification log in process. It
// backs the host when no database DSN is configured.
type Store struct {
	txMu          sync.Mutex
	mu            sync.RWMutex
	archive       map[string]ports.ArchivedExpedition
	byTrainer     map[string][]string
	notifications map[string][]expedition.Notification
}

func NewStore() *Store {
	return &Store{
		archive:       make(map[string]ports.ArchivedExpedition),
		byTrainer:     make(map[string][]string),
		notifications: make(map[string][]expedition.Notification),
	}
}

// trainerIDsNewestFirst returns archived expedition ids of one trainer,
// most recently archived first. Callers hold at least the read lock.
func (s *Store) trainerIDsNewestFirst(trainerID string) []string {
	ids := append([]string(nil), s.byTrainer[trainerID]...)
	sort.SliceStable(ids, func(i, j int) bool {
		return s.archive[ids[i]].ArchivedAt.After(s.archive[ids[j]].ArchivedAt)
	})
	return ids
}
