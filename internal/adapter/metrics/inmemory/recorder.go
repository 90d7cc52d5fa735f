package inmemory

import (
	"sync"

	"wildtrek/internal/domain/expedition"
)

type Snapshot struct {
	Ticks                 uint64            `json:"ticks"`
	ActiveExpeditions     int               `json:"active_expeditions"`
	EventsGenerated       uint64            `json:"events_generated"`
	EventsByType          map[string]uint64 `json:"events_by_type"`
	EventsResolved        uint64            `json:"events_resolved"`
	EventsSucceeded       uint64            `json:"events_succeeded"`
	InterventionsAccepted uint64            `json:"interventions_accepted"`
	InterventionsRejected uint64            `json:"interventions_rejected"`
	InterventionsByAction map[string]uint64 `json:"interventions_by_action"`
	Completions           uint64            `json:"completions"`
	ByOutcome             map[string]uint64 `json:"by_outcome"`
}

// Recorder is the process-local KPI sink behind ports.ExpeditionMetrics.
type Recorder struct {
	mu        sync.Mutex
	ticks     uint64
	active    int
	generated uint64
	byType    map[string]uint64
	resolved  uint64
	succeeded uint64
	accepted  uint64
	rejected  uint64
	byAction  map[string]uint64
	completed uint64
	byOutcome map[string]uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byType:    map[string]uint64{},
		byAction:  map[string]uint64{},
		byOutcome: map[string]uint64{},
	}
}

func (r *Recorder) RecordTick(active int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
	r.active = active
}

func (r *Recorder) RecordEventGenerated(eventType expedition.EventType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generated++
	r.byType[string(eventType)]++
}

func (r *Recorder) RecordEventResolved(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved++
	if success {
		r.succeeded++
	}
}

func (r *Recorder) RecordIntervention(actionID string, accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !accepted {
		r.rejected++
		return
	}
	r.accepted++
	r.byAction[actionID]++
}

func (r *Recorder) RecordCompletion(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
	r.byOutcome[outcome]++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		Ticks:                 r.ticks,
		ActiveExpeditions:     r.active,
		EventsGenerated:       r.generated,
		EventsByType:          copyCounts(r.byType),
		EventsResolved:        r.resolved,
		EventsSucceeded:       r.succeeded,
		InterventionsAccepted: r.accepted,
		InterventionsRejected: r.rejected,
		InterventionsByAction: copyCounts(r.byAction),
		Completions:           r.completed,
		ByOutcome:             copyCounts(r.byOutcome),
	}
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
