package session

import (
	"sort"
	"sync"
	"time"

	"wildtrek/internal/app/ports"
	"wildtrek/internal/domain/expedition"
)

type Handle int

type Tally struct {
	Experience int            `json:"experience"`
	Money      int            `json:"money"`
	Items      map[string]int `json:"items"`
	Captured   []string       `json:"captured"`
}

// Record holds everything the running services know about one expedition.
// Fields are only touched while the record lock is held via Arena.With.
type Record struct {
	mu      sync.Mutex
	removed bool

	Handle               Handle
	Expedition           expedition.Expedition
	Trainer              expedition.Trainer
	Location             expedition.Location
	Progress             expedition.Progress
	ProgressBonus        float64
	NotifiedProgress     float64
	LastTickAt           time.Time
	NextEventAt          time.Time
	Effects              []expedition.AppliedEffect
	Transitions          []expedition.StageTransition
	InterventionAttempts int
	RecallRequested      bool
	RecallReason         string
	PeakRisk             expedition.RiskLevel
	CriticalTicks        int
	Tally                Tally
}

// LiveEffects purges expired effects before returning the remaining ones.
func (r *Record) LiveEffects(now time.Time) []expedition.AppliedEffect {
	r.Effects, _ = expedition.PurgeExpired(r.Effects, now)
	return append([]expedition.AppliedEffect(nil), r.Effects...)
}

func (r *Record) EffectTotal(kind expedition.ModifierKind, now time.Time) float64 {
	r.Effects, _ = expedition.PurgeExpired(r.Effects, now)
	return expedition.SumLive(r.Effects, kind, now)
}

func (r *Record) Event(id string) (*expedition.Event, bool) {
	for i := range r.Expedition.Events {
		if r.Expedition.Events[i].ID == id {
			return &r.Expedition.Events[i], true
		}
	}
	return nil, false
}

func (r *Record) PendingCount() int {
	n := 0
	for _, e := range r.Expedition.Events {
		if e.Pending() {
			n++
		}
	}
	return n
}

func (r *Record) EventIDs() []string {
	out := make([]string, 0, len(r.Expedition.Events))
	for _, e := range r.Expedition.Events {
		out = append(out, e.ID)
	}
	return out
}

func (r *Record) ApplyResolution(res expedition.Resolution) {
	r.Tally.Experience += res.ExperienceGained
	r.Tally.Money += res.MoneyGained
	if len(res.Items) > 0 {
		if r.Tally.Items == nil {
			r.Tally.Items = map[string]int{}
		}
		for item, n := range res.Items {
			r.Tally.Items[item] += n
		}
	}
	r.Tally.Captured = append(r.Tally.Captured, res.Captured...)
	r.ProgressBonus += res.ProgressDelta
}

// Snapshot is a detached copy of a record that is safe to hand to other goroutines.
type Snapshot struct {
	Handle               Handle                       `json:"handle"`
	Expedition           expedition.Expedition        `json:"expedition"`
	Trainer              expedition.Trainer           `json:"trainer"`
	Location             expedition.Location          `json:"location"`
	Progress             expedition.Progress          `json:"progress"`
	Effects              []expedition.AppliedEffect   `json:"effects"`
	Transitions          []expedition.StageTransition `json:"transitions"`
	InterventionAttempts int                          `json:"intervention_attempts"`
	RecallRequested      bool                         `json:"recall_requested"`
	PeakRisk             expedition.RiskLevel         `json:"peak_risk"`
	CriticalTicks        int                          `json:"critical_ticks"`
	Tally                Tally                        `json:"tally"`
}

func (r *Record) Snapshot() Snapshot {
	exp := r.Expedition
	exp.Events = make([]expedition.Event, len(r.Expedition.Events))
	for i, e := range r.Expedition.Events {
		exp.Events[i] = expedition.CloneEvent(e)
	}
	exp.Interventions = make([]expedition.ActiveIntervention, len(r.Expedition.Interventions))
	for i, iv := range r.Expedition.Interventions {
		iv.Effects = append([]expedition.AppliedEffect(nil), iv.Effects...)
		exp.Interventions[i] = iv
	}
	if r.Expedition.Outcome != nil {
		o := *r.Expedition.Outcome
		exp.Outcome = &o
	}
	trainer := r.Trainer
	if r.Trainer.Skills != nil {
		trainer.Skills = make(map[expedition.Skill]int, len(r.Trainer.Skills))
		for k, v := range r.Trainer.Skills {
			trainer.Skills[k] = v
		}
	}
	tally := r.Tally
	if r.Tally.Items != nil {
		tally.Items = make(map[string]int, len(r.Tally.Items))
		for k, v := range r.Tally.Items {
			tally.Items[k] = v
		}
	}
	tally.Captured = append([]string(nil), r.Tally.Captured...)
	return Snapshot{
		Handle:               r.Handle,
		Expedition:           exp,
		Trainer:              trainer,
		Location:             r.Location,
		Progress:             r.Progress,
		Effects:              append([]expedition.AppliedEffect(nil), r.Effects...),
		Transitions:          append([]expedition.StageTransition(nil), r.Transitions...),
		InterventionAttempts: r.InterventionAttempts,
		RecallRequested:      r.RecallRequested,
		PeakRisk:             r.PeakRisk,
		CriticalTicks:        r.CriticalTicks,
		Tally:                tally,
	}
}

// Arena owns every running expedition record. Records live in stable slots
// addressed by Handle; the id index only maps onto those slots.
type Arena struct {
	mu    sync.RWMutex
	slots []*Record
	free  []Handle
	index map[string]Handle
}

func NewArena() *Arena {
	return &Arena{index: map[string]Handle{}}
}

func (a *Arena) Add(rec *Record) (Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.index[rec.Expedition.ID]; exists {
		return 0, ports.ErrConflict
	}
	var h Handle
	if n := len(a.free); n > 0 {
		h = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[h] = rec
	} else {
		h = Handle(len(a.slots))
		a.slots = append(a.slots, rec)
	}
	rec.Handle = h
	a.index[rec.Expedition.ID] = h
	return h, nil
}

func (a *Arena) Lookup(id string) (Handle, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.index[id]
	return h, ok
}

func (a *Arena) record(id string) (*Record, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.index[id]
	if !ok {
		return nil, false
	}
	return a.slots[h], true
}

// With runs fn while holding the record lock. Every mutation of a running
// expedition goes through here so ticks and player actions are linearized.
func (a *Arena) With(id string, fn func(rec *Record) error) error {
	rec, ok := a.record(id)
	if !ok {
		return ports.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.removed {
		return ports.ErrNotFound
	}
	return fn(rec)
}

func (a *Arena) Snapshot(id string) (Snapshot, bool) {
	var out Snapshot
	err := a.With(id, func(rec *Record) error {
		out = rec.Snapshot()
		return nil
	})
	return out, err == nil
}

// Remove frees the slot; a concurrent With that already resolved the record
// observes removed and reports not found.
func (a *Arena) Remove(id string) bool {
	a.mu.Lock()
	h, ok := a.index[id]
	if !ok {
		a.mu.Unlock()
		return false
	}
	rec := a.slots[h]
	delete(a.index, id)
	a.slots[h] = nil
	a.free = append(a.free, h)
	a.mu.Unlock()

	rec.mu.Lock()
	rec.removed = true
	rec.mu.Unlock()
	return true
}

func (a *Arena) IDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.index))
	for id := range a.index {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.index)
}
