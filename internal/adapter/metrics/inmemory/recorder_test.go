package inmemory

import (
	"testing"

	"wildtrek/internal/domain/expedition"
)

func TestRecorderSnapshot(t *testing.T) {
	r := NewRecorder()
	r.RecordTick(3)
	r.RecordTick(2)
	r.RecordEventGenerated(expedition.EventDanger)
	r.RecordEventGenerated(expedition.EventDanger)
	r.RecordEventResolved(true)
	r.RecordEventResolved(false)
	r.RecordIntervention("supply_drop", true)
	r.RecordIntervention("supply_drop", false)
	r.RecordCompletion("success")

	s := r.Snapshot()
	if s.Ticks != 2 || s.ActiveExpeditions != 2 {
		t.Fatalf("expected 2 ticks with 2 active, got %d/%d", s.Ticks, s.ActiveExpeditions)
	}
	if s.EventsByType[string(expedition.EventDanger)] != 2 {
		t.Fatalf("expected 2 danger events")
	}
	if s.EventsResolved != 2 || s.EventsSucceeded != 1 {
		t.Fatalf("expected 2 resolved and 1 succeeded, got %d/%d", s.EventsResolved, s.EventsSucceeded)
	}
	if s.InterventionsAccepted != 1 || s.InterventionsRejected != 1 || s.InterventionsByAction["supply_drop"] != 1 {
		t.Fatalf("unexpected intervention counts: %+v", s)
	}
	if s.ByOutcome["success"] != 1 {
		t.Fatalf("expected one success completion")
	}
}

func TestRecorderSnapshotIsDetached(t *testing.T) {
	r := NewRecorder()
	r.RecordCompletion("failure")
	s := r.Snapshot()
	s.ByOutcome["failure"] = 99
	if r.Snapshot().ByOutcome["failure"] != 1 {
		t.Fatalf("snapshot must not alias recorder state")
	}
}
