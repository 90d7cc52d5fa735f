package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"wildtrek/internal/app/session"
	"wildtrek/internal/domain/expedition"
	"wildtrek/internal/domain/reward"
	"wildtrek/internal/platform/id"
	"wildtrek/internal/platform/random"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeEvents struct {
	calls int
}

func (f *fakeEvents) GenerateFor(_ context.Context, rec *session.Record, now time.Time) (*expedition.Event, error) {
	f.calls++
	evt := expedition.Event{ID: "evt-" + now.Format("1504"), CreatedAt: now, Choices: []expedition.Choice{{ID: "go"}}}
	rec.Expedition.Events = append(rec.Expedition.Events, evt)
	return &evt, nil
}

type fakeCompleter struct {
	snaps []session.Snapshot
}

func (f *fakeCompleter) Complete(_ context.Context, snap session.Snapshot) error {
	f.snaps = append(f.snaps, snap)
	return nil
}

type countingNotifier struct {
	actions map[string]int
	items   []expedition.Notification
}

func (n *countingNotifier) Publish(item expedition.Notification) {
	if n.actions == nil {
		n.actions = map[string]int{}
	}
	n.actions[item.Action]++
	n.items = append(n.items, item)
}

type fixture struct {
	engine    Engine
	events    *fakeEvents
	completer *fakeCompleter
	notifier  *countingNotifier
}

func newFixture() *fixture {
	f := &fixture{events: &fakeEvents{}, completer: &fakeCompleter{}, notifier: &countingNotifier{}}
	f.engine = Engine{
		Arena:              session.NewArena(),
		Locations:          reward.DefaultCatalog(),
		Events:             f.events,
		Completer:          f.completer,
		Notifier:           f.notifier,
		Random:             &random.Fixed{Floats: []float64{0.5}},
		NewID:              id.Sequence(),
		Now:                func() time.Time { return t0 },
		MinTickSpacing:     time.Second,
		BaseEventDelay:     5 * time.Minute,
		CompletedRetention: 10 * time.Minute,
	}
	return f
}

func ash() expedition.Trainer {
	return expedition.Trainer{ID: "ash", Level: 5, Skills: map[expedition.Skill]int{expedition.SkillCapture: 2}}
}

func (f *fixture) start(t *testing.T) expedition.Progress {
	t.Helper()
	p, err := f.engine.Start(context.Background(), StartRequest{
		Trainer:    ash(),
		LocationID: "viridian_forest",
		Mode:       expedition.ModeBalanced,
		Duration:   2 * time.Hour,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return p
}

func TestStart_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.engine.Start(ctx, StartRequest{LocationID: "viridian_forest", Mode: expedition.ModeBalanced, Duration: time.Hour}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing trainer: %v", err)
	}
	if _, err := f.engine.Start(ctx, StartRequest{Trainer: ash(), LocationID: "viridian_forest", Mode: "reckless", Duration: time.Hour}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("unknown mode: %v", err)
	}
	_, err := f.engine.Start(ctx, StartRequest{Trainer: ash(), LocationID: "mt_mon", Mode: expedition.ModeBalanced, Duration: time.Hour})
	var unknown *expedition.UnknownIDError
	if !errors.As(err, &unknown) || unknown.Suggestion != "mt_moon" {
		t.Fatalf("unknown location: %v", err)
	}
	if _, err := f.engine.Start(ctx, StartRequest{Trainer: ash(), LocationID: "safari_zone", Mode: expedition.ModeAggressive, Duration: time.Hour}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("disallowed mode: %v", err)
	}
	if f.engine.Arena.Len() != 0 {
		t.Fatalf("rejected starts must not register records")
	}
}

func TestStart_InitialState(t *testing.T) {
	f := newFixture()
	p := f.start(t)
	if p.ExpeditionID != "exp-1" || p.Overall != 0 || p.Stage != expedition.StagePreparation {
		t.Fatalf("initial progress = %+v", p)
	}
	if !p.NextEventAt.Equal(t0.Add(10 * time.Minute)) {
		t.Fatalf("next event at = %s, want +10m", p.NextEventAt)
	}
	if f.notifier.actions[expedition.ActionStarted] != 1 {
		t.Fatalf("expected a started notification")
	}
}

func TestTick_ProgressFollowsElapsedTimeAndNeverDecreases(t *testing.T) {
	f := newFixture()
	f.start(t)
	ctx := context.Background()

	f.engine.Tick(ctx, t0.Add(time.Hour))
	p, ok := f.engine.Get("exp-1")
	if !ok || p.Overall != 0.5 || p.Stage != expedition.StageMiddle {
		t.Fatalf("progress at half time = %+v", p)
	}
	snap, _ := f.engine.Expedition("exp-1")
	if len(snap.Transitions) != 1 || snap.Transitions[0].To != expedition.StageMiddle {
		t.Fatalf("transitions = %+v", snap.Transitions)
	}

	_ = f.engine.Arena.With("exp-1", func(rec *session.Record) error {
		rec.ProgressBonus = -0.3
		return nil
	})
	f.engine.Tick(ctx, t0.Add(70*time.Minute))
	if p, _ := f.engine.Get("exp-1"); p.Overall != 0.5 {
		t.Fatalf("progress must not decrease, got %v", p.Overall)
	}
}

func TestTick_ThrottlesProgressNotifications(t *testing.T) {
	f := newFixture()
	f.start(t)
	ctx := context.Background()

	initial, _ := f.engine.Get("exp-1")
	risk := initial.RiskLevel
	riskChanges := 0
	for i := 1; i <= 30; i++ {
		f.engine.Tick(ctx, t0.Add(time.Duration(i)*30*time.Second))
		p, _ := f.engine.Get("exp-1")
		if p.RiskLevel != risk {
			riskChanges++
			risk = p.RiskLevel
		}
	}

	if got := f.notifier.actions[expedition.ActionProgressed]; got != 10 {
		t.Fatalf("progressed notifications = %d, want 10", got)
	}
	for _, item := range f.notifier.items {
		if item.Action != expedition.ActionProgressed {
			continue
		}
		before, _ := item.Before.(float64)
		after, _ := item.After.(float64)
		if after-before < expedition.ProgressNotifyDelta {
			t.Fatalf("progressed %v -> %v is below the notify delta", before, after)
		}
	}
	if got := f.notifier.actions[expedition.ActionStageChanged]; got != 1 {
		t.Fatalf("stage changes = %d, want 1", got)
	}
	for _, item := range f.notifier.items {
		if item.Action == expedition.ActionStageChanged && (item.Before != expedition.StagePreparation || item.After != expedition.StageEarly || !item.At.Equal(t0.Add(12*time.Minute))) {
			t.Fatalf("stage change = %+v", item)
		}
	}
	if got := f.notifier.actions[expedition.ActionRiskChanged]; got != riskChanges {
		t.Fatalf("risk notifications = %d, want %d", got, riskChanges)
	}
}

func TestTick_RespectsMinimumSpacing(t *testing.T) {
	f := newFixture()
	f.engine.MinTickSpacing = time.Minute
	f.start(t)
	f.engine.Tick(context.Background(), t0.Add(30*time.Second))
	if p, _ := f.engine.Get("exp-1"); p.Overall != 0 {
		t.Fatalf("tick inside spacing must be skipped, got %v", p.Overall)
	}
}

func TestTick_SpeedEffectAddsProgress(t *testing.T) {
	f := newFixture()
	f.start(t)
	_ = f.engine.Arena.With("exp-1", func(rec *session.Record) error {
		rec.Effects = append(rec.Effects, expedition.AppliedEffect{ID: "eff-1", Kind: expedition.ModifierSpeed, Value: 0.5, StartTime: t0})
		return nil
	})
	f.engine.Tick(context.Background(), t0.Add(time.Hour))
	if p, _ := f.engine.Get("exp-1"); p.Overall != 0.75 {
		t.Fatalf("progress with speed effect = %v, want 0.75", p.Overall)
	}
}

func TestTick_SpeedEffectCountsOnlyWhileLive(t *testing.T) {
	f := newFixture()
	f.engine.MinTickSpacing = time.Hour
	f.start(t)
	_ = f.engine.Arena.With("exp-1", func(rec *session.Record) error {
		rec.Effects = append(rec.Effects, expedition.AppliedEffect{
			ID:        "eff-1",
			Kind:      expedition.ModifierSpeed,
			Value:     0.5,
			StartTime: t0.Add(30 * time.Minute),
			Duration:  15 * time.Minute,
		})
		return nil
	})
	f.engine.Tick(context.Background(), t0.Add(time.Hour))
	if p, _ := f.engine.Get("exp-1"); p.Overall != 0.5625 {
		t.Fatalf("progress = %v, want 0.5625", p.Overall)
	}
}

func TestTick_GeneratesEventsWhenDueAndCapsPending(t *testing.T) {
	f := newFixture()
	f.start(t)
	ctx := context.Background()

	f.engine.Tick(ctx, t0.Add(5*time.Minute))
	if f.events.calls != 0 {
		t.Fatalf("event generated before it was due")
	}
	for i := 1; i <= 5; i++ {
		f.engine.Tick(ctx, t0.Add(time.Duration(i)*15*time.Minute))
	}
	if f.events.calls != expedition.MaxPendingEvents {
		t.Fatalf("generated %d events, want %d", f.events.calls, expedition.MaxPendingEvents)
	}
}

func TestTick_CompletesOnceAtFullProgress(t *testing.T) {
	f := newFixture()
	f.start(t)
	ctx := context.Background()

	if n := f.engine.Tick(ctx, t0.Add(2*time.Hour)); n != 1 {
		t.Fatalf("completed = %d, want 1", n)
	}
	if n := f.engine.Tick(ctx, t0.Add(3*time.Hour)); n != 0 {
		t.Fatalf("second completion reported")
	}
	if len(f.completer.snaps) != 1 {
		t.Fatalf("completer called %d times", len(f.completer.snaps))
	}
	out := f.completer.snaps[0].Expedition.Outcome
	if out == nil || out.Recalled || out.Reason != "completed" || out.Progress != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if len(f.engine.ActiveIDs()) != 0 {
		t.Fatalf("completed expedition still active")
	}
	if _, ok := f.engine.Get("exp-1"); !ok {
		t.Fatalf("completed record must stay readable until pruned")
	}
}

func TestTick_RecallCompletesImmediately(t *testing.T) {
	f := newFixture()
	f.engine.MinTickSpacing = time.Hour
	f.start(t)
	_ = f.engine.Arena.With("exp-1", func(rec *session.Record) error {
		rec.RecallRequested = true
		rec.RecallReason = "recalled by emergency_recall"
		return nil
	})
	if n := f.engine.Tick(context.Background(), t0.Add(30*time.Minute)); n != 1 {
		t.Fatalf("recall must complete on the next tick")
	}
	out := f.completer.snaps[0].Expedition.Outcome
	if !out.Recalled || out.Reason != "recalled by emergency_recall" || out.Progress != 0.25 {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestStopAndPrune(t *testing.T) {
	f := newFixture()
	f.start(t)
	if !f.engine.Stop(context.Background(), "exp-1", "player cancelled") {
		t.Fatalf("stop failed")
	}
	if f.engine.Stop(context.Background(), "exp-1", "again") {
		t.Fatalf("second stop must be a no-op")
	}
	if f.notifier.actions[expedition.ActionStopped] != 1 {
		t.Fatalf("expected one stopped notification")
	}

	f.start(t)
	f.engine.Tick(context.Background(), t0.Add(2*time.Hour))
	if n := f.engine.Prune(t0.Add(2*time.Hour + 5*time.Minute)); n != 0 {
		t.Fatalf("pruned too early")
	}
	if n := f.engine.Prune(t0.Add(2*time.Hour + 10*time.Minute)); n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	if _, ok := f.engine.Get("exp-2"); ok {
		t.Fatalf("pruned record still readable")
	}
}
