package intervention

import (
	"context"
	"errors"
	"testing"
	"time"

	"wildtrek/internal/app/resolver"
	"wildtrek/internal/app/session"
	"wildtrek/internal/app/shared/cooldown"
	"wildtrek/internal/domain/expedition"
	"wildtrek/internal/platform/id"
	"wildtrek/internal/platform/random"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	items []expedition.Notification
}

func (n *recordingNotifier) Publish(item expedition.Notification) {
	n.items = append(n.items, item)
}

func (n *recordingNotifier) count(category expedition.NotificationCategory, action string) int {
	c := 0
	for _, item := range n.items {
		if item.Category == category && item.Action == action {
			c++
		}
	}
	return c
}

type recordingMetrics struct {
	accepted int
	rejected int
	resolved int
}

func (m *recordingMetrics) RecordTick(int) {}
func (m *recordingMetrics) RecordEventGenerated(expedition.EventType) {}
func (m *recordingMetrics) RecordEventResolved(bool) { m.resolved++ }
func (m *recordingMetrics) RecordCompletion(string) {}
func (m *recordingMetrics) RecordIntervention(_ string, accepted bool) {
	if accepted {
		m.accepted++
		return
	}
	m.rejected++
}

type fixture struct {
	ctrl     Controller
	arena    *session.Arena
	notifier *recordingNotifier
	metrics  *recordingMetrics
	clock    *time.Time
}

func newFixture(t *testing.T, rng *random.Fixed) *fixture {
	t.Helper()
	now := t0
	f := &fixture{
		arena:    session.NewArena(),
		notifier: &recordingNotifier{},
		metrics:  &recordingMetrics{},
		clock:    &now,
	}
	clock := func() time.Time { return *f.clock }
	seq := id.Sequence()
	cooldowns := cooldown.NewTable()
	f.ctrl = Controller{
		Arena:     f.arena,
		Catalog:   DefaultCatalog(),
		Cooldowns: cooldowns,
		Events: resolver.Service{
			Arena:     f.arena,
			Cooldowns: cooldowns,
			Notifier:  f.notifier,
			Metrics:   f.metrics,
			Random:    rng,
			NewID:     seq,
			Now:       clock,
		},
		Notifier: f.notifier,
		Metrics:  f.metrics,
		Random:   rng,
		NewID:    seq,
		Now:      clock,
	}
	rec := &session.Record{
		Expedition: expedition.Expedition{ID: "exp-1", TrainerID: "ash", Mode: expedition.ModeBalanced, StartedAt: t0},
		Trainer:    expedition.Trainer{ID: "ash", Level: 10, Trust: 30, Skills: map[expedition.Skill]int{expedition.SkillCapture: 3}},
		Progress:   expedition.Progress{ExpeditionID: "exp-1", Stage: expedition.StageEarly, Overall: 0.2},
	}
	rec.Expedition.Events = []expedition.Event{{
		ID:        "evt-a",
		Type:      expedition.EventDanger,
		Stage:     expedition.StageEarly,
		CreatedAt: t0,
		Choices: []expedition.Choice{
			{ID: "flee", SuccessRate: 0.5, RiskTier: expedition.RiskTierLow, Effect: expedition.Effect{Kind: expedition.EffectExperience, Amount: 5}},
			{ID: "fight", SuccessRate: 0.6, RiskTier: expedition.RiskTierHigh, Effect: expedition.Effect{Kind: expedition.EffectExperience, Amount: 30}},
		},
	}}
	if _, err := f.arena.Add(rec); err != nil {
		t.Fatalf("add record: %v", err)
	}
	return f
}

func (f *fixture) record(t *testing.T) session.Snapshot {
	t.Helper()
	snap, ok := f.arena.Snapshot("exp-1")
	if !ok {
		t.Fatalf("record missing")
	}
	return snap
}

func rich() *expedition.PlayerState {
	return &expedition.PlayerState{Level: 10, Money: 5000}
}

func TestExecute_MoneyShortByOneIsRejectedWithoutSideEffects(t *testing.T) {
	f := newFixture(t, &random.Fixed{})
	_, err := f.ctrl.Execute(context.Background(), ExecuteRequest{
		ExpeditionID: "exp-1",
		ActionID:     ActionRiskReduction,
		Player:       &expedition.PlayerState{Level: 10, Money: 499},
	})
	var reqErr *expedition.RequirementError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected requirement error, got %v", err)
	}
	if !errors.Is(err, expedition.ErrRequirementsNotMet) || !reqErr.Has(expedition.RequireMoney) {
		t.Fatalf("rejection must list money: %+v", reqErr.Failures)
	}
	snap := f.record(t)
	if len(snap.Effects) != 0 || len(snap.Expedition.Interventions) != 0 {
		t.Fatalf("rejected action must not apply anything: %+v", snap)
	}
	if snap.InterventionAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", snap.InterventionAttempts)
	}
	if f.ctrl.Cooldowns.Active(cooldown.Key(cooldown.KindAction, ActionRiskReduction), t0) {
		t.Fatalf("rejected action must not start a cooldown")
	}
	if f.metrics.rejected != 1 || f.notifier.count(expedition.CategoryIntervention, expedition.ActionApplied) != 0 {
		t.Fatalf("unexpected metrics/notifications: %+v %d", f.metrics, len(f.notifier.items))
	}

	res, err := f.ctrl.Execute(context.Background(), ExecuteRequest{
		ExpeditionID: "exp-1",
		ActionID:     ActionRiskReduction,
		Player:       &expedition.PlayerState{Level: 10, Money: 500},
	})
	if err != nil {
		t.Fatalf("execute with exact money: %v", err)
	}
	if res.Cost != 500 || res.MoneyAfter != 0 {
		t.Fatalf("cost accounting = %+v", res)
	}
}

func TestExecute_AppliesEffectsAndStartsCooldown(t *testing.T) {
	f := newFixture(t, &random.Fixed{})
	res, err := f.ctrl.Execute(context.Background(), ExecuteRequest{ExpeditionID: "exp-1", ActionID: ActionSupplyDrop, Player: rich()})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Intervention.ProgressBoost != 0.05 || len(res.Intervention.Effects) != 1 {
		t.Fatalf("intervention = %+v", res.Intervention)
	}
	snap := f.record(t)
	if len(snap.Effects) != 1 || snap.Effects[0].Kind != expedition.ModifierRiskReduction {
		t.Fatalf("effects = %+v", snap.Effects)
	}
	if snap.Expedition.Interventions[0].StageAtUse != expedition.StageEarly {
		t.Fatalf("stage at use = %s", snap.Expedition.Interventions[0].StageAtUse)
	}
	if f.notifier.count(expedition.CategoryIntervention, expedition.ActionApplied) != 1 {
		t.Fatalf("expected one applied notification")
	}

	*f.clock = t0.Add(5 * time.Minute)
	_, err = f.ctrl.Execute(context.Background(), ExecuteRequest{ExpeditionID: "exp-1", ActionID: ActionSupplyDrop, Player: rich()})
	var reqErr *expedition.RequirementError
	if !errors.As(err, &reqErr) || !reqErr.Has(expedition.RequireCooldown) {
		t.Fatalf("expected cooldown rejection, got %v", err)
	}
	if got := f.ctrl.RemainingCooldowns(*f.clock)[ActionSupplyDrop]; got != 600 {
		t.Fatalf("remaining cooldown = %d, want 600", got)
	}
}

func TestExecute_CombinesCooldownAndRequirementFailures(t *testing.T) {
	f := newFixture(t, &random.Fixed{})
	if _, err := f.ctrl.Execute(context.Background(), ExecuteRequest{ExpeditionID: "exp-1", ActionID: ActionTrustBuilding, Player: rich()}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	_, err := f.ctrl.Execute(context.Background(), ExecuteRequest{ExpeditionID: "exp-1", ActionID: ActionTrustBuilding, Player: &expedition.PlayerState{Money: 10}})
	var reqErr *expedition.RequirementError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected requirement error, got %v", err)
	}
	if !reqErr.Has(expedition.RequireCooldown) || !reqErr.Has(expedition.RequireMoney) {
		t.Fatalf("failures = %+v", reqErr.Failures)
	}
	if trust := f.record(t).Trainer.Trust; trust != 40 {
		t.Fatalf("trust = %d, want 40", trust)
	}
}

func TestExecute_UnknownActionSuggestsClosest(t *testing.T) {
	f := newFixture(t, &random.Fixed{})
	_, err := f.ctrl.Execute(context.Background(), ExecuteRequest{ExpeditionID: "exp-1", ActionID: "suply_drop", Player: rich()})
	var unknown *expedition.UnknownIDError
	if !errors.As(err, &unknown) || unknown.Suggestion != ActionSupplyDrop {
		t.Fatalf("expected suggestion supply_drop, got %v", err)
	}
}

func TestExecute_RecallFlagsRecordAndBlocksFurtherActions(t *testing.T) {
	f := newFixture(t, &random.Fixed{})
	res, err := f.ctrl.Execute(context.Background(), ExecuteRequest{ExpeditionID: "exp-1", ActionID: ActionEmergencyRecall, Player: rich()})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.RecallRequested || !f.record(t).RecallRequested {
		t.Fatalf("recall not requested")
	}
	_, err = f.ctrl.Execute(context.Background(), ExecuteRequest{ExpeditionID: "exp-1", ActionID: ActionTrustBuilding, Player: rich()})
	if !errors.Is(err, ErrExpeditionEnded) {
		t.Fatalf("expected ErrExpeditionEnded, got %v", err)
	}
}

func TestEmergencyExecute_UsesBestChoiceWithBonus(t *testing.T) {
	f := newFixture(t, &random.Fixed{Floats: []float64{0.8}})
	res, err := f.ctrl.EmergencyExecute(context.Background(), EmergencyRequest{
		ExpeditionID: "exp-1",
		EventID:      "evt-a",
		ActionID:     ActionSupplyDrop,
		Player:       rich(),
	})
	if err != nil {
		t.Fatalf("emergency: %v", err)
	}
	if res.ChoiceID != "fight" || !res.Success || !res.Emergency || res.ActionID != ActionSupplyDrop {
		t.Fatalf("resolution = %+v", res)
	}
	if res.Rate != 0.85 {
		t.Fatalf("rate = %v, want 0.85", res.Rate)
	}
	remaining, ok := f.ctrl.Cooldowns.Remaining(cooldown.Key(cooldown.KindAction, ActionSupplyDrop), t0)
	if !ok || remaining != 7*time.Minute+30*time.Second {
		t.Fatalf("emergency cooldown = %v", remaining)
	}
	snap := f.record(t)
	if snap.Expedition.Events[0].Pending() || snap.Tally.Experience != 30 {
		t.Fatalf("event not settled: %+v", snap)
	}
	iv := snap.Expedition.Interventions[0]
	if !iv.Emergency || iv.EventID != "evt-a" {
		t.Fatalf("intervention = %+v", iv)
	}

	_, err = f.ctrl.EmergencyExecute(context.Background(), EmergencyRequest{ExpeditionID: "exp-1", EventID: "evt-a", ActionID: ActionTrustBuilding, Player: rich()})
	if !errors.Is(err, expedition.ErrEventAlreadyResolved) {
		t.Fatalf("expected already resolved, got %v", err)
	}
}

func TestEmergencyExecute_RecallWithdrawsIgnoringCooldown(t *testing.T) {
	f := newFixture(t, &random.Fixed{})
	f.ctrl.Cooldowns.Start(cooldown.Key(cooldown.KindAction, ActionEmergencyRecall), t0, time.Hour)
	res, err := f.ctrl.EmergencyExecute(context.Background(), EmergencyRequest{
		ExpeditionID: "exp-1",
		EventID:      "evt-a",
		ActionID:     ActionEmergencyRecall,
		Player:       rich(),
	})
	if err != nil {
		t.Fatalf("emergency recall: %v", err)
	}
	if res.Success || res.ChoiceID != "withdraw" || !res.Emergency {
		t.Fatalf("resolution = %+v", res)
	}
	if !f.record(t).RecallRequested {
		t.Fatalf("recall must be requested")
	}
}

func TestEmergencyExecute_UnknownEvent(t *testing.T) {
	f := newFixture(t, &random.Fixed{})
	_, err := f.ctrl.EmergencyExecute(context.Background(), EmergencyRequest{ExpeditionID: "exp-1", EventID: "evt-b", ActionID: ActionSupplyDrop, Player: rich()})
	if !errors.Is(err, expedition.ErrUnknownID) {
		t.Fatalf("expected unknown id, got %v", err)
	}
}

func TestOptions_ReportReasons(t *testing.T) {
	f := newFixture(t, &random.Fixed{})
	opts, err := f.ctrl.Options(context.Background(), AvailableRequest{ExpeditionID: "exp-1", Player: &expedition.PlayerState{Level: 4, Money: 260}})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	byID := map[string]Option{}
	for _, o := range opts {
		byID[o.Action.ID] = o
	}
	if !byID[ActionSupplyDrop].Available || !byID[ActionLuckyCharm].Available {
		t.Fatalf("supply drop and lucky charm should be available: %+v", byID)
	}
	if byID[ActionSpeedBoost].Available || byID[ActionRiskReduction].Available {
		t.Fatalf("speed boost and risk reduction should be blocked")
	}
	avail, err := f.ctrl.Available(context.Background(), AvailableRequest{ExpeditionID: "exp-1", Player: &expedition.PlayerState{Level: 4, Money: 260}})
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	for _, a := range avail {
		if a.ID == ActionSpeedBoost {
			t.Fatalf("speed boost listed as available")
		}
	}
}

func TestSweep_DropsExpiredEffects(t *testing.T) {
	f := newFixture(t, &random.Fixed{})
	if _, err := f.ctrl.Execute(context.Background(), ExecuteRequest{ExpeditionID: "exp-1", ActionID: ActionLuckyCharm, Player: rich()}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if n := f.ctrl.Sweep(t0.Add(30 * time.Minute)); n != 0 {
		t.Fatalf("nothing should expire yet, got %d", n)
	}
	if n := f.ctrl.Sweep(t0.Add(45 * time.Minute)); n != 1 {
		t.Fatalf("expected the success bonus to expire, got %d", n)
	}
	live, err := f.ctrl.ActiveEffects("exp-1", t0.Add(10*time.Hour))
	if err != nil {
		t.Fatalf("active effects: %v", err)
	}
	if len(live) != 1 || live[0].Kind != expedition.ModifierLootBonus {
		t.Fatalf("only the permanent loot bonus should remain: %+v", live)
	}
	if f.notifier.count(expedition.CategoryIntervention, expedition.ActionEffectsExpired) != 1 {
		t.Fatalf("expected one effects_expired notification")
	}
	hist, err := f.ctrl.History("exp-1")
	if err != nil || len(hist) != 1 || hist[0].ActionID != ActionLuckyCharm {
		t.Fatalf("history = %+v, %v", hist, err)
	}
}

func TestEmergencyExecute_ShortCooldownHasFiveMinuteFloor(t *testing.T) {
	f := newFixture(t, &random.Fixed{Floats: []float64{0.8}})
	catalog, err := NewCatalog([]Action{{
		ID:       "berry_snack",
		Cost:     50,
		Cooldown: 4 * time.Minute,
		Effects:  []EffectSpec{{Kind: expedition.ModifierSuccessBonus, Value: 0.05, Duration: 10 * time.Minute}},
	}})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	f.ctrl.Catalog = catalog

	if _, err := f.ctrl.EmergencyExecute(context.Background(), EmergencyRequest{
		ExpeditionID: "exp-1",
		EventID:      "evt-a",
		ActionID:     "berry_snack",
		Player:       rich(),
	}); err != nil {
		t.Fatalf("emergency: %v", err)
	}
	remaining, ok := f.ctrl.Cooldowns.Remaining(cooldown.Key(cooldown.KindAction, "berry_snack"), t0)
	if !ok || remaining != EmergencyCooldownFloor {
		t.Fatalf("emergency cooldown = %v, want %v", remaining, EmergencyCooldownFloor)
	}
}
