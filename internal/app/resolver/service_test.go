package resolver

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"wildtrek/internal/app/session"
	"wildtrek/internal/app/shared/cooldown"
	"wildtrek/internal/domain/encounter"
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

func testTemplate() encounter.Template {
	return encounter.Template{
		ID:              "rockslide",
		Type:            expedition.EventDanger,
		Rarity:          encounter.RarityCommon,
		Message:         "Rocks tumble down the slope.",
		CooldownMinutes: 30,
		Choices: []expedition.Choice{
			{
				ID:              "sneak",
				SuccessRate:     0.5,
				Skill:           expedition.SkillCapture,
				RiskTier:        expedition.RiskTierLow,
				CooldownMinutes: 20,
				Effect:          expedition.Effect{Kind: expedition.EffectExperience, Amount: 15},
			},
			{
				ID:           "dig",
				SuccessRate:  0.7,
				RiskTier:     expedition.RiskTierMedium,
				Requirements: []expedition.Requirement{{Type: expedition.RequireItem, Item: "shovel"}},
				Effect:       expedition.Effect{Kind: expedition.EffectMoney, Amount: 40},
			},
		},
	}
}

func newService(t *testing.T, rng *random.Fixed) (Service, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	s := Service{
		Arena:     session.NewArena(),
		Catalog:   encounter.MustCatalog([]encounter.Template{testTemplate()}),
		Cooldowns: cooldown.NewTable(),
		Notifier:  n,
		Random:    rng,
		NewID:     id.Sequence(),
		Now:       func() time.Time { return t0 },
	}
	rec := &session.Record{
		Expedition: expedition.Expedition{ID: "exp-1", LocationID: "mt_moon", Mode: expedition.ModeBalanced, StartedAt: t0},
		Trainer:    expedition.Trainer{ID: "ash", Skills: map[expedition.Skill]int{expedition.SkillCapture: 2}},
		Progress:   expedition.Progress{ExpeditionID: "exp-1", Stage: expedition.StageEarly, RiskLevel: expedition.RiskMedium},
	}
	if _, err := s.Arena.Add(rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	return s, n
}

func TestGenerate_AppendsEventAndStartsTemplateCooldown(t *testing.T) {
	s, n := newService(t, &random.Fixed{Floats: []float64{0.3}})
	evt, err := s.Generate(context.Background(), GenerateContext{ExpeditionID: "exp-1"})
	if err != nil || evt == nil {
		t.Fatalf("generate: %v %v", evt, err)
	}
	if evt.ID != "evt-1" || evt.TemplateID != "rockslide" || evt.Stage != expedition.StageEarly {
		t.Fatalf("event = %+v", evt)
	}
	if evt.Choices[0].SuccessRate != 0.5 {
		t.Fatalf("early/medium rate must be unchanged, got %v", evt.Choices[0].SuccessRate)
	}
	if len(n.items) != 1 || n.items[0].Action != expedition.ActionCreated {
		t.Fatalf("notifications = %+v", n.items)
	}

	again, err := s.Generate(context.Background(), GenerateContext{ExpeditionID: "exp-1"})
	if err != nil || again != nil {
		t.Fatalf("template on cooldown must yield no event, got %v %v", again, err)
	}
	pending, _ := s.Pending("exp-1")
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
}

func TestResolveChoice_AppliesSkillAndEffectBonuses(t *testing.T) {
	s, n := newService(t, &random.Fixed{Floats: []float64{0.3}})
	evt, _ := s.Generate(context.Background(), GenerateContext{ExpeditionID: "exp-1"})
	_ = s.Arena.With("exp-1", func(rec *session.Record) error {
		rec.Effects = append(rec.Effects, expedition.AppliedEffect{ID: "eff-1", Kind: expedition.ModifierSuccessBonus, Value: 0.15, StartTime: t0, Duration: time.Hour})
		return nil
	})

	resp, err := s.ResolveChoice(context.Background(), ResolveRequest{ExpeditionID: "exp-1", EventID: evt.ID, ChoiceID: "sneak"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resp.Rate.SkillBonus != 0.04 || resp.Rate.ExtraBonus != 0.15 {
		t.Fatalf("rate breakdown = %+v", resp.Rate)
	}
	if math.Abs(resp.Rate.Effective-0.69) > 1e-9 {
		t.Fatalf("effective rate = %v, want 0.69", resp.Rate.Effective)
	}
	if !resp.Resolution.Success || resp.Resolution.ExperienceGained != 15 {
		t.Fatalf("resolution = %+v", resp.Resolution)
	}
	snap, _ := s.Arena.Snapshot("exp-1")
	if snap.Tally.Experience != 15 {
		t.Fatalf("tally = %+v", snap.Tally)
	}
	last := n.items[len(n.items)-1]
	if last.Action != expedition.ActionResolved {
		t.Fatalf("last notification = %s", last.Action)
	}
	if before, ok := last.Before.(expedition.Event); !ok || !before.Pending() {
		t.Fatalf("before snapshot must show the pending event")
	}

	_, err = s.ResolveChoice(context.Background(), ResolveRequest{ExpeditionID: "exp-1", EventID: evt.ID, ChoiceID: "sneak"})
	if !errors.Is(err, expedition.ErrEventAlreadyResolved) {
		t.Fatalf("expected already resolved, got %v", err)
	}
}

func TestResolveChoice_UnknownIDs(t *testing.T) {
	s, _ := newService(t, &random.Fixed{Floats: []float64{0.3}})
	evt, _ := s.Generate(context.Background(), GenerateContext{ExpeditionID: "exp-1"})

	_, err := s.ResolveChoice(context.Background(), ResolveRequest{ExpeditionID: "exp-1", EventID: "evt-9", ChoiceID: "sneak"})
	if !errors.Is(err, expedition.ErrUnknownID) {
		t.Fatalf("unknown event: %v", err)
	}
	_, err = s.ResolveChoice(context.Background(), ResolveRequest{ExpeditionID: "exp-1", EventID: evt.ID, ChoiceID: "snek"})
	var unknown *expedition.UnknownIDError
	if !errors.As(err, &unknown) || unknown.Suggestion != "sneak" {
		t.Fatalf("unknown choice: %v", err)
	}
	if _, err := s.ResolveChoice(context.Background(), ResolveRequest{ExpeditionID: "exp-1"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("blank request: %v", err)
	}
}

func TestResolveChoice_MandatoryRequirementLeavesEventPending(t *testing.T) {
	s, _ := newService(t, &random.Fixed{Floats: []float64{0.3}})
	evt, _ := s.Generate(context.Background(), GenerateContext{ExpeditionID: "exp-1"})

	_, err := s.ResolveChoice(context.Background(), ResolveRequest{
		ExpeditionID: "exp-1",
		EventID:      evt.ID,
		ChoiceID:     "dig",
		Player:       &expedition.PlayerState{Inventory: map[string]int{}},
	})
	var reqErr *expedition.RequirementError
	if !errors.As(err, &reqErr) || !reqErr.Has(expedition.RequireItem) {
		t.Fatalf("expected item requirement failure, got %v", err)
	}
	pending, _ := s.Pending("exp-1")
	if len(pending) != 1 {
		t.Fatalf("event must stay pending")
	}

	resp, err := s.ResolveChoice(context.Background(), ResolveRequest{
		ExpeditionID: "exp-1",
		EventID:      evt.ID,
		ChoiceID:     "dig",
		Player:       &expedition.PlayerState{Inventory: map[string]int{"shovel": 1}},
	})
	if err != nil || resp.Resolution.MoneyGained != 40 {
		t.Fatalf("resolve with shovel: %+v %v", resp, err)
	}
}

func TestResolveChoice_ChoiceCooldownSpansEvents(t *testing.T) {
	s, _ := newService(t, &random.Fixed{Floats: []float64{0.9}})
	_ = s.Arena.With("exp-1", func(rec *session.Record) error {
		tpl := testTemplate()
		rec.Expedition.Events = append(rec.Expedition.Events,
			expedition.Event{ID: "evt-a", TemplateID: tpl.ID, Choices: tpl.Choices, CreatedAt: t0},
			expedition.Event{ID: "evt-b", TemplateID: tpl.ID, Choices: tpl.Choices, CreatedAt: t0},
		)
		return nil
	})

	resp, err := s.ResolveChoice(context.Background(), ResolveRequest{ExpeditionID: "exp-1", EventID: "evt-a", ChoiceID: "sneak"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resp.Resolution.Success || resp.Resolution.ProgressDelta != -0.01 || resp.Resolution.ExperienceGained != expedition.FailureConsolationExperience {
		t.Fatalf("failure resolution = %+v", resp.Resolution)
	}
	_, err = s.ResolveChoice(context.Background(), ResolveRequest{ExpeditionID: "exp-1", EventID: "evt-b", ChoiceID: "sneak"})
	var reqErr *expedition.RequirementError
	if !errors.As(err, &reqErr) || !reqErr.Has(expedition.RequireCooldown) {
		t.Fatalf("expected choice cooldown, got %v", err)
	}
	if !s.Cooldowns.Active(ChoiceCooldownKey("rockslide", "sneak"), t0.Add(19*time.Minute)) {
		t.Fatalf("cooldown should last 20 minutes")
	}
}

func TestResolveChoice_FinishedExpeditionIsReadOnly(t *testing.T) {
	s, n := newService(t, &random.Fixed{Floats: []float64{0.3}})
	evt, _ := s.Generate(context.Background(), GenerateContext{ExpeditionID: "exp-1"})
	_ = s.Arena.With("exp-1", func(rec *session.Record) error {
		rec.Expedition.Outcome = &expedition.Outcome{CompletedAt: t0, Progress: 1, Reason: "completed"}
		return nil
	})
	published := len(n.items)

	_, err := s.ResolveChoice(context.Background(), ResolveRequest{ExpeditionID: "exp-1", EventID: evt.ID, ChoiceID: "sneak"})
	if !errors.Is(err, expedition.ErrExpeditionEnded) {
		t.Fatalf("expected ErrExpeditionEnded, got %v", err)
	}
	snap, _ := s.Arena.Snapshot("exp-1")
	if snap.Tally.Experience != 0 || !snap.Expedition.Events[0].Pending() {
		t.Fatalf("finished record changed: tally=%+v", snap.Tally)
	}
	if len(n.items) != published {
		t.Fatalf("no notification expected after completion, got %d", len(n.items)-published)
	}
	if s.Cooldowns.Active(ChoiceCooldownKey("rockslide", "sneak"), t0) {
		t.Fatalf("rejected resolve must not start a choice cooldown")
	}
}
