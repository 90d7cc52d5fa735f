package report

import (
	"fmt"
	"sort"
	"time"

	"wildtrek/internal/domain/expedition"
	"wildtrek/internal/domain/reward"
)

type Outcome string

const (
	OutcomeExcellent Outcome = "excellent"
	OutcomeSuccess   Outcome = "success"
	OutcomeRecalled  Outcome = "recalled"
	OutcomePartial   Outcome = "partial"
	OutcomeFailure   Outcome = "failure"
)

const (
	ExcellentLootValue = 1500
	PartialProgress    = 0.5

	DecisionQualityFloor  = 0.7
	EfficiencyFloor       = 0.9
	SkillUtilizationFloor = 0.5
	SpeedRunnerEfficiency = 1.2
	FlawlessMinEvents     = 3
)

type Input struct {
	Expedition           expedition.Expedition
	Trainer              expedition.Trainer
	Location             expedition.Location
	Transitions          []expedition.StageTransition
	Reward               reward.Calculation
	Loot                 reward.Loot
	CaptureRich          bool
	RecallRequested      bool
	InterventionAttempts int
	CriticalTicks        int
	PeakRisk             expedition.RiskLevel
}

type Performance struct {
	SkillUtilization float64 `json:"skill_utilization"`
	DecisionQuality  float64 `json:"decision_quality"`
	Adaptability     float64 `json:"adaptability"`
	Overall          float64 `json:"overall"`
}

type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Recommendation struct {
	ID       string `json:"id"`
	Priority int    `json:"priority"`
	Message  string `json:"message"`
}

type Report struct {
	ExpeditionID    string               `json:"expedition_id"`
	TrainerID       string               `json:"trainer_id"`
	LocationID      string               `json:"location_id"`
	Mode            expedition.Mode      `json:"mode"`
	Outcome         Outcome              `json:"outcome"`
	FinalProgress   float64              `json:"final_progress"`
	PlannedDuration time.Duration        `json:"planned_duration"`
	ActualDuration  time.Duration        `json:"actual_duration"`
	Efficiency      float64              `json:"efficiency"`
	MoneyReward     int                  `json:"money_reward"`
	LootValue       int                  `json:"loot_value"`
	PokemonCaught   int                  `json:"pokemon_caught"`
	EventsTotal     int                  `json:"events_total"`
	EventsResolved  int                  `json:"events_resolved"`
	EventsSucceeded int                  `json:"events_succeeded"`
	Interventions   int                  `json:"interventions"`
	PeakRisk        expedition.RiskLevel `json:"peak_risk"`
	Timeline        []TimelineEntry      `json:"timeline"`
	Performance     Performance          `json:"performance"`
	Achievements    []Achievement        `json:"achievements"`
	Recommendations []Recommendation     `json:"recommendations"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

// DecisionRatio is the success ratio over resolved events; with nothing
// resolved it is 1 so an idle expedition is not scored as a bad one.
func DecisionRatio(events []expedition.Event) (ratio float64, resolved, succeeded int) {
	for _, e := range events {
		if e.Resolution == nil {
			continue
		}
		resolved++
		if e.Resolution.Success {
			succeeded++
		}
	}
	if resolved == 0 {
		return 1, 0, 0
	}
	return float64(succeeded) / float64(resolved), resolved, succeeded
}

// Build is a pure function of its input.
func Build(in Input) Report {
	exp := in.Expedition
	finishedAt := exp.StartedAt
	progress := exp.Progress
	if exp.Outcome != nil {
		finishedAt = exp.Outcome.CompletedAt
		progress = exp.Outcome.Progress
	}
	actual := finishedAt.Sub(exp.StartedAt)
	ratio, resolved, succeeded := DecisionRatio(exp.Events)

	r := Report{
		ExpeditionID:    exp.ID,
		TrainerID:       exp.TrainerID,
		LocationID:      exp.LocationID,
		Mode:            exp.Mode,
		FinalProgress:   progress,
		PlannedDuration: exp.PlannedDuration,
		ActualDuration:  actual,
		Efficiency:      reward.DurationEfficiency(exp.PlannedDuration, actual),
		MoneyReward:     in.Reward.FinalReward,
		LootValue:       in.Loot.TotalValue(),
		PokemonCaught:   len(in.Loot.Pokemon) + capturedDuringEvents(exp.Events),
		EventsTotal:     len(exp.Events),
		EventsResolved:  resolved,
		EventsSucceeded: succeeded,
		Interventions:   len(exp.Interventions),
		PeakRisk:        in.PeakRisk,
		GeneratedAt:     finishedAt,
	}
	r.Outcome = classify(progress, r.LootValue, in.RecallRequested || (exp.Outcome != nil && exp.Outcome.Recalled))
	r.Timeline = BuildTimeline(exp, in.Transitions)
	r.Performance = score(in, ratio)
	r.Achievements = achievements(in, r)
	r.Recommendations = recommendations(in, r)
	return r
}

func classify(progress float64, lootValue int, recalled bool) Outcome {
	switch {
	case progress >= 1 && lootValue >= ExcellentLootValue:
		return OutcomeExcellent
	case progress >= 1:
		return OutcomeSuccess
	case recalled:
		return OutcomeRecalled
	case progress >= PartialProgress:
		return OutcomePartial
	default:
		return OutcomeFailure
	}
}

func capturedDuringEvents(events []expedition.Event) int {
	n := 0
	for _, e := range events {
		if e.Resolution != nil {
			n += len(e.Resolution.Captured)
		}
	}
	return n
}

func score(in Input, decisionRatio float64) Performance {
	trained := map[expedition.Skill]bool{}
	for s, lvl := range in.Trainer.Skills {
		if lvl > 0 {
			trained[s] = true
		}
	}
	used := map[expedition.Skill]bool{}
	types := map[expedition.EventType]bool{}
	for _, e := range in.Expedition.Events {
		if e.Resolution == nil {
			continue
		}
		types[e.Type] = true
		if c, ok := e.Choice(e.Resolution.ChoiceID); ok && trained[c.Skill] {
			used[c.Skill] = true
		}
	}

	p := Performance{DecisionQuality: decisionRatio}
	if len(trained) > 0 {
		p.SkillUtilization = float64(len(used)) / float64(len(trained))
	}
	variety := float64(len(types)) / float64(len(expedition.AllEventTypes))
	interventionSuccess := 1.0
	if in.InterventionAttempts > 0 {
		interventionSuccess = expedition.Clamp01(float64(len(in.Expedition.Interventions)) / float64(in.InterventionAttempts))
	}
	p.Adaptability = 0.5*variety + 0.5*interventionSuccess
	p.Overall = (p.SkillUtilization + p.DecisionQuality + p.Adaptability) / 3
	return p
}

func achievements(in Input, r Report) []Achievement {
	var out []Achievement
	if r.EventsResolved >= FlawlessMinEvents && r.EventsSucceeded == r.EventsResolved {
		out = append(out, Achievement{ID: "flawless", Title: "Flawless", Description: fmt.Sprintf("All %d events resolved successfully.", r.EventsResolved)})
	}
	for _, p := range in.Loot.Pokemon {
		if reward.RarePlus(p.Rarity) {
			out = append(out, Achievement{ID: "big_catch", Title: "Big Catch", Description: fmt.Sprintf("Brought back a %s %s.", p.Rarity, p.Name)})
			break
		}
	}
	if r.FinalProgress >= 1 && r.Efficiency > SpeedRunnerEfficiency {
		out = append(out, Achievement{ID: "speed_runner", Title: "Speed Runner", Description: fmt.Sprintf("Finished at %.0f%% of the planned time.", 100/r.Efficiency)})
	}
	if r.FinalProgress >= 1 && r.Interventions == 0 && in.InterventionAttempts == 0 {
		out = append(out, Achievement{ID: "hands_off", Title: "Hands Off", Description: "Completed without a single intervention."})
	}
	if r.FinalProgress >= 1 && in.CriticalTicks > 0 {
		out = append(out, Achievement{ID: "survivor", Title: "Survivor", Description: "Pushed through critical risk and made it back."})
	}
	return out
}

func recommendations(in Input, r Report) []Recommendation {
	var out []Recommendation
	if in.CriticalTicks > 0 && in.Expedition.Mode != expedition.ModeSafe {
		out = append(out, Recommendation{ID: "safer_mode", Priority: 1,
			Message: "Risk reached critical levels; consider a safer mode or a risk reduction intervention."})
	}
	if r.Performance.DecisionQuality < DecisionQualityFloor {
		out = append(out, Recommendation{ID: "training", Priority: 2,
			Message: fmt.Sprintf("Only %.0f%% of decisions succeeded; more training would raise success rates.", r.Performance.DecisionQuality*100)})
	}
	if r.Efficiency < EfficiencyFloor {
		out = append(out, Recommendation{ID: "planning", Priority: 3,
			Message: "The expedition ran over its planned duration; plan a shorter route or use speed boosts."})
	}
	if r.EventsResolved > 0 && r.Performance.SkillUtilization < SkillUtilizationFloor {
		out = append(out, Recommendation{ID: "diversify", Priority: 4,
			Message: "Most of the trainer's skills went unused; pick choices that draw on different skills."})
	}
	if in.CaptureRich && r.PokemonCaught == 0 {
		out = append(out, Recommendation{ID: "capture_skill", Priority: 5,
			Message: fmt.Sprintf("%s is rich in pokémon but nothing was caught; train the capture skill.", locationName(in.Location))})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func locationName(l expedition.Location) string {
	if l.Name != "" {
		return l.Name
	}
	return l.ID
}
