package reward

import (
	"math"
	"time"

	"wildtrek/internal/domain/expedition"
)

const (
	HourlyRate       = 100.0
	DifficultyWeight = 0.5

	DifficultyThreshold  = 0.6
	DifficultyMultiplier = 1.25

	PerformanceThreshold  = 0.8
	PerformanceMultiplier = 1.2

	FastEfficiency     = 1.2
	FastMultiplier     = 1.15
	SlowEfficiency     = 0.9
	SlowMultiplier     = 0.85
	AggressiveMultiple = 1.3

	SkillThreshold     = 5.0
	SkillStep          = 0.03
	SkillMultiplierCap = 1.3

	EventSuccessAmount = 25.0
	EventSuccessStep   = 0.05
)

type BonusName string

const (
	BonusDifficulty  BonusName = "difficulty"
	BonusPerformance BonusName = "performance"
	BonusDuration    BonusName = "duration"
	BonusRisk        BonusName = "risk"
	BonusSkill       BonusName = "skill"
	BonusEvents      BonusName = "events"
)

// Bonus is one audited component. Multiplier is informational; only Amount
// contributes to the final reward.
type Bonus struct {
	Name       BonusName `json:"name"`
	Multiplier float64   `json:"multiplier"`
	Amount     float64   `json:"amount"`
	Applied    bool      `json:"applied"`
}

type Calculation struct {
	Base        float64 `json:"base"`
	Bonuses     []Bonus `json:"bonuses"`
	Efficiency  float64 `json:"efficiency"`
	SuccessRate float64 `json:"success_rate"`
	FinalReward int     `json:"final_reward"`
}

func (c Calculation) Bonus(name BonusName) (Bonus, bool) {
	for _, b := range c.Bonuses {
		if b.Name == name {
			return b, true
		}
	}
	return Bonus{}, false
}

// Total is the unfloored sum of base and every bonus amount.
func (c Calculation) Total() float64 {
	total := c.Base
	for _, b := range c.Bonuses {
		total += b.Amount
	}
	return total
}

type MoneyInput struct {
	PlannedDuration time.Duration
	ActualDuration  time.Duration
	Location        expedition.Location
	Mode            expedition.Mode
	Trainer         expedition.Trainer
	Events          []expedition.Event
	SuccessRate     float64
}

// DurationEfficiency is planned over actual; a missing actual duration counts
// as on schedule.
func DurationEfficiency(planned, actual time.Duration) float64 {
	if planned <= 0 || actual <= 0 {
		return 1
	}
	return float64(planned) / float64(actual)
}

func SuccessfulEvents(events []expedition.Event) int {
	n := 0
	for _, e := range events {
		if e.Resolution != nil && e.Resolution.Success {
			n++
		}
	}
	return n
}

func ComputeMoneyReward(in MoneyInput) Calculation {
	rate := expedition.Clamp01(in.SuccessRate)
	hours := in.PlannedDuration.Hours()
	if hours < 0 {
		hours = 0
	}
	base := hours * HourlyRate * (1 + in.Location.Difficulty*DifficultyWeight) * rate
	eff := DurationEfficiency(in.PlannedDuration, in.ActualDuration)

	calc := Calculation{Base: base, Efficiency: eff, SuccessRate: rate}
	scaled := func(name BonusName, applied bool, mult float64) Bonus {
		if !applied {
			return Bonus{Name: name, Multiplier: 1}
		}
		return Bonus{Name: name, Multiplier: mult, Amount: base * (mult - 1), Applied: true}
	}

	calc.Bonuses = append(calc.Bonuses, scaled(BonusDifficulty, in.Location.Difficulty > DifficultyThreshold, DifficultyMultiplier))
	calc.Bonuses = append(calc.Bonuses, scaled(BonusPerformance, rate > PerformanceThreshold, PerformanceMultiplier))
	switch {
	case eff > FastEfficiency:
		calc.Bonuses = append(calc.Bonuses, scaled(BonusDuration, true, FastMultiplier))
	case eff < SlowEfficiency:
		calc.Bonuses = append(calc.Bonuses, scaled(BonusDuration, true, SlowMultiplier))
	default:
		calc.Bonuses = append(calc.Bonuses, scaled(BonusDuration, false, 1))
	}
	calc.Bonuses = append(calc.Bonuses, scaled(BonusRisk, in.Mode == expedition.ModeAggressive, AggressiveMultiple))

	avg := in.Trainer.AverageSkill()
	skillMult := math.Min(SkillMultiplierCap, 1+SkillStep*(avg-SkillThreshold))
	calc.Bonuses = append(calc.Bonuses, scaled(BonusSkill, avg > SkillThreshold, skillMult))

	wins := SuccessfulEvents(in.Events)
	events := Bonus{Name: BonusEvents, Multiplier: 1}
	if wins > 0 {
		events = Bonus{
			Name:       BonusEvents,
			Multiplier: 1 + EventSuccessStep*float64(wins),
			Amount:     EventSuccessAmount * float64(wins),
			Applied:    true,
		}
	}
	calc.Bonuses = append(calc.Bonuses, events)

	calc.FinalReward = int(math.Max(0, math.Floor(calc.Total())))
	return calc
}
