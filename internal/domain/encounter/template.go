package encounter

import (
	"fmt"
	"math"
	"time"

	"wildtrek/internal/domain/expedition"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

var rarityWeights = map[Rarity]float64{
	RarityCommon:    1.0,
	RarityUncommon:  0.3,
	RarityRare:      0.1,
	RarityLegendary: 0.02,
}

func (r Rarity) Weight() float64 {
	return rarityWeights[r]
}

type ConditionKind string

const (
	CondStageIn         ConditionKind = "stage_in"
	CondRiskAtLeast     ConditionKind = "risk_at_least"
	CondModeIn          ConditionKind = "mode_in"
	CondMinTrainerLevel ConditionKind = "min_trainer_level"
	CondSkillAtLeast    ConditionKind = "skill_at_least"
	CondProgressBetween ConditionKind = "progress_between"
	CondHourBetween     ConditionKind = "hour_between"
)

// Condition contributes Weight to its template when satisfied.
type Condition struct {
	Kind   ConditionKind        `json:"kind"`
	Weight float64              `json:"weight"`
	Stages []expedition.Stage   `json:"stages,omitempty"`
	Modes  []expedition.Mode    `json:"modes,omitempty"`
	Risk   expedition.RiskLevel `json:"risk,omitempty"`
	Skill  expedition.Skill     `json:"skill,omitempty"`
	Min    float64              `json:"min,omitempty"`
	Max    float64              `json:"max,omitempty"`
}

type Template struct {
	ID              string               `json:"id"`
	Type            expedition.EventType `json:"type"`
	Rarity          Rarity               `json:"rarity"`
	Message         string               `json:"message"`
	Variants        []string             `json:"variants,omitempty"`
	Conditions      []Condition          `json:"conditions,omitempty"`
	Locations       []string             `json:"locations,omitempty"`
	Stages          []expedition.Stage   `json:"stages,omitempty"`
	CooldownMinutes int                  `json:"cooldown_minutes,omitempty"`
	Choices         []expedition.Choice  `json:"choices"`
}

func (t Template) Cooldown() time.Duration {
	return time.Duration(t.CooldownMinutes) * time.Minute
}

// Context is what the generator knows about the expedition at the moment an
// event is due.
type Context struct {
	ExpeditionID string
	LocationID   string
	Mode         expedition.Mode
	Stage        expedition.Stage
	Overall      float64
	Risk         expedition.RiskLevel
	Trainer      expedition.Trainer
	Now          time.Time
}

func (t Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template id is required")
	}
	if t.Rarity.Weight() <= 0 {
		return fmt.Errorf("template %s: unknown rarity %q", t.ID, t.Rarity)
	}
	if len(t.Choices) == 0 {
		return fmt.Errorf("template %s: at least one choice is required", t.ID)
	}
	seen := map[string]bool{}
	for _, c := range t.Choices {
		if c.ID == "" {
			return fmt.Errorf("template %s: choice id is required", t.ID)
		}
		if seen[c.ID] {
			return fmt.Errorf("template %s: duplicate choice id %s", t.ID, c.ID)
		}
		seen[c.ID] = true
		if c.SuccessRate < 0 || c.SuccessRate > 1 {
			return fmt.Errorf("template %s: choice %s success rate out of range", t.ID, c.ID)
		}
	}
	for _, cond := range t.Conditions {
		if cond.Weight < 0 || cond.Weight > 1 {
			return fmt.Errorf("template %s: condition %s weight out of range", t.ID, cond.Kind)
		}
	}
	return nil
}

// RestrictionsMatch checks the hard location and stage restrictions.
func (t Template) RestrictionsMatch(ctx Context) bool {
	if len(t.Locations) > 0 && !containsString(t.Locations, ctx.LocationID) {
		return false
	}
	if len(t.Stages) > 0 && !containsStage(t.Stages, ctx.Stage) {
		return false
	}
	return true
}

// ConditionsMet passes when satisfied condition weight is at least half the
// total; templates whose weights sum to zero always pass.
func (t Template) ConditionsMet(ctx Context) bool {
	total, satisfied := 0.0, 0.0
	for _, cond := range t.Conditions {
		total += cond.Weight
		if cond.Satisfied(ctx) {
			satisfied += cond.Weight
		}
	}
	if total <= 0 {
		return true
	}
	return satisfied >= 0.5*total-1e-9
}

func (c Condition) Satisfied(ctx Context) bool {
	switch c.Kind {
	case CondStageIn:
		return containsStage(c.Stages, ctx.Stage)
	case CondRiskAtLeast:
		return riskRank(ctx.Risk) >= riskRank(c.Risk)
	case CondModeIn:
		for _, m := range c.Modes {
			if m == ctx.Mode {
				return true
			}
		}
		return false
	case CondMinTrainerLevel:
		return float64(ctx.Trainer.Level) >= c.Min
	case CondSkillAtLeast:
		return float64(ctx.Trainer.SkillLevel(c.Skill)) >= c.Min
	case CondProgressBetween:
		return ctx.Overall >= c.Min && ctx.Overall <= c.Max
	case CondHourBetween:
		hour := float64(ctx.Now.Hour())
		if c.Min <= c.Max {
			return hour >= c.Min && hour < c.Max
		}
		// wraps midnight, e.g. 20..5
		return hour >= c.Min || hour < c.Max
	default:
		return false
	}
}

func riskRank(r expedition.RiskLevel) int {
	switch r {
	case expedition.RiskLow:
		return 0
	case expedition.RiskMedium:
		return 1
	case expedition.RiskHigh:
		return 2
	case expedition.RiskCritical:
		return 3
	default:
		return math.MinInt32
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsStage(list []expedition.Stage, v expedition.Stage) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
