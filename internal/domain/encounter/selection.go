package encounter

import (
	"math"

	"wildtrek/internal/domain/expedition"
)

// Random is the subset of ports.Random the encounter rules draw from.
type Random interface {
	Float64() float64
	IntN(n int) int
}

// Select performs cumulative-weight roulette over template rarity weights
// using a single uniform draw.
func Select(eligible []Template, rng Random) (Template, bool) {
	total := 0.0
	for _, t := range eligible {
		total += t.Rarity.Weight()
	}
	if total <= 0 {
		return Template{}, false
	}
	r := rng.Float64() * total
	cumulative := 0.0
	for _, t := range eligible {
		w := t.Rarity.Weight()
		if w <= 0 {
			continue
		}
		cumulative += w
		if r < cumulative {
			return t, true
		}
	}
	// Float rounding can leave r == total; fall back to the last weighted template.
	for i := len(eligible) - 1; i >= 0; i-- {
		if eligible[i].Rarity.Weight() > 0 {
			return eligible[i], true
		}
	}
	return Template{}, false
}

// Instantiate materializes a template for the given context. Choice success
// rates are adjusted by stage and risk and kept inside [0.05, 0.95].
func Instantiate(t Template, ctx Context, eventID string, rng Random) expedition.Event {
	messages := make([]string, 0, 1+len(t.Variants))
	messages = append(messages, t.Message)
	messages = append(messages, t.Variants...)
	msg := messages[rng.IntN(len(messages))]

	stageMult := expedition.StageRateMultiplier(ctx.Stage)
	riskMult := expedition.RiskRateMultiplier(ctx.Risk)
	choices := make([]expedition.Choice, 0, len(t.Choices))
	for _, c := range t.Choices {
		c.SuccessRate = expedition.ClampRate(c.SuccessRate * stageMult * riskMult)
		c.Requirements = append([]expedition.Requirement(nil), c.Requirements...)
		if c.RiskTier == "" {
			c.RiskTier = expedition.RiskTierMedium
		}
		choices = append(choices, c)
	}
	return expedition.Event{
		ID:         eventID,
		TemplateID: t.ID,
		Type:       t.Type,
		Message:    msg,
		Choices:    choices,
		Stage:      ctx.Stage,
		RiskLevel:  ctx.Risk,
		CreatedAt:  ctx.Now,
	}
}

const (
	OptionalRequirementBonus = 0.10
	SkillLevelBonus          = 0.02
	ExperienceBonusCap       = 0.20
	ExperienceBonusDivisor   = 5000.0
)

type RateBreakdown struct {
	Base            float64 `json:"base"`
	OptionalBonus   float64 `json:"optional_bonus"`
	SkillBonus      float64 `json:"skill_bonus"`
	ExperienceBonus float64 `json:"experience_bonus"`
	ExtraBonus      float64 `json:"extra_bonus"`
	Effective       float64 `json:"effective"`
}

// EffectiveRate composes the choice rate with requirement, skill and
// experience bonuses plus any extra bonus (e.g. live intervention effects).
// Mandatory requirement failures are returned and the rate is then meaningless.
func EffectiveRate(c expedition.Choice, subject expedition.Subject, extra float64) (RateBreakdown, []expedition.RequirementFailure) {
	failures, optionalMet := expedition.CheckRequirements(c.Requirements, subject)
	b := RateBreakdown{
		Base:            c.SuccessRate,
		OptionalBonus:   float64(optionalMet) * OptionalRequirementBonus,
		ExperienceBonus: math.Min(ExperienceBonusCap, float64(subject.Trainer.Experience)/ExperienceBonusDivisor),
		ExtraBonus:      extra,
	}
	if c.Skill != "" {
		b.SkillBonus = float64(subject.Trainer.SkillLevel(c.Skill)) * SkillLevelBonus
	}
	if b.ExperienceBonus < 0 {
		b.ExperienceBonus = 0
	}
	b.Effective = expedition.ClampRate(b.Base + b.OptionalBonus + b.SkillBonus + b.ExperienceBonus + b.ExtraBonus)
	return b, failures
}
