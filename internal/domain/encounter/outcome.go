package encounter

import (
	"fmt"
	"math"
	"time"

	"wildtrek/internal/domain/expedition"
)

var failureMessages = map[expedition.RiskTier][]string{
	expedition.RiskTierLow: {
		"It didn't work out, but nothing was lost.",
		"A minor setback. The trainer shrugs it off.",
	},
	expedition.RiskTierMedium: {
		"The attempt failed and cost the team some time.",
		"Things went sideways; the trainer regroups.",
	},
	expedition.RiskTierHigh: {
		"A costly failure. The team had to retreat and recover.",
		"The gamble did not pay off and the expedition lost ground.",
	},
}

func failureMessage(tier expedition.RiskTier, rng Random) string {
	msgs, ok := failureMessages[tier]
	if !ok {
		msgs = failureMessages[expedition.RiskTierMedium]
	}
	return msgs[rng.IntN(len(msgs))]
}

// Decide draws exactly one uniform value against rate and builds the
// resolution for the choice: its effect on success, a consolation
// experience gain and a progress penalty on failure.
func Decide(c expedition.Choice, rate float64, rng Random, now time.Time) expedition.Resolution {
	roll := rng.Float64()
	res := expedition.Resolution{
		ChoiceID:   c.ID,
		Rate:       rate,
		Roll:       roll,
		ResolvedAt: now,
	}
	if roll < rate {
		res.Success = true
		applyEffect(&res, c.Effect)
		return res
	}
	res.ExperienceGained = expedition.FailureConsolationExperience
	res.ProgressDelta = expedition.FailureProgressPenalty(c.RiskTier)
	res.Message = failureMessage(c.RiskTier, rng)
	return res
}

func applyEffect(res *expedition.Resolution, e expedition.Effect) {
	amount := int(math.Round(e.Amount))
	switch e.Kind {
	case expedition.EffectCapture:
		n := amount
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			res.Captured = append(res.Captured, e.Target)
		}
		res.ExperienceGained = 20
		res.Message = fmt.Sprintf("Success! %s was caught.", e.Target)
	case expedition.EffectItem:
		n := amount
		if n <= 0 {
			n = 1
		}
		res.Items = map[string]int{e.Target: n}
		res.Message = fmt.Sprintf("Success! Found %d x %s.", n, e.Target)
	case expedition.EffectExperience:
		res.ExperienceGained = amount
		res.Message = fmt.Sprintf("Success! The trainer gained %d experience.", amount)
	case expedition.EffectMoney:
		res.MoneyGained = amount
		res.Message = fmt.Sprintf("Success! Earned %d coins.", amount)
	case expedition.EffectProgress:
		res.ProgressDelta = e.Amount
		res.Message = fmt.Sprintf("Success! The expedition gained %.0f%% ground.", e.Amount*100)
	default:
		res.Message = "Success!"
	}
}
