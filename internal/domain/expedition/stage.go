package expedition

import (
	"math"
	"time"
)

func StageFor(overall float64) Stage {
	return bandFor(overall).stage
}

// StageProgress re-projects overall progress onto the sub-range of its stage.
func StageProgress(overall float64) float64 {
	b := bandFor(overall)
	width := b.upper - b.lower
	if width <= 0 {
		return 1
	}
	return Clamp01((Clamp01(overall) - b.lower) / width)
}

func StageOrder(s Stage) int {
	for i, b := range stageBands {
		if b.stage == s {
			return i
		}
	}
	return -1
}

func StageRateMultiplier(s Stage) float64 {
	for _, b := range stageBands {
		if b.stage == s {
			return b.rateMult
		}
	}
	return 1
}

func bandFor(overall float64) stageBand {
	p := Clamp01(overall)
	for _, b := range stageBands {
		if p < b.upper {
			return b
		}
	}
	return stageBands[len(stageBands)-1]
}

// RiskScore combines the stage base risk with a wave over overall progress so
// that tension rises and falls inside a stage instead of climbing linearly.
func RiskScore(overall float64, mode Mode, locationRiskMult, reduction float64) float64 {
	b := bandFor(overall)
	if locationRiskMult <= 0 {
		locationRiskMult = 1
	}
	base := b.baseRisk * ModeRiskMultiplier(mode) * locationRiskMult
	wave := RiskWaveAmplitude * math.Sin(2*math.Pi*RiskWaveCycles*Clamp01(overall))
	return Clamp01(base + wave - reduction)
}

func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score < RiskMediumThreshold:
		return RiskLow
	case score < RiskHighThreshold:
		return RiskMedium
	case score < RiskCriticalThreshold:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// NextEventDelay scales BaseEventDelay by stage and mode; jitter is a uniform
// draw in [0,1) mapped onto the 0.5x..1.5x band.
func NextEventDelay(base time.Duration, stage Stage, mode Mode, frequencyBonus, jitter float64) time.Duration {
	if base <= 0 {
		base = BaseEventDelay
	}
	mult := 1.0
	for _, b := range stageBands {
		if b.stage == stage {
			mult = b.eventMult
			break
		}
	}
	freq := ModeEventFrequency(mode) * (1 + frequencyBonus)
	if freq <= 0 {
		freq = 1
	}
	band := 0.5 + Clamp01(jitter)
	return time.Duration(float64(base) * mult / freq * band)
}

func ClampRate(rate float64) float64 {
	if math.IsNaN(rate) {
		return MinSuccessRate
	}
	return math.Max(MinSuccessRate, math.Min(MaxSuccessRate, rate))
}

func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
