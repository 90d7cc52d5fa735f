package expedition

import "time"

const (
	MinSuccessRate = 0.05
	MaxSuccessRate = 0.95

	BaseEventDelay   = 5 * time.Minute
	MaxPendingEvents = 3

	ProgressNotifyDelta = 0.01

	RiskWaveAmplitude = 0.15
	RiskWaveCycles    = 3.0

	RiskMediumThreshold   = 0.3
	RiskHighThreshold     = 0.6
	RiskCriticalThreshold = 0.8

	EffectSweepInterval = 30 * time.Second
)

type stageBand struct {
	stage     Stage
	lower     float64
	upper     float64
	baseRisk  float64
	eventMult float64
	rateMult  float64
}

// stageBands is ordered; upper bounds are exclusive except for the last band.
var stageBands = []stageBand{
	{stage: StagePreparation, lower: 0, upper: 0.10, baseRisk: 0.10, eventMult: 2.0, rateMult: 1.10},
	{stage: StageEarly, lower: 0.10, upper: 0.30, baseRisk: 0.30, eventMult: 1.0, rateMult: 1.00},
	{stage: StageMiddle, lower: 0.30, upper: 0.70, baseRisk: 0.45, eventMult: 0.8, rateMult: 0.95},
	{stage: StageLate, lower: 0.70, upper: 0.95, baseRisk: 0.55, eventMult: 0.9, rateMult: 0.90},
	{stage: StageCompletion, lower: 0.95, upper: 1.0, baseRisk: 0.20, eventMult: 1.5, rateMult: 1.00},
}

type modeSpec struct {
	riskMult      float64
	eventFreqMult float64
}

var modeTuning = map[Mode]modeSpec{
	ModeSafe:        {riskMult: 0.7, eventFreqMult: 0.8},
	ModeBalanced:    {riskMult: 1.0, eventFreqMult: 1.0},
	ModeExploration: {riskMult: 1.1, eventFreqMult: 1.3},
	ModeAggressive:  {riskMult: 1.4, eventFreqMult: 1.1},
}

var riskRateMultipliers = map[RiskLevel]float64{
	RiskLow:      1.10,
	RiskMedium:   1.00,
	RiskHigh:     0.85,
	RiskCritical: 0.70,
}

var failureProgressPenalty = map[RiskTier]float64{
	RiskTierLow:    -0.01,
	RiskTierMedium: -0.02,
	RiskTierHigh:   -0.04,
}

const FailureConsolationExperience = 5

func ModeRiskMultiplier(m Mode) float64 {
	if spec, ok := modeTuning[m]; ok {
		return spec.riskMult
	}
	return 1
}

func ModeEventFrequency(m Mode) float64 {
	if spec, ok := modeTuning[m]; ok {
		return spec.eventFreqMult
	}
	return 1
}

func RiskRateMultiplier(level RiskLevel) float64 {
	if m, ok := riskRateMultipliers[level]; ok {
		return m
	}
	return 1
}

func FailureProgressPenalty(tier RiskTier) float64 {
	if p, ok := failureProgressPenalty[tier]; ok {
		return p
	}
	return failureProgressPenalty[RiskTierMedium]
}
