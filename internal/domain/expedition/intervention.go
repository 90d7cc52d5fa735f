package expedition

import "time"

type ModifierKind string

const (
	ModifierProgress       ModifierKind = "progress"
	ModifierSpeed          ModifierKind = "speed"
	ModifierRiskReduction  ModifierKind = "risk_reduction"
	ModifierSuccessBonus   ModifierKind = "success_bonus"
	ModifierEventFrequency ModifierKind = "event_frequency"
	ModifierLootBonus      ModifierKind = "loot_bonus"
	ModifierTrust          ModifierKind = "trust"
	ModifierRecall         ModifierKind = "recall"
)

// AppliedEffect with Duration 0 lasts for the rest of the expedition.
type AppliedEffect struct {
	ID        string        `json:"id"`
	ActionID  string        `json:"action_id"`
	Kind      ModifierKind  `json:"kind"`
	Value     float64       `json:"value"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

func (e AppliedEffect) Permanent() bool {
	return e.Duration == 0
}

func (e AppliedEffect) Live(now time.Time) bool {
	return e.Duration == 0 || now.Before(e.StartTime.Add(e.Duration))
}

func (e AppliedEffect) ExpiresAt() time.Time {
	if e.Duration == 0 {
		return time.Time{}
	}
	return e.StartTime.Add(e.Duration)
}

type ActiveIntervention struct {
	ID            string          `json:"id"`
	ActionID      string          `json:"action_id"`
	ExpeditionID  string          `json:"expedition_id"`
	AppliedAt     time.Time       `json:"applied_at"`
	Cost          int             `json:"cost"`
	Emergency     bool            `json:"emergency,omitempty"`
	EventID       string          `json:"event_id,omitempty"`
	Effects       []AppliedEffect `json:"effects"`
	StageAtUse    Stage           `json:"stage_at_use"`
	TrustGained   int             `json:"trust_gained,omitempty"`
	ProgressBoost float64         `json:"progress_boost,omitempty"`
}

// SumLive totals the values of live effects of one kind.
func SumLive(effects []AppliedEffect, kind ModifierKind, now time.Time) float64 {
	total := 0.0
	for _, e := range effects {
		if e.Kind == kind && e.Live(now) {
			total += e.Value
		}
	}
	return total
}

// PurgeExpired drops expired effects in place and reports how many were removed.
func PurgeExpired(effects []AppliedEffect, now time.Time) ([]AppliedEffect, int) {
	kept := effects[:0]
	removed := 0
	for _, e := range effects {
		if e.Live(now) {
			kept = append(kept, e)
			continue
		}
		removed++
	}
	for i := len(kept); i < len(effects); i++ {
		effects[i] = AppliedEffect{}
	}
	return kept, removed
}
