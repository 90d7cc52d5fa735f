package intervention

import (
	"fmt"
	"sort"
	"time"

	"wildtrek/internal/domain/expedition"
)

const (
	ActionSupplyDrop      = "supply_drop"
	ActionSpeedBoost      = "speed_boost"
	ActionRiskReduction   = "risk_reduction"
	ActionLuckyCharm      = "lucky_charm"
	ActionScoutAhead      = "scout_ahead"
	ActionTrustBuilding   = "trust_building"
	ActionEmergencyRecall = "emergency_recall"

	DefaultEmergencyBonus    = 0.25
	EmergencyCooldownFloor   = 5 * time.Minute
	EmergencyCooldownDivisor = 2
)

// EffectSpec describes one effect of an action. Duration 0 on a timed kind
// makes the effect last for the rest of the expedition.
type EffectSpec struct {
	Kind     expedition.ModifierKind `json:"kind"`
	Value    float64                 `json:"value"`
	Duration time.Duration           `json:"duration"`
}

type Action struct {
	ID             string                   `json:"id"`
	Name           string                   `json:"name"`
	Description    string                   `json:"description"`
	Cost           int                      `json:"cost"`
	Cooldown       time.Duration            `json:"cooldown"`
	Requirements   []expedition.Requirement `json:"requirements,omitempty"`
	Effects        []EffectSpec             `json:"effects"`
	EmergencyBonus float64                  `json:"emergency_bonus,omitempty"`
}

func (a Action) Recall() bool {
	for _, e := range a.Effects {
		if e.Kind == expedition.ModifierRecall {
			return true
		}
	}
	return false
}

// EmergencyCooldown is half the normal cooldown with a five minute floor.
func (a Action) EmergencyCooldown() time.Duration {
	d := a.Cooldown / EmergencyCooldownDivisor
	if d < EmergencyCooldownFloor {
		return EmergencyCooldownFloor
	}
	return d
}

func (a Action) emergencyBonus() float64 {
	if a.EmergencyBonus > 0 {
		return a.EmergencyBonus
	}
	return DefaultEmergencyBonus
}

// requirements adds the implicit money >= cost check unless an explicit
// money requirement already covers it.
func (a Action) requirements() []expedition.Requirement {
	reqs := append([]expedition.Requirement(nil), a.Requirements...)
	if a.Cost <= 0 {
		return reqs
	}
	for _, r := range reqs {
		if r.Type == expedition.RequireMoney && !r.Optional && r.Value >= a.Cost {
			return reqs
		}
	}
	return append(reqs, expedition.Requirement{Type: expedition.RequireMoney, Value: a.Cost})
}

type Catalog struct {
	actions map[string]Action
}

func NewCatalog(actions []Action) (Catalog, error) {
	c := Catalog{actions: make(map[string]Action, len(actions))}
	for _, a := range actions {
		if a.ID == "" || len(a.Effects) == 0 {
			return Catalog{}, fmt.Errorf("action %q: id and at least one effect are required", a.ID)
		}
		if a.Cost < 0 || a.Cooldown < 0 {
			return Catalog{}, fmt.Errorf("action %s: negative cost or cooldown", a.ID)
		}
		if _, dup := c.actions[a.ID]; dup {
			return Catalog{}, fmt.Errorf("duplicate action id %s", a.ID)
		}
		c.actions[a.ID] = a
	}
	return c, nil
}

func DefaultCatalog() Catalog {
	c, err := NewCatalog(DefaultActions())
	if err != nil {
		panic(err)
	}
	return c
}

func (c Catalog) Action(id string) (Action, error) {
	a, ok := c.actions[id]
	if !ok {
		return Action{}, expedition.NewUnknownIDError("intervention action", id, c.IDs())
	}
	return a, nil
}

func (c Catalog) Actions() []Action {
	out := make([]Action, 0, len(c.actions))
	for _, id := range c.IDs() {
		out = append(out, c.actions[id])
	}
	return out
}

func (c Catalog) IDs() []string {
	out := make([]string, 0, len(c.actions))
	for id := range c.actions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func DefaultActions() []Action {
	return []Action{
		{
			ID:           ActionSupplyDrop,
			Name:         "Supply Drop",
			Description:  "Restock the team: a burst of progress and a short-lived risk cushion.",
			Cost:         200,
			Cooldown:     15 * time.Minute,
			Requirements: []expedition.Requirement{{Type: expedition.RequirePlayerLevel, Value: 3}},
			Effects: []EffectSpec{
				{Kind: expedition.ModifierProgress, Value: 0.05},
				{Kind: expedition.ModifierRiskReduction, Value: 0.1, Duration: 30 * time.Minute},
			},
		},
		{
			ID:           ActionSpeedBoost,
			Name:         "Speed Boost",
			Description:  "Travel half again as fast for an hour.",
			Cost:         300,
			Cooldown:     30 * time.Minute,
			Requirements: []expedition.Requirement{{Type: expedition.RequirePlayerLevel, Value: 5}},
			Effects:      []EffectSpec{{Kind: expedition.ModifierSpeed, Value: 0.5, Duration: time.Hour}},
		},
		{
			ID:           ActionRiskReduction,
			Name:         "Risk Reduction",
			Description:  "Hire a guide to keep the team out of trouble.",
			Cost:         500,
			Cooldown:     30 * time.Minute,
			Requirements: []expedition.Requirement{{Type: expedition.RequireMoney, Value: 500}},
			Effects:      []EffectSpec{{Kind: expedition.ModifierRiskReduction, Value: 0.2, Duration: time.Hour}},
		},
		{
			ID:           ActionLuckyCharm,
			Name:         "Lucky Charm",
			Description:  "Better odds on choices for a while and better loot for the whole trip.",
			Cost:         250,
			Cooldown:     20 * time.Minute,
			Requirements: []expedition.Requirement{{Type: expedition.RequireTrustLevel, Value: 20}},
			Effects: []EffectSpec{
				{Kind: expedition.ModifierSuccessBonus, Value: 0.15, Duration: 45 * time.Minute},
				{Kind: expedition.ModifierLootBonus, Value: 0.2},
			},
		},
		{
			ID:          ActionScoutAhead,
			Name:        "Scout Ahead",
			Description: "Send a scout to stir up more encounters.",
			Cost:        150,
			Cooldown:    10 * time.Minute,
			Requirements: []expedition.Requirement{{
				Type:   expedition.RequireStage,
				Stages: []expedition.Stage{expedition.StagePreparation, expedition.StageEarly, expedition.StageMiddle},
			}},
			Effects: []EffectSpec{{Kind: expedition.ModifierEventFrequency, Value: 0.5, Duration: 30 * time.Minute}},
		},
		{
			ID:          ActionTrustBuilding,
			Name:        "Trust Building",
			Description: "Send encouragement; the trainer's trust grows.",
			Cost:        100,
			Cooldown:    time.Hour,
			Effects:     []EffectSpec{{Kind: expedition.ModifierTrust, Value: 10}},
		},
		{
			ID:          ActionEmergencyRecall,
			Name:        "Emergency Recall",
			Description: "Call the trainer home now and end the expedition.",
			Cost:        100,
			Cooldown:    2 * time.Hour,
			Effects:     []EffectSpec{{Kind: expedition.ModifierRecall, Value: 1}},
		},
	}
}
