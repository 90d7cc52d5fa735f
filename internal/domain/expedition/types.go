package expedition

import "time"

type Mode string

const (
	ModeSafe        Mode = "safe"
	ModeBalanced    Mode = "balanced"
	ModeExploration Mode = "exploration"
	ModeAggressive  Mode = "aggressive"
)

func (m Mode) Valid() bool {
	_, ok := modeTuning[m]
	return ok
}

type Stage string

const (
	StagePreparation Stage = "preparation"
	StageEarly       Stage = "early"
	StageMiddle      Stage = "middle"
	StageLate        Stage = "late"
	StageCompletion  Stage = "completion"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type EventType string

const (
	EventEncounter EventType = "encounter"
	EventDiscovery EventType = "discovery"
	EventDanger    EventType = "danger"
	EventWeather   EventType = "weather"
	EventSocial    EventType = "social"
)

var AllEventTypes = []EventType{EventEncounter, EventDiscovery, EventDanger, EventWeather, EventSocial}

type RiskTier string

const (
	RiskTierLow    RiskTier = "low"
	RiskTierMedium RiskTier = "medium"
	RiskTierHigh   RiskTier = "high"
)

type Skill string

const (
	SkillCapture     Skill = "capture"
	SkillExploration Skill = "exploration"
	SkillSurvival    Skill = "survival"
	SkillBattle      Skill = "battle"
	SkillResearch    Skill = "research"
	SkillForaging    Skill = "foraging"
)

type Trainer struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	Level                int           `json:"level"`
	Skills               map[Skill]int `json:"skills"`
	Trust                int           `json:"trust"`
	Experience           int           `json:"experience"`
	CompletedExpeditions int           `json:"completed_expeditions"`
}

func (t Trainer) SkillLevel(s Skill) int {
	if t.Skills == nil {
		return 0
	}
	return t.Skills[s]
}

// AverageSkill averages over skills the trainer has at least one level in.
func (t Trainer) AverageSkill() float64 {
	total, n := 0, 0
	for _, lvl := range t.Skills {
		if lvl <= 0 {
			continue
		}
		total += lvl
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

type Location struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Difficulty     float64 `json:"difficulty"`
	RiskMultiplier float64 `json:"risk_multiplier"`
	DropTableID    string  `json:"drop_table_id"`
	Modes          []Mode  `json:"modes,omitempty"`
}

func (l Location) Allows(m Mode) bool {
	if len(l.Modes) == 0 {
		return true
	}
	for _, allowed := range l.Modes {
		if allowed == m {
			return true
		}
	}
	return false
}

type PlayerState struct {
	Level     int            `json:"level"`
	Money     int            `json:"money"`
	Inventory map[string]int `json:"inventory"`
}

type Expedition struct {
	ID              string               `json:"id"`
	TrainerID       string               `json:"trainer_id"`
	LocationID      string               `json:"location_id"`
	Mode            Mode                 `json:"mode"`
	PlannedDuration time.Duration        `json:"planned_duration"`
	StartedAt       time.Time            `json:"started_at"`
	EstimatedEndAt  time.Time            `json:"estimated_end_at"`
	Progress        float64              `json:"progress"`
	Events          []Event              `json:"events"`
	Interventions   []ActiveIntervention `json:"interventions"`
	Outcome         *Outcome             `json:"outcome,omitempty"`
}

func (e Expedition) Active() bool {
	return e.Outcome == nil
}

type Outcome struct {
	CompletedAt time.Time `json:"completed_at"`
	Recalled    bool      `json:"recalled"`
	Reason      string    `json:"reason,omitempty"`
	Progress    float64   `json:"progress"`
}

type Progress struct {
	ExpeditionID  string    `json:"expedition_id"`
	Stage         Stage     `json:"stage"`
	StageProgress float64   `json:"stage_progress"`
	Overall       float64   `json:"overall"`
	RiskScore     float64   `json:"risk_score"`
	RiskLevel     RiskLevel `json:"risk_level"`
	NextEventAt   time.Time `json:"next_event_at"`
	Completed     bool      `json:"completed"`
}

type StageTransition struct {
	From Stage     `json:"from"`
	To   Stage     `json:"to"`
	At   time.Time `json:"at"`
}
