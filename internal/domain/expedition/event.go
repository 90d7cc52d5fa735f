package expedition

import (
	"errors"
	"time"
)

var (
	ErrEventAlreadyResolved = errors.New("event already resolved")
	ErrExpeditionEnded      = errors.New("expedition already ended")
)

type EffectKind string

const (
	EffectCapture    EffectKind = "capture"
	EffectItem       EffectKind = "item"
	EffectExperience EffectKind = "experience"
	EffectMoney      EffectKind = "money"
	EffectProgress   EffectKind = "progress"
)

type Effect struct {
	Kind   EffectKind `json:"kind"`
	Amount float64    `json:"amount"`
	Target string     `json:"target,omitempty"`
}

type Choice struct {
	ID              string        `json:"id"`
	Text            string        `json:"text"`
	SuccessRate     float64       `json:"success_rate"`
	Effect          Effect        `json:"effect"`
	Requirements    []Requirement `json:"requirements,omitempty"`
	RiskTier        RiskTier      `json:"risk_tier"`
	Skill           Skill         `json:"skill,omitempty"`
	CooldownMinutes int           `json:"cooldown_minutes,omitempty"`
}

type EventStatus string

const (
	EventPending  EventStatus = "pending"
	EventResolved EventStatus = "resolved"
)

// Event choices are fixed at creation; Resolution is set exactly once through Resolve.
type Event struct {
	ID         string      `json:"id"`
	TemplateID string      `json:"template_id"`
	Type       EventType   `json:"type"`
	Message    string      `json:"message"`
	Choices    []Choice    `json:"choices"`
	Stage      Stage       `json:"stage"`
	RiskLevel  RiskLevel   `json:"risk_level"`
	CreatedAt  time.Time   `json:"created_at"`
	Resolution *Resolution `json:"resolution,omitempty"`
}

type Resolution struct {
	ChoiceID         string         `json:"choice_id"`
	Success          bool           `json:"success"`
	Rate             float64        `json:"rate"`
	Roll             float64        `json:"roll"`
	Message          string         `json:"message"`
	ExperienceGained int            `json:"experience_gained"`
	MoneyGained      int            `json:"money_gained"`
	Items            map[string]int `json:"items,omitempty"`
	Captured         []string       `json:"captured,omitempty"`
	ProgressDelta    float64        `json:"progress_delta"`
	ResolvedAt       time.Time      `json:"resolved_at"`
	Emergency        bool           `json:"emergency,omitempty"`
	ActionID         string         `json:"action_id,omitempty"`
}

func (e Event) Status() EventStatus {
	if e.Resolution == nil {
		return EventPending
	}
	return EventResolved
}

func (e Event) Pending() bool {
	return e.Resolution == nil
}

func (e Event) Choice(id string) (Choice, bool) {
	for _, c := range e.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// Resolve moves a pending event to resolved. A resolved event is left untouched.
func (e *Event) Resolve(r Resolution) error {
	if e.Resolution != nil {
		return ErrEventAlreadyResolved
	}
	res := r
	if r.Items != nil {
		res.Items = make(map[string]int, len(r.Items))
		for k, v := range r.Items {
			res.Items[k] = v
		}
	}
	if r.Captured != nil {
		res.Captured = append([]string(nil), r.Captured...)
	}
	e.Resolution = &res
	return nil
}

// BestChoice returns the choice with the highest materialized success rate.
func (e Event) BestChoice() (Choice, bool) {
	if len(e.Choices) == 0 {
		return Choice{}, false
	}
	best := e.Choices[0]
	for _, c := range e.Choices[1:] {
		if c.SuccessRate > best.SuccessRate {
			best = c
		}
	}
	return best, true
}

func CloneEvent(e Event) Event {
	out := e
	out.Choices = make([]Choice, len(e.Choices))
	for i, c := range e.Choices {
		c.Requirements = append([]Requirement(nil), c.Requirements...)
		out.Choices[i] = c
	}
	if e.Resolution != nil {
		r := *e.Resolution
		if r.Items != nil {
			r.Items = make(map[string]int, len(e.Resolution.Items))
			for k, v := range e.Resolution.Items {
				r.Items[k] = v
			}
		}
		r.Captured = append([]string(nil), e.Resolution.Captured...)
		out.Resolution = &r
	}
	return out
}
