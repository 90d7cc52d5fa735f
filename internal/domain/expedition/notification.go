package expedition

import "time"

type NotificationCategory string

const (
	CategoryExpedition   NotificationCategory = "expedition"
	CategoryEvent        NotificationCategory = "event"
	CategoryIntervention NotificationCategory = "intervention"
	CategoryReward       NotificationCategory = "reward"
)

const (
	ActionStarted         = "started"
	ActionProgressed      = "progressed"
	ActionStageChanged    = "stage_changed"
	ActionRiskChanged     = "risk_changed"
	ActionCompleted       = "completed"
	ActionStopped         = "stopped"
	ActionCreated         = "created"
	ActionResolved        = "resolved"
	ActionApplied         = "applied"
	ActionEffectsExpired  = "effects_expired"
	ActionRewardGenerated = "generated"
)

type Notification struct {
	Category     NotificationCategory `json:"category"`
	Action       string               `json:"action"`
	EntityID     string               `json:"entity_id"`
	ExpeditionID string               `json:"expedition_id"`
	Before       any                  `json:"before,omitempty"`
	After        any                  `json:"after,omitempty"`
	At           time.Time            `json:"at"`
}
