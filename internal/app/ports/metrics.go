package ports

import "wildtrek/internal/domain/expedition"

type ExpeditionMetrics interface {
	RecordTick(active int)
	RecordEventGenerated(eventType expedition.EventType)
	RecordEventResolved(success bool)
	RecordIntervention(actionID string, accepted bool)
	RecordCompletion(outcome string)
}
