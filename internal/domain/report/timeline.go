package report

import (
	"fmt"
	"sort"
	"time"

	"wildtrek/internal/domain/expedition"
)

type TimelineKind string

const (
	TimelineStarted       TimelineKind = "started"
	TimelineStageChanged  TimelineKind = "stage_changed"
	TimelineEventCreated  TimelineKind = "event_created"
	TimelineEventResolved TimelineKind = "event_resolved"
	TimelineIntervention  TimelineKind = "intervention"
	TimelineCompleted     TimelineKind = "completed"
)

// kindOrder breaks ties between entries that share a timestamp.
var kindOrder = map[TimelineKind]int{
	TimelineStarted:       0,
	TimelineStageChanged:  1,
	TimelineEventCreated:  2,
	TimelineEventResolved: 3,
	TimelineIntervention:  4,
	TimelineCompleted:     5,
}

type TimelineEntry struct {
	At      time.Time        `json:"at"`
	Kind    TimelineKind     `json:"kind"`
	RefID   string           `json:"ref_id,omitempty"`
	Stage   expedition.Stage `json:"stage,omitempty"`
	Message string           `json:"message"`
}

func BuildTimeline(exp expedition.Expedition, transitions []expedition.StageTransition) []TimelineEntry {
	entries := []TimelineEntry{{
		At:      exp.StartedAt,
		Kind:    TimelineStarted,
		RefID:   exp.ID,
		Stage:   expedition.StagePreparation,
		Message: fmt.Sprintf("Expedition to %s started in %s mode.", exp.LocationID, exp.Mode),
	}}
	for _, tr := range transitions {
		entries = append(entries, TimelineEntry{
			At:      tr.At,
			Kind:    TimelineStageChanged,
			Stage:   tr.To,
			Message: fmt.Sprintf("Moved from %s to %s.", tr.From, tr.To),
		})
	}
	for _, e := range exp.Events {
		entries = append(entries, TimelineEntry{At: e.CreatedAt, Kind: TimelineEventCreated, RefID: e.ID, Stage: e.Stage, Message: e.Message})
		if e.Resolution == nil {
			continue
		}
		verdict := "failed"
		if e.Resolution.Success {
			verdict = "succeeded"
		}
		msg := fmt.Sprintf("Chose %s and %s.", e.Resolution.ChoiceID, verdict)
		if e.Resolution.Emergency {
			msg = fmt.Sprintf("Emergency %s resolved the event (%s).", e.Resolution.ActionID, verdict)
		}
		entries = append(entries, TimelineEntry{At: e.Resolution.ResolvedAt, Kind: TimelineEventResolved, RefID: e.ID, Stage: e.Stage, Message: msg})
	}
	for _, iv := range exp.Interventions {
		msg := fmt.Sprintf("Applied %s.", iv.ActionID)
		if iv.Emergency {
			msg = fmt.Sprintf("Applied %s as an emergency on %s.", iv.ActionID, iv.EventID)
		}
		entries = append(entries, TimelineEntry{At: iv.AppliedAt, Kind: TimelineIntervention, RefID: iv.ID, Stage: iv.StageAtUse, Message: msg})
	}
	if exp.Outcome != nil {
		msg := fmt.Sprintf("Completed at %.0f%% progress.", exp.Outcome.Progress*100)
		if exp.Outcome.Recalled {
			msg = fmt.Sprintf("Recalled at %.0f%% progress.", exp.Outcome.Progress*100)
		}
		entries = append(entries, TimelineEntry{
			At:      exp.Outcome.CompletedAt,
			Kind:    TimelineCompleted,
			RefID:   exp.ID,
			Stage:   expedition.StageFor(exp.Outcome.Progress),
			Message: msg,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].At.Equal(entries[j].At) {
			return entries[i].At.Before(entries[j].At)
		}
		return kindOrder[entries[i].Kind] < kindOrder[entries[j].Kind]
	})
	return entries
}
