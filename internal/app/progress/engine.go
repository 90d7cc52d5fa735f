package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"wildtrek/internal/app/ports"
	"wildtrek/internal/app/session"
	"wildtrek/internal/domain/expedition"
	"wildtrek/internal/platform/id"
)

var ErrInvalidRequest = errors.New("invalid expedition request")

type LocationCatalog interface {
	Location(id string) (expedition.Location, error)
}

// EventSource creates the next event for a record. It is called with the
// record lock held and appends to the record directly.
type EventSource interface {
	GenerateFor(ctx context.Context, rec *session.Record, now time.Time) (*expedition.Event, error)
}

// Completer receives the frozen record of an expedition exactly once.
type Completer interface {
	Complete(ctx context.Context, snap session.Snapshot) error
}

type StartRequest struct {
	Trainer    expedition.Trainer
	LocationID string
	Mode       expedition.Mode
	Duration   time.Duration
}

type Engine struct {
	Arena              *session.Arena
	Locations          LocationCatalog
	Events             EventSource
	Completer          Completer
	Notifier           ports.Notifier
	Metrics            ports.ExpeditionMetrics
	Random             ports.Random
	NewID              id.Generator
	Now                func() time.Time
	MinTickSpacing     time.Duration
	BaseEventDelay     time.Duration
	CompletedRetention time.Duration
}

func (e Engine) Start(ctx context.Context, req StartRequest) (expedition.Progress, error) {
	if strings.TrimSpace(req.Trainer.ID) == "" || req.Duration <= 0 {
		return expedition.Progress{}, ErrInvalidRequest
	}
	if !req.Mode.Valid() {
		return expedition.Progress{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}
	loc, err := e.Locations.Location(req.LocationID)
	if err != nil {
		return expedition.Progress{}, err
	}
	if !loc.Allows(req.Mode) {
		return expedition.Progress{}, fmt.Errorf("%w: mode %s is not allowed at %s", ErrInvalidRequest, req.Mode, loc.ID)
	}

	now := e.now()
	rec := &session.Record{
		Expedition: expedition.Expedition{
			ID:              e.newID(id.PrefixExpedition),
			TrainerID:       req.Trainer.ID,
			LocationID:      loc.ID,
			Mode:            req.Mode,
			PlannedDuration: req.Duration,
			StartedAt:       now,
			EstimatedEndAt:  now.Add(req.Duration),
		},
		Trainer:    cloneTrainer(req.Trainer),
		Location:   loc,
		LastTickAt: now,
	}
	rec.Progress = e.derive(rec, 0, now)
	rec.NextEventAt = now.Add(e.nextDelay(rec, now))
	rec.Progress.NextEventAt = rec.NextEventAt
	rec.PeakRisk = rec.Progress.RiskLevel
	started := rec.Progress

	if _, err := e.Arena.Add(rec); err != nil {
		return expedition.Progress{}, err
	}
	e.publish(expedition.Notification{
		Category:     expedition.CategoryExpedition,
		Action:       expedition.ActionStarted,
		EntityID:     started.ExpeditionID,
		ExpeditionID: started.ExpeditionID,
		After:        started,
		At:           now,
	})
	hlog.CtxInfof(ctx, "expedition %s started trainer=%s location=%s mode=%s duration=%s",
		started.ExpeditionID, req.Trainer.ID, loc.ID, req.Mode, req.Duration)
	return started, nil
}

// Tick advances every active expedition to now and returns how many
// completed during this tick.
func (e Engine) Tick(ctx context.Context, now time.Time) int {
	ids := e.Arena.IDs()
	completed := 0
	for _, expID := range ids {
		var frozen *session.Snapshot
		err := e.Arena.With(expID, func(rec *session.Record) error {
			if snap, done := e.advance(ctx, rec, now); done {
				frozen = &snap
			}
			return nil
		})
		if err != nil || frozen == nil {
			continue
		}
		completed++
		e.complete(ctx, *frozen)
	}
	if e.Metrics != nil {
		e.Metrics.RecordTick(len(ids))
	}
	return completed
}

func (e Engine) advance(ctx context.Context, rec *session.Record, now time.Time) (session.Snapshot, bool) {
	if !rec.Expedition.Active() {
		return session.Snapshot{}, false
	}
	if !rec.RecallRequested && now.Sub(rec.LastTickAt) < e.MinTickSpacing {
		return session.Snapshot{}, false
	}
	if now.Before(rec.LastTickAt) {
		return session.Snapshot{}, false
	}

	planned := float64(rec.Expedition.PlannedDuration)
	if gain := speedGain(rec.Effects, rec.LastTickAt, now, planned); gain > 0 {
		rec.ProgressBonus += gain
	}
	prev := rec.Progress
	raw := float64(now.Sub(rec.Expedition.StartedAt))/planned + rec.ProgressBonus
	fraction := math.Max(prev.Overall, expedition.Clamp01(raw))

	next := e.derive(rec, fraction, now)
	rec.LastTickAt = now
	rec.Expedition.Progress = fraction
	rec.Progress = next
	e.observe(rec, prev, next, now)

	finishing := fraction >= 1 || rec.RecallRequested
	if !finishing && !now.Before(rec.NextEventAt) {
		if rec.PendingCount() < expedition.MaxPendingEvents && e.Events != nil {
			if _, err := e.Events.GenerateFor(ctx, rec, now); err != nil {
				hlog.CtxWarnf(ctx, "expedition %s: generate event: %v", rec.Expedition.ID, err)
			}
		}
		rec.NextEventAt = now.Add(e.nextDelay(rec, now))
	}
	rec.Progress.NextEventAt = rec.NextEventAt
	if !finishing {
		return session.Snapshot{}, false
	}

	reason := rec.RecallReason
	recalled := rec.RecallRequested && fraction < 1
	if !recalled {
		reason = "completed"
	}
	rec.Progress.Completed = true
	rec.Expedition.Outcome = &expedition.Outcome{
		CompletedAt: now,
		Recalled:    recalled,
		Reason:      reason,
		Progress:    fraction,
	}
	hlog.CtxInfof(ctx, "expedition %s finished progress=%.2f recalled=%t", rec.Expedition.ID, fraction, recalled)
	return rec.Snapshot(), true
}

// observe records transitions and emits change notifications; small progress
// moves are batched until they add up to ProgressNotifyDelta.
func (e Engine) observe(rec *session.Record, prev, next expedition.Progress, now time.Time) {
	expID := rec.Expedition.ID
	if next.Stage != prev.Stage {
		rec.Transitions = append(rec.Transitions, expedition.StageTransition{From: prev.Stage, To: next.Stage, At: now})
		e.publish(expedition.Notification{
			Category: expedition.CategoryExpedition, Action: expedition.ActionStageChanged,
			EntityID: expID, ExpeditionID: expID, Before: prev.Stage, After: next.Stage, At: now,
		})
	}
	if next.RiskLevel != prev.RiskLevel {
		e.publish(expedition.Notification{
			Category: expedition.CategoryExpedition, Action: expedition.ActionRiskChanged,
			EntityID: expID, ExpeditionID: expID, Before: prev.RiskLevel, After: next.RiskLevel, At: now,
		})
	}
	if next.Overall-rec.NotifiedProgress >= expedition.ProgressNotifyDelta || (next.Overall >= 1 && rec.NotifiedProgress < 1) {
		e.publish(expedition.Notification{
			Category: expedition.CategoryExpedition, Action: expedition.ActionProgressed,
			EntityID: expID, ExpeditionID: expID, Before: rec.NotifiedProgress, After: next.Overall, At: now,
		})
		rec.NotifiedProgress = next.Overall
	}
	if riskRank(next.RiskLevel) > riskRank(rec.PeakRisk) {
		rec.PeakRisk = next.RiskLevel
	}
	if next.RiskLevel == expedition.RiskCritical {
		rec.CriticalTicks++
	}
}

// speedGain credits each speed effect only for the part of [from, to] it was
// live.
func speedGain(effects []expedition.AppliedEffect, from, to time.Time, planned float64) float64 {
	gain := 0.0
	for _, eff := range effects {
		if eff.Kind != expedition.ModifierSpeed {
			continue
		}
		start, end := from, to
		if eff.StartTime.After(start) {
			start = eff.StartTime
		}
		if !eff.Permanent() && eff.ExpiresAt().Before(end) {
			end = eff.ExpiresAt()
		}
		if end.After(start) {
			gain += eff.Value * float64(end.Sub(start)) / planned
		}
	}
	return gain
}

func (e Engine) derive(rec *session.Record, fraction float64, now time.Time) expedition.Progress {
	reduction := rec.EffectTotal(expedition.ModifierRiskReduction, now)
	score := expedition.RiskScore(fraction, rec.Expedition.Mode, rec.Location.RiskMultiplier, reduction)
	return expedition.Progress{
		ExpeditionID:  rec.Expedition.ID,
		Stage:         expedition.StageFor(fraction),
		StageProgress: expedition.StageProgress(fraction),
		Overall:       fraction,
		RiskScore:     score,
		RiskLevel:     expedition.RiskLevelFor(score),
		NextEventAt:   rec.NextEventAt,
	}
}

func (e Engine) nextDelay(rec *session.Record, now time.Time) time.Duration {
	bonus := rec.EffectTotal(expedition.ModifierEventFrequency, now)
	return expedition.NextEventDelay(e.BaseEventDelay, rec.Progress.Stage, rec.Expedition.Mode, bonus, e.Random.Float64())
}

func (e Engine) complete(ctx context.Context, snap session.Snapshot) {
	if e.Completer == nil {
		return
	}
	if err := e.Completer.Complete(ctx, snap); err != nil {
		hlog.CtxErrorf(ctx, "expedition %s: completion failed: %v", snap.Expedition.ID, err)
	}
}

// Stop cancels an expedition and releases its record. Stopping an unknown or
// already stopped id is a no-op and reports false.
func (e Engine) Stop(ctx context.Context, expeditionID, reason string) bool {
	var last expedition.Progress
	err := e.Arena.With(expeditionID, func(rec *session.Record) error {
		last = rec.Progress
		return nil
	})
	if err != nil || !e.Arena.Remove(expeditionID) {
		return false
	}
	e.publish(expedition.Notification{
		Category:     expedition.CategoryExpedition,
		Action:       expedition.ActionStopped,
		EntityID:     expeditionID,
		ExpeditionID: expeditionID,
		Before:       last,
		After:        reason,
		At:           e.now(),
	})
	hlog.CtxInfof(ctx, "expedition %s stopped: %s", expeditionID, reason)
	return true
}

func (e Engine) Get(expeditionID string) (expedition.Progress, bool) {
	var out expedition.Progress
	err := e.Arena.With(expeditionID, func(rec *session.Record) error {
		out = rec.Progress
		return nil
	})
	return out, err == nil
}

func (e Engine) Expedition(expeditionID string) (session.Snapshot, bool) {
	return e.Arena.Snapshot(expeditionID)
}

// ActiveIDs lists expeditions that have not reached an outcome yet.
func (e Engine) ActiveIDs() []string {
	var out []string
	for _, expID := range e.Arena.IDs() {
		_ = e.Arena.With(expID, func(rec *session.Record) error {
			if rec.Expedition.Active() {
				out = append(out, expID)
			}
			return nil
		})
	}
	return out
}

// Prune releases completed records that have been kept for read access
// longer than CompletedRetention.
func (e Engine) Prune(now time.Time) int {
	if e.CompletedRetention < 0 {
		return 0
	}
	var stale []string
	for _, expID := range e.Arena.IDs() {
		_ = e.Arena.With(expID, func(rec *session.Record) error {
			if o := rec.Expedition.Outcome; o != nil && now.Sub(o.CompletedAt) >= e.CompletedRetention {
				stale = append(stale, expID)
			}
			return nil
		})
	}
	removed := 0
	for _, expID := range stale {
		if e.Arena.Remove(expID) {
			removed++
		}
	}
	return removed
}

func (e Engine) publish(n expedition.Notification) {
	if e.Notifier != nil {
		e.Notifier.Publish(n)
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) newID(prefix string) string {
	if e.NewID != nil {
		return e.NewID(prefix)
	}
	return id.New(prefix)
}

func cloneTrainer(t expedition.Trainer) expedition.Trainer {
	out := t
	if t.Skills != nil {
		out.Skills = make(map[expedition.Skill]int, len(t.Skills))
		for k, v := range t.Skills {
			out.Skills[k] = v
		}
	}
	return out
}

func riskRank(level expedition.RiskLevel) int {
	switch level {
	case expedition.RiskMedium:
		return 1
	case expedition.RiskHigh:
		return 2
	case expedition.RiskCritical:
		return 3
	default:
		return 0
	}
}
