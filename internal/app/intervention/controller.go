package intervention

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"wildtrek/internal/app/ports"
	"wildtrek/internal/app/session"
	"wildtrek/internal/app/shared/cooldown"
	"wildtrek/internal/domain/encounter"
	"wildtrek/internal/domain/expedition"
	"wildtrek/internal/platform/id"
)

var (
	ErrInvalidRequest    = errors.New("invalid intervention request")
	ErrExpeditionEnded   = expedition.ErrExpeditionEnded
	ErrNoChoiceAvailable = errors.New("event has no choice to resolve")
)

// EventSettler books a resolution on an event of a locked record.
type EventSettler interface {
	Settle(ctx context.Context, rec *session.Record, evt *expedition.Event, res expedition.Resolution) error
}

type ExecuteRequest struct {
	ExpeditionID string
	ActionID     string
	Player       *expedition.PlayerState
}

type EmergencyRequest struct {
	ExpeditionID string
	EventID      string
	ActionID     string
	Player       *expedition.PlayerState
}

type AvailableRequest struct {
	ExpeditionID string
	Player       *expedition.PlayerState
}

type Result struct {
	Intervention    expedition.ActiveIntervention `json:"intervention"`
	Cost            int                           `json:"cost"`
	MoneyAfter      int                           `json:"money_after"`
	RecallRequested bool                          `json:"recall_requested"`
}

// Option is an action together with whether it can be used right now.
type Option struct {
	Action          Action                          `json:"action"`
	Available       bool                            `json:"available"`
	CooldownSeconds int                             `json:"cooldown_seconds,omitempty"`
	Failures        []expedition.RequirementFailure `json:"failures,omitempty"`
}

type Controller struct {
	Arena     *session.Arena
	Catalog   Catalog
	Cooldowns *cooldown.Table
	Events    EventSettler
	Notifier  ports.Notifier
	Metrics   ports.ExpeditionMetrics
	Random    ports.Random
	NewID     id.Generator
	Now       func() time.Time
}

func (c Controller) Execute(ctx context.Context, req ExecuteRequest) (Result, error) {
	if strings.TrimSpace(req.ExpeditionID) == "" || strings.TrimSpace(req.ActionID) == "" {
		return Result{}, ErrInvalidRequest
	}
	action, err := c.Catalog.Action(req.ActionID)
	if err != nil {
		return Result{}, err
	}
	now := c.now()
	var out Result
	err = c.Arena.With(req.ExpeditionID, func(rec *session.Record) error {
		if !rec.Expedition.Active() || rec.RecallRequested {
			return ErrExpeditionEnded
		}
		rec.InterventionAttempts++
		failures := c.cooldownFailures(action, now, false)
		failures = append(failures, c.requirementFailures(action, rec, req.Player)...)
		if len(failures) > 0 {
			return &expedition.RequirementError{Subject: "action " + action.ID, Failures: failures}
		}

		iv := expedition.ActiveIntervention{
			ID:           c.newID(id.PrefixIntervention),
			ActionID:     action.ID,
			ExpeditionID: rec.Expedition.ID,
			AppliedAt:    now,
			Cost:         action.Cost,
			StageAtUse:   rec.Progress.Stage,
		}
		for _, spec := range action.Effects {
			c.apply(rec, &iv, action, spec, now)
		}
		rec.Expedition.Interventions = append(rec.Expedition.Interventions, iv)
		c.Cooldowns.Start(cooldown.Key(cooldown.KindAction, action.ID), now, action.Cooldown)

		out = Result{Intervention: iv, Cost: action.Cost, RecallRequested: rec.RecallRequested}
		if req.Player != nil {
			out.MoneyAfter = req.Player.Money - action.Cost
		}
		c.publishApplied(rec.Expedition.ID, iv, now)
		return nil
	})
	c.record(ctx, action.ID, req.ExpeditionID, err)
	return out, err
}

// apply books one effect. Progress and trust land immediately, recall is
// picked up by the next tick, everything else becomes an AppliedEffect.
func (c Controller) apply(rec *session.Record, iv *expedition.ActiveIntervention, action Action, spec EffectSpec, now time.Time) {
	switch spec.Kind {
	case expedition.ModifierProgress:
		rec.ProgressBonus += spec.Value
		iv.ProgressBoost += spec.Value
	case expedition.ModifierTrust:
		gained := int(spec.Value)
		rec.Trainer.Trust += gained
		iv.TrustGained += gained
	case expedition.ModifierRecall:
		rec.RecallRequested = true
		rec.RecallReason = "recalled by " + action.ID
	default:
		eff := expedition.AppliedEffect{
			ID:        c.newID(id.PrefixEffect),
			ActionID:  action.ID,
			Kind:      spec.Kind,
			Value:     spec.Value,
			StartTime: now,
			Duration:  spec.Duration,
		}
		rec.Effects = append(rec.Effects, eff)
		iv.Effects = append(iv.Effects, eff)
	}
}

// EmergencyExecute overrides the outcome of one pending event. Recall
// withdraws from the event and ends the expedition regardless of cooldown;
// any other action resolves the event with its best choice plus the
// action's emergency bonus and starts a shortened cooldown.
func (c Controller) EmergencyExecute(ctx context.Context, req EmergencyRequest) (expedition.Resolution, error) {
	if strings.TrimSpace(req.ExpeditionID) == "" || strings.TrimSpace(req.EventID) == "" || strings.TrimSpace(req.ActionID) == "" {
		return expedition.Resolution{}, ErrInvalidRequest
	}
	action, err := c.Catalog.Action(req.ActionID)
	if err != nil {
		return expedition.Resolution{}, err
	}
	now := c.now()
	var out expedition.Resolution
	err = c.Arena.With(req.ExpeditionID, func(rec *session.Record) error {
		if !rec.Expedition.Active() {
			return ErrExpeditionEnded
		}
		evt, ok := rec.Event(req.EventID)
		if !ok {
			return expedition.NewUnknownIDError("event", req.EventID, rec.EventIDs())
		}
		if !evt.Pending() {
			return expedition.ErrEventAlreadyResolved
		}
		rec.InterventionAttempts++
		failures := c.cooldownFailures(action, now, true)
		failures = append(failures, c.requirementFailures(action, rec, req.Player)...)
		if len(failures) > 0 {
			return &expedition.RequirementError{Subject: "emergency " + action.ID, Failures: failures}
		}

		var res expedition.Resolution
		if action.Recall() {
			res = expedition.Resolution{
				ChoiceID:   "withdraw",
				Message:    "The trainer withdrew from the situation and is heading home.",
				ResolvedAt: now,
			}
			rec.RecallRequested = true
			rec.RecallReason = "emergency recall on " + evt.ID
		} else {
			best, ok := evt.BestChoice()
			if !ok {
				return ErrNoChoiceAvailable
			}
			rate := expedition.ClampRate(best.SuccessRate + action.emergencyBonus())
			res = encounter.Decide(best, rate, c.Random, now)
			c.Cooldowns.Start(cooldown.Key(cooldown.KindAction, action.ID), now, action.EmergencyCooldown())
		}
		res.Emergency = true
		res.ActionID = action.ID
		if err := c.Events.Settle(ctx, rec, evt, res); err != nil {
			return err
		}

		iv := expedition.ActiveIntervention{
			ID:           c.newID(id.PrefixIntervention),
			ActionID:     action.ID,
			ExpeditionID: rec.Expedition.ID,
			AppliedAt:    now,
			Cost:         action.Cost,
			Emergency:    true,
			EventID:      evt.ID,
			StageAtUse:   rec.Progress.Stage,
		}
		rec.Expedition.Interventions = append(rec.Expedition.Interventions, iv)
		c.publishApplied(rec.Expedition.ID, iv, now)
		out = *evt.Resolution
		return nil
	})
	c.record(ctx, action.ID, req.ExpeditionID, err)
	return out, err
}

func (c Controller) cooldownFailures(action Action, now time.Time, emergency bool) []expedition.RequirementFailure {
	if emergency && action.Recall() {
		return nil
	}
	secs, active := c.Cooldowns.RemainingSeconds(cooldown.Key(cooldown.KindAction, action.ID), now)
	if !active {
		return nil
	}
	return []expedition.RequirementFailure{{
		Type:     expedition.RequireCooldown,
		Required: "0s",
		Actual:   fmt.Sprintf("%ds", secs),
		Message:  fmt.Sprintf("%s is on cooldown for %ds", action.ID, secs),
	}}
}

func (c Controller) requirementFailures(action Action, rec *session.Record, player *expedition.PlayerState) []expedition.RequirementFailure {
	subject := expedition.Subject{Trainer: rec.Trainer, Player: player, Stage: rec.Progress.Stage}
	failures, _ := expedition.CheckRequirements(action.requirements(), subject)
	return failures
}

// Available lists the actions that could be executed right now.
func (c Controller) Available(ctx context.Context, req AvailableRequest) ([]Action, error) {
	opts, err := c.Options(ctx, req)
	if err != nil {
		return nil, err
	}
	var out []Action
	for _, o := range opts {
		if o.Available {
			out = append(out, o.Action)
		}
	}
	return out, nil
}

// Options reports every catalog action with the reasons it is blocked, if any.
func (c Controller) Options(_ context.Context, req AvailableRequest) ([]Option, error) {
	if strings.TrimSpace(req.ExpeditionID) == "" {
		return nil, ErrInvalidRequest
	}
	now := c.now()
	var out []Option
	err := c.Arena.With(req.ExpeditionID, func(rec *session.Record) error {
		for _, action := range c.Catalog.Actions() {
			opt := Option{Action: action}
			if secs, active := c.Cooldowns.RemainingSeconds(cooldown.Key(cooldown.KindAction, action.ID), now); active {
				opt.CooldownSeconds = secs
			}
			opt.Failures = append(c.cooldownFailures(action, now, false), c.requirementFailures(action, rec, req.Player)...)
			opt.Available = rec.Expedition.Active() && !rec.RecallRequested && len(opt.Failures) == 0
			out = append(out, opt)
		}
		return nil
	})
	return out, err
}

// ActiveEffects returns the live effects, purging expired ones first.
func (c Controller) ActiveEffects(expeditionID string, now time.Time) ([]expedition.AppliedEffect, error) {
	var out []expedition.AppliedEffect
	err := c.Arena.With(expeditionID, func(rec *session.Record) error {
		out = rec.LiveEffects(now)
		return nil
	})
	return out, err
}

// Sweep purges expired effects from every expedition and returns how many
// were dropped.
func (c Controller) Sweep(now time.Time) int {
	total := 0
	for _, expID := range c.Arena.IDs() {
		_ = c.Arena.With(expID, func(rec *session.Record) error {
			before := len(rec.Effects)
			var removed int
			rec.Effects, removed = expedition.PurgeExpired(rec.Effects, now)
			if removed == 0 {
				return nil
			}
			total += removed
			c.publish(expedition.Notification{
				Category:     expedition.CategoryIntervention,
				Action:       expedition.ActionEffectsExpired,
				EntityID:     expID,
				ExpeditionID: expID,
				Before:       before,
				After:        len(rec.Effects),
				At:           now,
			})
			return nil
		})
	}
	return total
}

// History is the append-only list of interventions applied to an expedition.
func (c Controller) History(expeditionID string) ([]expedition.ActiveIntervention, error) {
	var out []expedition.ActiveIntervention
	err := c.Arena.With(expeditionID, func(rec *session.Record) error {
		out = make([]expedition.ActiveIntervention, 0, len(rec.Expedition.Interventions))
		for _, iv := range rec.Expedition.Interventions {
			iv.Effects = append([]expedition.AppliedEffect(nil), iv.Effects...)
			out = append(out, iv)
		}
		return nil
	})
	return out, err
}

// RemainingCooldowns reports action cooldowns in seconds keyed by action id.
func (c Controller) RemainingCooldowns(now time.Time) map[string]int {
	out := map[string]int{}
	prefix := cooldown.Key(cooldown.KindAction, "")
	for key, secs := range c.Cooldowns.RemainingByKey(now) {
		if strings.HasPrefix(key, prefix) {
			out[strings.TrimPrefix(key, prefix)] = secs
		}
	}
	return out
}

func (c Controller) publishApplied(expeditionID string, iv expedition.ActiveIntervention, now time.Time) {
	iv.Effects = append([]expedition.AppliedEffect(nil), iv.Effects...)
	c.publish(expedition.Notification{
		Category:     expedition.CategoryIntervention,
		Action:       expedition.ActionApplied,
		EntityID:     iv.ID,
		ExpeditionID: expeditionID,
		After:        iv,
		At:           now,
	})
}

func (c Controller) record(ctx context.Context, actionID, expeditionID string, err error) {
	if c.Metrics != nil {
		c.Metrics.RecordIntervention(actionID, err == nil)
	}
	var reqErr *expedition.RequirementError
	switch {
	case err == nil:
		hlog.CtxInfof(ctx, "expedition %s: intervention %s applied", expeditionID, actionID)
	case errors.As(err, &reqErr):
		hlog.CtxInfof(ctx, "expedition %s: intervention %s rejected: %v", expeditionID, actionID, err)
	default:
		hlog.CtxWarnf(ctx, "expedition %s: intervention %s failed: %v", expeditionID, actionID, err)
	}
}

func (c Controller) publish(n expedition.Notification) {
	if c.Notifier != nil {
		c.Notifier.Publish(n)
	}
}

func (c Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Controller) newID(prefix string) string {
	if c.NewID != nil {
		return c.NewID(prefix)
	}
	return id.New(prefix)
}
