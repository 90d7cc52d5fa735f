package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"wildtrek/internal/app/ports"
	"wildtrek/internal/app/session"
	"wildtrek/internal/app/shared/cooldown"
	"wildtrek/internal/domain/encounter"
	"wildtrek/internal/domain/expedition"
	"wildtrek/internal/platform/id"
)

var ErrInvalidRequest = errors.New("invalid encounter request")

var tracer = otel.Tracer("wildtrek/internal/app/resolver")

type GenerateContext struct {
	ExpeditionID string
}

type ResolveRequest struct {
	ExpeditionID string
	EventID      string
	ChoiceID     string
	Player       *expedition.PlayerState
}

type ResolveResponse struct {
	Resolution expedition.Resolution   `json:"resolution"`
	Rate       encounter.RateBreakdown `json:"rate"`
}

// Service generates events for running expeditions and resolves player choices.
type Service struct {
	Arena     *session.Arena
	Catalog   encounter.Catalog
	Cooldowns *cooldown.Table
	Notifier  ports.Notifier
	Metrics   ports.ExpeditionMetrics
	Random    ports.Random
	NewID     id.Generator
	Now       func() time.Time
}

// Generate produces an event for the expedition; it returns nil when no
// template is eligible right now.
func (s Service) Generate(ctx context.Context, gc GenerateContext) (*expedition.Event, error) {
	if strings.TrimSpace(gc.ExpeditionID) == "" {
		return nil, ErrInvalidRequest
	}
	var out *expedition.Event
	err := s.Arena.With(gc.ExpeditionID, func(rec *session.Record) error {
		if !rec.Expedition.Active() {
			return fmt.Errorf("%w: expedition %s already finished", ErrInvalidRequest, gc.ExpeditionID)
		}
		evt, err := s.GenerateFor(ctx, rec, s.now())
		out = evt
		return err
	})
	return out, err
}

// GenerateFor is Generate for callers that already hold the record lock.
func (s Service) GenerateFor(ctx context.Context, rec *session.Record, now time.Time) (*expedition.Event, error) {
	ectx := encounter.Context{
		ExpeditionID: rec.Expedition.ID,
		LocationID:   rec.Expedition.LocationID,
		Mode:         rec.Expedition.Mode,
		Stage:        rec.Progress.Stage,
		Overall:      rec.Progress.Overall,
		Risk:         rec.Progress.RiskLevel,
		Trainer:      rec.Trainer,
		Now:          now,
	}
	tpl, ok := encounter.Select(s.Eligible(ectx), s.Random)
	if !ok {
		return nil, nil
	}
	evt := encounter.Instantiate(tpl, ectx, s.newID(id.PrefixEvent), s.Random)
	rec.Expedition.Events = append(rec.Expedition.Events, evt)
	s.Cooldowns.Start(cooldown.Key(cooldown.KindTemplate, tpl.ID), now, tpl.Cooldown())

	created := expedition.CloneEvent(evt)
	s.publish(expedition.Notification{
		Category:     expedition.CategoryEvent,
		Action:       expedition.ActionCreated,
		EntityID:     evt.ID,
		ExpeditionID: rec.Expedition.ID,
		After:        created,
		At:           now,
	})
	if s.Metrics != nil {
		s.Metrics.RecordEventGenerated(evt.Type)
	}
	hlog.CtxInfof(ctx, "expedition %s: event %s from template %s (%s)", rec.Expedition.ID, evt.ID, tpl.ID, tpl.Rarity)
	return &created, nil
}

// Eligible filters the catalog by template cooldown, hard restrictions and
// weighted conditions.
func (s Service) Eligible(ectx encounter.Context) []encounter.Template {
	var out []encounter.Template
	for _, tpl := range s.Catalog.Templates() {
		if s.Cooldowns.Active(cooldown.Key(cooldown.KindTemplate, tpl.ID), ectx.Now) {
			continue
		}
		if !tpl.RestrictionsMatch(ectx) || !tpl.ConditionsMet(ectx) {
			continue
		}
		out = append(out, tpl)
	}
	return out
}

func (s Service) ResolveChoice(ctx context.Context, req ResolveRequest) (ResolveResponse, error) {
	ctx, span := tracer.Start(ctx, "resolver.ResolveChoice")
	defer span.End()
	span.SetAttributes(
		attribute.String("expedition.id", req.ExpeditionID),
		attribute.String("event.id", req.EventID),
		attribute.String("choice.id", req.ChoiceID),
	)

	resp, err := s.resolveChoice(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ResolveResponse{}, err
	}
	span.SetAttributes(attribute.Bool("resolution.success", resp.Resolution.Success))
	return resp, nil
}

func (s Service) resolveChoice(ctx context.Context, req ResolveRequest) (ResolveResponse, error) {
	if strings.TrimSpace(req.ExpeditionID) == "" || strings.TrimSpace(req.EventID) == "" || strings.TrimSpace(req.ChoiceID) == "" {
		return ResolveResponse{}, ErrInvalidRequest
	}
	now := s.now()
	var resp ResolveResponse
	err := s.Arena.With(req.ExpeditionID, func(rec *session.Record) error {
		if !rec.Expedition.Active() {
			return expedition.ErrExpeditionEnded
		}
		evt, ok := rec.Event(req.EventID)
		if !ok {
			return expedition.NewUnknownIDError("event", req.EventID, rec.EventIDs())
		}
		if !evt.Pending() {
			return expedition.ErrEventAlreadyResolved
		}
		choice, ok := evt.Choice(req.ChoiceID)
		if !ok {
			return expedition.NewUnknownIDError("choice", req.ChoiceID, choiceIDs(*evt))
		}

		key := ChoiceCooldownKey(evt.TemplateID, choice.ID)
		if secs, active := s.Cooldowns.RemainingSeconds(key, now); active {
			return &expedition.RequirementError{
				Subject: "choice " + choice.ID,
				Failures: []expedition.RequirementFailure{{
					Type:     expedition.RequireCooldown,
					Required: "0s",
					Actual:   fmt.Sprintf("%ds", secs),
					Message:  fmt.Sprintf("choice %s is on cooldown for %ds", choice.ID, secs),
				}},
			}
		}

		subject := expedition.Subject{Trainer: rec.Trainer, Player: req.Player, Stage: rec.Progress.Stage}
		rate, failures := encounter.EffectiveRate(choice, subject, rec.EffectTotal(expedition.ModifierSuccessBonus, now))
		if len(failures) > 0 {
			return &expedition.RequirementError{Subject: "choice " + choice.ID, Failures: failures}
		}

		res := encounter.Decide(choice, rate.Effective, s.Random, now)
		if err := s.Settle(ctx, rec, evt, res); err != nil {
			return err
		}
		s.Cooldowns.Start(key, now, time.Duration(choice.CooldownMinutes)*time.Minute)
		resp = ResolveResponse{Resolution: *evt.Resolution, Rate: rate}
		return nil
	})
	return resp, err
}

// Settle resolves evt with res and books its effects on the record. The
// caller holds the record lock. It is shared with emergency interventions.
func (s Service) Settle(ctx context.Context, rec *session.Record, evt *expedition.Event, res expedition.Resolution) error {
	before := expedition.CloneEvent(*evt)
	if err := evt.Resolve(res); err != nil {
		return err
	}
	rec.ApplyResolution(res)
	s.publish(expedition.Notification{
		Category:     expedition.CategoryEvent,
		Action:       expedition.ActionResolved,
		EntityID:     evt.ID,
		ExpeditionID: rec.Expedition.ID,
		Before:       before,
		After:        expedition.CloneEvent(*evt),
		At:           res.ResolvedAt,
	})
	if s.Metrics != nil {
		s.Metrics.RecordEventResolved(res.Success)
	}
	hlog.CtxInfof(ctx, "expedition %s: event %s resolved choice=%s success=%t rate=%.2f",
		rec.Expedition.ID, evt.ID, res.ChoiceID, res.Success, res.Rate)
	return nil
}

func (s Service) Pending(expeditionID string) ([]expedition.Event, error) {
	var out []expedition.Event
	err := s.Arena.With(expeditionID, func(rec *session.Record) error {
		for _, e := range rec.Expedition.Events {
			if e.Pending() {
				out = append(out, expedition.CloneEvent(e))
			}
		}
		return nil
	})
	return out, err
}

// ChoiceCooldownKey scopes a choice cooldown to its template since choice ids
// repeat across templates.
func ChoiceCooldownKey(templateID, choiceID string) string {
	return cooldown.Key(cooldown.KindChoice, templateID+"."+choiceID)
}

func choiceIDs(evt expedition.Event) []string {
	out := make([]string, 0, len(evt.Choices))
	for _, c := range evt.Choices {
		out = append(out, c.ID)
	}
	return out
}

func (s Service) publish(n expedition.Notification) {
	if s.Notifier != nil {
		s.Notifier.Publish(n)
	}
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Service) newID(prefix string) string {
	if s.NewID != nil {
		return s.NewID(prefix)
	}
	return id.New(prefix)
}
