package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"wildtrek/internal/app/history"
	"wildtrek/internal/app/intervention"
	"wildtrek/internal/app/ports"
	"wildtrek/internal/app/progress"
	"wildtrek/internal/app/resolver"
	"wildtrek/internal/domain/expedition"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

type Handler struct {
	Engine        progress.Engine
	Resolver      resolver.Service
	Interventions intervention.Controller
	History       history.UseCase
	KPI           kpiSnapshotProvider
	Now           func() time.Time
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())

	exp := s.Group("/api/expeditions")
	exp.POST("", h.start)
	exp.GET("/:id", h.progress)
	exp.POST("/:id/stop", h.stop)
	exp.GET("/:id/events", h.pendingEvents)
	exp.POST("/:id/events/:event_id/resolve", h.resolve)
	exp.POST("/:id/events/:event_id/emergency", h.emergency)
	exp.POST("/:id/interventions", h.intervene)
	exp.GET("/:id/interventions", h.interventionHistory)
	exp.POST("/:id/interventions/options", h.interventionOptions)
	exp.GET("/:id/effects", h.effects)
	exp.GET("/:id/report", h.report)
	exp.GET("/:id/replay", h.replay)

	s.GET("/api/trainers/:trainer_id/expeditions", h.trainerHistory)
	s.GET("/ops/kpi", h.kpi)
	s.GET("/ops/cooldowns", h.cooldowns)
}

type startRequest struct {
	Trainer         expedition.Trainer `json:"trainer"`
	LocationID      string             `json:"location_id"`
	Mode            expedition.Mode    `json:"mode"`
	DurationMinutes int                `json:"duration_minutes"`
}

type stopRequest struct {
	Reason string `json:"reason"`
}

type resolveRequest struct {
	ChoiceID string                  `json:"choice_id"`
	Player   *expedition.PlayerState `json:"player,omitempty"`
}

type interventionRequest struct {
	ActionID string                  `json:"action_id"`
	Player   *expedition.PlayerState `json:"player,omitempty"`
}

type optionsRequest struct {
	Player *expedition.PlayerState `json:"player,omitempty"`
}

func (h Handler) start(c context.Context, ctx *app.RequestContext) {
	var body startRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	p, err := h.Engine.Start(c, progress.StartRequest{
		Trainer:    body.Trainer,
		LocationID: body.LocationID,
		Mode:       body.Mode,
		Duration:   time.Duration(body.DurationMinutes) * time.Minute,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, p)
}

func (h Handler) progress(_ context.Context, ctx *app.RequestContext) {
	p, ok := h.Engine.Get(ctx.Param("id"))
	if !ok {
		writeError(ctx, ports.ErrNotFound)
		return
	}
	ctx.JSON(consts.StatusOK, p)
}

func (h Handler) stop(c context.Context, ctx *app.RequestContext) {
	var body stopRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	id := ctx.Param("id")
	last, ok := h.Engine.Get(id)
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		reason = "stopped by player"
	}
	if !ok || !h.Engine.Stop(c, id, reason) {
		writeError(ctx, ports.ErrNotFound)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"stopped": true, "reason": reason, "progress": last})
}

func (h Handler) pendingEvents(_ context.Context, ctx *app.RequestContext) {
	events, err := h.Resolver.Pending(ctx.Param("id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"events": events})
}

func (h Handler) resolve(c context.Context, ctx *app.RequestContext) {
	var body resolveRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.Resolver.ResolveChoice(c, resolver.ResolveRequest{
		ExpeditionID: ctx.Param("id"),
		EventID:      ctx.Param("event_id"),
		ChoiceID:     body.ChoiceID,
		Player:       body.Player,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) emergency(c context.Context, ctx *app.RequestContext) {
	var body interventionRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	res, err := h.Interventions.EmergencyExecute(c, intervention.EmergencyRequest{
		ExpeditionID: ctx.Param("id"),
		EventID:      ctx.Param("event_id"),
		ActionID:     body.ActionID,
		Player:       body.Player,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"resolution": res})
}

func (h Handler) intervene(c context.Context, ctx *app.RequestContext) {
	var body interventionRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	res, err := h.Interventions.Execute(c, intervention.ExecuteRequest{
		ExpeditionID: ctx.Param("id"),
		ActionID:     body.ActionID,
		Player:       body.Player,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, res)
}

func (h Handler) interventionHistory(_ context.Context, ctx *app.RequestContext) {
	items, err := h.Interventions.History(ctx.Param("id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"interventions": items})
}

func (h Handler) interventionOptions(c context.Context, ctx *app.RequestContext) {
	var body optionsRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	opts, err := h.Interventions.Options(c, intervention.AvailableRequest{
		ExpeditionID: ctx.Param("id"),
		Player:       body.Player,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"options": opts})
}

func (h Handler) effects(_ context.Context, ctx *app.RequestContext) {
	live, err := h.Interventions.ActiveEffects(ctx.Param("id"), h.now())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"effects": live})
}

func (h Handler) report(c context.Context, ctx *app.RequestContext) {
	rec, err := h.History.Report(c, ctx.Param("id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, rec)
}

func (h Handler) replay(c context.Context, ctx *app.RequestContext) {
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}
	items, err := h.History.Replay(c, ctx.Param("id"), limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"notifications": items})
}

func (h Handler) trainerHistory(c context.Context, ctx *app.RequestContext) {
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}
	items, err := h.History.ListByTrainer(c, history.ListRequest{
		TrainerID: ctx.Param("trainer_id"),
		Limit:     limit,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"expeditions": items})
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func (h Handler) cooldowns(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{"remaining_seconds": h.Interventions.RemainingCooldowns(h.now())})
}

func (h Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func queryInt(ctx *app.RequestContext, key string) (int, error) {
	raw := strings.TrimSpace(ctx.Query(key))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeError(ctx *app.RequestContext, err error) {
	var reqErr *expedition.RequirementError
	var unknownErr *expedition.UnknownIDError
	switch {
	case errors.As(err, &reqErr):
		code := "requirements_not_met"
		if reqErr.Has(expedition.RequireCooldown) {
			code = "cooldown_active"
		}
		writeErrorDetails(ctx, consts.StatusConflict, code, err.Error(), map[string]any{
			"subject":  reqErr.Subject,
			"failures": reqErr.Failures,
		})
	case errors.As(err, &unknownErr):
		details := map[string]any{"kind": unknownErr.Kind, "id": unknownErr.ID}
		if unknownErr.Suggestion != "" {
			details["suggestion"] = unknownErr.Suggestion
		}
		writeErrorDetails(ctx, consts.StatusNotFound, "unknown_id", err.Error(), details)
	case errors.Is(err, expedition.ErrEventAlreadyResolved):
		writeErrorBody(ctx, consts.StatusConflict, "event_already_resolved", err.Error())
	case errors.Is(err, expedition.ErrExpeditionEnded):
		writeErrorBody(ctx, consts.StatusConflict, "expedition_ended", err.Error())
	case errors.Is(err, intervention.ErrNoChoiceAvailable):
		writeErrorBody(ctx, consts.StatusConflict, "no_choice_available", err.Error())
	case errors.Is(err, progress.ErrInvalidRequest),
		errors.Is(err, resolver.ErrInvalidRequest),
		errors.Is(err, intervention.ErrInvalidRequest),
		errors.Is(err, history.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	writeErrorDetails(ctx, status, code, message, nil)
}

func writeErrorDetails(ctx *app.RequestContext, status int, code, message string, details map[string]any) {
	body := map[string]any{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	ctx.JSON(status, map[string]any{"error": body})
}
