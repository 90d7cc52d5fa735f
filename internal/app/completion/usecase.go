package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"wildtrek/internal/app/ports"
	"wildtrek/internal/app/session"
	"wildtrek/internal/domain/expedition"
	"wildtrek/internal/domain/report"
	"wildtrek/internal/domain/reward"
	"wildtrek/internal/platform/random"
)

var ErrInvalidRequest = errors.New("invalid completion request")

var tracer = otel.Tracer("wildtrek/internal/app/completion")

// UseCase turns a finished expedition into its reward bundle and report and
// archives the result. It is the progress engine's Completer.
type UseCase struct {
	Rewards   reward.Catalog
	Archive   ports.ExpeditionArchive
	TxManager ports.TxManager
	Notifier  ports.Notifier
	Metrics   ports.ExpeditionMetrics
	// Seed roots the per-expedition loot stream so a replay with the same
	// seed and expedition id yields the same loot.
	Seed int64
}

// SuccessRate is progress weighted by how well the player resolved events.
func SuccessRate(snap session.Snapshot) float64 {
	ratio, _, _ := report.DecisionRatio(snap.Expedition.Events)
	return expedition.Clamp01(outcomeProgress(snap) * (0.5 + 0.5*ratio))
}

func (u UseCase) Complete(ctx context.Context, snap session.Snapshot) error {
	ctx, span := tracer.Start(ctx, "completion.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("expedition.id", snap.Expedition.ID),
		attribute.String("location.id", snap.Expedition.LocationID),
	)

	archived, err := u.Build(snap)
	if err == nil {
		err = u.persist(ctx, archived)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(
		attribute.String("report.outcome", string(archived.Report.Outcome)),
		attribute.Int("reward.money", archived.Reward.FinalReward),
		attribute.Int("reward.loot_value", archived.Loot.TotalValue()),
	)

	if u.Metrics != nil {
		u.Metrics.RecordCompletion(string(archived.Report.Outcome))
	}
	at := archived.ArchivedAt
	expID := snap.Expedition.ID
	u.publish(expedition.Notification{
		Category:     expedition.CategoryReward,
		Action:       expedition.ActionRewardGenerated,
		EntityID:     expID,
		ExpeditionID: expID,
		After:        RewardBundle{Money: archived.Reward, Loot: archived.Loot},
		At:           at,
	})
	u.publish(expedition.Notification{
		Category:     expedition.CategoryExpedition,
		Action:       expedition.ActionCompleted,
		EntityID:     expID,
		ExpeditionID: expID,
		Before:       snap.Progress,
		After:        archived.Report,
		At:           at,
	})
	hlog.CtxInfof(ctx, "expedition %s archived outcome=%s money=%d loot=%d",
		expID, archived.Report.Outcome, archived.Reward.FinalReward, archived.Loot.TotalValue())
	return nil
}

// RewardBundle is the payload of the reward/generated notification.
type RewardBundle struct {
	Money reward.Calculation `json:"money"`
	Loot  reward.Loot        `json:"loot"`
}

// Build computes reward, loot and report for a finished snapshot without
// side effects.
func (u UseCase) Build(snap session.Snapshot) (ports.ArchivedExpedition, error) {
	exp := snap.Expedition
	if exp.Outcome == nil {
		return ports.ArchivedExpedition{}, fmt.Errorf("%w: expedition %s has no outcome", ErrInvalidRequest, exp.ID)
	}
	completedAt := exp.Outcome.CompletedAt
	rate := SuccessRate(snap)

	table, err := u.Rewards.DropTableFor(exp.LocationID)
	if err != nil {
		return ports.ArchivedExpedition{}, err
	}
	loot := reward.GenerateLoot(reward.LootInput{
		ExpeditionID: exp.ID,
		LocationID:   exp.LocationID,
		Table:        table,
		Species:      u.Rewards.SpeciesIndex(table),
		Trainer:      snap.Trainer,
		Events:       exp.Events,
		SuccessRate:  rate,
		LootBonus:    expedition.SumLive(snap.Effects, expedition.ModifierLootBonus, completedAt),
	}, random.Derive(u.Seed, "loot/"+exp.ID))

	money := reward.ComputeMoneyReward(reward.MoneyInput{
		PlannedDuration: exp.PlannedDuration,
		ActualDuration:  completedAt.Sub(exp.StartedAt),
		Location:        snap.Location,
		Mode:            exp.Mode,
		Trainer:         snap.Trainer,
		Events:          exp.Events,
		SuccessRate:     rate,
	})

	rep := report.Build(report.Input{
		Expedition:           exp,
		Trainer:              snap.Trainer,
		Location:             snap.Location,
		Transitions:          snap.Transitions,
		Reward:               money,
		Loot:                 loot,
		CaptureRich:          table.CaptureRich(),
		RecallRequested:      snap.RecallRequested,
		InterventionAttempts: snap.InterventionAttempts,
		CriticalTicks:        snap.CriticalTicks,
		PeakRisk:             snap.PeakRisk,
	})

	return ports.ArchivedExpedition{
		Expedition: exp,
		Trainer:    snap.Trainer,
		Location:   snap.Location,
		Reward:     money,
		Loot:       loot,
		Report:     rep,
		ArchivedAt: completedAt,
	}, nil
}

func (u UseCase) persist(ctx context.Context, rec ports.ArchivedExpedition) error {
	if u.Archive == nil {
		return nil
	}
	save := func(txCtx context.Context) error {
		return u.Archive.Save(txCtx, rec)
	}
	var err error
	if u.TxManager != nil {
		err = u.TxManager.RunInTx(ctx, save)
	} else {
		err = save(ctx)
	}
	if errors.Is(err, ports.ErrConflict) {
		hlog.CtxWarnf(ctx, "expedition %s already archived", rec.Expedition.ID)
		return nil
	}
	return err
}

func (u UseCase) publish(n expedition.Notification) {
	if u.Notifier != nil {
		u.Notifier.Publish(n)
	}
}

func outcomeProgress(snap session.Snapshot) float64 {
	if snap.Expedition.Outcome != nil {
		return snap.Expedition.Outcome.Progress
	}
	return snap.Expedition.Progress
}
