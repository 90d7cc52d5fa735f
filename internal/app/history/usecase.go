package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"wildtrek/internal/app/ports"
	"wildtrek/internal/domain/expedition"
	"wildtrek/internal/domain/report"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

var ErrInvalidRequest = errors.New("invalid history request")

type ListRequest struct {
	TrainerID string
	Limit     int
}

// Summary is one line of a trainer's expedition history.
type Summary struct {
	ExpeditionID string          `json:"expedition_id"`
	LocationID   string          `json:"location_id"`
	Mode         expedition.Mode `json:"mode"`
	Outcome      report.Outcome  `json:"outcome"`
	Progress     float64         `json:"progress"`
	MoneyReward  int             `json:"money_reward"`
	LootValue    int             `json:"loot_value"`
	ArchivedAt   string          `json:"archived_at"`
}

type UseCase struct {
	Archive       ports.ExpeditionArchive
	Notifications ports.NotificationLog
}

func (u UseCase) Report(ctx context.Context, expeditionID string) (ports.ArchivedExpedition, error) {
	if u.Archive == nil || strings.TrimSpace(expeditionID) == "" {
		return ports.ArchivedExpedition{}, ErrInvalidRequest
	}
	return u.Archive.GetByID(ctx, expeditionID)
}

func (u UseCase) ListByTrainer(ctx context.Context, req ListRequest) ([]Summary, error) {
	if u.Archive == nil || strings.TrimSpace(req.TrainerID) == "" || req.Limit < 0 {
		return nil, ErrInvalidRequest
	}
	limit := clampLimit(req.Limit)
	recs, err := u.Archive.ListByTrainer(ctx, req.TrainerID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Summary{
			ExpeditionID: rec.Expedition.ID,
			LocationID:   rec.Expedition.LocationID,
			Mode:         rec.Expedition.Mode,
			Outcome:      rec.Report.Outcome,
			Progress:     rec.Report.FinalProgress,
			MoneyReward:  rec.Reward.FinalReward,
			LootValue:    rec.Loot.TotalValue(),
			ArchivedAt:   rec.ArchivedAt.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

// Replay returns the most recent logged notifications of one expedition,
// oldest first.
func (u UseCase) Replay(ctx context.Context, expeditionID string, limit int) ([]expedition.Notification, error) {
	if u.Notifications == nil || strings.TrimSpace(expeditionID) == "" || limit < 0 {
		return nil, ErrInvalidRequest
	}
	return u.Notifications.ListByExpedition(ctx, expeditionID, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
