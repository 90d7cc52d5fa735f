package ports

import (
	"context"
	"time"

	"wildtrek/internal/domain/expedition"
	"wildtrek/internal/domain/report"
	"wildtrek/internal/domain/reward"
)

type ArchivedExpedition struct {
	Expedition expedition.Expedition `json:"expedition"`
	Trainer    expedition.Trainer    `json:"trainer"`
	Location   expedition.Location   `json:"location"`
	Reward     reward.Calculation    `json:"reward"`
	Loot       reward.Loot           `json:"loot"`
	Report     report.Report         `json:"report"`
	ArchivedAt time.Time             `json:"archived_at"`
}

type ExpeditionArchive interface {
	Save(ctx context.Context, rec ArchivedExpedition) error
	GetByID(ctx context.Context, expeditionID string) (ArchivedExpedition, error)
	ListByTrainer(ctx context.Context, trainerID string, limit int) ([]ArchivedExpedition, error)
}

type NotificationLog interface {
	Append(ctx context.Context, notifications []expedition.Notification) error
	ListByExpedition(ctx context.Context, expeditionID string, limit int) ([]expedition.Notification, error)
}
