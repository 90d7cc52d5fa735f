package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wildtrek/internal/adapter/repo/gorm/model"
	"wildtrek/internal/app/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArchiveRepo stores the full archived record as a JSON payload next to the
// columns the history queries filter and sort on.
type ArchiveRepo struct {
	db *gorm.DB
}

func NewArchiveRepo(db *gorm.DB) ArchiveRepo {
	return ArchiveRepo{db: db}
}

func (r ArchiveRepo) Save(ctx context.Context, rec ports.ArchivedExpedition) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode archive %s: %w", rec.Expedition.ID, err)
	}
	completedAt := rec.ArchivedAt
	if rec.Expedition.Outcome != nil {
		completedAt = rec.Expedition.Outcome.CompletedAt
	}
	row := model.ExpeditionArchive{
		ExpeditionID:  rec.Expedition.ID,
		TrainerID:     rec.Expedition.TrainerID,
		LocationID:    rec.Expedition.LocationID,
		Mode:          string(rec.Expedition.Mode),
		Outcome:       string(rec.Report.Outcome),
		FinalProgress: rec.Report.FinalProgress,
		MoneyReward:   int32(rec.Reward.FinalReward),
		LootValue:     int32(rec.Loot.TotalValue()),
		StartedAt:     rec.Expedition.StartedAt,
		CompletedAt:   completedAt,
		ArchivedAt:    rec.ArchivedAt,
		Payload:       string(payload),
	}
	res := conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}

func (r ArchiveRepo) GetByID(ctx context.Context, expeditionID string) (ports.ArchivedExpedition, error) {
	var row model.ExpeditionArchive
	if err := conn(ctx, r.db).Where("expedition_id = ?", expeditionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ArchivedExpedition{}, ports.ErrNotFound
		}
		return ports.ArchivedExpedition{}, err
	}
	return decodeArchive(row)
}

func (r ArchiveRepo) ListByTrainer(ctx context.Context, trainerID string, limit int) ([]ports.ArchivedExpedition, error) {
	rows := []model.ExpeditionArchive{}
	query := conn(ctx, r.db).
		Where(&model.ExpeditionArchive{TrainerID: trainerID}).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "archived_at"}, Desc: true}},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.ArchivedExpedition, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeArchive(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeArchive(row model.ExpeditionArchive) (ports.ArchivedExpedition, error) {
	var rec ports.ArchivedExpedition
	if err := json.Unmarshal([]byte(row.Payload), &rec); err != nil {
		return ports.ArchivedExpedition{}, fmt.Errorf("decode archive %s: %w", row.ExpeditionID, err)
	}
	return rec, nil
}
