package gormrepo

import (
	"context"
	"encoding/json"

	"wildtrek/internal/adapter/repo/gorm/model"
	"wildtrek/internal/domain/expedition"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) NotificationRepo {
	return NotificationRepo{db: db}
}

type notificationPayload struct {
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

func (r NotificationRepo) Append(ctx context.Context, items []expedition.Notification) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]model.ExpeditionNotification, 0, len(items))
	for _, n := range items {
		before, _ := json.Marshal(n.Before)
		after, _ := json.Marshal(n.After)
		b, _ := json.Marshal(notificationPayload{Before: before, After: after})
		rows = append(rows, model.ExpeditionNotification{
			ExpeditionID: n.ExpeditionID,
			Category:     string(n.Category),
			Action:       n.Action,
			EntityID:     n.EntityID,
			OccurredAt:   n.At,
			Payload:      string(b),
		})
	}
	return conn(ctx, r.db).Create(&rows).Error
}

// ListByExpedition returns the newest limit notifications, oldest first.
// Before/After come back as decoded JSON values rather than their original
// Go types.
func (r NotificationRepo) ListByExpedition(ctx context.Context, expeditionID string, limit int) ([]expedition.Notification, error) {
	rows := []model.ExpeditionNotification{}
	query := conn(ctx, r.db).
		Where(&model.ExpeditionNotification{ExpeditionID: expeditionID}).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "id"}, Desc: true}},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]expedition.Notification, len(rows))
	for i, row := range rows {
		var p notificationPayload
		_ = json.Unmarshal([]byte(row.Payload), &p)
		n := expedition.Notification{
			Category:     expedition.NotificationCategory(row.Category),
			Action:       row.Action,
			EntityID:     row.EntityID,
			ExpeditionID: row.ExpeditionID,
			At:           row.OccurredAt,
		}
		n.Before = decodeAny(p.Before)
		n.After = decodeAny(p.After)
		out[len(rows)-1-i] = n
	}
	return out, nil
}

func decodeAny(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
