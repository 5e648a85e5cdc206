package mysql

import (
	"context"
	"encoding/json"
	"time"

	"Nemi_Hub/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// Event 写入 outbox 的事件
type Event struct {
	Type        string
	DecisionID  uint64
	CommunityID uint64
	ActorID     uint64
	Data        map[string]any
}

// insertOutbox 插入outbox事件表，必须传入事务
func insertOutbox(tx *gorm.DB, ev Event, at time.Time) error {
	payload := map[string]any{
		"event":        ev.Type,
		"event_time":   at.UTC().Format(time.RFC3339Nano),
		"decision_id":  ev.DecisionID,
		"community_id": ev.CommunityID,
		"actor_id":     ev.ActorID,
	}
	for k, v := range ev.Data {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Create(&model.DecisionOutbox{
		EventType:   ev.Type,
		DecisionID:  ev.DecisionID,
		CommunityID: ev.CommunityID,
		ActorID:     ev.ActorID,
		Payload:     string(b),
		Status:      model.OutboxPending,
	}).Error
}

// List 查询待投递的事件，失败的会在 retry 未超限时重试
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.DecisionOutbox, error) {
	var list []model.DecisionOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", model.OutboxPending, model.OutboxFailed, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate 投递失败，同时记下已经成功的 sender，重试时跳过
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64, delivered string) error {
	return r.DB.WithContext(ctx).Model(&model.DecisionOutbox{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":    model.OutboxFailed,
			"retry":     gorm.Expr("retry + 1"),
			"delivered": delivered,
		}).Error
}

// SuccessUpdate 投递成功
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.DecisionOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}
