package mysql

import (
	"context"
	"time"

	"Nemi_Hub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VoteRepository struct {
	DB *gorm.DB
}

// ListByDecision 决策的全部票，关闭后仍可读
func (r *VoteRepository) ListByDecision(ctx context.Context, decisionID uint64) ([]model.Vote, error) {
	var list []model.Vote
	err := r.DB.WithContext(ctx).
		Where("decision_id = ?", decisionID).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *VoteRepository) FindByUser(ctx context.Context, decisionID, userID uint64) (*model.Vote, error) {
	var v model.Vote
	err := r.DB.WithContext(ctx).
		Where("decision_id = ? AND user_id = ?", decisionID, userID).
		First(&v).Error
	return &v, err
}

// Upsert 以 (decision_id, user_id) 为键插入或覆盖，id 保持不变；同一事务写 outbox
func (r *VoteRepository) Upsert(ctx context.Context, v *model.Vote, ev Event, at time.Time) (*model.Vote, error) {
	var saved model.Vote
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := *v
		row.ID = 0
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "decision_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"position", "statement", "created_at", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
		// mysql 更新时返回的自增 id 不可靠，重新读取
		if err := tx.Where("decision_id = ? AND user_id = ?", v.DecisionID, v.UserID).
			First(&saved).Error; err != nil {
			return err
		}
		return insertOutbox(tx, ev, at)
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}
