package mysql

import (
	"context"
	"errors"
	"strings"
	"time"

	"Nemi_Hub/internal/model"

	"gorm.io/gorm"
)

// ErrStatusChanged 条件更新时状态已被其他请求修改
var ErrStatusChanged = errors.New("decision status changed concurrently")

type DecisionRepository struct {
	DB *gorm.DB
}

// DecisionFilter 列表查询条件
type DecisionFilter struct {
	CommunityID uint64
	Search      string
	ActiveAt    *time.Time // 非空时只返回在该时刻仍可投票的决策
	ClosedAt    *time.Time // 非空时只返回在该时刻已关闭(含过期)的决策
	VoterID     uint64     // 非空时只返回该用户投过票的决策
	Offset      int
	Limit       int
}

// Create 写入决策并记录事件
func (r *DecisionRepository) Create(ctx context.Context, d *model.Decision, actorID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(d).Error; err != nil {
			return err
		}
		return insertOutbox(tx, Event{
			Type:        model.EventDecisionCreated,
			DecisionID:  d.ID,
			CommunityID: d.CommunityID,
			ActorID:     actorID,
			Data:        map[string]any{"title": d.Title, "vote_method": d.VoteMethod},
		}, d.CreatedAt)
	})
}

func (r *DecisionRepository) FindByID(ctx context.Context, id uint64) (*model.Decision, error) {
	var d model.Decision
	err := r.DB.WithContext(ctx).First(&d, id).Error
	return &d, err
}

// UpdateStatus 带旧状态条件的更新，防止并发重复流转
func (r *DecisionRepository) UpdateStatus(ctx context.Context, d *model.Decision, fromStatus string, ev Event, at time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Decision{}).
			Where("id = ? AND status = ?", d.ID, fromStatus).
			Updates(map[string]any{
				"status":               d.Status,
				"outcome":              d.Outcome,
				"closed_at":            d.ClosedAt,
				"eligible_voter_count": d.EligibleVoterCount,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusChanged
		}
		return insertOutbox(tx, ev, at)
	})
}

// List 按社区、关键字、可投票状态和投票人过滤
func (r *DecisionRepository) List(ctx context.Context, f DecisionFilter) ([]model.Decision, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	q := r.DB.WithContext(ctx).Model(&model.Decision{})
	if f.CommunityID > 0 {
		q = q.Where("decisions.community_id = ?", f.CommunityID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(decisions.title) LIKE ? OR LOWER(decisions.description) LIKE ?)", like, like)
	}
	if f.ActiveAt != nil {
		q = q.Where("decisions.status = ? AND decisions.closes_at > ?", "active", *f.ActiveAt)
	}
	if f.ClosedAt != nil {
		q = q.Where("(decisions.status = ? OR decisions.closes_at <= ?)", "closed", *f.ClosedAt)
	}
	if f.VoterID > 0 {
		q = q.Joins("JOIN votes v ON v.decision_id = decisions.id AND v.user_id = ?", f.VoterID)
	}
	var list []model.Decision
	err := q.Order("decisions.closes_at ASC, decisions.id DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&list).Error
	return list, err
}

// ListExpiredActive 仍标记为 active 但已过截止时间的决策
func (r *DecisionRepository) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]model.Decision, error) {
	var list []model.Decision
	err := r.DB.WithContext(ctx).
		Where("status = ? AND closes_at <= ?", "active", now).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
