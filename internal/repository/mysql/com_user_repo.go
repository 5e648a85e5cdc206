package mysql

import (
	"context"
	"errors"

	"Nemi_Hub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommunityMemberRepository struct {
	DB *gorm.DB
}

func (r *CommunityMemberRepository) Join(ctx context.Context, member *model.CommunityMember) error {
	// 幂等插入：若已存在 (community_id, user_id) 则不报错
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(member).Error
}

func (r *CommunityMemberRepository) Leave(ctx context.Context, communityID, userID uint64) error {
	return r.DB.WithContext(ctx).Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&model.CommunityMember{}).Error
}

func (r *CommunityMemberRepository) IsMember(ctx context.Context, communityID, userID uint64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error
	return count > 0, err
}

// Role 返回成员角色；非成员时 ok=false
func (r *CommunityMemberRepository) Role(ctx context.Context, communityID, userID uint64) (role int, ok bool, err error) {
	var m model.CommunityMember
	err = r.DB.WithContext(ctx).Select("id", "role").
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return m.Role, true, nil
}

// CountMembers 社区成员数，作为投票人数快照
func (r *CommunityMemberRepository) CountMembers(ctx context.Context, communityID uint64) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.CommunityMember{}).
		Where("community_id = ?", communityID).
		Count(&count).Error
	return count, err
}

// ListMemberEmails 通知用
func (r *CommunityMemberRepository) ListMemberEmails(ctx context.Context, communityID uint64) ([]string, error) {
	var emails []string
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Joins("JOIN community_members m ON m.user_id = users.id").
		Where("m.community_id = ?", communityID).
		Order("users.id ASC").
		Pluck("users.email", &emails).Error
	return emails, err
}
