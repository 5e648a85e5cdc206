package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Nemi_Hub/internal/model"
	"Nemi_Hub/internal/repository/mysql"

	"gorm.io/gorm"
)

type CommunityService struct {
	repo       *mysql.CommunityRepository
	memberRepo *mysql.CommunityMemberRepository
}

func NewCommunityService(db *gorm.DB) *CommunityService {
	return &CommunityService{
		repo:       &mysql.CommunityRepository{DB: db},
		memberRepo: &mysql.CommunityMemberRepository{DB: db},
	}
}

func (s *CommunityService) CreateCommunity(ctx context.Context, userID uint64, name, desc string) (*model.Community, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: community name required", ErrInvalidArgument)
	}
	_, err := s.repo.FindByName(ctx, name)
	if err == nil {
		return nil, ErrCommunityExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	community := &model.Community{
		Name:        name,
		Description: desc,
		IsPublic:    true,
		CreatorID:   userID,
	}
	if _, err := s.repo.Create(ctx, community); err != nil {
		return nil, err
	}
	return community, nil
}

func (s *CommunityService) GetCommunity(ctx context.Context, communityID uint64) (*model.Community, error) {
	c, err := s.repo.FindByID(ctx, communityID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *CommunityService) JoinCommunity(ctx context.Context, userID, communityID uint64) error {
	if _, err := s.GetCommunity(ctx, communityID); err != nil {
		return err
	}
	return s.memberRepo.Join(ctx, &model.CommunityMember{
		CommunityID: communityID,
		UserID:      userID,
		Role:        model.RoleMember,
	})
}

func (s *CommunityService) LeaveCommunity(ctx context.Context, userID, communityID uint64) error {
	return s.memberRepo.Leave(ctx, communityID, userID)
}

func (s *CommunityService) ListCommunities(ctx context.Context, page, size int) ([]model.Community, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 50 {
		size = 20
	}

	offset := (page - 1) * size
	return s.repo.List(ctx, offset, size)
}

func (s *CommunityService) IsMember(ctx context.Context, communityID, userID uint64) (bool, error) {
	return s.memberRepo.IsMember(ctx, communityID, userID)
}

func (s *CommunityService) IsAdmin(ctx context.Context, communityID, userID uint64) (bool, error) {
	role, ok, err := s.memberRepo.Role(ctx, communityID, userID)
	if err != nil {
		return false, err
	}
	return ok && role == model.RoleAdmin, nil
}

// MemberCount 当前成员数，作为决策的可投票人数
func (s *CommunityService) MemberCount(ctx context.Context, communityID uint64) (int, error) {
	n, err := s.memberRepo.CountMembers(ctx, communityID)
	return int(n), err
}

func (s *CommunityService) MemberEmails(ctx context.Context, communityID uint64) ([]string, error) {
	return s.memberRepo.ListMemberEmails(ctx, communityID)
}
