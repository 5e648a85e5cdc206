package model

import (
	"time"

	"Nemi_Hub/internal/decision"
)

type Decision struct {
	ID                 uint64    `gorm:"primaryKey"`
	CommunityID        uint64    `gorm:"not null;index:idx_decision_comm_status,priority:1"`
	AuthorID           uint64    `gorm:"not null;index"`
	Title              string    `gorm:"size:200;not null"`
	Description        string    `gorm:"type:text;not null"`
	VoteMethod         string    `gorm:"size:16;not null"`
	Status             string    `gorm:"size:16;not null;default:draft;index:idx_decision_comm_status,priority:2"`
	Outcome            *string   `gorm:"type:text"`
	EligibleVoterCount int       `gorm:"not null;default:0"`
	ClosesAt           time.Time `gorm:"not null;index"`
	ClosedAt           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Vote 唯一索引 (decision_id, user_id) 保证每人一票
type Vote struct {
	ID         uint64    `gorm:"primaryKey"`
	DecisionID uint64    `gorm:"not null;uniqueIndex:uk_decision_user"`
	UserID     uint64    `gorm:"not null;uniqueIndex:uk_decision_user;index"`
	Position   string    `gorm:"size:16;not null"`
	Statement  *string   `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"not null"` // 最近一次投票时间
	UpdatedAt  time.Time
}

func (d *Decision) ToDomain() decision.Decision {
	out := decision.Decision{
		ID:                 d.ID,
		CommunityID:        d.CommunityID,
		AuthorID:           d.AuthorID,
		Title:              d.Title,
		Description:        d.Description,
		Method:             decision.Method(d.VoteMethod),
		Status:             decision.Status(d.Status),
		CreatedAt:          d.CreatedAt,
		ClosesAt:           d.ClosesAt,
		ClosedAt:           d.ClosedAt,
		EligibleVoterCount: d.EligibleVoterCount,
	}
	if d.Outcome != nil {
		out.Outcome = *d.Outcome
	}
	return out
}

func DecisionFromDomain(d decision.Decision) *Decision {
	out := &Decision{
		ID:                 d.ID,
		CommunityID:        d.CommunityID,
		AuthorID:           d.AuthorID,
		Title:              d.Title,
		Description:        d.Description,
		VoteMethod:         string(d.Method),
		Status:             string(d.Status),
		EligibleVoterCount: d.EligibleVoterCount,
		ClosesAt:           d.ClosesAt,
		ClosedAt:           d.ClosedAt,
		CreatedAt:          d.CreatedAt,
	}
	if d.Outcome != "" {
		outcome := d.Outcome
		out.Outcome = &outcome
	}
	return out
}

func (v *Vote) ToDomain() decision.Vote {
	out := decision.Vote{
		ID:         v.ID,
		DecisionID: v.DecisionID,
		UserID:     v.UserID,
		Position:   decision.Position(v.Position),
		CreatedAt:  v.CreatedAt,
	}
	if v.Statement != nil {
		out.Statement = *v.Statement
	}
	return out
}

func VoteFromDomain(v decision.Vote) *Vote {
	out := &Vote{
		ID:         v.ID,
		DecisionID: v.DecisionID,
		UserID:     v.UserID,
		Position:   string(v.Position),
		CreatedAt:  v.CreatedAt,
	}
	if v.Statement != "" {
		stmt := v.Statement
		out.Statement = &stmt
	}
	return out
}

func VotesToDomain(list []Vote) []decision.Vote {
	out := make([]decision.Vote, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToDomain())
	}
	return out
}
