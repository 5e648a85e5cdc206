// Package decision 决策与投票的核心规则：校验、状态流转、投票、计票和展示。
// 这里所有函数都是纯函数，时间由调用方传入，存储由上层负责。
package decision

import (
	"fmt"
	"strings"
	"time"
)

type Method string

const (
	MethodConsent      Method = "consent"
	MethodMajority     Method = "majority"
	MethodRankedChoice Method = "ranked_choice"
)

// Valid 是否是已知的投票方式（ranked_choice 可创建，但不能投票和计票）
func (m Method) Valid() bool {
	switch m {
	case MethodConsent, MethodMajority, MethodRankedChoice:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusClosed:
		return true
	default:
		return false
	}
}

type Decision struct {
	ID                 uint64
	CommunityID        uint64
	AuthorID           uint64
	Title              string
	Description        string
	Method             Method
	Status             Status
	Outcome            string
	CreatedAt          time.Time
	ClosesAt           time.Time
	ClosedAt           *time.Time
	EligibleVoterCount int
}

type Vote struct {
	ID         uint64
	DecisionID uint64
	UserID     uint64
	Position   Position
	Statement  string
	CreatedAt  time.Time
}

// ValidateDecisionInput 创建决策前的参数校验
func ValidateDecisionInput(title, description string, method Method, closesAt, createdAt time.Time) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidDecision)
	}
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("%w: description required", ErrInvalidDecision)
	}
	if !method.Valid() {
		return fmt.Errorf("%w: unknown vote method %q", ErrInvalidDecision, method)
	}
	if !closesAt.After(createdAt) {
		return fmt.Errorf("%w: closes_at must be after created_at", ErrInvalidDecision)
	}
	return nil
}
