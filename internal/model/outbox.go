package model

import (
	"slices"
	"strings"
	"time"
)

const (
	EventDecisionCreated   = "decision.created"
	EventDecisionActivated = "decision.activated"
	EventDecisionClosed    = "decision.closed"
	EventVoteCast          = "vote.cast"
)

const (
	OutboxPending = 0
	OutboxSent    = 1
	OutboxFailed  = 2
)

// DecisionOutbox 决策事件表，与业务写入在同一事务内
type DecisionOutbox struct {
	ID          uint64 `gorm:"primaryKey"`
	EventType   string `gorm:"size:32;not null"`
	DecisionID  uint64 `gorm:"not null;index"`
	CommunityID uint64 `gorm:"not null"`
	ActorID     uint64 `gorm:"not null"`
	Payload     string `gorm:"type:text;not null"`
	Status      int8   `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'"`
	Retry       int    `gorm:"not null;default:0"`
	Delivered   string `gorm:"size:255;not null;default:''"` // 已成功的 sender，逗号分隔
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (DecisionOutbox) TableName() string { return "decision_outbox" }

func (o *DecisionOutbox) HasDelivered(sender string) bool {
	if o.Delivered == "" {
		return false
	}
	return slices.Contains(strings.Split(o.Delivered, ","), sender)
}

func (o *DecisionOutbox) MarkDelivered(sender string) {
	if o.HasDelivered(sender) {
		return
	}
	if o.Delivered == "" {
		o.Delivered = sender
		return
	}
	o.Delivered += "," + sender
}

// MigrateModels AutoMigrate 用到的全部表
var MigrateModels = []any{
	&User{},
	&Community{},
	&CommunityMember{},
	&Decision{},
	&Vote{},
	&DecisionOutbox{},
}
