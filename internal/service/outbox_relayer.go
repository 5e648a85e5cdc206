package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Nemi_Hub/internal/config"
	"Nemi_Hub/internal/metrics"
	"Nemi_Hub/internal/model"
	"Nemi_Hub/internal/pkg"
	"Nemi_Hub/internal/repository/mysql"

	"gorm.io/gorm"
)

type Sender func(ctx context.Context, ob *model.DecisionOutbox) error

// OutboxRelayer 把 decision_outbox 中的事件投递出去
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewOutboxRelayer(db *gorm.DB, sender Sender, cfg config.OutboxConfig, m *metrics.Metrics, logger *slog.Logger) *OutboxRelayer {
	if m == nil {
		m = metrics.Noop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxRelayer{
		repo:      &mysql.OutboxRepository{DB: db},
		batchSize: cfg.BatchSize,
		maxRetry:  cfg.MaxRetry,
		interval:  cfg.Interval,
		sender:    sender,
		metrics:   m,
		logger:    logger,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

// drainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) drainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		r.logger.Error("outbox query failed", "error", err)
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err := r.sender(ctx, &ob); err != nil {
			r.logger.Warn("outbox send failed", "outbox_id", ob.ID, "event", ob.EventType, "retry", ob.Retry, "error", err)
			r.metrics.ObserveOutbox(false)
			if err := r.repo.RetryUpdate(ctx, ob.ID, ob.Delivered); err != nil {
				r.logger.Error("outbox retry update failed", "outbox_id", ob.ID, "error", err)
			}
			continue
		}
		r.metrics.ObserveOutbox(true)
		if err := r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			r.logger.Error("outbox success update failed", "outbox_id", ob.ID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// LogSender 没有配置 kafka 和 smtp 时使用
func LogSender(logger *slog.Logger) Sender {
	return func(ctx context.Context, ob *model.DecisionOutbox) error {
		logger.Info("outbox event",
			"event", ob.EventType,
			"decision_id", ob.DecisionID,
			"community_id", ob.CommunityID,
			"payload", ob.Payload,
		)
		return nil
	}
}

func outboxEvent(ob *model.DecisionOutbox) pkg.DecisionEvent {
	return pkg.DecisionEvent{
		OutboxID:   ob.ID,
		DecisionID: ob.DecisionID,
		Type:       ob.EventType,
		Payload:    []byte(ob.Payload),
		At:         ob.CreatedAt,
	}
}

// KafkaSender 投递后、落库前崩溃会重复发送，消费方按 outbox_id 去重
func KafkaSender(p *pkg.DecisionProducer) Sender {
	return func(ctx context.Context, ob *model.DecisionOutbox) error {
		return p.Publish(ctx, outboxEvent(ob))
	}
}

type mailFunc func(cfg pkg.SMTPConfig, to []string, subject, htmlBody string) error

// EmailSender 决策开始投票和结束时通知社区成员，其他事件直接跳过
func EmailSender(cfg pkg.SMTPConfig, communities *CommunityService) Sender {
	return emailSender(cfg, communities, pkg.SendEmail)
}

func emailSender(cfg pkg.SMTPConfig, communities *CommunityService, send mailFunc) Sender {
	return func(ctx context.Context, ob *model.DecisionOutbox) error {
		if ob.EventType != model.EventDecisionActivated && ob.EventType != model.EventDecisionClosed {
			return nil
		}
		var payload struct {
			Title    string `json:"title"`
			ClosesAt string `json:"closes_at"`
			Outcome  string `json:"outcome"`
		}
		if err := json.Unmarshal([]byte(ob.Payload), &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		to, err := communities.MemberEmails(ctx, ob.CommunityID)
		if err != nil {
			return err
		}

		if ob.EventType == model.EventDecisionActivated {
			closesAt, _ := time.Parse(time.RFC3339, payload.ClosesAt)
			return send(cfg, to, "Voting is open: "+payload.Title, pkg.DecisionOpenedHTML(payload.Title, closesAt))
		}
		return send(cfg, to, "Voting closed: "+payload.Title, pkg.DecisionClosedHTML(payload.Title, payload.Outcome))
	}
}

type NamedSender struct {
	Name string
	Send Sender
}

// MultiSender 依次交给每个 sender；成功的记到 ob.Delivered，重试时只投递失败的那些
func MultiSender(senders ...NamedSender) Sender {
	return func(ctx context.Context, ob *model.DecisionOutbox) error {
		var errs []error
		for _, s := range senders {
			if ob.HasDelivered(s.Name) {
				continue
			}
			if err := s.Send(ctx, ob); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
				continue
			}
			ob.MarkDelivered(s.Name)
		}
		return errors.Join(errs...)
	}
}
