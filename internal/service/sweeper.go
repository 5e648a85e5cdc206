package service

import (
	"context"
	"errors"
	"time"

	"Nemi_Hub/internal/config"
	"Nemi_Hub/internal/decision"
)

// DeadlineSweeper 把已过截止时间但仍标记为 active 的决策落库为 closed。
// 读路径一律用 EffectiveStatus，不依赖这里是否跑过。
type DeadlineSweeper struct {
	svc       *DecisionService
	interval  time.Duration
	batchSize int
}

func NewDeadlineSweeper(svc *DecisionService, cfg config.SweeperConfig) *DeadlineSweeper {
	return &DeadlineSweeper{
		svc:       svc,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
	}
}

func (w *DeadlineSweeper) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.sweepOnce(ctx)
		}
	}
}

// sweepOnce 返回本轮关闭的数量
func (w *DeadlineSweeper) sweepOnce(ctx context.Context) int {
	now := w.svc.now()
	rows, err := w.svc.decisions.ListExpiredActive(ctx, now, w.batchSize)
	if err != nil {
		w.svc.logger.Error("sweeper query failed", "error", err)
		return 0
	}
	closed := 0
	for i := range rows {
		d := rows[i].ToDomain()
		next, err := decision.Close(d, "", now)
		if err != nil {
			continue
		}
		err = w.svc.saveTransition(ctx, d.Status, next, closedEvent(next, 0, "sweeper"), now, "sweeper")
		if errors.Is(err, decision.ErrInvalidTransition) {
			// 被手动关闭抢先
			continue
		}
		if err != nil {
			w.svc.logger.Warn("sweeper close failed", "decision_id", d.ID, "error", err)
			continue
		}
		closed++
	}
	return closed
}
