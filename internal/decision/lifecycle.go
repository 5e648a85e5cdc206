package decision

import (
	"fmt"
	"time"
)

// EffectiveStatus 考虑截止时间后的真实状态；存储的 status 不会因为时间流逝而改变
func EffectiveStatus(d Decision, now time.Time) Status {
	if d.Status == StatusClosed || !now.Before(d.ClosesAt) {
		return StatusClosed
	}
	return d.Status
}

func IsVotingOpen(d Decision, now time.Time) bool {
	return EffectiveStatus(d, now) == StatusActive
}

// Transition 只允许 draft->active 和 active->closed
func Transition(d Decision, to Status, now time.Time) (Decision, error) {
	from := EffectiveStatus(d, now)
	switch {
	case d.Status == StatusDraft && to == StatusActive && from == StatusDraft:
		d.Status = StatusActive
		return d, nil
	case d.Status == StatusActive && to == StatusClosed:
		// 已过截止时间的 active 也允许显式关闭，用于落库
		d.Status = StatusClosed
		closedAt := now
		if d.ClosesAt.Before(now) {
			closedAt = d.ClosesAt
		}
		d.ClosedAt = &closedAt
		return d, nil
	}
	return d, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func Activate(d Decision, now time.Time) (Decision, error) {
	return Transition(d, StatusActive, now)
}

// Close 显式关闭，outcome 为可选的结论文本
func Close(d Decision, outcome string, now time.Time) (Decision, error) {
	out, err := Transition(d, StatusClosed, now)
	if err != nil {
		return d, err
	}
	if outcome != "" {
		out.Outcome = outcome
	}
	return out, nil
}
