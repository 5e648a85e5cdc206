package decision

import (
	"fmt"
	"math"
	"time"
)

type RemainingKind string

const (
	RemainingClosed       RemainingKind = "closed"
	RemainingClosingToday RemainingKind = "closing_today"
	RemainingOneDayLeft   RemainingKind = "one_day_left"
	RemainingDaysLeft     RemainingKind = "days_left"
)

type Remaining struct {
	Kind     RemainingKind `json:"kind"`
	DaysLeft int           `json:"days_left,omitempty"`
}

func (r Remaining) Label() string {
	switch r.Kind {
	case RemainingClosed:
		return "Closed"
	case RemainingClosingToday:
		return "Closing today"
	case RemainingOneDayLeft:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", r.DaysLeft)
	}
}

// DaysRemaining 仅用于展示，生命周期以 EffectiveStatus 为准
func DaysRemaining(effective Status, closesAt, now time.Time) Remaining {
	days := int(math.Ceil(float64(closesAt.Sub(now)) / float64(24*time.Hour)))
	switch {
	case effective == StatusClosed || days < 0:
		return Remaining{Kind: RemainingClosed}
	case days == 0:
		return Remaining{Kind: RemainingClosingToday}
	case days == 1:
		return Remaining{Kind: RemainingOneDayLeft, DaysLeft: 1}
	default:
		return Remaining{Kind: RemainingDaysLeft, DaysLeft: days}
	}
}

// ParticipationPercent 四舍五入并限制在 [0, 100]
func ParticipationPercent(t Tally) int {
	p := int(math.Round(t.ParticipationRatio * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
