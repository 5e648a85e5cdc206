package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveStatus(t *testing.T) {
	d := newActive(MethodConsent)

	assert.Equal(t, StatusActive, EffectiveStatus(d, baseTime))
	assert.Equal(t, StatusClosed, EffectiveStatus(d, d.ClosesAt))
	assert.Equal(t, StatusClosed, EffectiveStatus(d, d.ClosesAt.Add(time.Nanosecond)))
	assert.Equal(t, StatusActive, EffectiveStatus(d, d.ClosesAt.Add(-time.Nanosecond)))

	d.Status = StatusDraft
	assert.Equal(t, StatusDraft, EffectiveStatus(d, baseTime))
	assert.Equal(t, StatusClosed, EffectiveStatus(d, d.ClosesAt.Add(time.Hour)))

	d.Status = StatusClosed
	assert.Equal(t, StatusClosed, EffectiveStatus(d, baseTime))
}

func TestEffectiveStatusNeverContradictsDeadline(t *testing.T) {
	statuses := []Status{StatusDraft, StatusActive, StatusClosed}
	offsets := []time.Duration{-72 * time.Hour, -time.Second, 0, time.Second, 72 * time.Hour}
	for _, s := range statuses {
		for _, off := range offsets {
			d := newActive(MethodMajority)
			d.Status = s
			now := d.ClosesAt.Add(off)
			got := EffectiveStatus(d, now)
			if !now.Before(d.ClosesAt) {
				assert.Equal(t, StatusClosed, got, "status=%s offset=%s", s, off)
			}
		}
	}
}

func TestTransition(t *testing.T) {
	draft := newActive(MethodConsent)
	draft.Status = StatusDraft

	active, err := Activate(draft, baseTime)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, active.Status)
	assert.Nil(t, active.ClosedAt)

	closed, err := Close(active, "adopted", baseTime)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	assert.Equal(t, "adopted", closed.Outcome)
	require.NotNil(t, closed.ClosedAt)
	assert.True(t, closed.ClosedAt.Equal(baseTime))

	// 原值不变
	assert.Equal(t, StatusDraft, draft.Status)
}

func TestTransitionInvalid(t *testing.T) {
	draft := newActive(MethodConsent)
	draft.Status = StatusDraft
	closed := newActive(MethodConsent)
	closed.Status = StatusClosed

	tests := []struct {
		name string
		d    Decision
		to   Status
		now  time.Time
	}{
		{"draft to closed", draft, StatusClosed, baseTime},
		{"closed to active", closed, StatusActive, baseTime},
		{"closed to draft", closed, StatusDraft, baseTime},
		{"closed to closed", closed, StatusClosed, baseTime},
		{"active to active", newActive(MethodConsent), StatusActive, baseTime},
		{"active to draft", newActive(MethodConsent), StatusDraft, baseTime},
		{"activate past deadline", draft, StatusActive, draft.ClosesAt.Add(time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Transition(tt.d, tt.to, tt.now)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.d.Status, out.Status)
		})
	}
}

func TestCloseAfterDeadlineStampsDeadline(t *testing.T) {
	d := newActive(MethodMajority)
	late := d.ClosesAt.Add(5 * time.Hour)

	out, err := Close(d, "", late)
	require.NoError(t, err)
	require.NotNil(t, out.ClosedAt)
	assert.True(t, out.ClosedAt.Equal(d.ClosesAt))
	assert.Empty(t, out.Outcome)
}

func TestIsVotingOpen(t *testing.T) {
	d := newActive(MethodConsent)
	assert.True(t, IsVotingOpen(d, baseTime))
	assert.False(t, IsVotingOpen(d, d.ClosesAt))

	d.Status = StatusDraft
	assert.False(t, IsVotingOpen(d, baseTime))
}
