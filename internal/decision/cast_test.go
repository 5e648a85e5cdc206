package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastVoteNewVote(t *testing.T) {
	d := newActive(MethodConsent)

	res, err := CastVote(d, nil, Ballot{UserID: 1, Position: "agree", CastAt: baseTime})
	require.NoError(t, err)
	assert.False(t, res.Replaced)
	assert.Equal(t, PositionAgree, res.Vote.Position)
	assert.Equal(t, d.ID, res.Vote.DecisionID)
	assert.True(t, res.Vote.CreatedAt.Equal(baseTime))
	require.Len(t, res.Votes, 1)
}

func TestCastVoteReplacesInPlace(t *testing.T) {
	d := newActive(MethodConsent)
	existing := []Vote{
		{ID: 11, DecisionID: d.ID, UserID: 1, Position: PositionAgree, CreatedAt: baseTime},
		{ID: 12, DecisionID: d.ID, UserID: 2, Position: PositionDisagree, CreatedAt: baseTime},
	}
	later := baseTime.Add(time.Hour)

	res, err := CastVote(d, existing, Ballot{UserID: 1, Position: "block", Statement: "  concerned about X ", CastAt: later})
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.Equal(t, uint64(11), res.Vote.ID)
	assert.Equal(t, PositionBlock, res.Vote.Position)
	assert.Equal(t, "concerned about X", res.Vote.Statement)
	assert.True(t, res.Vote.CreatedAt.Equal(later))
	require.Len(t, res.Votes, 2)

	// 入参不被修改
	assert.Equal(t, PositionAgree, existing[0].Position)
}

func TestCastVoteValidationOrder(t *testing.T) {
	closed := newActive(MethodMajority)
	closed.Status = StatusClosed

	draft := newActive(MethodConsent)
	draft.Status = StatusDraft

	ranked := newActive(MethodRankedChoice)

	tests := []struct {
		name    string
		d       Decision
		ballot  Ballot
		wantErr error
	}{
		{"closed beats invalid position", closed, Ballot{UserID: 1, Position: "block", CastAt: baseTime}, ErrDecisionNotOpen},
		{"draft not open", draft, Ballot{UserID: 1, Position: "agree", CastAt: baseTime}, ErrDecisionNotOpen},
		{"past deadline regardless of stored status", newActive(MethodConsent), Ballot{UserID: 1, Position: "agree", CastAt: baseTime.Add(72 * time.Hour)}, ErrDecisionNotOpen},
		{"ranked choice unsupported", ranked, Ballot{UserID: 1, Position: "1", CastAt: baseTime}, ErrUnsupportedMethod},
		{"block under majority", newActive(MethodMajority), Ballot{UserID: 1, Position: "block", Statement: "why", CastAt: baseTime}, ErrInvalidPosition},
		{"yes under consent", newActive(MethodConsent), Ballot{UserID: 1, Position: "yes", CastAt: baseTime}, ErrInvalidPosition},
		{"empty position", newActive(MethodConsent), Ballot{UserID: 1, Position: "", CastAt: baseTime}, ErrInvalidPosition},
		{"padded position", newActive(MethodConsent), Ballot{UserID: 1, Position: " agree", CastAt: baseTime}, ErrInvalidPosition},
		{"capitalized position", newActive(MethodConsent), Ballot{UserID: 1, Position: "Agree", CastAt: baseTime}, ErrInvalidPosition},
		{"block without statement", newActive(MethodConsent), Ballot{UserID: 1, Position: "block", CastAt: baseTime}, ErrStatementRequired},
		{"block with whitespace statement", newActive(MethodConsent), Ballot{UserID: 1, Position: "block", Statement: " \t\n", CastAt: baseTime}, ErrStatementRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CastVote(tt.d, nil, tt.ballot)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCastVoteBlockStatementRule(t *testing.T) {
	d := newActive(MethodConsent)
	for _, stmt := range []string{"", " ", "\t", "\n\n"} {
		_, err := CastVote(d, nil, Ballot{UserID: 3, Position: "block", Statement: stmt, CastAt: baseTime})
		assert.ErrorIs(t, err, ErrStatementRequired, "statement %q", stmt)
	}
	for _, stmt := range []string{"x", " no ", "this breaks our bylaws"} {
		_, err := CastVote(d, nil, Ballot{UserID: 3, Position: "block", Statement: stmt, CastAt: baseTime})
		assert.NoError(t, err, "statement %q", stmt)
	}

	// 其他立场不需要理由
	_, err := CastVote(d, nil, Ballot{UserID: 3, Position: "disagree", CastAt: baseTime})
	assert.NoError(t, err)
}

func TestCastVoteAbstainValidForBoth(t *testing.T) {
	for _, m := range []Method{MethodConsent, MethodMajority} {
		_, err := CastVote(newActive(m), nil, Ballot{UserID: 1, Position: "abstain", CastAt: baseTime})
		assert.NoError(t, err, "method %s", m)
	}
}
