package decision

import (
	"fmt"
	"strings"
	"time"
)

// Ballot 一次投票提交
type Ballot struct {
	UserID    uint64
	Position  string
	Statement string
	CastAt    time.Time
}

type VoteCastResult struct {
	Vote     Vote
	Replaced bool   // 同一用户重复提交时覆盖旧票
	Votes    []Vote // 更新后的集合，不修改入参
}

// CastVote 校验并应用一次投票，按顺序失败：未开放 -> 方式不支持 -> 立场非法 -> block 缺少理由
func CastVote(d Decision, existing []Vote, b Ballot) (VoteCastResult, error) {
	if st := EffectiveStatus(d, b.CastAt); st != StatusActive {
		return VoteCastResult{}, fmt.Errorf("%w: status is %s", ErrDecisionNotOpen, st)
	}
	pos, err := ParsePosition(d.Method, b.Position)
	if err != nil {
		return VoteCastResult{}, err
	}
	statement := strings.TrimSpace(b.Statement)
	if d.Method == MethodConsent && pos == PositionBlock && statement == "" {
		return VoteCastResult{}, ErrStatementRequired
	}

	votes := make([]Vote, len(existing))
	copy(votes, existing)

	for i := range votes {
		if votes[i].DecisionID != d.ID || votes[i].UserID != b.UserID {
			continue
		}
		votes[i].Position = pos
		votes[i].Statement = statement
		votes[i].CreatedAt = b.CastAt
		return VoteCastResult{Vote: votes[i], Replaced: true, Votes: votes}, nil
	}

	v := Vote{
		DecisionID: d.ID,
		UserID:     b.UserID,
		Position:   pos,
		Statement:  statement,
		CreatedAt:  b.CastAt,
	}
	votes = append(votes, v)
	return VoteCastResult{Vote: v, Replaced: false, Votes: votes}, nil
}
