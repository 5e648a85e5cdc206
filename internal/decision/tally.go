package decision

type Tally struct {
	Method             Method           `json:"method"`
	Counts             map[Position]int `json:"counts"`
	TotalVotesCast     int              `json:"total_votes_cast"`
	EligibleVoterCount int              `json:"eligible_voter_count"`
	ParticipationRatio float64          `json:"participation_ratio"`
	HasBlock           bool             `json:"has_block"` // 仅提示，不代表否决
}

// ComputeTally 计票。每个用户只保留最新一票（created_at 最大，其次 id 最大），与输入顺序无关
func ComputeTally(d Decision, votes []Vote) (Tally, error) {
	positions, err := AllowedPositions(d.Method)
	if err != nil {
		return Tally{}, err
	}

	latest := make(map[uint64]Vote, len(votes))
	for _, v := range votes {
		if v.DecisionID != d.ID {
			continue
		}
		cur, ok := latest[v.UserID]
		if !ok || newer(v, cur) {
			latest[v.UserID] = v
		}
	}

	counts := make(map[Position]int, len(positions))
	for _, p := range positions {
		counts[p] = 0
	}
	for _, v := range latest {
		// 不在集合内的脏数据只计入参与人数
		if _, ok := counts[v.Position]; ok {
			counts[v.Position]++
		}
	}

	t := Tally{
		Method:             d.Method,
		Counts:             counts,
		TotalVotesCast:     len(latest),
		EligibleVoterCount: d.EligibleVoterCount,
	}
	if d.EligibleVoterCount > 0 {
		t.ParticipationRatio = float64(t.TotalVotesCast) / float64(d.EligibleVoterCount)
	}
	if d.Method == MethodConsent {
		t.HasBlock = counts[PositionBlock] > 0
	}
	return t, nil
}

func newer(a, b Vote) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if a.ID != b.ID {
		return a.ID > b.ID
	}
	if a.Position != b.Position {
		return a.Position > b.Position
	}
	return a.Statement > b.Statement
}
