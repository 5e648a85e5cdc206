package handler

import (
	"errors"
	"io"
	"strconv"
	"time"

	"Nemi_Hub/internal/decision"
	"Nemi_Hub/internal/service"

	"github.com/gin-gonic/gin"
)

type DecisionHandler struct {
	svc *service.DecisionService
}

type DecisionCreateReq struct {
	CommunityID uint64    `json:"community_id" binding:"required"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VoteMethod  string    `json:"vote_method"`
	ClosesAt    time.Time `json:"closes_at"`
}

type DecisionCloseReq struct {
	Outcome string `json:"outcome"`
}

type VoteReq struct {
	Position  string `json:"position"`
	Statement string `json:"statement"`
}

type decisionResp struct {
	ID                 uint64     `json:"id"`
	CommunityID        uint64     `json:"community_id"`
	AuthorID           uint64     `json:"author_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	VoteMethod         string     `json:"vote_method"`
	Status             string     `json:"status"`
	Outcome            string     `json:"outcome,omitempty"`
	EligibleVoterCount int        `json:"eligible_voter_count"`
	CreatedAt          time.Time  `json:"created_at"`
	ClosesAt           time.Time  `json:"closes_at"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
}

type voteResp struct {
	ID         uint64    `json:"id"`
	DecisionID uint64    `json:"decision_id"`
	UserID     uint64    `json:"user_id"`
	Position   string    `json:"position"`
	Statement  string    `json:"statement,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type remainingResp struct {
	Kind     string `json:"kind"`
	DaysLeft int    `json:"days_left"`
	Label    string `json:"label"`
}

type decisionViewResp struct {
	Decision             decisionResp        `json:"decision"`
	EffectiveStatus      string              `json:"effective_status"`
	AllowedPositions     []decision.Position `json:"allowed_positions"`
	Tally                *decision.Tally     `json:"tally"`
	ParticipationPercent int                 `json:"participation_percent"`
	Remaining            remainingResp       `json:"remaining"`
	MyVote               *voteResp           `json:"my_vote"`
}

func toDecisionResp(d decision.Decision) decisionResp {
	return decisionResp{
		ID:                 d.ID,
		CommunityID:        d.CommunityID,
		AuthorID:           d.AuthorID,
		Title:              d.Title,
		Description:        d.Description,
		VoteMethod:         string(d.Method),
		Status:             string(d.Status),
		Outcome:            d.Outcome,
		EligibleVoterCount: d.EligibleVoterCount,
		CreatedAt:          d.CreatedAt,
		ClosesAt:           d.ClosesAt,
		ClosedAt:           d.ClosedAt,
	}
}

func toVoteResp(v decision.Vote) voteResp {
	return voteResp{
		ID:         v.ID,
		DecisionID: v.DecisionID,
		UserID:     v.UserID,
		Position:   string(v.Position),
		Statement:  v.Statement,
		CreatedAt:  v.CreatedAt,
	}
}

func toViewResp(v *service.DecisionView) decisionViewResp {
	out := decisionViewResp{
		Decision:             toDecisionResp(v.Decision),
		EffectiveStatus:      string(v.EffectiveStatus),
		AllowedPositions:     v.AllowedPositions,
		Tally:                v.Tally,
		ParticipationPercent: v.ParticipationPercent,
		Remaining: remainingResp{
			Kind:     string(v.Remaining.Kind),
			DaysLeft: v.Remaining.DaysLeft,
			Label:    v.Remaining.Label(),
		},
	}
	if v.MyVote != nil {
		mine := toVoteResp(*v.MyVote)
		out.MyVote = &mine
	}
	return out
}

func NewDecisionHandler(svc *service.DecisionService) *DecisionHandler {
	return &DecisionHandler{svc: svc}
}

func (h *DecisionHandler) Create(c *gin.Context) {
	userID, exists := userIDFromCtx(c)
	if !exists {
		return
	}

	var req DecisionCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}

	d, err := h.svc.Create(c.Request.Context(), userID, service.CreateDecisionInput{
		CommunityID: req.CommunityID,
		Title:       req.Title,
		Description: req.Description,
		Method:      decision.Method(req.VoteMethod),
		ClosesAt:    req.ClosesAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, toDecisionResp(d))
}

func (h *DecisionHandler) Get(c *gin.Context) {
	userID, exists := userIDFromCtx(c)
	if !exists {
		return
	}
	id, valid := paramID(c, "id")
	if !valid {
		return
	}

	view, err := h.svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, toViewResp(view))
}

// List 支持 community_id、q、tab(all|active|my-votes|closed)、page、size
func (h *DecisionHandler) List(c *gin.Context) {
	userID, exists := userIDFromCtx(c)
	if !exists {
		return
	}
	var communityID uint64
	if s := c.Query("community_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			badRequest(c, "invalid community_id")
			return
		}
		communityID = id
	}
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))

	views, err := h.svc.List(c.Request.Context(), userID, service.ListDecisionsInput{
		CommunityID: communityID,
		Query:       c.Query("q"),
		Tab:         c.DefaultQuery("tab", service.TabAll),
		Page:        page,
		Size:        size,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]decisionViewResp, 0, len(views))
	for i := range views {
		out = append(out, toViewResp(&views[i]))
	}
	ok(c, gin.H{"list": out})
}

func (h *DecisionHandler) Activate(c *gin.Context) {
	userID, exists := userIDFromCtx(c)
	if !exists {
		return
	}
	id, valid := paramID(c, "id")
	if !valid {
		return
	}

	d, err := h.svc.Activate(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, toDecisionResp(d))
}

func (h *DecisionHandler) Close(c *gin.Context) {
	userID, exists := userIDFromCtx(c)
	if !exists {
		return
	}
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	// 请求体可以为空
	var req DecisionCloseReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid params")
		return
	}

	d, err := h.svc.Close(c.Request.Context(), userID, id, req.Outcome)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, toDecisionResp(d))
}

func (h *DecisionHandler) Vote(c *gin.Context) {
	userID, exists := userIDFromCtx(c)
	if !exists {
		return
	}
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req VoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}

	res, err := h.svc.CastVote(c.Request.Context(), userID, id, req.Position, req.Statement)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"vote": toVoteResp(res.Vote), "replaced": res.Replaced})
}

func (h *DecisionHandler) Tally(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}

	t, err := h.svc.Tally(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"tally": t, "participation_percent": decision.ParticipationPercent(t)})
}

func (h *DecisionHandler) Votes(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}

	votes, err := h.svc.Votes(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]voteResp, 0, len(votes))
	for _, v := range votes {
		out = append(out, toVoteResp(v))
	}
	ok(c, gin.H{"list": out})
}
