package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"Nemi_Hub/internal/decision"
	"Nemi_Hub/internal/metrics"
	"Nemi_Hub/internal/model"
	"Nemi_Hub/internal/repository/mysql"
	"Nemi_Hub/internal/repository/redis"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	TabAll     = "all"
	TabActive  = "active"
	TabMyVotes = "my-votes"
	TabClosed  = "closed"

	lockBackoff = 50 * time.Millisecond
)

type DecisionService struct {
	decisions   *mysql.DecisionRepository
	votes       *mysql.VoteRepository
	communities *CommunityService
	cache       *redis.TallyCacheRepository
	lock        *redis.DistLock
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

type DecisionOption func(*DecisionService)

// WithClock 注入时钟，测试用
func WithClock(now func() time.Time) DecisionOption {
	return func(s *DecisionService) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) DecisionOption {
	return func(s *DecisionService) { s.metrics = m }
}

func WithLogger(l *slog.Logger) DecisionOption {
	return func(s *DecisionService) { s.logger = l }
}

func NewDecisionService(db *gorm.DB, rdb *goredis.Client, communities *CommunityService, opts ...DecisionOption) *DecisionService {
	s := &DecisionService{
		decisions:   &mysql.DecisionRepository{DB: db},
		votes:       &mysql.VoteRepository{DB: db},
		communities: communities,
		cache:       redis.NewTallyCacheRepository(rdb),
		lock:        &redis.DistLock{RDB: rdb},
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

type CreateDecisionInput struct {
	CommunityID uint64
	Title       string
	Description string
	Method      decision.Method
	ClosesAt    time.Time
}

// DecisionView 详情页需要的全部展示数据
type DecisionView struct {
	Decision             decision.Decision
	EffectiveStatus      decision.Status
	AllowedPositions     []decision.Position
	Tally                *decision.Tally // 不支持计票的方式为 nil
	ParticipationPercent int
	Remaining            decision.Remaining
	MyVote               *decision.Vote
}

type ListDecisionsInput struct {
	CommunityID uint64
	Query       string
	Tab         string
	Page        int
	Size        int
}

func (s *DecisionService) Create(ctx context.Context, userID uint64, in CreateDecisionInput) (decision.Decision, error) {
	now := s.now()
	closesAt := in.ClosesAt.UTC()
	if err := decision.ValidateDecisionInput(in.Title, in.Description, in.Method, closesAt, now); err != nil {
		return decision.Decision{}, err
	}
	if err := s.requireMember(ctx, in.CommunityID, userID); err != nil {
		return decision.Decision{}, err
	}
	eligible, err := s.communities.MemberCount(ctx, in.CommunityID)
	if err != nil {
		return decision.Decision{}, err
	}

	d := decision.Decision{
		CommunityID:        in.CommunityID,
		AuthorID:           userID,
		Title:              strings.TrimSpace(in.Title),
		Description:        strings.TrimSpace(in.Description),
		Method:             in.Method,
		Status:             decision.StatusDraft,
		CreatedAt:          now,
		ClosesAt:           closesAt,
		EligibleVoterCount: eligible,
	}
	row := model.DecisionFromDomain(d)
	if err := s.decisions.Create(ctx, row, userID); err != nil {
		return decision.Decision{}, err
	}
	s.logger.Info("decision created", "decision_id", row.ID, "community_id", row.CommunityID, "method", row.VoteMethod)
	return row.ToDomain(), nil
}

func (s *DecisionService) Get(ctx context.Context, userID, decisionID uint64) (*DecisionView, error) {
	d, err := s.find(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	view := s.buildView(ctx, d)

	mine, err := s.votes.FindByUser(ctx, decisionID, userID)
	switch {
	case err == nil:
		v := mine.ToDomain()
		view.MyVote = &v
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return view, nil
}

func (s *DecisionService) List(ctx context.Context, userID uint64, in ListDecisionsInput) ([]DecisionView, error) {
	if in.Page <= 0 {
		in.Page = 1
	}
	if in.Size <= 0 || in.Size > 50 {
		in.Size = 20
	}
	f := mysql.DecisionFilter{
		CommunityID: in.CommunityID,
		Search:      in.Query,
		Offset:      (in.Page - 1) * in.Size,
		Limit:       in.Size,
	}
	switch in.Tab {
	case "", TabAll:
	case TabActive:
		now := s.now()
		f.ActiveAt = &now
	case TabMyVotes:
		f.VoterID = userID
	case TabClosed:
		now := s.now()
		f.ClosedAt = &now
	default:
		return nil, fmt.Errorf("%w: unknown tab %q", ErrInvalidArgument, in.Tab)
	}

	rows, err := s.decisions.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]DecisionView, 0, len(rows))
	for i := range rows {
		out = append(out, *s.buildView(ctx, rows[i].ToDomain()))
	}
	return out, nil
}

// Activate draft -> active，重新快照成员人数
func (s *DecisionService) Activate(ctx context.Context, userID, decisionID uint64) (decision.Decision, error) {
	d, err := s.find(ctx, decisionID)
	if err != nil {
		return decision.Decision{}, err
	}
	if err := s.requireManager(ctx, d, userID); err != nil {
		return decision.Decision{}, err
	}
	now := s.now()
	next, err := decision.Activate(d, now)
	if err != nil {
		return decision.Decision{}, err
	}
	eligible, err := s.communities.MemberCount(ctx, d.CommunityID)
	if err != nil {
		return decision.Decision{}, err
	}
	next.EligibleVoterCount = eligible

	ev := mysql.Event{
		Type:        model.EventDecisionActivated,
		DecisionID:  d.ID,
		CommunityID: d.CommunityID,
		ActorID:     userID,
		Data: map[string]any{
			"title":     d.Title,
			"closes_at": d.ClosesAt.UTC().Format(time.RFC3339),
		},
	}
	if err := s.saveTransition(ctx, d.Status, next, ev, now, "api"); err != nil {
		return decision.Decision{}, err
	}
	return next, nil
}

// Close active -> closed，outcome 可为空
func (s *DecisionService) Close(ctx context.Context, userID, decisionID uint64, outcome string) (decision.Decision, error) {
	d, err := s.find(ctx, decisionID)
	if err != nil {
		return decision.Decision{}, err
	}
	if err := s.requireManager(ctx, d, userID); err != nil {
		return decision.Decision{}, err
	}
	now := s.now()
	next, err := decision.Close(d, strings.TrimSpace(outcome), now)
	if err != nil {
		return decision.Decision{}, err
	}
	ev := closedEvent(next, userID, "api")
	if err := s.saveTransition(ctx, d.Status, next, ev, now, "api"); err != nil {
		return decision.Decision{}, err
	}
	return next, nil
}

func (s *DecisionService) CastVote(ctx context.Context, userID, decisionID uint64, position, statement string) (decision.VoteCastResult, error) {
	d, err := s.find(ctx, decisionID)
	if err != nil {
		return decision.VoteCastResult{}, err
	}
	if err := s.requireMember(ctx, d.CommunityID, userID); err != nil {
		return decision.VoteCastResult{}, err
	}

	// 只需要本人的旧票即可判断覆盖
	var existing []decision.Vote
	mine, err := s.votes.FindByUser(ctx, decisionID, userID)
	switch {
	case err == nil:
		existing = append(existing, mine.ToDomain())
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return decision.VoteCastResult{}, err
	}

	now := s.now()
	res, err := decision.CastVote(d, existing, decision.Ballot{
		UserID:    userID,
		Position:  position,
		Statement: statement,
		CastAt:    now,
	})
	if err != nil {
		return decision.VoteCastResult{}, err
	}

	saved, err := s.votes.Upsert(ctx, model.VoteFromDomain(res.Vote), mysql.Event{
		Type:        model.EventVoteCast,
		DecisionID:  d.ID,
		CommunityID: d.CommunityID,
		ActorID:     userID,
		Data: map[string]any{
			"position": string(res.Vote.Position),
			"replaced": res.Replaced,
		},
	}, now)
	if err != nil {
		return decision.VoteCastResult{}, err
	}
	res.Vote = saved.ToDomain()
	for i := range res.Votes {
		if res.Votes[i].UserID == userID {
			res.Votes[i] = res.Vote
		}
	}

	if err := s.cache.Delete(ctx, decisionID); err != nil {
		s.logger.Warn("tally cache invalidate failed", "decision_id", decisionID, "error", err)
	}
	s.metrics.ObserveVote(string(d.Method), res.Replaced)
	return res, nil
}

// Tally 先读缓存；miss 时抢锁回源并回填，抢不到锁短暂退避后再读一次
func (s *DecisionService) Tally(ctx context.Context, decisionID uint64) (decision.Tally, error) {
	d, err := s.find(ctx, decisionID)
	if err != nil {
		return decision.Tally{}, err
	}
	return s.tallyOf(ctx, d)
}

func (s *DecisionService) Votes(ctx context.Context, decisionID uint64) ([]decision.Vote, error) {
	if _, err := s.find(ctx, decisionID); err != nil {
		return nil, err
	}
	rows, err := s.votes.ListByDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	return model.VotesToDomain(rows), nil
}

func (s *DecisionService) tallyOf(ctx context.Context, d decision.Decision) (decision.Tally, error) {
	if _, err := decision.AllowedPositions(d.Method); err != nil {
		return decision.Tally{}, err
	}
	if t, ok, err := s.cache.Get(ctx, d.ID); err == nil && ok {
		s.metrics.ObserveTallyCache(true)
		return t, nil
	}
	s.metrics.ObserveTallyCache(false)

	token := uuid.NewString()
	got, _ := s.lock.Acquire(ctx, d.ID, token)
	if got {
		defer func() {
			if err := s.lock.Release(ctx, d.ID, token); err != nil {
				s.logger.Warn("tally lock release failed", "decision_id", d.ID, "error", err)
			}
		}()

		// 第二次检查
		if t, ok, err := s.cache.Get(ctx, d.ID); err == nil && ok {
			return t, nil
		}
		// 版本号要在读票之前取，期间有人投票则回填会被拒绝
		version, verr := s.cache.Version(ctx, d.ID)
		t, err := s.computeTally(ctx, d)
		if err != nil {
			return decision.Tally{}, err
		}
		if verr == nil {
			if stored, err := s.cache.Set(ctx, d.ID, version, t); err == nil && !stored {
				s.logger.Debug("tally backfill skipped, cache invalidated meanwhile", "decision_id", d.ID)
			}
		}
		return t, nil
	}

	select {
	case <-ctx.Done():
		return decision.Tally{}, ctx.Err()
	case <-time.After(lockBackoff):
	}
	if t, ok, err := s.cache.Get(ctx, d.ID); err == nil && ok {
		return t, nil
	}
	// 仍 miss 则直接回源，不回填
	return s.computeTally(ctx, d)
}

func (s *DecisionService) computeTally(ctx context.Context, d decision.Decision) (decision.Tally, error) {
	rows, err := s.votes.ListByDecision(ctx, d.ID)
	if err != nil {
		return decision.Tally{}, err
	}
	return decision.ComputeTally(d, model.VotesToDomain(rows))
}

func (s *DecisionService) buildView(ctx context.Context, d decision.Decision) *DecisionView {
	now := s.now()
	effective := decision.EffectiveStatus(d, now)
	view := &DecisionView{
		Decision:        d,
		EffectiveStatus: effective,
		Remaining:       decision.DaysRemaining(effective, d.ClosesAt, now),
	}
	if ps, err := decision.AllowedPositions(d.Method); err == nil {
		view.AllowedPositions = ps
	}
	t, err := s.tallyOf(ctx, d)
	switch {
	case err == nil:
		view.Tally = &t
		view.ParticipationPercent = decision.ParticipationPercent(t)
	case !errors.Is(err, decision.ErrUnsupportedMethod):
		s.logger.Warn("tally unavailable", "decision_id", d.ID, "error", err)
	}
	return view
}

// saveTransition 条件更新状态；并发下被别人先改过则视为非法流转
func (s *DecisionService) saveTransition(ctx context.Context, from decision.Status, next decision.Decision, ev mysql.Event, now time.Time, source string) error {
	err := s.decisions.UpdateStatus(ctx, model.DecisionFromDomain(next), string(from), ev, now)
	if errors.Is(err, mysql.ErrStatusChanged) {
		return fmt.Errorf("%w: %s -> %s", decision.ErrInvalidTransition, from, next.Status)
	}
	if err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, next.ID); err != nil {
		s.logger.Warn("tally cache invalidate failed", "decision_id", next.ID, "error", err)
	}
	s.metrics.ObserveTransition(string(next.Status), source)
	s.logger.Info("decision transitioned", "decision_id", next.ID, "from", from, "to", next.Status, "source", source)
	return nil
}

func (s *DecisionService) find(ctx context.Context, id uint64) (decision.Decision, error) {
	row, err := s.decisions.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decision.Decision{}, ErrNotFound
	}
	if err != nil {
		return decision.Decision{}, err
	}
	return row.ToDomain(), nil
}

func (s *DecisionService) requireMember(ctx context.Context, communityID, userID uint64) error {
	ok, err := s.communities.IsMember(ctx, communityID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

// requireManager 作者或社区管理员
func (s *DecisionService) requireManager(ctx context.Context, d decision.Decision, userID uint64) error {
	if d.AuthorID == userID {
		return nil
	}
	admin, err := s.communities.IsAdmin(ctx, d.CommunityID, userID)
	if err != nil {
		return err
	}
	if !admin {
		return ErrNoPermission
	}
	return nil
}

func closedEvent(d decision.Decision, actorID uint64, source string) mysql.Event {
	return mysql.Event{
		Type:        model.EventDecisionClosed,
		DecisionID:  d.ID,
		CommunityID: d.CommunityID,
		ActorID:     actorID,
		Data: map[string]any{
			"title":   d.Title,
			"outcome": d.Outcome,
			"source":  source,
		},
	}
}
