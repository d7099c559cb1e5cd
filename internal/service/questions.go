package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/cpcoders/codetrack/internal/errs"
	"github.com/cpcoders/codetrack/internal/identity"
	"github.com/cpcoders/codetrack/internal/model"
	"github.com/cpcoders/codetrack/internal/repository"
)

// Revision analytics constants: a solved question is considered stale after
// revisionCutoff without a revision.
const (
	revisionCutoff     = 7 * 24 * time.Hour
	needsRevisionLimit = 10
	topicStatsLimit    = 15
	weakAreaMinTotal   = 3
	weakAreaMaxPct     = 50
	weakAreasLimit     = 5
)

// QuestionService defines operations over a user's tracked questions.
type QuestionService interface {
	// Create inserts a new question; ErrDuplicate if it already exists.
	Create(ctx context.Context, userID uuid.UUID, in model.QuestionInput) (*model.Question, error)
	// Upsert creates the question or updates it in place when the same
	// (platform, question, user) identity already exists.
	Upsert(ctx context.Context, userID uuid.UUID, in model.QuestionInput) (model.UpsertResult, error)
	// Get returns one question by ID.
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Question, error)
	// List returns a filtered, sorted page plus pagination info.
	List(ctx context.Context, userID uuid.UUID, f model.ListFilter) ([]model.Question, model.Pagination, error)
	// Update applies a partial update of non-identity fields.
	Update(ctx context.Context, userID, id uuid.UUID, p model.QuestionPatch) (*model.Question, error)
	// UpdateStatus is the quick status transition; solving stamps the
	// revision time.
	UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string) (*model.Question, error)
	// ToggleBookmark flips the bookmark flag.
	ToggleBookmark(ctx context.Context, userID, id uuid.UUID) (*model.Question, error)
	// MarkRevised stamps the question as revised now.
	MarkRevised(ctx context.Context, userID, id uuid.UUID) (*model.Question, error)
	// Delete removes a question.
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// BulkCreate inserts up to maxBulk questions, skipping duplicates, and
	// returns the number inserted.
	BulkCreate(ctx context.Context, userID uuid.UUID, ins []model.QuestionInput) (int, error)
	// Topics returns the user's topics with usage counts.
	Topics(ctx context.Context, userID uuid.UUID) ([]model.TopicCount, error)
	// GroupedByTopic returns questions grouped per topic.
	GroupedByTopic(ctx context.Context, userID uuid.UUID, status, difficulty, platform string) ([]model.TopicGroup, error)
	// Stats assembles the analytics view.
	Stats(ctx context.Context, userID uuid.UUID) (model.Stats, error)
	// Heatmap returns one calendar year of revision activity.
	Heatmap(ctx context.Context, userID uuid.UUID, year int) (model.Heatmap, error)
}

type QuestionServiceImpl struct {
	repo    repository.QuestionRepository
	maxBulk int
	now     func() time.Time
}

// NewQuestionService constructs QuestionService with bulk limits.
func NewQuestionService(repo repository.QuestionRepository, maxBulk int) *QuestionServiceImpl {
	if maxBulk <= 0 {
		maxBulk = 100
	}
	return &QuestionServiceImpl{repo: repo, maxBulk: maxBulk, now: time.Now}
}

// buildQuestion validates client input and derives the identity keys. This is
// the single choke point in front of persistence: both derived identifiers
// are recomputed here on every write, never taken from the client.
func (s *QuestionServiceImpl) buildQuestion(userID uuid.UUID, in model.QuestionInput) (*model.Question, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if in.QuestName == "" || in.QuestLink == "" || in.Platform == "" {
		return nil, fmt.Errorf("%w: questName, questLink and platform are required", errs.ErrValidation)
	}
	if !model.ValidPlatform(in.Platform) {
		return nil, fmt.Errorf("%w: unsupported platform %q", errs.ErrValidation, in.Platform)
	}
	if in.Difficulty == "" {
		in.Difficulty = model.DifficultyMedium
	}
	if !model.ValidDifficulty(in.Difficulty) {
		return nil, fmt.Errorf("%w: invalid difficulty %q", errs.ErrValidation, in.Difficulty)
	}
	if in.Status == "" {
		in.Status = model.StatusUnsolved
	}
	if !model.ValidStatus(in.Status) {
		return nil, fmt.Errorf("%w: invalid status %q", errs.ErrValidation, in.Status)
	}

	idInput := identity.Input{
		Platform:       in.Platform,
		QuestionNumber: in.QuestNumber,
		QuestionTitle:  in.QuestName,
		UserID:         userID.String(),
	}
	uniqueID, err := identity.UniqueID(idInput)
	if err != nil {
		return nil, err
	}
	questionID, err := identity.QuestionID(idInput)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	topics := in.Topics
	if topics == nil {
		topics = []string{}
	}
	return &model.Question{
		ID:          id,
		UserID:      userID,
		Platform:    in.Platform,
		QuestNumber: in.QuestNumber,
		QuestName:   in.QuestName,
		QuestLink:   in.QuestLink,
		Difficulty:  in.Difficulty,
		Status:      in.Status,
		Topics:      topics,
		Notes:       in.Notes,
		Description: in.Description,
		Bookmarked:  in.Bookmarked,
		UniqueID:    uniqueID,
		QuestionID:  questionID,
	}, nil
}

// Create validates, derives identity and inserts.
func (s *QuestionServiceImpl) Create(ctx context.Context, userID uuid.UUID, in model.QuestionInput) (*model.Question, error) {
	q, err := s.buildQuestion(userID, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Upsert validates, derives identity and writes idempotently: the second
// write with the same identity updates the original row.
func (s *QuestionServiceImpl) Upsert(ctx context.Context, userID uuid.UUID, in model.QuestionInput) (model.UpsertResult, error) {
	q, err := s.buildQuestion(userID, in)
	if err != nil {
		return model.UpsertResult{}, err
	}
	return s.repo.Upsert(ctx, q)
}

// Get fetches a single question by id.
func (s *QuestionServiceImpl) Get(ctx context.Context, userID, id uuid.UUID) (*model.Question, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID/id", errs.ErrValidation)
	}
	return s.repo.GetByID(ctx, userID, id)
}

// List returns a page of questions plus pagination info.
func (s *QuestionServiceImpl) List(ctx context.Context, userID uuid.UUID, f model.ListFilter) ([]model.Question, model.Pagination, error) {
	if userID == uuid.Nil {
		return nil, model.Pagination{}, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	list, total, err := s.repo.List(ctx, userID, f)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	totalPages := (total + f.Limit - 1) / f.Limit
	return list, model.Pagination{
		CurrentPage: f.Page,
		TotalPages:  totalPages,
		TotalCount:  total,
		Limit:       f.Limit,
		HasNextPage: f.Page < totalPages,
		HasPrevPage: f.Page > 1,
	}, nil
}

// Update applies a partial update after validating the provided fields.
// Identity fields are deliberately not patchable here: a partial payload
// cannot safely recompute the identifier, so identity changes must go through
// Upsert with the full (platform, number/title) tuple.
func (s *QuestionServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, p model.QuestionPatch) (*model.Question, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID/id", errs.ErrValidation)
	}
	if p.Status != nil && !model.ValidStatus(*p.Status) {
		return nil, fmt.Errorf("%w: invalid status %q", errs.ErrValidation, *p.Status)
	}
	if p.Difficulty != nil && !model.ValidDifficulty(*p.Difficulty) {
		return nil, fmt.Errorf("%w: invalid difficulty %q", errs.ErrValidation, *p.Difficulty)
	}
	return s.repo.Update(ctx, userID, id, p)
}

// UpdateStatus transitions the status; reaching "solved" counts as a revision.
func (s *QuestionServiceImpl) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string) (*model.Question, error) {
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("%w: invalid status %q", errs.ErrValidation, status)
	}
	p := model.QuestionPatch{Status: &status}
	if status == model.StatusSolved {
		now := s.now()
		p.LastRevisedAt = &now
	}
	return s.Update(ctx, userID, id, p)
}

// ToggleBookmark flips the bookmark flag.
func (s *QuestionServiceImpl) ToggleBookmark(ctx context.Context, userID, id uuid.UUID) (*model.Question, error) {
	q, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	flipped := !q.Bookmarked
	return s.repo.Update(ctx, userID, id, model.QuestionPatch{Bookmarked: &flipped})
}

// MarkRevised stamps the question as revised now.
func (s *QuestionServiceImpl) MarkRevised(ctx context.Context, userID, id uuid.UUID) (*model.Question, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID/id", errs.ErrValidation)
	}
	now := s.now()
	return s.repo.Update(ctx, userID, id, model.QuestionPatch{LastRevisedAt: &now})
}

// Delete removes a question.
func (s *QuestionServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil || id == uuid.Nil {
		return fmt.Errorf("%w: empty userID/id", errs.ErrValidation)
	}
	return s.repo.Delete(ctx, userID, id)
}

// BulkCreate validates and derives identity for every entry up front, then
// inserts; duplicates already in the collection are skipped, not errors.
func (s *QuestionServiceImpl) BulkCreate(ctx context.Context, userID uuid.UUID, ins []model.QuestionInput) (int, error) {
	if len(ins) == 0 {
		return 0, fmt.Errorf("%w: empty batch", errs.ErrValidation)
	}
	if len(ins) > s.maxBulk {
		return 0, fmt.Errorf("%w: batch too large (%d > %d)", errs.ErrValidation, len(ins), s.maxBulk)
	}
	qs := make([]model.Question, 0, len(ins))
	for i, in := range ins {
		q, err := s.buildQuestion(userID, in)
		if err != nil {
			return 0, fmt.Errorf("question[%d]: %w", i, err)
		}
		qs = append(qs, *q)
	}
	return s.repo.BulkCreate(ctx, qs)
}

// Topics returns the user's topics with counts.
func (s *QuestionServiceImpl) Topics(ctx context.Context, userID uuid.UUID) ([]model.TopicCount, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	return s.repo.TopicCounts(ctx, userID)
}

// GroupedByTopic returns questions grouped per topic.
func (s *QuestionServiceImpl) GroupedByTopic(ctx context.Context, userID uuid.UUID, status, difficulty, platform string) ([]model.TopicGroup, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	return s.repo.GroupedByTopic(ctx, userID, status, difficulty, platform)
}

// Stats composes the analytics view from the aggregate queries.
func (s *QuestionServiceImpl) Stats(ctx context.Context, userID uuid.UUID) (model.Stats, error) {
	if userID == uuid.Nil {
		return model.Stats{}, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}

	overview, err := s.repo.Overview(ctx, userID)
	if err != nil {
		return model.Stats{}, err
	}
	byDifficulty, err := s.repo.CountsBy(ctx, userID, "difficulty")
	if err != nil {
		return model.Stats{}, err
	}
	byPlatform, err := s.repo.CountsBy(ctx, userID, "platform")
	if err != nil {
		return model.Stats{}, err
	}
	byTopic, err := s.repo.TopicProgress(ctx, userID, topicStatsLimit)
	if err != nil {
		return model.Stats{}, err
	}
	now := s.now()
	recent, err := s.repo.RevisionsPerDay(ctx, userID, now.Add(-revisionCutoff), now)
	if err != nil {
		return model.Stats{}, err
	}
	needsRevision, err := s.repo.NeedsRevision(ctx, userID, now.Add(-revisionCutoff), needsRevisionLimit)
	if err != nil {
		return model.Stats{}, err
	}

	var weak []model.TopicStat
	for _, ts := range byTopic {
		if ts.Percentage < weakAreaMaxPct && ts.Total >= weakAreaMinTotal {
			weak = append(weak, ts)
			if len(weak) == weakAreasLimit {
				break
			}
		}
	}

	completion := 0
	if overview.Total > 0 {
		completion = int(float64(overview.Solved)/float64(overview.Total)*100 + 0.5)
	}

	return model.Stats{
		Overview:       overview,
		ByDifficulty:   byDifficulty,
		ByPlatform:     byPlatform,
		ByTopic:        byTopic,
		RecentActivity: recent,
		NeedsRevision:  needsRevision,
		WeakAreas:      weak,
		CompletionRate: completion,
	}, nil
}

// Heatmap returns the revision calendar for one year.
func (s *QuestionServiceImpl) Heatmap(ctx context.Context, userID uuid.UUID, year int) (model.Heatmap, error) {
	if userID == uuid.Nil {
		return model.Heatmap{}, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if year == 0 {
		year = s.now().Year()
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
	days, err := s.repo.RevisionsPerDay(ctx, userID, from, to)
	if err != nil {
		return model.Heatmap{}, err
	}
	hm := model.Heatmap{Year: year, Days: map[string]int{}}
	for _, d := range days {
		hm.Days[d.Day] = d.Count
		hm.TotalDays++
		hm.TotalRevisions += d.Count
	}
	return hm, nil
}
