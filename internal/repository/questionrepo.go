package repository

import (
	"context"
	"time"

	"github.com/cpcoders/codetrack/internal/model"
	"github.com/gofrs/uuid/v5"
)

// QuestionRepository provides per-user access to tracked questions.
//
// Implementations must enforce a uniqueness constraint on unique_id and
// surface violations as errs.ErrDuplicate. Callers treat that as "this
// exact (platform, question, user) combination already exists", not as a
// storage fault.
type QuestionRepository interface {
	// Create inserts a new question. ErrDuplicate on unique_id conflict.
	Create(ctx context.Context, q *model.Question) error

	// Upsert inserts or, when unique_id already exists, updates the record.
	// Reports whether the row was newly created.
	Upsert(ctx context.Context, q *model.Question) (model.UpsertResult, error)

	// GetByID returns a single question owned by userID.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*model.Question, error)

	// List returns one page of questions matching the filter plus the total
	// count for the whole filter.
	List(ctx context.Context, userID uuid.UUID, f model.ListFilter) ([]model.Question, int, error)

	// Update applies a partial update of non-identity fields.
	Update(ctx context.Context, userID, id uuid.UUID, p model.QuestionPatch) (*model.Question, error)

	// Delete removes a question. ErrNotFound if absent.
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// BulkCreate inserts many questions, silently skipping unique_id
	// duplicates, and returns the number actually inserted.
	BulkCreate(ctx context.Context, qs []model.Question) (int, error)

	// TopicCounts returns the user's topics ordered by usage.
	TopicCounts(ctx context.Context, userID uuid.UUID) ([]model.TopicCount, error)

	// GroupedByTopic returns questions grouped per topic, optionally
	// narrowed by status/difficulty/platform.
	GroupedByTopic(ctx context.Context, userID uuid.UUID, status, difficulty, platform string) ([]model.TopicGroup, error)

	// Overview returns total/solved/unsolved/for-future/bookmarked counts.
	Overview(ctx context.Context, userID uuid.UUID) (model.StatusCounts, error)

	// CountsBy aggregates total and solved counts grouped by a dimension
	// ("difficulty" or "platform").
	CountsBy(ctx context.Context, userID uuid.UUID, dim string) (map[string]model.SolvedCount, error)

	// TopicProgress returns per-topic totals and solved counts, most used
	// first, at most limit rows (0 = no limit).
	TopicProgress(ctx context.Context, userID uuid.UUID, limit int) ([]model.TopicStat, error)

	// RevisionsPerDay buckets revision activity per day between from and to.
	RevisionsPerDay(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.DayCount, error)

	// NeedsRevision returns solved questions not revised since before,
	// stalest first.
	NeedsRevision(ctx context.Context, userID uuid.UUID, before time.Time, limit int) ([]model.Question, error)
}
