package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cpcoders/codetrack/internal/errs"
	"github.com/cpcoders/codetrack/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// QuestionRepo implements QuestionRepository using PostgreSQL.
type QuestionRepo struct{ db *DB }

// NewQuestionRepo constructs a question repository.
func NewQuestionRepo(db *DB) *QuestionRepo { return &QuestionRepo{db: db} }

const questionCols = `id, user_id, platform, quest_number, quest_name, quest_link,
difficulty, status, topics, notes, description, bookmarked, last_revised_at,
unique_id, question_id, created_at, updated_at`

func scanQuestion(row pgx.Row) (*model.Question, error) {
	var q model.Question
	err := row.Scan(
		&q.ID, &q.UserID, &q.Platform, &q.QuestNumber, &q.QuestName, &q.QuestLink,
		&q.Difficulty, &q.Status, &q.Topics, &q.Notes, &q.Description, &q.Bookmarked,
		&q.LastRevisedAt, &q.UniqueID, &q.QuestionID, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()
	var out []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// Create inserts a new question row.
func (r *QuestionRepo) Create(ctx context.Context, q *model.Question) error {
	const ins = `
INSERT INTO questions
  (id, user_id, platform, quest_number, quest_name, quest_link, difficulty,
   status, topics, notes, description, bookmarked, unique_id, question_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, ins,
		q.ID, q.UserID, q.Platform, q.QuestNumber, q.QuestName, q.QuestLink, q.Difficulty,
		q.Status, q.Topics, q.Notes, q.Description, q.Bookmarked, q.UniqueID, q.QuestionID,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrDuplicate
	}
	return err
}

// Upsert inserts the question or, when its unique_id already exists for this
// user, updates the mutable fields in place. The uniqueness constraint is the
// dedup mechanism: losing the insert race is how an update is detected.
func (r *QuestionRepo) Upsert(ctx context.Context, q *model.Question) (model.UpsertResult, error) {
	const ups = `
INSERT INTO questions
  (id, user_id, platform, quest_number, quest_name, quest_link, difficulty,
   status, topics, notes, description, bookmarked, unique_id, question_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (unique_id) WHERE unique_id <> ''
DO UPDATE SET
  quest_name  = EXCLUDED.quest_name,
  quest_link  = EXCLUDED.quest_link,
  difficulty  = EXCLUDED.difficulty,
  status      = EXCLUDED.status,
  topics      = EXCLUDED.topics,
  notes       = EXCLUDED.notes,
  description = EXCLUDED.description,
  bookmarked  = EXCLUDED.bookmarked,
  updated_at  = now()
RETURNING ` + questionCols + `, (xmax = 0) AS created`
	row := r.db.Pool.QueryRow(ctx, ups,
		q.ID, q.UserID, q.Platform, q.QuestNumber, q.QuestName, q.QuestLink, q.Difficulty,
		q.Status, q.Topics, q.Notes, q.Description, q.Bookmarked, q.UniqueID, q.QuestionID,
	)
	var out model.Question
	var created bool
	err := row.Scan(
		&out.ID, &out.UserID, &out.Platform, &out.QuestNumber, &out.QuestName, &out.QuestLink,
		&out.Difficulty, &out.Status, &out.Topics, &out.Notes, &out.Description, &out.Bookmarked,
		&out.LastRevisedAt, &out.UniqueID, &out.QuestionID, &out.CreatedAt, &out.UpdatedAt,
		&created,
	)
	if err != nil {
		return model.UpsertResult{}, err
	}
	return model.UpsertResult{Question: out, Created: created}, nil
}

// GetByID selects a single question scoped to its owner.
func (r *QuestionRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*model.Question, error) {
	const q = `SELECT ` + questionCols + ` FROM questions WHERE user_id=$1 AND id=$2`
	return scanQuestion(r.db.Pool.QueryRow(ctx, q, userID, id))
}

// sortColumns whitelists client-facing sort fields.
var sortColumns = map[string]string{
	model.SortCreatedAt:     "created_at",
	model.SortUpdatedAt:     "updated_at",
	model.SortLastRevisedAt: "last_revised_at",
	model.SortDifficulty:    "difficulty",
	model.SortQuestNumber:   "quest_number",
	model.SortQuestName:     "quest_name",
}

func buildListWhere(userID uuid.UUID, f model.ListFilter) (string, []any) {
	conds := []string{"user_id=$1"}
	args := []any{userID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" && f.Status != "all" {
		add("status=$%d", f.Status)
	}
	if len(f.Difficulties) > 0 {
		add("difficulty = ANY($%d)", f.Difficulties)
	}
	if len(f.Platforms) > 0 {
		add("platform = ANY($%d)", f.Platforms)
	}
	if len(f.Topics) > 0 {
		add("topics && $%d", f.Topics)
	}
	if f.Bookmarked {
		conds = append(conds, "bookmarked")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := "%" + s + "%"
		switch f.SearchBy {
		case model.SearchByNumber:
			add("quest_number ILIKE $%d", pat)
		case model.SearchByName:
			add("quest_name ILIKE $%d", pat)
		default:
			args = append(args, pat)
			n := len(args)
			conds = append(conds, fmt.Sprintf(
				"(quest_name ILIKE $%d OR quest_number ILIKE $%d OR description ILIKE $%d)", n, n, n))
		}
	}
	return strings.Join(conds, " AND "), args
}

// List returns one page matching the filter plus the total count.
func (r *QuestionRepo) List(ctx context.Context, userID uuid.UUID, f model.ListFilter) ([]model.Question, int, error) {
	where, args := buildListWhere(userID, f)

	var total int
	countQ := "SELECT COUNT(*) FROM questions WHERE " + where
	if err := r.db.Pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	q := fmt.Sprintf(
		"SELECT "+questionCols+" FROM questions WHERE %s ORDER BY %s %s NULLS LAST LIMIT $%d OFFSET $%d",
		where, col, dir, len(args)-1, len(args))

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectQuestions(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Update applies a partial update of non-identity fields.
func (r *QuestionRepo) Update(ctx context.Context, userID, id uuid.UUID, p model.QuestionPatch) (*model.Question, error) {
	const q = `
UPDATE questions
SET status          = COALESCE($3, status),
    difficulty      = COALESCE($4, difficulty),
    notes           = COALESCE($5, notes),
    bookmarked      = COALESCE($6, bookmarked),
    topics          = COALESCE($7, topics),
    last_revised_at = COALESCE($8, last_revised_at),
    updated_at      = now()
WHERE user_id=$1 AND id=$2
RETURNING ` + questionCols
	var topicsArg any
	if p.Topics != nil {
		topicsArg = *p.Topics
	}
	return scanQuestion(r.db.Pool.QueryRow(ctx, q,
		userID, id, p.Status, p.Difficulty, p.Notes, p.Bookmarked, topicsArg, p.LastRevisedAt))
}

// Delete removes a question owned by userID.
func (r *QuestionRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const q = `DELETE FROM questions WHERE user_id=$1 AND id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// BulkCreate inserts questions one by one inside a transaction, skipping
// unique_id duplicates, and returns the number inserted.
func (r *QuestionRepo) BulkCreate(ctx context.Context, qs []model.Question) (n int, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const ins = `
INSERT INTO questions
  (id, user_id, platform, quest_number, quest_name, quest_link, difficulty,
   status, topics, notes, description, bookmarked, unique_id, question_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (unique_id) WHERE unique_id <> '' DO NOTHING`
	for i := range qs {
		q := &qs[i]
		tag, execErr := tx.Exec(ctx, ins,
			q.ID, q.UserID, q.Platform, q.QuestNumber, q.QuestName, q.QuestLink, q.Difficulty,
			q.Status, q.Topics, q.Notes, q.Description, q.Bookmarked, q.UniqueID, q.QuestionID,
		)
		if execErr != nil {
			err = execErr
			return 0, err
		}
		n += int(tag.RowsAffected())
	}
	return n, nil
}

// TopicCounts returns the user's topics ordered by usage.
func (r *QuestionRepo) TopicCounts(ctx context.Context, userID uuid.UUID) ([]model.TopicCount, error) {
	const q = `
SELECT t.topic,
       COUNT(*),
       COUNT(*) FILTER (WHERE q.status='solved')
FROM questions q
CROSS JOIN LATERAL unnest(q.topics) AS t(topic)
WHERE q.user_id=$1
GROUP BY t.topic
ORDER BY COUNT(*) DESC, t.topic ASC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TopicCount
	for rows.Next() {
		var tc model.TopicCount
		if err := rows.Scan(&tc.Topic, &tc.Count, &tc.SolvedCount); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// GroupedByTopic returns the user's questions grouped per topic, largest
// group first. A question with several topics appears in each of its groups.
func (r *QuestionRepo) GroupedByTopic(ctx context.Context, userID uuid.UUID, status, difficulty, platform string) ([]model.TopicGroup, error) {
	conds := []string{"q.user_id=$1"}
	args := []any{userID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if status != "" && status != "all" {
		add("q.status=$%d", status)
	}
	if difficulty != "" && difficulty != "all" {
		add("q.difficulty=$%d", difficulty)
	}
	if platform != "" && platform != "all" {
		add("q.platform=$%d", platform)
	}

	sel := `
SELECT q.id, q.user_id, q.platform, q.quest_number, q.quest_name, q.quest_link,
       q.difficulty, q.status, q.topics, q.notes, q.description, q.bookmarked,
       q.last_revised_at, q.unique_id, q.question_id, q.created_at, q.updated_at,
       t.topic
FROM questions q
CROSS JOIN LATERAL unnest(q.topics) AS t(topic)
WHERE ` + strings.Join(conds, " AND ") + `
ORDER BY t.topic ASC, q.created_at DESC`

	rows, err := r.db.Pool.Query(ctx, sel, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byTopic := map[string]*model.TopicGroup{}
	var order []string
	for rows.Next() {
		var q model.Question
		var topic string
		if err := rows.Scan(
			&q.ID, &q.UserID, &q.Platform, &q.QuestNumber, &q.QuestName, &q.QuestLink,
			&q.Difficulty, &q.Status, &q.Topics, &q.Notes, &q.Description, &q.Bookmarked,
			&q.LastRevisedAt, &q.UniqueID, &q.QuestionID, &q.CreatedAt, &q.UpdatedAt,
			&topic,
		); err != nil {
			return nil, err
		}
		g, ok := byTopic[topic]
		if !ok {
			g = &model.TopicGroup{Topic: topic}
			byTopic[topic] = g
			order = append(order, topic)
		}
		g.Questions = append(g.Questions, q)
		g.Count++
		if q.Status == model.StatusSolved {
			g.SolvedCount++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.TopicGroup, 0, len(order))
	for _, topic := range order {
		out = append(out, *byTopic[topic])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

// Overview returns total/solved/unsolved/for-future/bookmarked counts.
func (r *QuestionRepo) Overview(ctx context.Context, userID uuid.UUID) (model.StatusCounts, error) {
	const q = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status='solved'),
       COUNT(*) FILTER (WHERE status='unsolved'),
       COUNT(*) FILTER (WHERE status='for-future'),
       COUNT(*) FILTER (WHERE bookmarked)
FROM questions WHERE user_id=$1`
	var c model.StatusCounts
	err := r.db.Pool.QueryRow(ctx, q, userID).
		Scan(&c.Total, &c.Solved, &c.Unsolved, &c.ForFuture, &c.Bookmarked)
	return c, err
}

// CountsBy aggregates totals and solved counts grouped by difficulty or platform.
func (r *QuestionRepo) CountsBy(ctx context.Context, userID uuid.UUID, dim string) (map[string]model.SolvedCount, error) {
	var col string
	switch dim {
	case "difficulty":
		col = "difficulty"
	case "platform":
		col = "platform"
	default:
		return nil, fmt.Errorf("countsBy: unsupported dimension %q", dim)
	}
	q := `
SELECT ` + col + `,
       COUNT(*),
       COUNT(*) FILTER (WHERE status='solved')
FROM questions
WHERE user_id=$1 AND ` + col + ` <> ''
GROUP BY 1`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]model.SolvedCount{}
	for rows.Next() {
		var key string
		var sc model.SolvedCount
		if err := rows.Scan(&key, &sc.Total, &sc.Solved); err != nil {
			return nil, err
		}
		out[key] = sc
	}
	return out, rows.Err()
}

// TopicProgress returns per-topic totals and solved counts, most used first.
func (r *QuestionRepo) TopicProgress(ctx context.Context, userID uuid.UUID, limit int) ([]model.TopicStat, error) {
	q := `
SELECT t.topic,
       COUNT(*),
       COUNT(*) FILTER (WHERE q.status='solved')
FROM questions q
CROSS JOIN LATERAL unnest(q.topics) AS t(topic)
WHERE q.user_id=$1
GROUP BY t.topic
ORDER BY COUNT(*) DESC, t.topic ASC`
	args := []any{userID}
	if limit > 0 {
		q += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TopicStat
	for rows.Next() {
		var ts model.TopicStat
		if err := rows.Scan(&ts.Topic, &ts.Total, &ts.Solved); err != nil {
			return nil, err
		}
		if ts.Total > 0 {
			ts.Percentage = int(float64(ts.Solved)/float64(ts.Total)*100 + 0.5)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// RevisionsPerDay buckets revision activity per day inside [from, to].
func (r *QuestionRepo) RevisionsPerDay(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.DayCount, error) {
	const q = `
SELECT to_char(last_revised_at, 'YYYY-MM-DD') AS day, COUNT(*)
FROM questions
WHERE user_id=$1 AND last_revised_at BETWEEN $2 AND $3
GROUP BY 1
ORDER BY 1`
	rows, err := r.db.Pool.Query(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DayCount
	for rows.Next() {
		var dc model.DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

// NeedsRevision returns solved questions last revised before the cutoff
// (or never), stalest first.
func (r *QuestionRepo) NeedsRevision(ctx context.Context, userID uuid.UUID, before time.Time, limit int) ([]model.Question, error) {
	const q = `
SELECT ` + questionCols + `
FROM questions
WHERE user_id=$1 AND status='solved'
  AND (last_revised_at IS NULL OR last_revised_at < $2)
ORDER BY last_revised_at ASC NULLS FIRST
LIMIT $3`
	rows, err := r.db.Pool.Query(ctx, q, userID, before, limit)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}
