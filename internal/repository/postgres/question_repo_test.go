package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/cpcoders/codetrack/internal/errs"
	"github.com/cpcoders/codetrack/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var questionRows = []string{
	"id", "user_id", "platform", "quest_number", "quest_name", "quest_link",
	"difficulty", "status", "topics", "notes", "description", "bookmarked",
	"last_revised_at", "unique_id", "question_id", "created_at", "updated_at",
}

func sampleQuestion(userID uuid.UUID) model.Question {
	return model.Question{
		ID:          uuid.Must(uuid.NewV4()),
		UserID:      userID,
		Platform:    model.PlatformLeetCode,
		QuestNumber: "1",
		QuestName:   "Two Sum",
		QuestLink:   "https://leetcode.com/problems/two-sum/",
		Difficulty:  model.DifficultyEasy,
		Status:      model.StatusUnsolved,
		Topics:      []string{"array", "hash-table"},
		UniqueID:    "leetcode_1_" + userID.String(),
		QuestionID:  "leetcode_1",
	}
}

func addQuestionRow(rows *pgxmock.Rows, q model.Question) *pgxmock.Rows {
	return rows.AddRow(
		q.ID, q.UserID, q.Platform, q.QuestNumber, q.QuestName, q.QuestLink,
		q.Difficulty, q.Status, q.Topics, q.Notes, q.Description, q.Bookmarked,
		q.LastRevisedAt, q.UniqueID, q.QuestionID, time.Now(), time.Now(),
	)
}

func TestQuestionRepo_Create_OK_and_Duplicate(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQuestionRepo(db)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())
	q := sampleQuestion(userID)

	mock.ExpectQuery(`INSERT INTO questions`).
		WithArgs(q.ID, q.UserID, q.Platform, q.QuestNumber, q.QuestName, q.QuestLink,
			q.Difficulty, q.Status, q.Topics, q.Notes, q.Description, q.Bookmarked,
			q.UniqueID, q.QuestionID).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))
	require.NoError(t, r.Create(ctx, &q))

	// Losing the insert race on unique_id is the duplicate signal.
	mock.ExpectQuery(`INSERT INTO questions`).
		WithArgs(q.ID, q.UserID, q.Platform, q.QuestNumber, q.QuestName, q.QuestLink,
			q.Difficulty, q.Status, q.Topics, q.Notes, q.Description, q.Bookmarked,
			q.UniqueID, q.QuestionID).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, &q), errs.ErrDuplicate)
}

func TestQuestionRepo_Upsert_ReportsCreated(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQuestionRepo(db)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())
	q := sampleQuestion(userID)

	cols := append(append([]string{}, questionRows...), "created")
	mock.ExpectQuery(`ON CONFLICT \(unique_id\) WHERE unique_id <> ''`).
		WithArgs(q.ID, q.UserID, q.Platform, q.QuestNumber, q.QuestName, q.QuestLink,
			q.Difficulty, q.Status, q.Topics, q.Notes, q.Description, q.Bookmarked,
			q.UniqueID, q.QuestionID).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			q.ID, q.UserID, q.Platform, q.QuestNumber, q.QuestName, q.QuestLink,
			q.Difficulty, q.Status, q.Topics, q.Notes, q.Description, q.Bookmarked,
			q.LastRevisedAt, q.UniqueID, q.QuestionID, time.Now(), time.Now(),
			true,
		))
	res, err := r.Upsert(ctx, &q)
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, q.UniqueID, res.Question.UniqueID)
}

func TestQuestionRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQuestionRepo(db)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT .+ FROM questions WHERE user_id=\$1 AND id=\$2`).
		WithArgs(userID, id).
		WillReturnError(pgx.ErrNoRows)
	_, err := r.GetByID(ctx, userID, id)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestQuestionRepo_List_FiltersAndPaging(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQuestionRepo(db)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())
	q := sampleQuestion(userID)

	f := model.ListFilter{
		Status:       model.StatusSolved,
		Difficulties: []string{model.DifficultyEasy, model.DifficultyMedium},
		Search:       "two",
		SortBy:       model.SortQuestName,
		Page:         2,
		Limit:        10,
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM questions WHERE user_id=\$1 AND status=\$2 AND difficulty = ANY\(\$3\)`).
		WithArgs(userID, f.Status, f.Difficulties, "%two%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(11))

	mock.ExpectQuery(`ORDER BY quest_name ASC NULLS LAST LIMIT \$5 OFFSET \$6`).
		WithArgs(userID, f.Status, f.Difficulties, "%two%", 10, 10).
		WillReturnRows(addQuestionRow(pgxmock.NewRows(questionRows), q))

	list, total, err := r.List(ctx, userID, f)
	require.NoError(t, err)
	require.Equal(t, 11, total)
	require.Len(t, list, 1)
	require.Equal(t, q.QuestName, list[0].QuestName)
}

func TestQuestionRepo_Update_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQuestionRepo(db)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())
	status := model.StatusSolved

	mock.ExpectQuery(`UPDATE questions`).
		WithArgs(userID, id, &status, (*string)(nil), (*string)(nil), (*bool)(nil), nil, (*time.Time)(nil)).
		WillReturnError(pgx.ErrNoRows)
	_, err := r.Update(ctx, userID, id, model.QuestionPatch{Status: &status})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestQuestionRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQuestionRepo(db)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM questions WHERE user_id=\$1 AND id=\$2`).
		WithArgs(userID, id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, userID, id))

	mock.ExpectExec(`DELETE FROM questions WHERE user_id=\$1 AND id=\$2`).
		WithArgs(userID, id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, userID, id), errs.ErrNotFound)
}

func TestQuestionRepo_BulkCreate_SkipsDuplicates(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQuestionRepo(db)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())
	a := sampleQuestion(userID)
	b := sampleQuestion(userID)
	b.QuestNumber = "2"
	b.UniqueID = "leetcode_2_" + userID.String()
	b.QuestionID = "leetcode_2"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO questions`).
		WithArgs(a.ID, a.UserID, a.Platform, a.QuestNumber, a.QuestName, a.QuestLink,
			a.Difficulty, a.Status, a.Topics, a.Notes, a.Description, a.Bookmarked,
			a.UniqueID, a.QuestionID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO questions`).
		WithArgs(b.ID, b.UserID, b.Platform, b.QuestNumber, b.QuestName, b.QuestLink,
			b.Difficulty, b.Status, b.Topics, b.Notes, b.Description, b.Bookmarked,
			b.UniqueID, b.QuestionID).
		WillReturnResult(pgxmock.NewResult("INSERT", 0)) // conflict skipped
	mock.ExpectCommit()

	n, err := r.BulkCreate(ctx, []model.Question{a, b})
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestQuestionRepo_Overview(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQuestionRepo(db)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT COUNT\(\*\),`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"total", "solved", "unsolved", "for_future", "bookmarked"}).
			AddRow(10, 6, 3, 1, 4))
	c, err := r.Overview(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCounts{Total: 10, Solved: 6, Unsolved: 3, ForFuture: 1, Bookmarked: 4}, c)
}

func TestQuestionRepo_CountsBy_RejectsUnknownDimension(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQuestionRepo(db)

	_, err := r.CountsBy(context.Background(), uuid.Must(uuid.NewV4()), "status; DROP TABLE questions")
	require.Error(t, err)
}
