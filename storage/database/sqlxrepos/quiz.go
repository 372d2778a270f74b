package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/quiz"
)

type (
	quizRow struct {
		ID        string      `db:"id"`
		OwnerID   string      `db:"owner_id"`
		ClassID   string      `db:"class_id"`
		NoteID    null.String `db:"note_id"`
		Title     string      `db:"title"`
		CreatedAt time.Time   `db:"created_at"`
		UpdatedAt time.Time   `db:"updated_at"`
	}

	questionRow struct {
		ID       string         `db:"id"`
		QuizID   string         `db:"quiz_id"`
		Position int            `db:"position"`
		Kind     string         `db:"kind"`
		Prompt   string         `db:"prompt"`
		Options  pq.StringArray `db:"options"`
		Answer   null.String    `db:"answer"`
	}

	attemptRow struct {
		ID          string    `db:"id"`
		QuizID      string    `db:"quiz_id"`
		OwnerID     string    `db:"owner_id"`
		Status      string    `db:"status"`
		Title       string    `db:"title"`
		Responses   rawJSON   `db:"responses"`
		Percent     int       `db:"percent"`
		Feedback    null.JSON `db:"feedback"`
		Summary     string    `db:"summary"`
		StartedAt   time.Time `db:"started_at"`
		SubmittedAt null.Time `db:"submitted_at"`
	}

	// rawJSON is a jsonb column passed through as-is
	rawJSON []byte
)

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo quizRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo quizRepository) unpackQuiz(r quizRow) quiz.Quiz {
	return quiz.Quiz{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		ClassID:   r.ClassID,
		NoteID:    r.NoteID.Ptr(),
		Title:     r.Title,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (repo quizRepository) unpackQuestion(r questionRow) quiz.Question {
	return quiz.Question{
		ID:       r.ID,
		QuizID:   r.QuizID,
		Position: r.Position,
		Kind:     r.Kind,
		Prompt:   r.Prompt,
		Options:  r.Options,
		Answer:   r.Answer.Ptr(),
	}
}

func (repo quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	q.ID = uuid.New().String()
	r := quizRow{
		ID:        q.ID,
		OwnerID:   q.OwnerID,
		ClassID:   q.ClassID,
		NoteID:    null.StringFromPtr(q.NoteID),
		Title:     q.Title,
		CreatedAt: q.CreatedAt.UTC(),
		UpdatedAt: q.UpdatedAt.UTC(),
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.NamedExecContext(ctx, `
		INSERT INTO quiz (id, owner_id, class_id, note_id, title, created_at, updated_at)
		VALUES (:id, :owner_id, :class_id, :note_id, :title, :created_at, :updated_at)`, r); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}

	for i := range q.Questions {
		q.Questions[i].ID = uuid.New().String()
		q.Questions[i].QuizID = q.ID
		qr := questionRow{
			ID:       q.Questions[i].ID,
			QuizID:   q.ID,
			Position: q.Questions[i].Position,
			Kind:     q.Questions[i].Kind,
			Prompt:   q.Questions[i].Prompt,
			Options:  q.Questions[i].Options,
			Answer:   null.StringFromPtr(q.Questions[i].Answer),
		}
		if _, err = tx.NamedExecContext(ctx, `
			INSERT INTO question (id, quiz_id, position, kind, prompt, options, answer)
			VALUES (:id, :quiz_id, :position, :kind, :prompt, :options, :answer)`, qr); err != nil {
			return quiz.Quiz{}, errors.Wrap(err, "inserting question")
		}
	}

	if err = tx.Commit(); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "committing quiz")
	}
	return q, nil
}

func (repo quizRepository) GetQuiz(ctx context.Context, ownerID, id string) (quiz.Quiz, error) {
	if _, err := uuid.Parse(id); err != nil {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	var r quizRow
	err := repo.db.GetContext(ctx, &r, `SELECT * FROM quiz WHERE id = $1`, id)
	if err != nil {
		return quiz.Quiz{}, repo.trapNoRowsErr(err, quiz.ErrNotFound, "finding quiz by ID")
	}
	if r.OwnerID != ownerID {
		return quiz.Quiz{}, core.ErrOwnership
	}

	var qRows []questionRow
	err = repo.db.SelectContext(ctx, &qRows,
		`SELECT * FROM question WHERE quiz_id = $1 ORDER BY position`, id)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "loading quiz questions")
	}

	qz := repo.unpackQuiz(r)
	for _, qr := range qRows {
		qz.Questions = append(qz.Questions, repo.unpackQuestion(qr))
	}
	return qz, nil
}

func (repo quizRepository) QueryQuizzes(ctx context.Context, ownerID, classID string) ([]quiz.Quiz, error) {
	q := `SELECT * FROM quiz WHERE owner_id = $1`
	args := []interface{}{ownerID}
	if classID != "" {
		args = append(args, classID)
		q += ` AND class_id = $2`
	}
	q += ` ORDER BY created_at DESC`

	var rows []quizRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}

	quizzes := make([]quiz.Quiz, 0, len(rows))
	for _, r := range rows {
		quizzes = append(quizzes, repo.unpackQuiz(r))
	}
	return quizzes, nil
}

func (repo quizRepository) DeleteQuiz(ctx context.Context, ownerID, id string) error {
	if _, err := repo.GetQuiz(ctx, ownerID, id); err != nil {
		return err
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM quiz WHERE owner_id = $1 AND id = $2`, ownerID, id)
	return errors.Wrap(err, "deleting quiz")
}

func (repo quizRepository) packAttempt(a quiz.Attempt) (attemptRow, error) {
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return attemptRow{}, errors.Wrap(err, "marshaling responses")
	}
	r := attemptRow{
		ID:        a.ID,
		QuizID:    a.QuizID,
		OwnerID:   a.OwnerID,
		Status:    a.Status,
		Title:     a.Title,
		Responses: responses,
		Percent:   a.Percent,
		Summary:   a.Summary,
		StartedAt: a.StartedAt.UTC(),
	}
	if a.Feedback != nil {
		fb, err := json.Marshal(a.Feedback)
		if err != nil {
			return attemptRow{}, errors.Wrap(err, "marshaling feedback")
		}
		r.Feedback = null.JSONFrom(fb)
	}
	if a.SubmittedAt != nil {
		r.SubmittedAt = null.TimeFrom(a.SubmittedAt.UTC())
	}
	return r, nil
}

func (repo quizRepository) unpackAttempt(r attemptRow) (quiz.Attempt, error) {
	a := quiz.Attempt{
		ID:        r.ID,
		QuizID:    r.QuizID,
		OwnerID:   r.OwnerID,
		Status:    r.Status,
		Title:     r.Title,
		Percent:   r.Percent,
		Summary:   r.Summary,
		StartedAt: r.StartedAt,
	}
	if len(r.Responses) > 0 {
		if err := json.Unmarshal(r.Responses, &a.Responses); err != nil {
			return quiz.Attempt{}, errors.Wrap(err, "unmarshaling responses")
		}
	}
	if r.Feedback.Valid {
		if err := json.Unmarshal(r.Feedback.JSON, &a.Feedback); err != nil {
			return quiz.Attempt{}, errors.Wrap(err, "unmarshaling feedback")
		}
	}
	if r.SubmittedAt.Valid {
		t := r.SubmittedAt.Time
		a.SubmittedAt = &t
	}
	return a, nil
}

func (repo quizRepository) CreateAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	a.ID = uuid.New().String()
	r, err := repo.packAttempt(a)
	if err != nil {
		return quiz.Attempt{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO attempt (id, quiz_id, owner_id, status, title, responses, percent, feedback, summary, started_at, submitted_at)
		VALUES (:id, :quiz_id, :owner_id, :status, :title, :responses, :percent, :feedback, :summary, :started_at, :submitted_at)`, r)
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return a, nil
}

func (repo quizRepository) GetAttempt(ctx context.Context, ownerID, id string) (quiz.Attempt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return quiz.Attempt{}, quiz.ErrAttemptNotFound
	}
	var r attemptRow
	err := repo.db.GetContext(ctx, &r, `SELECT * FROM attempt WHERE id = $1`, id)
	if err != nil {
		return quiz.Attempt{}, repo.trapNoRowsErr(err, quiz.ErrAttemptNotFound, "finding attempt by ID")
	}
	if r.OwnerID != ownerID {
		return quiz.Attempt{}, core.ErrOwnership
	}
	return repo.unpackAttempt(r)
}

func (repo quizRepository) UpdateAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	r, err := repo.packAttempt(a)
	if err != nil {
		return quiz.Attempt{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE attempt SET status = :status, title = :title, responses = :responses,
		       percent = :percent, feedback = :feedback, summary = :summary, submitted_at = :submitted_at
		WHERE owner_id = :owner_id AND id = :id`, r)
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "updating attempt")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return quiz.Attempt{}, quiz.ErrAttemptNotFound
	}
	return a, nil
}

// attemptOrderFields whitelists the fields accepted in an attempts ordering.
var attemptOrderFields = map[string]bool{
	"started_at":   true,
	"submitted_at": true,
	"percent":      true,
}

func (repo quizRepository) QueryAttempts(ctx context.Context, ownerID, quizID string, ordering ...core.DBOrdering) ([]quiz.Attempt, error) {
	q := `SELECT * FROM attempt WHERE owner_id = $1`
	args := []interface{}{ownerID}
	if quizID != "" {
		args = append(args, quizID)
		q += ` AND quiz_id = $2`
	}

	var terms []string
	for _, ord := range ordering {
		if attemptOrderFields[ord.Field] {
			terms = append(terms, ord.String())
		}
	}
	if len(terms) == 0 {
		terms = []string{"started_at DESC"}
	}
	q += ` ORDER BY ` + strings.Join(terms, ", ")

	var rows []attemptRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}

	attempts := make([]quiz.Attempt, 0, len(rows))
	for _, r := range rows {
		a, err := repo.unpackAttempt(r)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}
