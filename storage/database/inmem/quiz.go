package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/quiz"
)

type quizRepository struct {
	db *quizTable
}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db.quiz}
}

func (r *quizRepository) CreateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	q.ID = uuid.New().String()
	for i := range q.Questions {
		q.Questions[i].ID = uuid.New().String()
		q.Questions[i].QuizID = q.ID
	}
	r.db.quizzes[q.ID] = &q
	return q, nil
}

func (r *quizRepository) GetQuiz(_ context.Context, ownerID, id string) (quiz.Quiz, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	q, ok := r.db.quizzes[id]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	if q.OwnerID != ownerID {
		return quiz.Quiz{}, core.ErrOwnership
	}
	return *q, nil
}

func (r *quizRepository) QueryQuizzes(_ context.Context, ownerID, classID string) ([]quiz.Quiz, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	quizzes := make([]quiz.Quiz, 0, len(r.db.quizzes))
	for _, q := range r.db.quizzes {
		if q.OwnerID != ownerID {
			continue
		}
		if classID != "" && q.ClassID != classID {
			continue
		}
		c := *q
		c.Questions = nil
		quizzes = append(quizzes, c)
	}
	sort.Slice(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
	return quizzes, nil
}

func (r *quizRepository) DeleteQuiz(_ context.Context, ownerID, id string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	q, ok := r.db.quizzes[id]
	if !ok {
		return quiz.ErrNotFound
	}
	if q.OwnerID != ownerID {
		return core.ErrOwnership
	}
	delete(r.db.quizzes, id)
	// attempts cascade with the quiz
	for aid, a := range r.db.attempts {
		if a.QuizID == id {
			delete(r.db.attempts, aid)
		}
	}
	return nil
}

func (r *quizRepository) CreateAttempt(_ context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	a.ID = uuid.New().String()
	r.db.attempts[a.ID] = &a
	return a, nil
}

func (r *quizRepository) GetAttempt(_ context.Context, ownerID, id string) (quiz.Attempt, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	a, ok := r.db.attempts[id]
	if !ok {
		return quiz.Attempt{}, quiz.ErrAttemptNotFound
	}
	if a.OwnerID != ownerID {
		return quiz.Attempt{}, core.ErrOwnership
	}
	return *a, nil
}

func (r *quizRepository) UpdateAttempt(_ context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	existing, ok := r.db.attempts[a.ID]
	if !ok {
		return quiz.Attempt{}, quiz.ErrAttemptNotFound
	}
	if existing.OwnerID != a.OwnerID {
		return quiz.Attempt{}, core.ErrOwnership
	}
	r.db.attempts[a.ID] = &a
	return a, nil
}

func (r *quizRepository) QueryAttempts(_ context.Context, ownerID, quizID string, ordering ...core.DBOrdering) ([]quiz.Attempt, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	attempts := make([]quiz.Attempt, 0, len(r.db.attempts))
	for _, a := range r.db.attempts {
		if a.OwnerID != ownerID {
			continue
		}
		if quizID != "" && a.QuizID != quizID {
			continue
		}
		attempts = append(attempts, *a)
	}

	ord := core.DBOrdering{Field: "started_at"}
	if len(ordering) > 0 {
		ord = ordering[0]
	}
	sort.Slice(attempts, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "percent":
			less = attempts[i].Percent < attempts[j].Percent
		default:
			less = attempts[i].StartedAt.Before(attempts[j].StartedAt)
		}
		if ord.Ascending {
			return less
		}
		return !less
	})
	return attempts, nil
}
