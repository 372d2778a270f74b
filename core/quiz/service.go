package quiz

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/token"
)

// tokens charged per generated question
const tokensPerQuestion = 10

// defaultQuestionCount applies when a generation request leaves count unset.
const defaultQuestionCount = 5

type (
	Repository interface {
		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		// GetQuiz returns the quiz with its questions ordered by position.
		GetQuiz(ctx context.Context, ownerID, id string) (Quiz, error)
		// QueryQuizzes lists quizzes without questions, newest first.
		QueryQuizzes(ctx context.Context, ownerID, classID string) ([]Quiz, error)
		DeleteQuiz(ctx context.Context, ownerID, id string) error

		CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
		GetAttempt(ctx context.Context, ownerID, id string) (Attempt, error)
		UpdateAttempt(ctx context.Context, a Attempt) (Attempt, error)
		// QueryAttempts lists attempts; ordering fields are whitelisted by the
		// repository, the default being newest first.
		QueryAttempts(ctx context.Context, ownerID, quizID string, ordering ...core.DBOrdering) ([]Attempt, error)
	}

	// Generator produces quiz questions from note content and grades
	// reference-less short answers. Both calls go out to the LLM provider.
	Generator interface {
		GenerateQuestions(ctx context.Context, notes string, count int) ([]DraftQuestion, error)
		GradeBatch(ctx context.Context, items []AssistItem) (map[string]AssistVerdict, error)
	}

	Service struct {
		repo   Repository
		gen    Generator
		tokens *token.Service
		mail   core.EmailService
		logger core.Logger
	}
)

func NewService(repo Repository, gen Generator, tokens *token.Service, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:   repo,
		gen:    gen,
		tokens: tokens,
		mail:   mailSvc,
		logger: logger,
	}
}

func (svc *Service) Create(ctx context.Context, ownerID string, nq NewQuiz) (Quiz, error) {
	now := time.Now().UTC()
	q := Quiz{
		OwnerID:   ownerID,
		ClassID:   nq.ClassID,
		NoteID:    nq.NoteID,
		Title:     core.CleanString(nq.Title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, dq := range nq.Questions {
		q.Questions = append(q.Questions, Question{
			Position: i,
			Kind:     dq.Kind,
			Prompt:   dq.Prompt,
			Options:  dq.Options,
			Answer:   dq.Answer,
		})
	}
	return svc.repo.CreateQuiz(ctx, q)
}

// Generate spends tokens, asks the LLM for questions and persists the quiz.
// The token spend happens first: a refusal aborts generation before any
// provider call is made.
func (svc *Service) Generate(ctx context.Context, ownerID string, gq GenerateQuiz, noteContent string) (Quiz, error) {
	count := gq.Count
	if count == 0 {
		count = defaultQuestionCount
	}

	if _, err := svc.tokens.Spend(ctx, ownerID, count*tokensPerQuestion, "quiz_generation"); err != nil {
		return Quiz{}, err
	}

	drafts, err := svc.gen.GenerateQuestions(ctx, noteContent, count)
	if err != nil {
		return Quiz{}, errors.Wrap(err, "generating questions")
	}

	title := core.CleanString(gq.Title)
	if title == "" {
		title = fmt.Sprintf("Quiz %s", time.Now().UTC().Format("2006-01-02"))
	}
	return svc.Create(ctx, ownerID, NewQuiz{
		ClassID:   gq.ClassID,
		NoteID:    &gq.NoteID,
		Title:     title,
		Questions: drafts,
	})
}

func (svc *Service) Get(ctx context.Context, ownerID, id string) (Quiz, error) {
	return svc.repo.GetQuiz(ctx, ownerID, id)
}

func (svc *Service) Query(ctx context.Context, ownerID, classID string) ([]Quiz, error) {
	return svc.repo.QueryQuizzes(ctx, ownerID, classID)
}

func (svc *Service) Delete(ctx context.Context, ownerID, id string) error {
	return svc.repo.DeleteQuiz(ctx, ownerID, id)
}

func (svc *Service) StartAttempt(ctx context.Context, ownerID string, sa StartAttempt) (Attempt, error) {
	qz, err := svc.repo.GetQuiz(ctx, ownerID, sa.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	return svc.repo.CreateAttempt(ctx, Attempt{
		QuizID:    qz.ID,
		OwnerID:   ownerID,
		Status:    StatusInProgress,
		Title:     qz.Title,
		Responses: map[string]string{},
		StartedAt: time.Now().UTC(),
	})
}

func (svc *Service) AutosaveAttempt(ctx context.Context, ownerID string, aa AutosaveAttempt) (Attempt, error) {
	att, err := svc.repo.GetAttempt(ctx, ownerID, aa.AttemptID)
	if err != nil {
		return Attempt{}, err
	}
	if att.Status == StatusSubmitted {
		return Attempt{}, ErrAttemptSubmitted
	}
	if att.Responses == nil {
		att.Responses = map[string]string{}
	}
	for qid, resp := range aa.Responses {
		att.Responses[qid] = resp
	}
	return svc.repo.UpdateAttempt(ctx, att)
}

func (svc *Service) UpdateAttemptMeta(ctx context.Context, ownerID string, um UpdateAttemptMeta) (Attempt, error) {
	att, err := svc.repo.GetAttempt(ctx, ownerID, um.AttemptID)
	if err != nil {
		return Attempt{}, err
	}
	if um.Title != "" {
		att.Title = core.CleanString(um.Title)
	}
	return svc.repo.UpdateAttempt(ctx, att)
}

func (svc *Service) GetAttempt(ctx context.Context, ownerID, id string) (Attempt, error) {
	return svc.repo.GetAttempt(ctx, ownerID, id)
}

func (svc *Service) QueryAttempts(ctx context.Context, ownerID, quizID string, ordering ...core.DBOrdering) ([]Attempt, error) {
	return svc.repo.QueryAttempts(ctx, ownerID, quizID, ordering...)
}

// SubmitAttempt grades the attempt and flips it to submitted. Re-submitting
// is a conflict. The AI grading assist and the results email are both
// best-effort and never fail the submission.
func (svc *Service) SubmitAttempt(ctx context.Context, ident core.Identity, sa SubmitAttempt) (Attempt, error) {
	att, err := svc.repo.GetAttempt(ctx, ident.ID, sa.AttemptID)
	if err != nil {
		return Attempt{}, err
	}
	if att.Status == StatusSubmitted {
		return Attempt{}, ErrAttemptSubmitted
	}

	if att.Responses == nil {
		att.Responses = map[string]string{}
	}
	for qid, resp := range sa.Responses {
		att.Responses[qid] = resp
	}

	qz, err := svc.repo.GetQuiz(ctx, ident.ID, att.QuizID)
	if err != nil {
		return Attempt{}, errors.Wrap(err, "loading quiz for grading")
	}

	var assist AssistFunc
	if svc.gen != nil {
		assist = svc.gen.GradeBatch
	}
	res := Grade(ctx, qz.Questions, att.Responses, assist)

	now := time.Now().UTC()
	att.Status = StatusSubmitted
	att.Percent = res.Percent
	att.Feedback = res.Feedback
	att.Summary = res.Summary
	att.SubmittedAt = &now

	att, err = svc.repo.UpdateAttempt(ctx, att)
	if err != nil {
		return Attempt{}, err
	}

	if svc.mail != nil && ident.Email != "" {
		svc.mail.SendMessages(&core.EmailMessage{
			To:      []mail.Address{{Address: ident.Email}},
			Subject: fmt.Sprintf("Your results for %q", qz.Title),
			BodyStr: fmt.Sprintf("You scored %d%%.\n\n%s\n", att.Percent, att.Summary),
		})
	}
	return att, nil
}
