package aisvc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/chatgpa/backend/core/quiz"
)

const generatePrompt = `You are a quiz writer for a study app. From the study notes below,
write exactly %d quiz questions: a mix of multiple-choice and short-answer.

Reply with ONLY a JSON array, no prose, of objects shaped:
{"kind":"mcq","prompt":"...","options":["...","...","...","..."],"answer":"<the one correct option>"}
or
{"kind":"short","prompt":"...","answer":"<a model answer, or omit if open-ended>"}

Notes:
%s`

// GenerateQuestions asks the provider for a strict-JSON question list.
// Unlike grading assist, generation is the primary operation: malformed
// output is an error for the caller.
func (c *Client) GenerateQuestions(ctx context.Context, notes string, count int) ([]quiz.DraftQuestion, error) {
	reply, err := c.Chat(ctx, []Message{
		{Role: "user", Content: fmt.Sprintf(generatePrompt, count, notes)},
	}, "")
	if err != nil {
		return nil, err
	}

	var drafts []quiz.DraftQuestion
	if err = json.Unmarshal([]byte(stripFences(reply.Content)), &drafts); err != nil {
		return nil, errors.Wrap(ErrUpstream, "malformed question JSON")
	}
	if len(drafts) == 0 {
		return nil, errors.Wrap(ErrUpstream, "provider returned no questions")
	}

	for i, d := range drafts {
		if d.Kind != quiz.KindMCQ && d.Kind != quiz.KindShort {
			return nil, errors.Wrapf(ErrUpstream, "question %d has unknown kind %q", i, d.Kind)
		}
		if d.Kind == quiz.KindMCQ && (d.Answer == nil || len(d.Options) < 2) {
			return nil, errors.Wrapf(ErrUpstream, "mcq question %d is missing options or answer", i)
		}
	}
	return drafts, nil
}
