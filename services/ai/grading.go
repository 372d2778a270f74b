package aisvc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/chatgpa/backend/core/quiz"
)

const gradePrompt = `You are grading short-answer quiz responses. For each item decide whether
the student's response answers the prompt, and give one sentence of feedback
plus one concrete improvement tip.

Reply with ONLY a JSON array of {"id":"...","correct":true|false,"feedback":"...","improvement":"..."}.

Items:
%s`

type assistVerdictJSON struct {
	ID string `json:"id"`
	quiz.AssistVerdict
}

// GradeBatch sends reference-less short answers out for AI grading.
// It satisfies quiz.Generator; callers treat every error as "no verdicts".
func (c *Client) GradeBatch(ctx context.Context, items []quiz.AssistItem) (map[string]quiz.AssistVerdict, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling assist items")
	}

	reply, err := c.Chat(ctx, []Message{
		{Role: "user", Content: fmt.Sprintf(gradePrompt, payload)},
	}, "")
	if err != nil {
		return nil, err
	}

	var parsed []assistVerdictJSON
	if err = json.Unmarshal([]byte(stripFences(reply.Content)), &parsed); err != nil {
		return nil, errors.Wrap(ErrUpstream, "malformed verdict JSON")
	}

	verdicts := make(map[string]quiz.AssistVerdict, len(parsed))
	for _, v := range parsed {
		if v.ID == "" {
			continue
		}
		verdicts[v.ID] = v.AssistVerdict
	}
	return verdicts, nil
}
