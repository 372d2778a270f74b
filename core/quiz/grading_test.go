package quiz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercases", "The MITOCHONDRIA", "the mitochondria"},
		{"strips punctuation", "ATP? yes, (mostly)!", "atp yes mostly"},
		{"collapses whitespace", "  a \t b\n\nc ", "a b c"},
		{"keeps digits", "H2O freezes at 0C", "h2o freezes at 0c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "photosynthesis makes glucose", "photosynthesis makes glucose", 1},
		{"both empty", "", "", 1},
		{"stopwords only counts as empty", "the of and", "a an it", 1},
		{"disjoint", "krebs cycle", "cell membrane", 0},
		{"half overlap", "golgi apparatus", "golgi body", 1.0 / 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Jaccard(tt.a, tt.b), 1e-9)
		})
	}

	t.Run("stopwords do not dilute matching answers", func(t *testing.T) {
		got := Jaccard(
			"mitochondria is the powerhouse of the cell",
			"mitochondria powerhouse cell",
		)
		assert.InDelta(t, 1.0, got, 1e-9)
	})
}

func TestGrade_MCQ(t *testing.T) {
	questions := []Question{
		{ID: "q1", Kind: KindMCQ, Prompt: "Powerhouse of the cell?", Options: []string{"Nucleus", "Mitochondria"}, Answer: strPtr("Mitochondria")},
		{ID: "q2", Kind: KindMCQ, Prompt: "Basic unit of life?", Options: []string{"Cell", "Atom"}, Answer: strPtr("Cell")},
	}

	res := Grade(context.Background(), questions, map[string]string{
		"q1": "  mitochondria!",
		"q2": "Atom",
	}, nil)

	assert.Equal(t, 50, res.Percent)
	assert.Len(t, res.Feedback, 2)
	assert.True(t, res.Feedback[0].Correct)
	assert.Equal(t, feedbackCorrect, res.Feedback[0].Feedback)
	assert.False(t, res.Feedback[1].Correct)
	assert.Equal(t, feedbackWrongMCQ, res.Feedback[1].Feedback)
}

func TestGrade_ShortWithReference(t *testing.T) {
	ref := "Mitochondria are the powerhouse of the cell"
	questions := []Question{{ID: "q1", Kind: KindShort, Prompt: "Role of mitochondria?", Answer: &ref}}

	tests := []struct {
		name         string
		response     string
		wantCorrect  bool
		wantFeedback string
	}{
		{"exact", ref, true, feedbackCorrect},
		{"paraphrase over threshold", "the mitochondria is the cell powerhouse", true, feedbackCorrect},
		{"reordered tokens", "powerhouse cell mitochondria", true, feedbackCorrect},
		{"wrong", "ribosomes synthesize proteins", false, feedbackWrong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Grade(context.Background(), questions, map[string]string{"q1": tt.response}, nil)

			assert.Equal(t, tt.wantCorrect, res.Feedback[0].Correct)
			assert.Equal(t, tt.wantFeedback, res.Feedback[0].Feedback)
		})
	}

	t.Run("close but under threshold reports near miss", func(t *testing.T) {
		res := Grade(context.Background(), questions, map[string]string{
			"q1": "mitochondria are the powerhuose of the cell",
		}, nil)

		assert.False(t, res.Feedback[0].Correct)
		assert.Equal(t, feedbackNearMiss, res.Feedback[0].Feedback)
	})
}

func TestGrade_AssistedShortAnswers(t *testing.T) {
	questions := []Question{
		{ID: "q1", Kind: KindShort, Prompt: "Explain osmosis."},
		{ID: "q2", Kind: KindShort, Prompt: "Explain diffusion."},
	}
	responses := map[string]string{"q1": "water moves across a membrane", "q2": "no idea"}

	t.Run("verdicts applied", func(t *testing.T) {
		assist := func(ctx context.Context, items []AssistItem) (map[string]AssistVerdict, error) {
			assert.Len(t, items, 2)
			return map[string]AssistVerdict{
				"q1": {Correct: true, Feedback: "Good.", Improvement: "Mention concentration gradients."},
				"q2": {Correct: false, Feedback: "Review diffusion."},
			}, nil
		}

		res := Grade(context.Background(), questions, responses, assist)

		assert.Equal(t, 50, res.Percent)
		assert.True(t, res.Feedback[0].Correct)
		assert.Equal(t, "Good.", res.Feedback[0].Feedback)
		assert.Equal(t, "Mention concentration gradients.", res.Feedback[0].Improvement)
		assert.False(t, res.Feedback[1].Correct)
	})

	t.Run("assist failure never fails grading", func(t *testing.T) {
		assist := func(ctx context.Context, items []AssistItem) (map[string]AssistVerdict, error) {
			return nil, errors.New("upstream down")
		}

		res := Grade(context.Background(), questions, responses, assist)

		assert.Equal(t, 0, res.Percent)
		for _, fb := range res.Feedback {
			assert.False(t, fb.Correct)
			assert.Equal(t, feedbackWrong, fb.Feedback)
			assert.Equal(t, genericTip, fb.Improvement)
		}
	})

	t.Run("nil assist func", func(t *testing.T) {
		res := Grade(context.Background(), questions, responses, nil)

		assert.Equal(t, 0, res.Percent)
		assert.Equal(t, genericTip, res.Feedback[0].Improvement)
	})

	t.Run("partial verdicts fall back per question", func(t *testing.T) {
		assist := func(ctx context.Context, items []AssistItem) (map[string]AssistVerdict, error) {
			return map[string]AssistVerdict{"q1": {Correct: true, Feedback: "Good."}}, nil
		}

		res := Grade(context.Background(), questions, responses, assist)

		assert.True(t, res.Feedback[0].Correct)
		assert.False(t, res.Feedback[1].Correct)
		assert.Equal(t, genericTip, res.Feedback[1].Improvement)
	})
}

func TestGrade_SummaryBands(t *testing.T) {
	mcq := func(id string, correct bool) (Question, string) {
		q := Question{ID: id, Kind: KindMCQ, Answer: strPtr("yes")}
		if correct {
			return q, "yes"
		}
		return q, "no"
	}

	tests := []struct {
		name        string
		correct     int
		total       int
		wantPercent int
		wantSummary string
	}{
		{"all correct", 4, 4, 100, summaryStrong},
		{"strong band edge", 6, 7, 86, summaryStrong},
		{"solid band", 3, 4, 75, summarySolid},
		{"weak", 1, 4, 25, summaryWeak},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var questions []Question
			responses := map[string]string{}
			for i := 0; i < tt.total; i++ {
				q, resp := mcq(string(rune('a'+i)), i < tt.correct)
				questions = append(questions, q)
				responses[q.ID] = resp
			}

			res := Grade(context.Background(), questions, responses, nil)

			assert.Equal(t, tt.wantPercent, res.Percent)
			assert.Equal(t, tt.wantSummary, res.Summary)
		})
	}
}

func TestGrade_EmptyQuestionSet(t *testing.T) {
	res := Grade(context.Background(), nil, nil, nil)

	assert.Equal(t, 0, res.Percent)
	assert.Empty(t, res.Feedback)
	assert.Equal(t, summaryWeak, res.Summary)
}
