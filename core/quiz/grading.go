package quiz

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// Grading constants. The threshold and bands match long-standing product
// behavior; do not tune them without guidance.
const (
	jaccardThreshold = 0.6
	strongBand       = 85
	solidBand        = 70
	nearMissRatio    = 0.8
)

const (
	feedbackCorrect  = "Correct."
	feedbackWrongMCQ = "Incorrect. Review this topic and try again."
	feedbackNearMiss = "Not quite, but close. Compare your wording with the reference answer."
	feedbackWrong    = "Incorrect. Revisit your notes on this question."

	// genericTip is the fallback when AI verdicts are unavailable.
	genericTip = "Try giving your answer more structure: key term, definition, example."

	summaryStrong = "Excellent work! You clearly know this material."
	summarySolid  = "Solid effort. Go over the questions you missed."
	summaryWeak   = "Keep at it. Review the fundamentals before your next attempt."
)

type (
	// AssistItem is one short answer sent out for AI grading.
	AssistItem struct {
		QuestionID string `json:"id"`
		Prompt     string `json:"prompt"`
		Reference  string `json:"reference"`
		Response   string `json:"response"`
	}

	AssistVerdict struct {
		Correct     bool   `json:"correct"`
		Feedback    string `json:"feedback"`
		Improvement string `json:"improvement"`
	}

	// AssistFunc grades a batch of reference-less short answers externally.
	// It is best-effort: any error means "no verdicts available".
	AssistFunc func(ctx context.Context, items []AssistItem) (map[string]AssistVerdict, error)

	QuestionFeedback struct {
		QuestionID  string `json:"question_id"`
		Correct     bool   `json:"correct"`
		Feedback    string `json:"feedback"`
		Improvement string `json:"improvement,omitempty"`
	}

	Result struct {
		Percent  int                `json:"percent"`
		Feedback []QuestionFeedback `json:"feedback"`
		Summary  string             `json:"summary"`
	}
)

// Grade scores a response map against an ordered question set.
//
// MCQs are binary on normalized equality with the correct option. Short
// answers with a reference are correct when normalized-equal or when the
// Jaccard similarity of their token sets reaches the threshold. Short answers
// without a reference are batched to assist; if that call fails in any way
// they are marked incorrect with a generic tip — assist unavailability never
// fails grading.
func Grade(ctx context.Context, questions []Question, responses map[string]string, assist AssistFunc) Result {
	res := Result{Feedback: make([]QuestionFeedback, 0, len(questions))}
	fbIndex := make(map[string]int, len(questions))

	var correct int
	var assistItems []AssistItem

	for _, q := range questions {
		resp := responses[q.ID]
		fb := QuestionFeedback{QuestionID: q.ID}

		switch {
		case q.Kind == KindMCQ && q.Answer != nil:
			if Normalize(resp) == Normalize(*q.Answer) {
				fb.Correct = true
				fb.Feedback = feedbackCorrect
			} else {
				fb.Feedback = feedbackWrongMCQ
			}

		case q.Kind == KindShort && q.Answer != nil:
			ref := *q.Answer
			if Normalize(resp) == Normalize(ref) || Jaccard(resp, ref) >= jaccardThreshold {
				fb.Correct = true
				fb.Feedback = feedbackCorrect
			} else if quickRatio(resp, ref) >= nearMissRatio {
				fb.Feedback = feedbackNearMiss
			} else {
				fb.Feedback = feedbackWrong
			}

		default: // short answer without a reference: AI-assisted
			assistItems = append(assistItems, AssistItem{
				QuestionID: q.ID,
				Prompt:     q.Prompt,
				Response:   resp,
			})
		}

		if fb.Correct {
			correct++
		}
		fbIndex[q.ID] = len(res.Feedback)
		res.Feedback = append(res.Feedback, fb)
	}

	if len(assistItems) > 0 {
		var verdicts map[string]AssistVerdict
		if assist != nil {
			if v, err := assist(ctx, assistItems); err == nil {
				verdicts = v
			} // a failed assist call means no verdicts
		}
		for _, item := range assistItems {
			fb := &res.Feedback[fbIndex[item.QuestionID]]
			if v, ok := verdicts[item.QuestionID]; ok {
				fb.Correct = v.Correct
				fb.Feedback = v.Feedback
				fb.Improvement = v.Improvement
				if v.Correct {
					correct++
				}
			} else {
				fb.Feedback = feedbackWrong
				fb.Improvement = genericTip
			}
		}
	}

	total := len(questions)
	if total == 0 {
		total = 1 // defensive floor; callers should refuse empty question sets upstream
	}
	percent := int(math.Round(100 * float64(correct) / float64(total)))
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	res.Percent = percent

	switch {
	case percent >= strongBand:
		res.Summary = summaryStrong
	case percent >= solidBand:
		res.Summary = summarySolid
	default:
		res.Summary = summaryWeak
	}
	return res
}

// Normalize lowercases, strips non-alphanumerics and collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Jaccard is |intersection| / |union| of the two normalized token sets.
// Two empty sets are vacuously equal (similarity 1).
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	var inter int
	for tok := range setA {
		if setB[tok] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// stopwords are dropped when tokenizing for Jaccard so that filler words do
// not dilute the similarity of otherwise matching answers.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "of": true, "in": true, "on": true, "at": true,
	"to": true, "and": true, "or": true, "it": true, "its": true, "that": true,
	"this": true, "with": true, "for": true, "as": true, "by": true,
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(Normalize(s)) {
		if !stopwords[tok] {
			set[tok] = true
		}
	}
	return set
}

func quickRatio(a, b string) float64 {
	return difflib.NewMatcher(
		strings.Split(Normalize(a), ""),
		strings.Split(Normalize(b), ""),
	).QuickRatio()
}
