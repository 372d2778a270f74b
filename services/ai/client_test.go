package aisvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/quiz"
	logsvc "github.com/chatgpa/backend/services/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := &core.Config{
		AI: core.AIConfig{
			BaseURL: srv.URL,
			APIKey:  "test-key",
			Model:   "test-model",
			Timeout: 5 * time.Second,
		},
	}
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)
	return NewClient(conf, logger), srv
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"id": "req-123",
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"total_tokens": 42},
	})
	return string(b)
}

func TestClient_Chat(t *testing.T) {
	t.Run("relays and reads the first choice", func(t *testing.T) {
		var got struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
		}
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			assert.Nil(t, json.NewDecoder(r.Body).Decode(&got))
			fmt.Fprint(w, chatReply("Osmosis is passive water transport."))
		})

		reply, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "What is osmosis?"}}, "")

		assert.Nil(t, err)
		assert.Equal(t, "test-model", got.Model) // default model applied
		assert.Equal(t, "Osmosis is passive water transport.", reply.Content)
		assert.Equal(t, "req-123", reply.RequestID)
		assert.Equal(t, 42, reply.Usage["total_tokens"])
	})

	t.Run("explicit model wins", func(t *testing.T) {
		var gotModel string
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			gotModel, _ = body["model"].(string)
			fmt.Fprint(w, chatReply("ok"))
		})

		_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, "other-model")

		assert.Nil(t, err)
		assert.Equal(t, "other-model", gotModel)
	})

	t.Run("unconfigured", func(t *testing.T) {
		conf := &core.Config{AI: core.AIConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}}
		logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
		logger.Enable(false)
		c := NewClient(conf, logger)

		_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
		assert.Equal(t, ErrNotConfigured, err)
	})

	t.Run("provider error status", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
		})

		_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
		assert.Equal(t, ErrUpstream, errors.Cause(err))
	})

	t.Run("no choices", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"id":"x","choices":[]}`)
		})

		_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
		assert.Equal(t, ErrUpstream, errors.Cause(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "not json")
		})

		_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
		assert.Equal(t, ErrUpstream, errors.Cause(err))
	})
}

func TestClient_Ping(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models", r.URL.Path)
			fmt.Fprint(w, `{"data":[]}`)
		})
		assert.Nil(t, c.Ping(context.Background()))
	})

	t.Run("server error", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		assert.Equal(t, ErrUpstream, errors.Cause(c.Ping(context.Background())))
	})
}

func TestClient_GenerateQuestions(t *testing.T) {
	draftsJSON := `[
		{"kind":"mcq","prompt":"Powerhouse?","options":["Nucleus","Mitochondria"],"answer":"Mitochondria"},
		{"kind":"short","prompt":"Explain ATP production."}
	]`

	t.Run("parses a strict JSON array", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatReply(draftsJSON))
		})

		drafts, err := c.GenerateQuestions(context.Background(), "notes", 2)

		assert.Nil(t, err)
		if assert.Len(t, drafts, 2) {
			assert.Equal(t, quiz.KindMCQ, drafts[0].Kind)
			if assert.NotNil(t, drafts[0].Answer) {
				assert.Equal(t, "Mitochondria", *drafts[0].Answer)
			}
			assert.Equal(t, quiz.KindShort, drafts[1].Kind)
			assert.Nil(t, drafts[1].Answer)
		}
	})

	t.Run("strips markdown fences", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatReply("```json\n"+draftsJSON+"\n```"))
		})

		drafts, err := c.GenerateQuestions(context.Background(), "notes", 2)

		assert.Nil(t, err)
		assert.Len(t, drafts, 2)
	})

	tests := []struct {
		name    string
		content string
	}{
		{"prose instead of JSON", "Here are your questions: 1) ..."},
		{"empty array", "[]"},
		{"unknown kind", `[{"kind":"essay","prompt":"Discuss."}]`},
		{"mcq without options", `[{"kind":"mcq","prompt":"?","answer":"a"}]`},
		{"mcq without answer", `[{"kind":"mcq","prompt":"?","options":["a","b"]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, chatReply(tt.content))
			})

			_, err := c.GenerateQuestions(context.Background(), "notes", 2)
			assert.Equal(t, ErrUpstream, errors.Cause(err))
		})
	}
}

func TestClient_GradeBatch(t *testing.T) {
	items := []quiz.AssistItem{
		{QuestionID: "q1", Prompt: "Explain osmosis.", Response: "water moves"},
		{QuestionID: "q2", Prompt: "Explain diffusion.", Response: "no idea"},
	}

	t.Run("maps verdicts by id", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatReply(`[
				{"id":"q1","correct":true,"feedback":"Good.","improvement":"Mention gradients."},
				{"id":"q2","correct":false,"feedback":"Review."},
				{"correct":true,"feedback":"no id, dropped"}
			]`))
		})

		verdicts, err := c.GradeBatch(context.Background(), items)

		assert.Nil(t, err)
		assert.Len(t, verdicts, 2)
		assert.True(t, verdicts["q1"].Correct)
		assert.Equal(t, "Mention gradients.", verdicts["q1"].Improvement)
		assert.False(t, verdicts["q2"].Correct)
	})

	t.Run("malformed verdicts error out", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatReply("sorry, I cannot grade these"))
		})

		_, err := c.GradeBatch(context.Background(), items)
		assert.Equal(t, ErrUpstream, errors.Cause(err))
	})
}
