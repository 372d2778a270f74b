package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/chatgpa/backend/apps/api/echo"
	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/folder"
	"github.com/chatgpa/backend/core/note"
	"github.com/chatgpa/backend/core/quiz"
	"github.com/chatgpa/backend/core/ratelimit"
	"github.com/chatgpa/backend/core/token"
	aisvc "github.com/chatgpa/backend/services/ai"
	inmemdb "github.com/chatgpa/backend/storage/database/inmem"
	testutil "github.com/chatgpa/backend/tests"
)

var errMissingToken = httpErr{Code: "unauthorized", Message: "missing or malformed jwt"}

// stubGenerator replaces the LLM provider in handler tests.
type stubGenerator struct {
	questions []quiz.DraftQuestion
	genErr    error
	verdicts  map[string]quiz.AssistVerdict
	gradeErr  error
}

var _ quiz.Generator = (*stubGenerator)(nil)

func (g *stubGenerator) GenerateQuestions(context.Context, string, int) ([]quiz.DraftQuestion, error) {
	if g.genErr != nil {
		return nil, g.genErr
	}
	return g.questions, nil
}

func (g *stubGenerator) GradeBatch(context.Context, []quiz.AssistItem) (map[string]quiz.AssistVerdict, error) {
	if g.gradeErr != nil {
		return nil, g.gradeErr
	}
	return g.verdicts, nil
}

// tokenStore exposes the in-memory ledger's seeding helpers.
type tokenStore interface {
	token.Repository
	SetBalance(ownerID string, bal token.Balance)
	UsageEvents() []token.Event
}

type fixture struct {
	conf       *core.Config
	noteRepo   note.Repository
	folderRepo folder.Repository
	quizRepo   quiz.Repository
	tokenRepo  tokenStore
	gen        *stubGenerator
}

func setup(t *testing.T) (Server, *fixture) {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)

	// set up DB & repos
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	fix := &fixture{
		conf:       conf,
		noteRepo:   inmemdb.NewNoteRepository(db),
		folderRepo: inmemdb.NewFolderRepository(db),
		quizRepo:   inmemdb.NewQuizRepository(db),
		tokenRepo:  inmemdb.NewTokenRepository(db),
		gen:        &stubGenerator{},
	}

	// set up services
	tokenSvc := token.NewService(fix.tokenRepo)
	noteSvc := note.NewService(fix.noteRepo)
	folderSvc := folder.NewService(fix.folderRepo, logger)
	quizSvc := quiz.NewService(fix.quizRepo, fix.gen, tokenSvc, nil, logger)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// set up server
	app := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		NoteSvc:    noteSvc,
		FolderSvc:  folderSvc,
		QuizSvc:    quizSvc,
		TokenSvc:   tokenSvc,
		AI:         aisvc.NewClient(conf, logger),
		Limiter:    ratelimit.New(ratelimit.NewMemStore(), conf.RateLimit.MaxCalls, conf.RateLimit.Window),
		Validate:   validate,
		Translator: translator,
	})
	return app, fix
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Code    string      `json:"code"`
	Message interface{} `json:"message"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, ident core.Identity) string {
	claims := GetIdentityClaims(conf, ident)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
