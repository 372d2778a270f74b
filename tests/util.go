package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/folder"
	"github.com/chatgpa/backend/core/note"
	"github.com/chatgpa/backend/core/quiz"
	logsvc "github.com/chatgpa/backend/services/logger"
)

// NewConfig returns a self-contained test configuration; core.Conf is set as
// a side effect for code paths that read the package-level config.
func NewConfig() *core.Config {
	conf := &core.Config{
		TestMode:  true,
		Env:       "TEST",
		Build:     "test",
		AppName:   "ChatGPA",
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			Host:               "127.0.0.1",
			Port:               "0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
			ObfuscateOwnership: true,
		},
		AI: core.AIConfig{
			BaseURL: "http://127.0.0.1:1", // unreachable on purpose
			Model:   "test-model",
			Timeout: time.Second,
		},
		RateLimit: core.RateLimitConfig{MaxCalls: 1000, Window: time.Minute},
	}
	core.Conf = conf
	return conf
}

// NewLogger returns a quiet logger for tests.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

func CreateNote(t *testing.T, repo note.Repository, ownerID, classID, title, content string, folderID *string) note.Note {
	t.Helper()

	now := time.Now().UTC()
	n, err := repo.CreateNote(context.Background(), note.Note{
		OwnerID:   ownerID,
		ClassID:   classID,
		FolderID:  folderID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateNote() failed: %v", err)
	}
	return n
}

func CreateFolder(t *testing.T, repo folder.Repository, ownerID, classID, name string, parentID *string, sortIndex int) folder.Folder {
	t.Helper()

	now := time.Now().UTC()
	f, err := repo.CreateFolder(context.Background(), folder.Folder{
		OwnerID:   ownerID,
		ClassID:   classID,
		ParentID:  parentID,
		Name:      name,
		SortIndex: sortIndex,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateFolder() failed: %v", err)
	}
	return f
}

func CreateQuiz(t *testing.T, repo quiz.Repository, ownerID, classID, title string, questions []quiz.Question) quiz.Quiz {
	t.Helper()

	now := time.Now().UTC()
	q, err := repo.CreateQuiz(context.Background(), quiz.Quiz{
		OwnerID:   ownerID,
		ClassID:   classID,
		Title:     title,
		Questions: questions,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateQuiz() failed: %v", err)
	}
	return q
}

func StrPtr(s string) *string { return &s }
