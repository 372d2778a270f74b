// Package inmemdb provides in-memory repositories for tests and local
// development without a database. Invariants the real database enforces with
// triggers and procedures (folder cycles, atomic token spend) are mimicked
// here in plain Go.
package inmemdb

import (
	"sync"

	"github.com/chatgpa/backend/core/folder"
	"github.com/chatgpa/backend/core/note"
	"github.com/chatgpa/backend/core/quiz"
	"github.com/chatgpa/backend/core/token"
)

type (
	DB struct {
		note   *noteTable
		folder *folderTable
		quiz   *quizTable
		token  *tokenTable
	}

	noteTable struct {
		t     map[string]*note.Note
		mutex sync.RWMutex
	}

	folderTable struct {
		t     map[string]*folder.Folder
		mutex sync.RWMutex
	}

	quizTable struct {
		quizzes  map[string]*quiz.Quiz
		attempts map[string]*quiz.Attempt
		mutex    sync.RWMutex
	}

	tokenTable struct {
		balances map[string]*token.Balance
		usage    []token.Event
		mutex    sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		note:   &noteTable{t: make(map[string]*note.Note)},
		folder: &folderTable{t: make(map[string]*folder.Folder)},
		quiz: &quizTable{
			quizzes:  make(map[string]*quiz.Quiz),
			attempts: make(map[string]*quiz.Attempt),
		},
		token: &tokenTable{balances: make(map[string]*token.Balance)},
	}
	return db, nil
}
