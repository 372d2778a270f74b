package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/note"
)

type noteRepository struct {
	db *noteTable
}

var _ note.Repository = (*noteRepository)(nil)

func NewNoteRepository(db *DB) *noteRepository {
	return &noteRepository{db: db.note}
}

func (r *noteRepository) CreateNote(_ context.Context, n note.Note) (note.Note, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	n.ID = uuid.New().String()
	r.db.t[n.ID] = &n
	return n, nil
}

func (r *noteRepository) GetNote(_ context.Context, ownerID, id string) (note.Note, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	n, ok := r.db.t[id]
	if !ok {
		return note.Note{}, note.ErrNotFound
	}
	if n.OwnerID != ownerID {
		return note.Note{}, core.ErrOwnership
	}
	return *n, nil
}

func (r *noteRepository) QueryNotes(_ context.Context, ownerID string, filter note.QueryFilter) (note.Page, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	matches := make([]note.Note, 0, len(r.db.t))
	for _, n := range r.db.t {
		if n.OwnerID != ownerID {
			continue
		}
		if filter.ClassID != "" && n.ClassID != filter.ClassID {
			continue
		}
		if filter.FolderID != nil {
			if *filter.FolderID == "" {
				if n.FolderID != nil {
					continue
				}
			} else if n.FolderID == nil || *n.FolderID != *filter.FolderID {
				continue
			}
		}
		if filter.Search != "" {
			s := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(n.Title), s) &&
				!strings.Contains(strings.ToLower(n.Content), s) {
				continue
			}
		}
		matches = append(matches, *n)
	}

	// keyset order: created_at DESC, id DESC
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})

	if filter.Cursor != "" {
		cur, err := note.DecodeCursor(filter.Cursor)
		if err != nil {
			return note.Page{}, err
		}
		kept := matches[:0]
		for _, n := range matches {
			if n.CreatedAt.Before(cur.CreatedAt) ||
				(n.CreatedAt.Equal(cur.CreatedAt) && n.ID < cur.ID) {
				kept = append(kept, n)
			}
		}
		matches = kept
	}

	page := note.Page{}
	if len(matches) > filter.Limit {
		last := matches[filter.Limit-1]
		page.NextCursor = note.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
		matches = matches[:filter.Limit]
	}
	page.Notes = matches
	return page, nil
}

func (r *noteRepository) UpdateNote(_ context.Context, n note.Note) (note.Note, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	existing, ok := r.db.t[n.ID]
	if !ok {
		return note.Note{}, note.ErrNotFound
	}
	if existing.OwnerID != n.OwnerID {
		return note.Note{}, core.ErrOwnership
	}
	r.db.t[n.ID] = &n
	return n, nil
}

func (r *noteRepository) SetNoteFolder(ctx context.Context, ownerID, id string, folderID *string) (note.Note, error) {
	n, err := r.GetNote(ctx, ownerID, id)
	if err != nil {
		return note.Note{}, err
	}
	n.FolderID = folderID
	return r.UpdateNote(ctx, n)
}

func (r *noteRepository) DeleteNote(_ context.Context, ownerID, id string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	n, ok := r.db.t[id]
	if !ok {
		return note.ErrNotFound
	}
	if n.OwnerID != ownerID {
		return core.ErrOwnership
	}
	delete(r.db.t, id)
	return nil
}
