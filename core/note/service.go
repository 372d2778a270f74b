package note

import (
	"context"
	"errors"
	"time"

	"github.com/chatgpa/backend/core"
)

var (
	ErrNotFound = errors.New("note not found")
)

type (
	Repository interface {
		CreateNote(ctx context.Context, n Note) (Note, error)
		GetNote(ctx context.Context, ownerID, id string) (Note, error)
		// QueryNotes applies AND operation on available QueryFilter fields and
		// pages by keyset (created_at DESC, id DESC). It returns up to
		// filter.Limit notes plus the cursor of the next page ("" on the last page).
		QueryNotes(ctx context.Context, ownerID string, filter QueryFilter) (Page, error)
		UpdateNote(ctx context.Context, n Note) (Note, error)
		// SetNoteFolder maps the note to a folder; nil unmaps it.
		SetNoteFolder(ctx context.Context, ownerID, id string, folderID *string) (Note, error)
		DeleteNote(ctx context.Context, ownerID, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ownerID string, nn NewNote) (Note, error) {
	now := time.Now().UTC()
	n := Note{
		OwnerID:   ownerID,
		ClassID:   nn.ClassID,
		FolderID:  nn.FolderID,
		Title:     core.CleanString(nn.Title),
		Content:   nn.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateNote(ctx, n)
}

func (svc *Service) Get(ctx context.Context, ownerID, id string) (Note, error) {
	return svc.repo.GetNote(ctx, ownerID, id)
}

func (svc *Service) Query(ctx context.Context, ownerID string, filter QueryFilter) (Page, error) {
	filter.Clean()
	return svc.repo.QueryNotes(ctx, ownerID, filter)
}

func (svc *Service) Update(ctx context.Context, ownerID, id string, un UpdateNote) (Note, error) {
	n, err := svc.repo.GetNote(ctx, ownerID, id)
	if err != nil {
		return Note{}, err
	}
	if un.Title != "" {
		n.Title = core.CleanString(un.Title)
	}
	if un.Content != "" {
		n.Content = un.Content
	}
	n.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateNote(ctx, n)
}

// MapToFolder maps the note to a folder within its class; folderID == nil unmaps.
// The `one folder per note per class` rule is enforced by the database schema.
func (svc *Service) MapToFolder(ctx context.Context, ownerID, id string, folderID *string) (Note, error) {
	return svc.repo.SetNoteFolder(ctx, ownerID, id, folderID)
}

func (svc *Service) Delete(ctx context.Context, ownerID, id string) error {
	return svc.repo.DeleteNote(ctx, ownerID, id)
}
