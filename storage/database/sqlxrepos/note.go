package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/note"
)

type noteRow struct {
	ID        string      `db:"id"`
	OwnerID   string      `db:"owner_id"`
	ClassID   string      `db:"class_id"`
	FolderID  null.String `db:"folder_id"`
	Title     string      `db:"title"`
	Content   string      `db:"content"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type noteRepository struct {
	db *sqlx.DB
}

var _ note.Repository = (*noteRepository)(nil) // interface compliance check

func NewNoteRepository(db *sqlx.DB) *noteRepository {
	return &noteRepository{db: db}
}

func (repo noteRepository) pack(n note.Note) noteRow {
	return noteRow{
		ID:        n.ID,
		OwnerID:   n.OwnerID,
		ClassID:   n.ClassID,
		FolderID:  null.StringFromPtr(n.FolderID),
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt.UTC(),
		UpdatedAt: n.UpdatedAt.UTC(),
	}
}

func (repo noteRepository) unpack(r noteRow) note.Note {
	return note.Note{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		ClassID:   r.ClassID,
		FolderID:  r.FolderID.Ptr(),
		Title:     r.Title,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to note.ErrNotFound
func (repo noteRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return note.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo noteRepository) CreateNote(ctx context.Context, n note.Note) (note.Note, error) {
	n.ID = uuid.New().String()
	r := repo.pack(n)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO note (id, owner_id, class_id, folder_id, title, content, created_at, updated_at)
		VALUES (:id, :owner_id, :class_id, :folder_id, :title, :content, :created_at, :updated_at)`, r)
	if err != nil {
		return note.Note{}, errors.Wrap(err, "inserting note")
	}
	return repo.unpack(r), nil
}

func (repo noteRepository) GetNote(ctx context.Context, ownerID, id string) (note.Note, error) {
	if _, err := uuid.Parse(id); err != nil {
		return note.Note{}, note.ErrNotFound
	}
	var r noteRow
	err := repo.db.GetContext(ctx, &r, `SELECT * FROM note WHERE id = $1`, id)
	if err != nil {
		return note.Note{}, repo.trapNoRowsErr(err, "finding note by ID")
	}
	if r.OwnerID != ownerID {
		return note.Note{}, core.ErrOwnership
	}
	return repo.unpack(r), nil
}

func (repo noteRepository) QueryNotes(ctx context.Context, ownerID string, filter note.QueryFilter) (note.Page, error) {
	q := `SELECT * FROM note WHERE owner_id = $1`
	args := []interface{}{ownerID}

	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		q += ` AND class_id = $` + itoa(len(args))
	}
	if filter.FolderID != nil {
		if *filter.FolderID == "" {
			q += ` AND folder_id IS NULL`
		} else {
			args = append(args, *filter.FolderID)
			q += ` AND folder_id = $` + itoa(len(args))
		}
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := itoa(len(args))
		q += ` AND (title ILIKE $` + n + ` OR content ILIKE $` + n + `)`
	}
	if filter.Cursor != "" {
		cur, err := note.DecodeCursor(filter.Cursor)
		if err != nil {
			return note.Page{}, err
		}
		args = append(args, cur.CreatedAt)
		tsArg := itoa(len(args))
		args = append(args, cur.ID)
		q += ` AND (created_at, id) < ($` + tsArg + `, $` + itoa(len(args)) + `)`
	}

	// fetch one extra row to know whether a next page exists
	args = append(args, filter.Limit+1)
	q += ` ORDER BY created_at DESC, id DESC LIMIT $` + itoa(len(args))

	var rows []noteRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return note.Page{}, errors.Wrap(err, "querying notes")
	}

	page := note.Page{Notes: make([]note.Note, 0, len(rows))}
	for i, r := range rows {
		if i == filter.Limit {
			last := rows[i-1]
			page.NextCursor = note.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
			break
		}
		page.Notes = append(page.Notes, repo.unpack(r))
	}
	return page, nil
}

func (repo noteRepository) UpdateNote(ctx context.Context, n note.Note) (note.Note, error) {
	r := repo.pack(n)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE note SET title = :title, content = :content, folder_id = :folder_id, updated_at = :updated_at
		WHERE owner_id = :owner_id AND id = :id`, r)
	if err != nil {
		return note.Note{}, errors.Wrap(err, "updating note")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return note.Note{}, note.ErrNotFound
	}
	return repo.unpack(r), nil
}

func (repo noteRepository) SetNoteFolder(ctx context.Context, ownerID, id string, folderID *string) (note.Note, error) {
	n, err := repo.GetNote(ctx, ownerID, id)
	if err != nil {
		return note.Note{}, err
	}
	n.FolderID = folderID
	n.UpdatedAt = time.Now().UTC()
	return repo.UpdateNote(ctx, n)
}

func (repo noteRepository) DeleteNote(ctx context.Context, ownerID, id string) error {
	if _, err := repo.GetNote(ctx, ownerID, id); err != nil {
		return err
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM note WHERE owner_id = $1 AND id = $2`, ownerID, id)
	return errors.Wrap(err, "deleting note")
}
