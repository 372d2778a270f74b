package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/folder"
)

type folderRow struct {
	ID        string      `db:"id"`
	OwnerID   string      `db:"owner_id"`
	ClassID   string      `db:"class_id"`
	ParentID  null.String `db:"parent_id"`
	Name      string      `db:"name"`
	SortIndex int         `db:"sort_index"`
	NoteCount int         `db:"note_count"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type folderRepository struct {
	db *sqlx.DB
}

var _ folder.Repository = (*folderRepository)(nil) // interface compliance check

func NewFolderRepository(db *sqlx.DB) *folderRepository {
	return &folderRepository{db: db}
}

func (repo folderRepository) pack(f folder.Folder) folderRow {
	return folderRow{
		ID:        f.ID,
		OwnerID:   f.OwnerID,
		ClassID:   f.ClassID,
		ParentID:  null.StringFromPtr(f.ParentID),
		Name:      f.Name,
		SortIndex: f.SortIndex,
		CreatedAt: f.CreatedAt.UTC(),
		UpdatedAt: f.UpdatedAt.UTC(),
	}
}

func (repo folderRepository) unpack(r folderRow) folder.Folder {
	return folder.Folder{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		ClassID:   r.ClassID,
		ParentID:  r.ParentID.Ptr(),
		Name:      r.Name,
		SortIndex: r.SortIndex,
		NoteCount: r.NoteCount,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (repo folderRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return folder.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// trapCycleErr maps the folder_no_cycles trigger exception to folder.ErrCycle.
func (repo folderRepository) trapCycleErr(err error, msg string) error {
	if err != nil && strings.Contains(err.Error(), "folder cycle detected") {
		return folder.ErrCycle
	}
	return errors.Wrap(err, msg)
}

func (repo folderRepository) CreateFolder(ctx context.Context, f folder.Folder) (folder.Folder, error) {
	f.ID = uuid.New().String()
	r := repo.pack(f)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO folder (id, owner_id, class_id, parent_id, name, sort_index, created_at, updated_at)
		VALUES (:id, :owner_id, :class_id, :parent_id, :name, :sort_index, :created_at, :updated_at)`, r)
	if err != nil {
		return folder.Folder{}, repo.trapCycleErr(err, "inserting folder")
	}
	return repo.unpack(r), nil
}

func (repo folderRepository) GetFolder(ctx context.Context, ownerID, id string) (folder.Folder, error) {
	if _, err := uuid.Parse(id); err != nil {
		return folder.Folder{}, folder.ErrNotFound
	}
	var r folderRow
	err := repo.db.GetContext(ctx, &r, `
		SELECT f.*, (SELECT count(*) FROM note n WHERE n.folder_id = f.id) AS note_count
		FROM folder f WHERE f.id = $1`, id)
	if err != nil {
		return folder.Folder{}, repo.trapNoRowsErr(err, "finding folder by ID")
	}
	if r.OwnerID != ownerID {
		return folder.Folder{}, core.ErrOwnership
	}
	return repo.unpack(r), nil
}

func (repo folderRepository) QueryFolders(ctx context.Context, ownerID, classID string) ([]folder.Folder, error) {
	var rows []folderRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT f.*, (SELECT count(*) FROM note n WHERE n.folder_id = f.id) AS note_count
		FROM folder f WHERE f.owner_id = $1 AND f.class_id = $2
		ORDER BY f.sort_index, f.created_at`, ownerID, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying folders")
	}

	folders := make([]folder.Folder, 0, len(rows))
	for _, r := range rows {
		folders = append(folders, repo.unpack(r))
	}
	return folders, nil
}

func (repo folderRepository) UpdateFolder(ctx context.Context, f folder.Folder) (folder.Folder, error) {
	r := repo.pack(f)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE folder SET name = :name, parent_id = :parent_id, sort_index = :sort_index, updated_at = :updated_at
		WHERE owner_id = :owner_id AND id = :id`, r)
	if err != nil {
		return folder.Folder{}, repo.trapCycleErr(err, "updating folder")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return folder.Folder{}, folder.ErrNotFound
	}
	return repo.unpack(r), nil
}

func (repo folderRepository) DeleteFolder(ctx context.Context, ownerID, id string, cascade bool) error {
	if _, err := repo.GetFolder(ctx, ownerID, id); err != nil {
		return err
	}
	if !cascade {
		var busy bool
		err := repo.db.GetContext(ctx, &busy, `
			SELECT EXISTS (SELECT 1 FROM folder WHERE parent_id = $1)
			    OR EXISTS (SELECT 1 FROM note WHERE folder_id = $1)`, id)
		if err != nil {
			return errors.Wrap(err, "checking folder emptiness")
		}
		if busy {
			return folder.ErrNotEmpty
		}
	}

	// child folders cascade at the database level; note mappings null out
	_, err := repo.db.ExecContext(ctx, `DELETE FROM folder WHERE owner_id = $1 AND id = $2`, ownerID, id)
	return errors.Wrap(err, "deleting folder")
}

func (repo folderRepository) IntegrityCounts(ctx context.Context) (total, uncategorized, duplicates int, err error) {
	row := repo.db.QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE folder_id IS NULL),
		       count(*) FILTER (WHERE folder_id IS NOT NULL AND NOT EXISTS (
		           SELECT 1 FROM folder f WHERE f.id = note.folder_id AND f.class_id = note.class_id))
		FROM note`)
	if err = row.Scan(&total, &uncategorized, &duplicates); err != nil {
		return 0, 0, 0, errors.Wrap(err, "counting note mappings")
	}
	return total, uncategorized, duplicates, nil
}

func (repo folderRepository) AllFolders(ctx context.Context) ([]folder.Folder, error) {
	var rows []folderRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT f.*, 0 AS note_count FROM folder f ORDER BY f.created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "listing folders")
	}
	folders := make([]folder.Folder, 0, len(rows))
	for _, r := range rows {
		folders = append(folders, repo.unpack(r))
	}
	return folders, nil
}
