package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/folder"
)

type folderRepository struct {
	db    *folderTable
	notes *noteTable
}

var _ folder.Repository = (*folderRepository)(nil)

func NewFolderRepository(db *DB) *folderRepository {
	return &folderRepository{db: db.folder, notes: db.note}
}

func (r *folderRepository) noteCount(folderID string) int {
	r.notes.mutex.RLock()
	defer r.notes.mutex.RUnlock()

	var cnt int
	for _, n := range r.notes.t {
		if n.FolderID != nil && *n.FolderID == folderID {
			cnt++
		}
	}
	return cnt
}

// wouldCycle mirrors the database's folder_no_cycles trigger.
func (r *folderRepository) wouldCycle(id string, parentID *string) bool {
	seen := map[string]bool{id: true}
	for parentID != nil {
		if seen[*parentID] {
			return true
		}
		seen[*parentID] = true
		p, ok := r.db.t[*parentID]
		if !ok {
			return false
		}
		parentID = p.ParentID
	}
	return false
}

func (r *folderRepository) CreateFolder(_ context.Context, f folder.Folder) (folder.Folder, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	f.ID = uuid.New().String()
	if r.wouldCycle(f.ID, f.ParentID) {
		return folder.Folder{}, folder.ErrCycle
	}
	r.db.t[f.ID] = &f
	return f, nil
}

func (r *folderRepository) GetFolder(_ context.Context, ownerID, id string) (folder.Folder, error) {
	r.db.mutex.RLock()
	f, ok := r.db.t[id]
	r.db.mutex.RUnlock()

	if !ok {
		return folder.Folder{}, folder.ErrNotFound
	}
	if f.OwnerID != ownerID {
		return folder.Folder{}, core.ErrOwnership
	}
	out := *f
	out.NoteCount = r.noteCount(id)
	return out, nil
}

func (r *folderRepository) QueryFolders(_ context.Context, ownerID, classID string) ([]folder.Folder, error) {
	r.db.mutex.RLock()
	folders := make([]folder.Folder, 0, len(r.db.t))
	for _, f := range r.db.t {
		if f.OwnerID == ownerID && f.ClassID == classID {
			folders = append(folders, *f)
		}
	}
	r.db.mutex.RUnlock()

	for i := range folders {
		folders[i].NoteCount = r.noteCount(folders[i].ID)
	}
	sort.Slice(folders, func(i, j int) bool {
		return folders[i].SortIndex < folders[j].SortIndex
	})
	return folders, nil
}

func (r *folderRepository) UpdateFolder(_ context.Context, f folder.Folder) (folder.Folder, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	existing, ok := r.db.t[f.ID]
	if !ok {
		return folder.Folder{}, folder.ErrNotFound
	}
	if existing.OwnerID != f.OwnerID {
		return folder.Folder{}, core.ErrOwnership
	}
	if r.wouldCycle(f.ID, f.ParentID) {
		return folder.Folder{}, folder.ErrCycle
	}
	r.db.t[f.ID] = &f
	return f, nil
}

func (r *folderRepository) DeleteFolder(ctx context.Context, ownerID, id string, cascade bool) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	f, ok := r.db.t[id]
	if !ok {
		return folder.ErrNotFound
	}
	if f.OwnerID != ownerID {
		return core.ErrOwnership
	}

	var children []string
	for _, c := range r.db.t {
		if c.ParentID != nil && *c.ParentID == id {
			children = append(children, c.ID)
		}
	}
	if !cascade && (len(children) > 0 || r.noteCount(id) > 0) {
		return folder.ErrNotEmpty
	}

	delete(r.db.t, id)
	for _, child := range children {
		_ = r.DeleteFolderLocked(child)
	}

	// null out note mappings
	r.notes.mutex.Lock()
	for _, n := range r.notes.t {
		if n.FolderID != nil && *n.FolderID == id {
			n.FolderID = nil
		}
	}
	r.notes.mutex.Unlock()
	return nil
}

// DeleteFolderLocked removes a subtree; the caller must hold the write lock.
func (r *folderRepository) DeleteFolderLocked(id string) error {
	delete(r.db.t, id)
	for _, c := range r.db.t {
		if c.ParentID != nil && *c.ParentID == id {
			_ = r.DeleteFolderLocked(c.ID)
		}
	}
	return nil
}

func (r *folderRepository) IntegrityCounts(_ context.Context) (total, uncategorized, duplicates int, err error) {
	r.notes.mutex.RLock()
	defer r.notes.mutex.RUnlock()
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, n := range r.notes.t {
		total++
		if n.FolderID == nil {
			uncategorized++
			continue
		}
		f, ok := r.db.t[*n.FolderID]
		if !ok || f.ClassID != n.ClassID {
			duplicates++
		}
	}
	return total, uncategorized, duplicates, nil
}

func (r *folderRepository) AllFolders(_ context.Context) ([]folder.Folder, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	folders := make([]folder.Folder, 0, len(r.db.t))
	for _, f := range r.db.t {
		folders = append(folders, *f)
	}
	return folders, nil
}
