package folder

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/chatgpa/backend/core"
)

type (
	Repository interface {
		CreateFolder(ctx context.Context, f Folder) (Folder, error)
		GetFolder(ctx context.Context, ownerID, id string) (Folder, error)
		// QueryFolders returns all folders of a class with NoteCount populated.
		QueryFolders(ctx context.Context, ownerID, classID string) ([]Folder, error)
		// UpdateFolder persists name, parent and sort index. A parent change
		// that would close a cycle is rejected by the database trigger and
		// surfaced as ErrCycle.
		UpdateFolder(ctx context.Context, f Folder) (Folder, error)
		// DeleteFolder removes a folder. With cascade the subtree and its note
		// mappings go with it (database cascade); without it a folder that
		// still has children or mapped notes fails with ErrNotEmpty.
		DeleteFolder(ctx context.Context, ownerID, id string, cascade bool) error
		// IntegrityCounts reports store-wide note mapping health:
		// total notes, uncategorized notes, and mappings pointing at a folder
		// of another class (or a missing one).
		IntegrityCounts(ctx context.Context) (total, uncategorized, duplicates int, err error)
		// AllFolders returns every folder in the store; health reporting only.
		AllFolders(ctx context.Context) ([]Folder, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) Create(ctx context.Context, ownerID string, nf NewFolder) (Folder, error) {
	now := time.Now().UTC()
	f := Folder{
		OwnerID:   ownerID,
		ClassID:   nf.ClassID,
		ParentID:  nf.ParentID,
		Name:      core.CleanString(nf.Name),
		SortIndex: nf.SortIndex,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateFolder(ctx, f)
}

func (svc *Service) Get(ctx context.Context, ownerID, id string) (Folder, error) {
	return svc.repo.GetFolder(ctx, ownerID, id)
}

func (svc *Service) Rename(ctx context.Context, ownerID, id string, rf RenameFolder) (Folder, error) {
	f, err := svc.repo.GetFolder(ctx, ownerID, id)
	if err != nil {
		return Folder{}, err
	}
	f.Name = core.CleanString(rf.Name)
	f.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateFolder(ctx, f)
}

// Move re-parents a folder. Cycles are refused by the database trigger and
// come back as a field validation error.
func (svc *Service) Move(ctx context.Context, ownerID, id string, mf MoveFolder) (Folder, error) {
	f, err := svc.repo.GetFolder(ctx, ownerID, id)
	if err != nil {
		return Folder{}, err
	}
	f.ParentID = mf.ParentID
	f.UpdatedAt = time.Now().UTC()

	f, err = svc.repo.UpdateFolder(ctx, f)
	if errors.Cause(err) == ErrCycle {
		return Folder{}, core.NewValidationError(err, core.FieldError{Field: "parent_id", Error: ErrCycle.Error()})
	}
	return f, err
}

func (svc *Service) Reorder(ctx context.Context, ownerID, id string, rf ReorderFolder) (Folder, error) {
	f, err := svc.repo.GetFolder(ctx, ownerID, id)
	if err != nil {
		return Folder{}, err
	}
	f.SortIndex = rf.SortIndex
	f.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateFolder(ctx, f)
}

func (svc *Service) Delete(ctx context.Context, ownerID, id string, cascade bool) error {
	return svc.repo.DeleteFolder(ctx, ownerID, id, cascade)
}

// Tree returns the class folders nested; maxDepth <= 0 means unlimited.
func (svc *Service) Tree(ctx context.Context, ownerID, classID string, maxDepth int) ([]*Node, error) {
	folders, err := svc.repo.QueryFolders(ctx, ownerID, classID)
	if err != nil {
		return nil, err
	}
	roots, orphans := BuildTree(folders, maxDepth)
	if len(orphans) > 0 && svc.logger != nil {
		svc.logger.Warn("orphaned folders promoted to root", map[string]interface{}{"ids": orphans})
	}
	return roots, nil
}

func (svc *Service) Flat(ctx context.Context, ownerID, classID string) ([]Folder, error) {
	return svc.repo.QueryFolders(ctx, ownerID, classID)
}

func (svc *Service) Breadcrumbs(ctx context.Context, ownerID, classID, className, folderID string) ([]Crumb, error) {
	get := func(ctx context.Context, id string) (Folder, error) {
		return svc.repo.GetFolder(ctx, ownerID, id)
	}
	return Breadcrumbs(ctx, classID, className, folderID, get, svc.logger)
}

// Integrity computes the folder health metrics reported by /api/health.
func (svc *Service) Integrity(ctx context.Context) (IntegrityStats, error) {
	folders, err := svc.repo.AllFolders(ctx)
	if err != nil {
		return IntegrityStats{}, errors.Wrap(err, "listing folders")
	}
	total, uncategorized, duplicates, err := svc.repo.IntegrityCounts(ctx)
	if err != nil {
		return IntegrityStats{}, errors.Wrap(err, "counting note mappings")
	}

	stats := IntegrityStats{
		FolderCount:       len(folders),
		DuplicateMappings: duplicates,
	}
	if len(folders) > 0 {
		depths := TreeDepths(folders)
		var sum int
		for _, d := range depths {
			sum += d
		}
		stats.AverageDepth = float64(sum) / float64(len(folders))
	}
	if total > 0 {
		stats.PercentUncategorized = 100 * float64(uncategorized) / float64(total)
	}
	_, orphans := BuildTree(folders, 0)
	stats.OrphanCount = len(orphans)
	return stats, nil
}
