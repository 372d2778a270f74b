package folder

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("folder not found")
	ErrNotEmpty = errors.New("folder is not empty")
	ErrCycle    = errors.New("folder move would create a cycle")
)

type Folder struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	ClassID   string    `json:"class_id"`
	ParentID  *string   `json:"parent_id"`
	Name      string    `json:"name"`
	SortIndex int       `json:"sort_index"`
	NoteCount int       `json:"note_count"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Node is a folder with its assembled subtree.
type Node struct {
	Folder
	Children []*Node `json:"children,omitempty"`
}

// Crumb is one step of a breadcrumb path.
type Crumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type NewFolder struct {
	ClassID   string  `json:"class_id" validate:"required"`
	ParentID  *string `json:"parent_id"`
	Name      string  `json:"name" validate:"required"`
	SortIndex int     `json:"sort_index"`
}

type RenameFolder struct {
	Name string `json:"name" validate:"required"`
}

type MoveFolder struct {
	ParentID *string `json:"parent_id"`
}

type ReorderFolder struct {
	SortIndex int `json:"sort_index"`
}

// IntegrityStats summarizes folder-tree health across the whole store.
type IntegrityStats struct {
	FolderCount          int     `json:"folder_count"`
	AverageDepth         float64 `json:"average_depth"`
	DuplicateMappings    int     `json:"duplicate_mappings"`
	PercentUncategorized float64 `json:"percent_uncategorized"`
	OrphanCount          int     `json:"orphan_count"`
}
