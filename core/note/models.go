package note

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Note struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	ClassID   string    `json:"class_id"`
	FolderID  *string   `json:"folder_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Page is one cursor-paginated slice of notes.
type Page struct {
	Notes      []Note `json:"notes"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type NewNote struct {
	ClassID  string  `json:"class_id" validate:"required"`
	Title    string  `json:"title" validate:"required"`
	Content  string  `json:"content" validate:"required"`
	FolderID *string `json:"folder_id"`
}

type UpdateNote struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type QueryFilter struct {
	ClassID  string  `query:"class_id"`
	FolderID *string `query:"folder_id"`
	Search   string  `query:"search"`
	Cursor   string  `query:"cursor"`
	Limit    int     `query:"limit"`
}

// Clean normalizes the filter; Limit defaults to DefaultPageSize and is
// capped at MaxPageSize.
func (f *QueryFilter) Clean() {
	f.Search = strings.TrimSpace(f.Search)
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	} else if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
}

// Cursor is an opaque keyset position: (created_at, id) of the last row seen.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

func (c Cursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, errors.Wrap(err, "decoding cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return Cursor{}, errors.New("malformed cursor")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, errors.Wrap(err, fmt.Sprintf("parsing cursor timestamp %q", parts[0]))
	}
	return Cursor{CreatedAt: ts, ID: parts[1]}, nil
}
