package folder

import (
	"context"
	"fmt"

	"github.com/chatgpa/backend/core"
)

// maxCrumbHops caps the parent walk independently of cycle detection.
// Existing clients depend on the exact value; do not change it.
const maxCrumbHops = 20

// Getter fetches one folder by id.
type Getter func(ctx context.Context, id string) (Folder, error)

// Breadcrumbs returns the path from the owning class down to folderID as
// `{id, name}` crumbs, class first.
//
// The walk keeps a visited set: revisiting an id means the parent chain is
// circular, so it stops and returns the partial path collected so far —
// logged server-side, never surfaced as an error. A hard cap of maxCrumbHops
// hops applies regardless.
func Breadcrumbs(
	ctx context.Context,
	classID, className, folderID string,
	get Getter,
	logger core.Logger,
) ([]Crumb, error) {
	crumbs := []Crumb{}
	visited := make(map[string]bool)

	id := folderID
	for hops := 0; id != "" && hops < maxCrumbHops; hops++ {
		if visited[id] {
			if logger != nil {
				logger.Warn(fmt.Sprintf("circular folder reference at %s; truncating breadcrumbs", id))
			}
			break
		}
		visited[id] = true

		f, err := get(ctx, id)
		if err != nil {
			return nil, err
		}
		crumbs = append([]Crumb{{ID: f.ID, Name: f.Name}}, crumbs...)

		if f.ParentID == nil {
			break
		}
		id = *f.ParentID
	}

	return append([]Crumb{{ID: classID, Name: className}}, crumbs...), nil
}
