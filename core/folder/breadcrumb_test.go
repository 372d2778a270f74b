package folder

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func crumbIDs(crumbs []Crumb) []string {
	ids := make([]string, len(crumbs))
	for i, c := range crumbs {
		ids[i] = c.ID
	}
	return ids
}

func getterFor(folders map[string]Folder) Getter {
	return func(ctx context.Context, id string) (Folder, error) {
		f, ok := folders[id]
		if !ok {
			return Folder{}, ErrNotFound
		}
		return f, nil
	}
}

func TestBreadcrumbs(t *testing.T) {
	ctx := context.Background()

	t.Run("class crumb first, then path root to leaf", func(t *testing.T) {
		get := getterFor(map[string]Folder{
			"root": {ID: "root", Name: "Biology"},
			"mid":  {ID: "mid", Name: "Cells", ParentID: strPtr("root")},
			"leaf": {ID: "leaf", Name: "Organelles", ParentID: strPtr("mid")},
		})

		crumbs, err := Breadcrumbs(ctx, "class1", "BIO 101", "leaf", get, nil)

		assert.Nil(t, err)
		assert.Equal(t, []string{"class1", "root", "mid", "leaf"}, crumbIDs(crumbs))
		assert.Equal(t, "BIO 101", crumbs[0].Name)
		assert.Equal(t, "Biology", crumbs[1].Name)
	})

	t.Run("empty folder id yields the class crumb only", func(t *testing.T) {
		crumbs, err := Breadcrumbs(ctx, "class1", "BIO 101", "", getterFor(nil), nil)

		assert.Nil(t, err)
		assert.Equal(t, []string{"class1"}, crumbIDs(crumbs))
	})

	t.Run("getter error propagates", func(t *testing.T) {
		crumbs, err := Breadcrumbs(ctx, "class1", "BIO 101", "missing", getterFor(nil), nil)

		assert.Nil(t, crumbs)
		assert.Equal(t, ErrNotFound, errors.Cause(err))
	})

	t.Run("cycle returns the partial path", func(t *testing.T) {
		get := getterFor(map[string]Folder{
			"a": {ID: "a", Name: "A", ParentID: strPtr("b")},
			"b": {ID: "b", Name: "B", ParentID: strPtr("a")},
		})

		crumbs, err := Breadcrumbs(ctx, "class1", "BIO 101", "a", get, nil)

		assert.Nil(t, err)
		assert.Equal(t, []string{"class1", "b", "a"}, crumbIDs(crumbs))
	})

	t.Run("hop cap bounds deep chains", func(t *testing.T) {
		folders := make(map[string]Folder, 30)
		for i := 0; i < 30; i++ {
			f := Folder{ID: fmt.Sprintf("f%d", i), Name: fmt.Sprintf("F%d", i)}
			if i > 0 {
				f.ParentID = strPtr(fmt.Sprintf("f%d", i-1))
			}
			folders[f.ID] = f
		}

		crumbs, err := Breadcrumbs(ctx, "class1", "BIO 101", "f29", getterFor(folders), nil)

		assert.Nil(t, err)
		assert.Len(t, crumbs, 21) // class crumb plus capped folder walk
		assert.Equal(t, "f10", crumbs[1].ID)
		assert.Equal(t, "f29", crumbs[20].ID)
	})
}
