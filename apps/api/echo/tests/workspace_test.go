package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/folder"
	"github.com/chatgpa/backend/core/note"
	testutil "github.com/chatgpa/backend/tests"
)

func Test_workspaceApi_folders(t *testing.T) {
	app, fix := setup(t)

	owner := core.Identity{ID: "user1", Email: "user1@test.cd"}
	intruder := core.Identity{ID: "user2", Email: "user2@test.cd"}
	ownerToken := getToken(t, fix.conf, owner)
	intruderToken := getToken(t, fix.conf, intruder)

	root := testutil.CreateFolder(t, fix.folderRepo, owner.ID, "bio101", "Cell Biology", nil, 0)
	child := testutil.CreateFolder(t, fix.folderRepo, owner.ID, "bio101", "Organelles", testutil.StrPtr(root.ID), 1)
	second := testutil.CreateFolder(t, fix.folderRepo, owner.ID, "bio101", "Genetics", nil, 2)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodGet, path: "/api/v1/workspace?action=flat&class_id=bio101",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Unknown action", method: http.MethodGet, path: "/api/v1/workspace?action=bogus", token: ownerToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Code: "unknown_action", Message: "unknown action"}),
		},
		{
			name: "Flat requires class_id", method: http.MethodGet, path: "/api/v1/workspace?action=flat", token: ownerToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Code: "validation_error", Message: map[string]string{"class_id": "this field is required"}}),
		},
		{
			name: "Flat", method: http.MethodGet, path: "/api/v1/workspace?action=flat&class_id=bio101", token: ownerToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{"folders": []folder.Folder{root, child, second}}),
		},
		{
			name: "Flat sees only own folders", method: http.MethodGet, path: "/api/v1/workspace?action=flat&class_id=bio101", token: intruderToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, map[string]interface{}{"folders": []folder.Folder{}}),
		},
		{
			name: "Get", method: http.MethodGet, path: "/api/v1/workspace?action=get&id=" + root.ID, token: ownerToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, root),
		},
		{
			name: "Get hides other users' folders", method: http.MethodGet, path: "/api/v1/workspace?action=get&id=" + root.ID, token: intruderToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Code: "not_found", Message: "not found"}),
		},
		{
			name: "Get missing", method: http.MethodGet, path: "/api/v1/workspace?action=get&id=nope", token: ownerToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Code: "not_found", Message: "folder not found"}),
		},
		{
			name: "Tree", method: http.MethodGet, path: "/api/v1/workspace?action=tree&class_id=bio101", token: ownerToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{"tree": []*folder.Node{
				{Folder: root, Children: []*folder.Node{{Folder: child}}},
				{Folder: second},
			}}),
		},
		{
			name: "Tree with max_depth", method: http.MethodGet, path: "/api/v1/workspace?action=tree&class_id=bio101&max_depth=1", token: ownerToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{"tree": []*folder.Node{
				{Folder: root},
				{Folder: second},
			}}),
		},
		{
			name: "Tree rejects non-integer max_depth", method: http.MethodGet,
			path: "/api/v1/workspace?action=tree&class_id=bio101&max_depth=lots", token: ownerToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Code: "validation_error", Message: map[string]string{"max_depth": "must be an integer"}}),
		},
		{
			name: "Breadcrumbs", method: http.MethodGet,
			path:     fmt.Sprintf("/api/v1/workspace?action=breadcrumbs&class_id=bio101&class_name=Biology&folder_id=%s", child.ID),
			token:    ownerToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{"breadcrumbs": []folder.Crumb{
				{ID: "bio101", Name: "Biology"},
				{ID: root.ID, Name: root.Name},
				{ID: child.ID, Name: child.Name},
			}}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Create", func(t *testing.T) {
		body := marchallObj(t, folder.NewFolder{ClassID: "bio101", Name: "  Midterm Prep ", SortIndex: 3})
		req, rec := newAuthRequest(http.MethodPost, "/api/v1/workspace?action=create", ownerToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var f folder.Folder
		assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &f))
		assert.NotEmpty(t, f.ID)
		assert.Equal(t, "Midterm Prep", f.Name)
		assert.Equal(t, 3, f.SortIndex)
	})

	t.Run("Create requires a name", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"class_id": "bio101"})
		req, rec := newAuthRequest(http.MethodPost, "/api/v1/workspace?action=create", ownerToken, body)
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Code: "validation_error", Message: map[string]string{"name": "this field is required"}}),
		}, rec)
	})

	t.Run("Rename", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"id": second.ID, "name": "Genetics II"})
		req, rec := newAuthRequest(http.MethodPatch, "/api/v1/workspace?action=rename", ownerToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var f folder.Folder
		assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &f))
		assert.Equal(t, "Genetics II", f.Name)
	})

	t.Run("Move under another folder", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"id": second.ID, "parent_id": root.ID})
		req, rec := newAuthRequest(http.MethodPatch, "/api/v1/workspace?action=move", ownerToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var f folder.Folder
		assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &f))
		if assert.NotNil(t, f.ParentID) {
			assert.Equal(t, root.ID, *f.ParentID)
		}
	})

	t.Run("Move refuses cycles", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"id": root.ID, "parent_id": child.ID})
		req, rec := newAuthRequest(http.MethodPatch, "/api/v1/workspace?action=move", ownerToken, body)
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Code: "validation_error", Message: map[string]string{"parent_id": "folder move would create a cycle"}}),
		}, rec)
	})

	t.Run("Reorder", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"id": child.ID, "sort_index": 7})
		req, rec := newAuthRequest(http.MethodPatch, "/api/v1/workspace?action=reorder", ownerToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var f folder.Folder
		assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &f))
		assert.Equal(t, 7, f.SortIndex)
	})

	t.Run("Delete refuses non-empty folders", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/v1/workspace?action=delete&id="+root.ID, ownerToken)
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Code: "folder_not_empty", Message: "folder is not empty"}),
		}, rec)
	})

	t.Run("Delete cascade removes the subtree", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/v1/workspace?action=delete&id="+root.ID+"&cascade=true", ownerToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/api/v1/workspace?action=get&id="+child.ID, ownerToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_workspaceApi_notes(t *testing.T) {
	app, fix := setup(t)

	owner := core.Identity{ID: "user1", Email: "user1@test.cd"}
	intruder := core.Identity{ID: "user2", Email: "user2@test.cd"}
	ownerToken := getToken(t, fix.conf, owner)
	intruderToken := getToken(t, fix.conf, intruder)

	fold := testutil.CreateFolder(t, fix.folderRepo, owner.ID, "bio101", "Cells", nil, 0)
	theirFolder := testutil.CreateFolder(t, fix.folderRepo, intruder.ID, "bio101", "Theirs", nil, 0)

	n1 := testutil.CreateNote(t, fix.noteRepo, owner.ID, "bio101", "Mitochondria", "The powerhouse of the cell.", nil)
	n2 := testutil.CreateNote(t, fix.noteRepo, owner.ID, "bio101", "Ribosomes", "Protein synthesis.", nil)
	n3 := testutil.CreateNote(t, fix.noteRepo, owner.ID, "bio101", "Golgi", "Packaging and shipping.", nil)

	tests := []httpTest{
		{
			name: "Get", method: http.MethodGet, path: "/api/v1/workspace?action=get_note&id=" + n1.ID, token: ownerToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, n1),
		},
		{
			name: "Get hides other users' notes", method: http.MethodGet, path: "/api/v1/workspace?action=get_note&id=" + n1.ID, token: intruderToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Code: "not_found", Message: "not found"}),
		},
		{
			name: "Get missing", method: http.MethodGet, path: "/api/v1/workspace?action=get_note&id=nope", token: ownerToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Code: "not_found", Message: "note not found"}),
		},
		{
			name: "Search", method: http.MethodGet, path: "/api/v1/workspace?action=notes&class_id=bio101&search=powerhouse", token: ownerToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, note.Page{Notes: []note.Note{n1}}),
		},
		{
			name: "Malformed cursor", method: http.MethodGet, path: "/api/v1/workspace?action=notes&cursor=%21%21%21", token: ownerToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Code: "validation_error", Message: map[string]string{"cursor": "malformed cursor"}}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("List pages by cursor", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/v1/workspace?action=notes&class_id=bio101&limit=2", ownerToken)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var first note.Page
		assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &first))
		assert.Len(t, first.Notes, 2)
		assert.NotEmpty(t, first.NextCursor)

		req, rec = newAuthRequest(http.MethodGet, "/api/v1/workspace?action=notes&class_id=bio101&limit=2&cursor="+first.NextCursor, ownerToken)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var second note.Page
		assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &second))
		assert.Len(t, second.Notes, 1)
		assert.Empty(t, second.NextCursor)

		seen := map[string]bool{}
		for _, n := range append(first.Notes, second.Notes...) {
			seen[n.ID] = true
		}
		assert.Len(t, seen, 3)
		for _, n := range []note.Note{n1, n2, n3} {
			assert.True(t, seen[n.ID], "note %s missing from pages", n.Title)
		}
	})

	t.Run("Create", func(t *testing.T) {
		body := marchallObj(t, note.NewNote{ClassID: "bio101", Title: " Krebs Cycle ", Content: "Citric acid cycle."})
		req, rec := newAuthRequest(http.MethodPost, "/api/v1/workspace?action=create_note", ownerToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var n note.Note
		assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &n))
		assert.NotEmpty(t, n.ID)
		assert.Equal(t, "Krebs Cycle", n.Title)
		assert.Nil(t, n.FolderID)
	})

	t.Run("Create requires class, title and content", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"title": "No class"})
		req, rec := newAuthRequest(http.MethodPost, "/api/v1/workspace?action=create_note", ownerToken, body)
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Code: "validation_error", Message: map[string]string{
				"class_id": "this field is required",
				"content":  "this field is required",
			}}),
		}, rec)
	})

	t.Run("Update", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"id": n2.ID, "title": "Ribosomes II"})
		req, rec := newAuthRequest(http.MethodPatch, "/api/v1/workspace?action=update_note", ownerToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var n note.Note
		assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &n))
		assert.Equal(t, "Ribosomes II", n.Title)
		assert.Equal(t, n2.Content, n.Content) // untouched
	})

	t.Run("Map to folder", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"note_id": n1.ID, "folder_id": fold.ID})
		req, rec := newAuthRequest(http.MethodPost, "/api/v1/workspace?action=map_note", ownerToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var n note.Note
		assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &n))
		if assert.NotNil(t, n.FolderID) {
			assert.Equal(t, fold.ID, *n.FolderID)
		}
	})

	t.Run("Map refuses other users' folders", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"note_id": n1.ID, "folder_id": theirFolder.ID})
		req, rec := newAuthRequest(http.MethodPost, "/api/v1/workspace?action=map_note", ownerToken, body)
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Code: "not_found", Message: "not found"}),
		}, rec)
	})

	t.Run("Unmap", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"note_id": n1.ID})
		req, rec := newAuthRequest(http.MethodPost, "/api/v1/workspace?action=unmap_note", ownerToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var n note.Note
		assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &n))
		assert.Nil(t, n.FolderID)
	})

	t.Run("Delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/v1/workspace?action=delete_note&id="+n3.ID, ownerToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/api/v1/workspace?action=get_note&id="+n3.ID, ownerToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
