package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/folder"
	"github.com/chatgpa/backend/core/note"
)

// workspaceApi is the `/api/v1/workspace` action gateway: folder CRUD and
// listings plus the notes that live in them.
type workspaceApi struct {
	noteSvc   *note.Service
	folderSvc *folder.Service
	validate  *validator.Validate
}

func registerWorkspaceAPI(g *echo.Group, metrics *routerMetrics, api workspaceApi) {
	mw := metrics.middleware("workspace")
	g.POST("/workspace", api.post, mw)
	g.GET("/workspace", api.get, mw)
	g.PATCH("/workspace", api.patch, mw)
	g.DELETE("/workspace", api.delete, mw)
}

func (api workspaceApi) post(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case "create":
		return api.createFolder(ctx)
	case "create_note":
		return api.createNote(ctx)
	case "map_note":
		return api.mapNote(ctx)
	case "unmap_note":
		return api.unmapNote(ctx)
	default:
		return errUnknownAction
	}
}

func (api workspaceApi) get(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case "tree":
		return api.tree(ctx)
	case "flat":
		return api.flat(ctx)
	case "get":
		return api.getFolder(ctx)
	case "breadcrumbs":
		return api.breadcrumbs(ctx)
	case "notes":
		return api.queryNotes(ctx)
	case "get_note":
		return api.getNote(ctx)
	default:
		return errUnknownAction
	}
}

func (api workspaceApi) patch(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case "rename":
		return api.renameFolder(ctx)
	case "move":
		return api.moveFolder(ctx)
	case "reorder":
		return api.reorderFolder(ctx)
	case "update_note":
		return api.updateNote(ctx)
	default:
		return errUnknownAction
	}
}

func (api workspaceApi) delete(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case "delete":
		return api.deleteFolder(ctx)
	case "delete_note":
		return api.deleteNote(ctx)
	default:
		return errUnknownAction
	}
}

// Folder handlers

func (api workspaceApi) createFolder(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data folder.NewFolder
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFolder")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	f, err := api.folderSvc.Create(ctx.Request().Context(), ident.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating folder")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api workspaceApi) getFolder(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	f, err := api.folderSvc.Get(ctx.Request().Context(), ident.ID, ctx.QueryParam("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api workspaceApi) tree(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	classID := ctx.QueryParam("class_id")
	if classID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "this field is required"})
	}
	var maxDepth int
	if raw := ctx.QueryParam("max_depth"); raw != "" {
		maxDepth, err = strconv.Atoi(raw)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "max_depth", Error: "must be an integer"})
		}
	}

	roots, err := api.folderSvc.Tree(ctx.Request().Context(), ident.ID, classID, maxDepth)
	if err != nil {
		return errors.Wrap(err, "assembling folder tree")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"tree": roots})
}

func (api workspaceApi) flat(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	classID := ctx.QueryParam("class_id")
	if classID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "this field is required"})
	}

	folders, err := api.folderSvc.Flat(ctx.Request().Context(), ident.ID, classID)
	if err != nil {
		return errors.Wrap(err, "listing folders")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"folders": folders})
}

func (api workspaceApi) breadcrumbs(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	classID := ctx.QueryParam("class_id")
	if classID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "this field is required"})
	}
	className := ctx.QueryParam("class_name")

	crumbs, err := api.folderSvc.Breadcrumbs(ctx.Request().Context(), ident.ID, classID, className, ctx.QueryParam("folder_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"breadcrumbs": crumbs})
}

func (api workspaceApi) renameFolder(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data struct {
		ID   string `json:"id" validate:"required"`
		Name string `json:"name" validate:"required"`
	}
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to rename request")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	f, err := api.folderSvc.Rename(ctx.Request().Context(), ident.ID, data.ID, folder.RenameFolder{Name: data.Name})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api workspaceApi) moveFolder(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data struct {
		ID       string  `json:"id" validate:"required"`
		ParentID *string `json:"parent_id"`
	}
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to move request")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	f, err := api.folderSvc.Move(ctx.Request().Context(), ident.ID, data.ID, folder.MoveFolder{ParentID: data.ParentID})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api workspaceApi) reorderFolder(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data struct {
		ID        string `json:"id" validate:"required"`
		SortIndex int    `json:"sort_index" validate:"min=0"`
	}
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to reorder request")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	f, err := api.folderSvc.Reorder(ctx.Request().Context(), ident.ID, data.ID, folder.ReorderFolder{SortIndex: data.SortIndex})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api workspaceApi) deleteFolder(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	id := ctx.QueryParam("id")
	if id == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "this field is required"})
	}
	cascade := ctx.QueryParam("cascade") == "true" || ctx.QueryParam("cascade") == "1"

	if err = api.folderSvc.Delete(ctx.Request().Context(), ident.ID, id, cascade); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Note handlers

func (api workspaceApi) createNote(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data note.NewNote
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNote")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	n, err := api.noteSvc.Create(ctx.Request().Context(), ident.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating note")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api workspaceApi) getNote(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	n, err := api.noteSvc.Get(ctx.Request().Context(), ident.ID, ctx.QueryParam("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api workspaceApi) queryNotes(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var filter note.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if filter.Cursor != "" {
		if _, err = note.DecodeCursor(filter.Cursor); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "cursor", Error: "malformed cursor"})
		}
	}

	page, err := api.noteSvc.Query(ctx.Request().Context(), ident.ID, filter)
	if err != nil {
		return errors.Wrap(err, "querying notes")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api workspaceApi) updateNote(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data struct {
		ID string `json:"id" validate:"required"`
		note.UpdateNote
	}
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateNote")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	n, err := api.noteSvc.Update(ctx.Request().Context(), ident.ID, data.ID, data.UpdateNote)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api workspaceApi) deleteNote(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	id := ctx.QueryParam("id")
	if id == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "this field is required"})
	}

	if err = api.noteSvc.Delete(ctx.Request().Context(), ident.ID, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api workspaceApi) mapNote(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data struct {
		NoteID   string `json:"note_id" validate:"required"`
		FolderID string `json:"folder_id" validate:"required"`
	}
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to map request")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	// the folder must exist and belong to the caller before mapping
	if _, err = api.folderSvc.Get(ctx.Request().Context(), ident.ID, data.FolderID); err != nil {
		return err
	}

	n, err := api.noteSvc.MapToFolder(ctx.Request().Context(), ident.ID, data.NoteID, &data.FolderID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api workspaceApi) unmapNote(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data struct {
		NoteID string `json:"note_id" validate:"required"`
	}
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to unmap request")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	n, err := api.noteSvc.MapToFolder(ctx.Request().Context(), ident.ID, data.NoteID, nil)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}
