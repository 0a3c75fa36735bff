package controller

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lingua_lms_backend/internal/model"
	"lingua_lms_backend/internal/service"
	"lingua_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type NotebookController struct {
	Notebooks *service.NotebookService
	Storage   *service.StorageService
}

func NewNotebookController(notebooks *service.NotebookService, storage *service.StorageService) *NotebookController {
	return &NotebookController{Notebooks: notebooks, Storage: storage}
}

func notebookError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrNotebookNotFound),
		errors.Is(err, util.ErrSourceNotFound),
		errors.Is(err, util.ErrNoteNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrNotOwner):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}

// ListNotebooks godoc
// @Summary The caller's notebooks, ordered by week
// @Tags notebooks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Notebook}
// @Router /api/notebooks [get]
func (c *NotebookController) ListNotebooks(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	rows, err := c.Notebooks.ListNotebooks(ctx.Request.Context(), claims.UserID)
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// GetNotebook godoc
// @Summary One notebook with its sources
// @Tags notebooks
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Success 200 {object} util.Response{data=model.Notebook}
// @Failure 404 {object} util.Response
// @Router /api/notebooks/{id} [get]
func (c *NotebookController) GetNotebook(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	nb, err := c.Notebooks.GetNotebook(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Success(ctx, nb)
}

// CreateNotebook godoc
// @Summary Create a weekly notebook
// @Tags notebooks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.NotebookInput true "notebook"
// @Success 201 {object} util.Response{data=model.Notebook}
// @Router /api/notebooks [post]
func (c *NotebookController) CreateNotebook(ctx *gin.Context) {
	var req service.NotebookInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	nb, err := c.Notebooks.CreateNotebook(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Created(ctx, nb)
}

// UpdateNotebook godoc
// @Summary Patch notebook fields
// @Tags notebooks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Param body body service.NotebookPatch true "fields to change"
// @Success 200 {object} util.Response{data=model.Notebook}
// @Failure 404 {object} util.Response
// @Router /api/notebooks/{id} [put]
func (c *NotebookController) UpdateNotebook(ctx *gin.Context) {
	var req service.NotebookPatch
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	nb, err := c.Notebooks.UpdateNotebook(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req)
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Success(ctx, nb)
}

// DeleteNotebook godoc
// @Summary Delete a notebook and everything nested under it
// @Tags notebooks
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/notebooks/{id} [delete]
func (c *NotebookController) DeleteNotebook(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.Notebooks.DeleteNotebook(ctx.Request.Context(), claims.UserID, ctx.Param("id")); err != nil {
		notebookError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// ListSources godoc
// @Summary Notebook sources, newest first
// @Tags sources
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Success 200 {object} util.Response{data=[]model.Source}
// @Router /api/notebooks/{id}/sources [get]
func (c *NotebookController) ListSources(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	rows, err := c.Notebooks.ListSources(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// AddSource godoc
// @Summary Register a URL-backed source (website, youtube)
// @Tags sources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Param body body service.SourceInput true "source"
// @Success 201 {object} util.Response{data=model.Source}
// @Router /api/notebooks/{id}/sources [post]
func (c *NotebookController) AddSource(ctx *gin.Context) {
	var req service.SourceInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	src, err := c.Notebooks.AddSource(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req, "", 0)
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Created(ctx, src)
}

// UploadSource godoc
// @Summary Upload a file-backed source (pdf, audio, document)
// @Description Audio uploads get their duration probed so notebooks can
// @Description show listening time.
// @Tags sources
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Param file formData file true "source file"
// @Param type formData string true "source type"
// @Param title formData string true "display title"
// @Success 201 {object} util.Response{data=model.Source}
// @Router /api/notebooks/{id}/sources/upload [post]
func (c *NotebookController) UploadSource(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	notebookID := ctx.Param("id")

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	srcType := model.SourceType(ctx.PostForm("type"))
	title := ctx.PostForm("title")
	if title == "" {
		title = fileHeader.Filename
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	allowed := []string{util.MimeAudio, util.MimePDF, util.MimeText, util.MimeOctetStream}
	mimeType, err := util.ValidateMimeType(file, allowed)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	// Stage the upload locally so audio can be probed before it moves to
	// the configured provider.
	tmpPath := filepath.Join(os.TempDir(), uuid.New().String()+filepath.Ext(fileHeader.Filename))
	if err := ctx.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer os.Remove(tmpPath)

	duration := 0
	if util.IsAudio(mimeType) {
		if info, err := util.ProbeMedia(tmpPath); err == nil {
			duration = info.DurationSeconds
		}
	}

	objectName := fmt.Sprintf("sources/%s/%d%s", notebookID, time.Now().UnixNano(), filepath.Ext(fileHeader.Filename))
	url, err := c.Storage.UploadFile(ctx.Request.Context(), objectName, tmpPath, mimeType)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	src, err := c.Notebooks.AddSource(ctx.Request.Context(), claims.UserID, notebookID, service.SourceInput{
		Type:  srcType,
		Title: title,
		URL:   url,
	}, objectName, duration)
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Created(ctx, src)
}

// UpdateSource godoc
// @Summary Edit a source's title or URL
// @Tags sources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Param sourceId path string true "source id"
// @Param body body service.SourcePatch true "fields to change"
// @Success 200 {object} util.Response{data=model.Source}
// @Failure 404 {object} util.Response
// @Router /api/notebooks/{id}/sources/{sourceId} [put]
func (c *NotebookController) UpdateSource(ctx *gin.Context) {
	var patch service.SourcePatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	src, err := c.Notebooks.UpdateSource(ctx.Request.Context(), claims.UserID, ctx.Param("id"), ctx.Param("sourceId"), patch)
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Success(ctx, src)
}

// DeleteSource godoc
// @Summary Delete a source
// @Tags sources
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Param sourceId path string true "source id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/notebooks/{id}/sources/{sourceId} [delete]
func (c *NotebookController) DeleteSource(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.Notebooks.DeleteSource(ctx.Request.Context(), claims.UserID, ctx.Param("id"), ctx.Param("sourceId")); err != nil {
		notebookError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// ListNotes godoc
// @Summary Notebook notes, newest first
// @Tags notes
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Success 200 {object} util.Response{data=[]model.Note}
// @Router /api/notebooks/{id}/notes [get]
func (c *NotebookController) ListNotes(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	rows, err := c.Notebooks.ListNotes(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// CreateNote godoc
// @Summary Create a note
// @Tags notes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Param body body service.NoteInput true "note"
// @Success 201 {object} util.Response{data=model.Note}
// @Router /api/notebooks/{id}/notes [post]
func (c *NotebookController) CreateNote(ctx *gin.Context) {
	var req service.NoteInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	note, err := c.Notebooks.CreateNote(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req)
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Created(ctx, note)
}

// UpdateNote godoc
// @Summary Replace a note's title and content
// @Tags notes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Param noteId path string true "note id"
// @Param body body service.NoteInput true "note"
// @Success 200 {object} util.Response{data=model.Note}
// @Failure 404 {object} util.Response
// @Router /api/notebooks/{id}/notes/{noteId} [put]
func (c *NotebookController) UpdateNote(ctx *gin.Context) {
	var req service.NoteInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	note, err := c.Notebooks.UpdateNote(ctx.Request.Context(), claims.UserID, ctx.Param("id"), ctx.Param("noteId"), req)
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Success(ctx, note)
}

// DeleteNote godoc
// @Summary Delete a note
// @Tags notes
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Param noteId path string true "note id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/notebooks/{id}/notes/{noteId} [delete]
func (c *NotebookController) DeleteNote(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.Notebooks.DeleteNote(ctx.Request.Context(), claims.UserID, ctx.Param("id"), ctx.Param("noteId")); err != nil {
		notebookError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}
