package controller

import (
	"errors"
	"net/http"

	"lingua_lms_backend/internal/model"
	"lingua_lms_backend/internal/repository"
	"lingua_lms_backend/internal/service"
	"lingua_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GenerationController struct {
	Generation *service.GenerationService
	Notebooks  *service.NotebookService
}

func NewGenerationController(generation *service.GenerationService, notebooks *service.NotebookService) *GenerationController {
	return &GenerationController{Generation: generation, Notebooks: notebooks}
}

type TriggerRequest struct {
	Kind model.GenerationKind `json:"kind" binding:"required,oneof=metadata quiz summary"`
}

// Trigger godoc
// @Summary Trigger content generation for a notebook
// @Description Guarded by an hourly idempotency window: concurrent and
// @Description repeated triggers within the window run the engine once.
// @Tags generation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Param body body TriggerRequest true "generation kind"
// @Success 200 {object} util.Response{data=model.GenerationJob}
// @Failure 409 {object} util.Response
// @Router /api/notebooks/{id}/generate [post]
func (c *GenerationController) Trigger(ctx *gin.Context) {
	var req TriggerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	notebookID := ctx.Param("id")
	if _, err := c.Notebooks.GetNotebook(ctx.Request.Context(), claims.UserID, notebookID); err != nil {
		notebookError(ctx, err)
		return
	}

	job, err := c.Generation.Trigger(ctx.Request.Context(), notebookID, req.Kind)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrGenerationInFlight):
			util.Error(ctx, http.StatusConflict, "generation already in progress")
		case errors.Is(err, repository.ErrGenerationDone):
			util.Error(ctx, http.StatusConflict, "generation already completed for this window")
		case errors.Is(err, util.ErrWorkflowNotReady):
			util.Error(ctx, http.StatusServiceUnavailable, "workflow engine not configured")
		default:
			util.Error(ctx, http.StatusBadGateway, "generation failed: "+err.Error())
		}
		return
	}
	util.Success(ctx, job)
}

// ListJobs godoc
// @Summary Generation claims recorded for a notebook, newest first
// @Tags generation
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Success 200 {object} util.Response{data=[]model.GenerationJob}
// @Router /api/notebooks/{id}/generations [get]
func (c *GenerationController) ListJobs(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	notebookID := ctx.Param("id")
	if _, err := c.Notebooks.GetNotebook(ctx.Request.Context(), claims.UserID, notebookID); err != nil {
		notebookError(ctx, err)
		return
	}
	jobs, err := c.Generation.ListJobs(ctx.Request.Context(), notebookID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, jobs)
}
