package controller

import (
	"errors"

	"lingua_lms_backend/internal/coursestore"
	"lingua_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ExamController struct {
	Store *coursestore.Store
}

func NewExamController(store *coursestore.Store) *ExamController {
	return &ExamController{Store: store}
}

func (c *ExamController) examError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, coursestore.ErrNotFound):
		util.NotFound(ctx)
	case errors.Is(err, coursestore.ErrInvalidExam):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// ListExams godoc
// @Summary All exam documents
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]coursestore.Exam}
// @Router /api/exams [get]
func (c *ExamController) ListExams(ctx *gin.Context) {
	exams, err := c.Store.ListExams()
	if err != nil {
		c.examError(ctx, err)
		return
	}
	util.Success(ctx, exams)
}

// GetExam godoc
// @Summary One exam by id
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Success 200 {object} util.Response{data=coursestore.Exam}
// @Failure 404 {object} util.Response
// @Router /api/exams/{id} [get]
func (c *ExamController) GetExam(ctx *gin.Context) {
	exam, err := c.Store.GetExam(ctx.Param("id"))
	if err != nil {
		c.examError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// SaveExam godoc
// @Summary Create or replace an exam document
// @Description Answers always get the four fixed shape/color slots; an
// @Description auto-graded question must mark exactly one answer correct.
// @Tags exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body coursestore.Exam true "exam; empty id creates"
// @Success 200 {object} util.Response{data=coursestore.Exam}
// @Failure 400 {object} util.Response
// @Router /api/exams [post]
func (c *ExamController) SaveExam(ctx *gin.Context) {
	var exam coursestore.Exam
	if err := ctx.ShouldBindJSON(&exam); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	saved, err := c.Store.SaveExam(exam)
	if err != nil {
		c.examError(ctx, err)
		return
	}
	util.Success(ctx, saved)
}

// DeleteExam godoc
// @Summary Delete an exam
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/exams/{id} [delete]
func (c *ExamController) DeleteExam(ctx *gin.Context) {
	if err := c.Store.DeleteExam(ctx.Param("id")); err != nil {
		c.examError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}
