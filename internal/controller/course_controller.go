package controller

import (
	"errors"
	"net/http"
	"time"

	"lingua_lms_backend/internal/coursestore"
	"lingua_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// CourseController exposes the document-backed course catalog. Every
// mutation reports whether the new state also reached persistent storage;
// an applied-but-unpersisted result is a success with a warning, not an
// error, because the in-memory state already changed.
type CourseController struct {
	Store *coursestore.Store
}

func NewCourseController(store *coursestore.Store) *CourseController {
	return &CourseController{Store: store}
}

// writeResult maps a store mutation error. A PersistError still carries a
// useful value: the mutation applied in memory.
func (c *CourseController) writeResult(ctx *gin.Context, data interface{}, err error) {
	if err == nil {
		util.Success(ctx, data)
		return
	}
	var pe *coursestore.PersistError
	if errors.As(err, &pe) {
		ctx.JSON(http.StatusOK, util.Response{
			Code:    http.StatusOK,
			Message: "applied but not persisted: " + pe.Err.Error(),
			Data:    data,
		})
		return
	}
	c.storeError(ctx, err)
}

func (c *CourseController) storeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, coursestore.ErrNotFound):
		util.NotFound(ctx)
	case errors.Is(err, coursestore.ErrStaleDocument):
		util.Conflict(ctx, "document changed since the imported version")
	case errors.Is(err, coursestore.ErrInvalidExam):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// ListCourses godoc
// @Summary All courses with the current document version
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	courses, err := c.Store.ListCourses()
	if err != nil {
		c.storeError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"version": c.Store.Version(),
		"courses": courses,
	})
}

// GetCourse godoc
// @Summary One course by id
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "course id"
// @Success 200 {object} util.Response{data=coursestore.Course}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	course, err := c.Store.GetCourse(ctx.Param("id"))
	if err != nil {
		c.storeError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

type CourseCreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Level       string `json:"level" binding:"required"`
	Description string `json:"description"`
}

// CreateCourse godoc
// @Summary Create a course
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CourseCreateRequest true "course"
// @Success 200 {object} util.Response{data=coursestore.Course}
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req CourseCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.Store.CreateCourse(coursestore.CourseInput{
		Title:       req.Title,
		Level:       req.Level,
		Description: req.Description,
	})
	c.writeResult(ctx, course, err)
}

type CourseUpdateRequest struct {
	Title         *string   `json:"title"`
	Level         *string   `json:"level"`
	Description   *string   `json:"description"`
	Published     *bool     `json:"published"`
	InstructorIDs *[]string `json:"instructorIds"`
}

// UpdateCourse godoc
// @Summary Patch course fields
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "course id"
// @Param body body CourseUpdateRequest true "fields to change"
// @Success 200 {object} util.Response{data=coursestore.Course}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	var req CourseUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.Store.UpdateCourse(ctx.Param("id"), coursestore.CoursePatch{
		Title:         req.Title,
		Level:         req.Level,
		Description:   req.Description,
		Published:     req.Published,
		InstructorIDs: req.InstructorIDs,
	})
	c.writeResult(ctx, course, err)
}

type WeekCreateRequest struct {
	Title string `json:"title" binding:"required"`
}

// AddWeek godoc
// @Summary Append a week; its number is always the next in sequence
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "course id"
// @Param body body WeekCreateRequest true "week"
// @Success 200 {object} util.Response{data=coursestore.Week}
// @Router /api/courses/{id}/weeks [post]
func (c *CourseController) AddWeek(ctx *gin.Context) {
	var req WeekCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	week, err := c.Store.AddWeek(ctx.Param("id"), req.Title)
	c.writeResult(ctx, week, err)
}

type WeekUpdateRequest struct {
	Title          *string    `json:"title"`
	StartDate      *time.Time `json:"startDate"`
	ClearStartDate bool       `json:"clearStartDate"`
}

// UpdateWeek godoc
// @Summary Patch a week's title or start date
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "course id"
// @Param weekId path string true "week id"
// @Param body body WeekUpdateRequest true "fields to change"
// @Success 200 {object} util.Response{data=coursestore.Week}
// @Router /api/courses/{id}/weeks/{weekId} [put]
func (c *CourseController) UpdateWeek(ctx *gin.Context) {
	var req WeekUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	week, err := c.Store.UpdateWeek(ctx.Param("id"), ctx.Param("weekId"), coursestore.WeekPatch{
		Title:          req.Title,
		StartDate:      req.StartDate,
		ClearStartDate: req.ClearStartDate,
	})
	c.writeResult(ctx, week, err)
}

// RemoveWeek godoc
// @Summary Remove a week; remaining weeks are renumbered 1..N
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "course id"
// @Param weekId path string true "week id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/courses/{id}/weeks/{weekId} [delete]
func (c *CourseController) RemoveWeek(ctx *gin.Context) {
	err := c.Store.RemoveWeek(ctx.Param("id"), ctx.Param("weekId"))
	c.writeResult(ctx, gin.H{"removed": true}, err)
}

type DayCreateRequest struct {
	Title string `json:"title" binding:"required"`
}

// AddDay godoc
// @Summary Add a day to a week
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "course id"
// @Param weekId path string true "week id"
// @Param body body DayCreateRequest true "day"
// @Success 200 {object} util.Response{data=coursestore.Day}
// @Router /api/courses/{id}/weeks/{weekId}/days [post]
func (c *CourseController) AddDay(ctx *gin.Context) {
	var req DayCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	day, err := c.Store.AddDay(ctx.Param("id"), ctx.Param("weekId"), req.Title)
	c.writeResult(ctx, day, err)
}

type DayRenameRequest struct {
	Title string `json:"title" binding:"required"`
}

// RenameDay godoc
// @Summary Rename a day
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "course id"
// @Param weekId path string true "week id"
// @Param dayId path string true "day id"
// @Param body body DayRenameRequest true "new title"
// @Success 200 {object} util.Response{data=coursestore.Day}
// @Router /api/courses/{id}/weeks/{weekId}/days/{dayId} [put]
func (c *CourseController) RenameDay(ctx *gin.Context) {
	var req DayRenameRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	day, err := c.Store.RenameDay(ctx.Param("id"), ctx.Param("weekId"), ctx.Param("dayId"), req.Title)
	c.writeResult(ctx, day, err)
}

// RemoveDay godoc
// @Summary Remove a day and its items
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "course id"
// @Param weekId path string true "week id"
// @Param dayId path string true "day id"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/weeks/{weekId}/days/{dayId} [delete]
func (c *CourseController) RemoveDay(ctx *gin.Context) {
	err := c.Store.RemoveDay(ctx.Param("id"), ctx.Param("weekId"), ctx.Param("dayId"))
	c.writeResult(ctx, gin.H{"removed": true}, err)
}

// itemLocation builds the week- or day-scoped target from the request.
// dayId in the body decides the variant; there is no field sniffing.
type ItemLocationRequest struct {
	WeekID string `json:"weekId" binding:"required"`
	DayID  string `json:"dayId"`
}

func (r ItemLocationRequest) location() coursestore.ItemLocation {
	if r.DayID != "" {
		return coursestore.DayLevel(r.WeekID, r.DayID)
	}
	return coursestore.WeekLevel(r.WeekID)
}

type ItemCreateRequest struct {
	ItemLocationRequest
	Type        coursestore.ItemType     `json:"type" binding:"required"`
	Title       string                   `json:"title" binding:"required"`
	Description string                   `json:"description"`
	URL         string                   `json:"url"`
	Duration    int                      `json:"duration"`
	Meeting     *coursestore.MeetingInfo `json:"meeting"`
}

// AddItem godoc
// @Summary Add a content item at week or day level
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "course id"
// @Param body body ItemCreateRequest true "item and target location"
// @Success 200 {object} util.Response{data=coursestore.ContentItem}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id}/items [post]
func (c *CourseController) AddItem(ctx *gin.Context) {
	var req ItemCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	item, err := c.Store.AddItem(ctx.Param("id"), req.location(), coursestore.ContentItem{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Duration:    req.Duration,
		Meeting:     req.Meeting,
	})
	c.writeResult(ctx, item, err)
}

type ItemUpdateRequest struct {
	ItemLocationRequest
	Type        *coursestore.ItemType    `json:"type"`
	Title       *string                  `json:"title"`
	Description *string                  `json:"description"`
	URL         *string                  `json:"url"`
	Duration    *int                     `json:"duration"`
	Hidden      *bool                    `json:"hidden"`
	Meeting     *coursestore.MeetingInfo `json:"meeting"`
}

// UpdateItem godoc
// @Summary Patch a content item
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "course id"
// @Param itemId path string true "item id"
// @Param body body ItemUpdateRequest true "fields to change and location"
// @Success 200 {object} util.Response{data=coursestore.ContentItem}
// @Router /api/courses/{id}/items/{itemId} [put]
func (c *CourseController) UpdateItem(ctx *gin.Context) {
	var req ItemUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	item, err := c.Store.UpdateItem(ctx.Param("id"), req.location(), ctx.Param("itemId"), coursestore.ItemPatch{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Duration:    req.Duration,
		Hidden:      req.Hidden,
		Meeting:     req.Meeting,
	})
	c.writeResult(ctx, item, err)
}

// RemoveItem godoc
// @Summary Remove a content item
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "course id"
// @Param itemId path string true "item id"
// @Param body body ItemLocationRequest true "location"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/items/{itemId}/remove [post]
func (c *CourseController) RemoveItem(ctx *gin.Context) {
	var req ItemLocationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	err := c.Store.RemoveItem(ctx.Param("id"), req.location(), ctx.Param("itemId"))
	c.writeResult(ctx, gin.H{"removed": true}, err)
}

type ImportRequest struct {
	BaseVersion int64                `json:"baseVersion"`
	Courses     []coursestore.Course `json:"courses" binding:"required"`
}

// ImportCourses godoc
// @Summary Replace the whole catalog from an export
// @Description Rejected with 409 when the document moved past baseVersion.
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ImportRequest true "exported catalog"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/courses/import [post]
func (c *CourseController) ImportCourses(ctx *gin.Context) {
	var req ImportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	err := c.Store.ImportCourses(req.Courses, req.BaseVersion)
	c.writeResult(ctx, gin.H{"version": c.Store.Version()}, err)
}

// Seed godoc
// @Summary Seed the catalog with the starter course when empty
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/courses/seed [post]
func (c *CourseController) Seed(ctx *gin.Context) {
	err := c.Store.InitializeWithSeed()
	c.writeResult(ctx, gin.H{"version": c.Store.Version()}, err)
}

// InstructorID godoc
// @Summary Stable per-installation instructor id
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/instructor-id [get]
func (c *CourseController) InstructorID(ctx *gin.Context) {
	id, err := c.Store.InstructorID()
	if err != nil {
		c.writeResult(ctx, gin.H{"instructorId": id}, err)
		return
	}
	util.Success(ctx, gin.H{"instructorId": id})
}

// ResolveRoute godoc
// @Summary Resolve an instructor dashboard hash fragment into a view
// @Tags courses
// @Produce json
// @Param hash query string true "location hash, e.g. #/dashboard/instructor/courses"
// @Success 200 {object} util.Response{data=coursestore.Route}
// @Router /api/route/resolve [get]
func (c *CourseController) ResolveRoute(ctx *gin.Context) {
	util.Success(ctx, coursestore.ParseInstructorHash(ctx.Query("hash")))
}
