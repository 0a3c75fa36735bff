package controller

import (
	"lingua_lms_backend/internal/service"
	"lingua_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// MeetingController is a thin proxy: the provider credentials live in the
// meeting service and never reach the client.
type MeetingController struct {
	Meetings *service.MeetingService
}

func NewMeetingController(meetings *service.MeetingService) *MeetingController {
	return &MeetingController{Meetings: meetings}
}

// CreateMeeting godoc
// @Summary Create a live-session meeting at the provider
// @Tags meetings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.MeetingInput true "meeting"
// @Success 201 {object} util.Response{data=model.Meeting}
// @Failure 502 {object} util.Response
// @Router /api/meetings [post]
func (c *MeetingController) CreateMeeting(ctx *gin.Context) {
	if c.Meetings == nil {
		util.Error(ctx, 503, "meeting provider not configured")
		return
	}
	var req service.MeetingInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	meeting, err := c.Meetings.CreateMeeting(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.Error(ctx, 502, "meeting provider error: "+err.Error())
		return
	}
	util.Created(ctx, meeting)
}

// ListMeetings godoc
// @Summary Meetings scheduled for a course
// @Tags meetings
// @Produce json
// @Security BearerAuth
// @Param courseId query string true "course id"
// @Success 200 {object} util.Response{data=[]model.Meeting}
// @Router /api/meetings [get]
func (c *MeetingController) ListMeetings(ctx *gin.Context) {
	if c.Meetings == nil {
		util.Error(ctx, 503, "meeting provider not configured")
		return
	}
	courseID := ctx.Query("courseId")
	if courseID == "" {
		util.BadRequest(ctx, "courseId is required")
		return
	}
	meetings, err := c.Meetings.ListByCourse(ctx.Request.Context(), courseID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, meetings)
}
