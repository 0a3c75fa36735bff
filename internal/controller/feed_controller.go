package controller

import (
	"lingua_lms_backend/internal/service"
	"lingua_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FeedController struct {
	Hub *service.FeedHub
}

func NewFeedController(hub *service.FeedHub) *FeedController {
	return &FeedController{Hub: hub}
}

// Connect godoc
// @Summary Websocket subscription to the change feed
// @Description Clients receive notebook events for their own account and,
// @Description after sending SUBSCRIBE frames, nested row events for the
// @Description named notebooks.
// @Tags feed
// @Security BearerAuth
// @Success 101 "switching protocols"
// @Router /api/feed/ws [get]
func (c *FeedController) Connect(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, claims.UserID)
}
