package controller

import (
	"lingua_lms_backend/internal/service"
	"lingua_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	Chat *service.ChatService
}

func NewChatController(chat *service.ChatService) *ChatController {
	return &ChatController{Chat: chat}
}

// History godoc
// @Summary Notebook chat transcript in send order
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Success 200 {object} util.Response{data=[]model.ChatMessage}
// @Failure 404 {object} util.Response
// @Router /api/notebooks/{id}/chat [get]
func (c *ChatController) History(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	rows, err := c.Chat.History(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// Send godoc
// @Summary Send a chat message
// @Description The message is persisted immediately; the AI reply arrives
// @Description later through the change feed.
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "notebook id"
// @Param body body SendMessageRequest true "message"
// @Success 201 {object} util.Response{data=model.ChatMessage}
// @Failure 404 {object} util.Response
// @Router /api/notebooks/{id}/chat [post]
func (c *ChatController) Send(ctx *gin.Context) {
	var req SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	msg, err := c.Chat.SendMessage(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req.Content)
	if err != nil {
		notebookError(ctx, err)
		return
	}
	util.Created(ctx, msg)
}
