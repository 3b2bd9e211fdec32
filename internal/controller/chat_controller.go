package controller

import (
	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	ChatService *service.ChatService
}

func NewChatController(chatService *service.ChatService) *ChatController {
	return &ChatController{ChatService: chatService}
}

// @Summary 新建对话
// @Description 发送第一条消息并创建会话，生成失败时不创建
// @Tags 学习助手
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ChatMessageRequest true "消息"
// @Success 201 {object} util.Response{data=service.ChatReply}
// @Failure 502 {object} util.Response
// @Router /chat/sessions [post]
func (c *ChatController) StartSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ChatMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reply, err := c.ChatService.StartSession(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, reply)
}

// @Summary 继续对话
// @Tags 学习助手
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "会话ID"
// @Param body body service.ChatMessageRequest true "消息"
// @Success 200 {object} util.Response{data=service.ChatReply}
// @Failure 404 {object} util.Response
// @Failure 502 {object} util.Response
// @Router /chat/sessions/{sessionId}/messages [post]
func (c *ChatController) SendMessage(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ChatMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reply, err := c.ChatService.SendMessage(ctx.Request.Context(), user.UserID, ctx.Param("sessionId"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, reply)
}

// @Summary 会话列表
// @Tags 学习助手
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.ChatSession}
// @Router /chat/sessions [get]
func (c *ChatController) ListSessions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	sessions, err := c.ChatService.ListSessions(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sessions)
}

// @Summary 会话详情
// @Tags 学习助手
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response{data=model.ChatSession}
// @Failure 404 {object} util.Response
// @Router /chat/sessions/{sessionId} [get]
func (c *ChatController) GetSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	session, err := c.ChatService.GetSession(ctx.Request.Context(), user.UserID, ctx.Param("sessionId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// @Summary 修改会话标题或科目
// @Tags 学习助手
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "会话ID"
// @Param body body service.UpdateChatSessionRequest true "标题与科目"
// @Success 200 {object} util.Response{data=model.ChatSession}
// @Router /chat/sessions/{sessionId} [patch]
func (c *ChatController) UpdateSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.UpdateChatSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.ChatService.UpdateSession(ctx.Request.Context(), user.UserID, ctx.Param("sessionId"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, session)
}
