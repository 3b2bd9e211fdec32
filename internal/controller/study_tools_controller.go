package controller

import (
	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StudyToolsController struct {
	Tools *service.StudyToolsService
}

func NewStudyToolsController(tools *service.StudyToolsService) *StudyToolsController {
	return &StudyToolsController{Tools: tools}
}

// @Summary 生成闪卡
// @Tags 学习工具
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.FlashcardRequest true "资料或文本"
// @Success 200 {object} util.Response{data=[]model.Flashcard}
// @Failure 502 {object} util.Response
// @Router /tools/flashcards [post]
func (c *StudyToolsController) Flashcards(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.FlashcardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	cards, err := c.Tools.GenerateFlashcards(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cards)
}

// @Summary 生成摘要
// @Tags 学习工具
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.SummaryRequest true "资料或文本，length 为 short/medium/long"
// @Success 200 {object} util.Response{data=service.SummaryResult}
// @Router /tools/summarize [post]
func (c *StudyToolsController) Summarize(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SummaryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.Tools.Summarize(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 解释概念
// @Tags 学习工具
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ExplainRequest true "概念"
// @Success 200 {object} util.Response{data=service.ExplanationResult}
// @Router /tools/explain [post]
func (c *StudyToolsController) Explain(ctx *gin.Context) {
	var req service.ExplainRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.Tools.ExplainConcept(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 提取关键概念
// @Tags 学习工具
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ContentRequest true "资料或文本"
// @Success 200 {object} util.Response{data=[]string}
// @Router /tools/concepts [post]
func (c *StudyToolsController) Concepts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	concepts, err := c.Tools.ExtractKeyConcepts(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, concepts)
}
