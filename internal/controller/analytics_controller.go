package controller

import (
	"strconv"

	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService}
}

// @Summary 获取学习分析面板
// @Description 统计、最近 7 天活跃度、成绩趋势、主题分布与成就
// @Tags 分析
// @Produce json
// @Security ApiKeyAuth
// @Param history query int false "成绩趋势点数"
// @Success 200 {object} util.Response{data=model.Dashboard}
// @Router /analytics/dashboard [get]
func (c *AnalyticsController) GetDashboard(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	history := 0
	if raw := ctx.Query("history"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			util.BadRequest(ctx, "history must be a positive integer")
			return
		}
		history = n
	}

	dashboard, err := c.AnalyticsService.GetDashboard(ctx.Request.Context(), user.UserID, history)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}

// @Summary 获取主题掌握度
// @Description 按全部测验题目聚合的各主题正确率
// @Tags 分析
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.TopicMasterySummary}
// @Router /analytics/topics [get]
func (c *AnalyticsController) GetTopics(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	summaries, err := c.AnalyticsService.GetTopicSummaries(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, summaries)
}
