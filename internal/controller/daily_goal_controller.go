package controller

import (
	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DailyGoalController struct {
	DailyGoalService *service.DailyGoalService
}

func NewDailyGoalController(dailyGoalService *service.DailyGoalService) *DailyGoalController {
	return &DailyGoalController{DailyGoalService: dailyGoalService}
}

// @Summary 获取每日目标
// @Tags 每日目标
// @Produce json
// @Security ApiKeyAuth
// @Param date path string true "日期 yyyy-mm-dd"
// @Success 200 {object} util.Response{data=model.DailyGoal}
// @Failure 404 {object} util.Response
// @Router /daily-goals/{date} [get]
func (c *DailyGoalController) GetDailyGoal(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	goal, err := c.DailyGoalService.GetDailyGoal(ctx.Request.Context(), user.UserID, ctx.Param("date"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, goal)
}

// @Summary 设置每日目标
// @Description 覆盖目标值，当天已累计的学习时长与测验数保留
// @Tags 每日目标
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param date path string true "日期 yyyy-mm-dd"
// @Param body body service.SaveDailyGoalRequest true "目标"
// @Success 200 {object} util.Response{data=model.DailyGoal}
// @Router /daily-goals/{date} [put]
func (c *DailyGoalController) SaveDailyGoal(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SaveDailyGoalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	goal, err := c.DailyGoalService.SaveDailyGoal(ctx.Request.Context(), user.UserID, ctx.Param("date"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, goal)
}
