package controller

import (
	"fmt"
	"net/http"
	"time"

	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProgressController struct {
	ProgressService  *service.ProgressService
	AnalyticsService *service.AnalyticsService
}

func NewProgressController(progressService *service.ProgressService, analyticsService *service.AnalyticsService) *ProgressController {
	return &ProgressController{ProgressService: progressService, AnalyticsService: analyticsService}
}

// @Summary 获取学习进度
// @Description 返回用户的学习进度记录，首次访问时创建空记录
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.LearningProgress}
// @Router /progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	p, err := c.ProgressService.GetProgress(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// @Summary 提交测验作答
// @Description 服务端评分并把本次作答计入学习进度与当日目标
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Param body body service.SubmitAttemptRequest true "作答"
// @Success 201 {object} util.Response{data=service.SubmitAttemptResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /quizzes/{quizId}/attempts [post]
func (c *ProgressController) SubmitAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ProgressService.SubmitAttempt(ctx.Request.Context(), user.UserID, ctx.Param("quizId"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// @Summary 导出学习记录
// @Description 以 xlsx 格式导出作答记录与主题掌握度
// @Tags 学习进度
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Success 200 {file} file
// @Router /progress/export [get]
func (c *ProgressController) Export(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	buf, err := c.AnalyticsService.ExportWorkbook(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	filename := fmt.Sprintf("progress-%s.xlsx", time.Now().Format("20060102"))
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
