package controller

import (
	"strconv"

	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RecommendationController struct {
	RecommendationService *service.RecommendationService
}

func NewRecommendationController(recommendationService *service.RecommendationService) *RecommendationController {
	return &RecommendationController{RecommendationService: recommendationService}
}

// @Summary 获取学习建议
// @Description 基于薄弱主题与最近学习主题生成建议，refresh=true 时忽略缓存重新生成
// @Tags 学习建议
// @Produce json
// @Security ApiKeyAuth
// @Param refresh query bool false "强制重新生成"
// @Success 200 {object} util.Response{data=service.RecommendationResult}
// @Failure 502 {object} util.Response
// @Router /recommendations [get]
func (c *RecommendationController) GetRecommendations(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	refresh, _ := strconv.ParseBool(ctx.DefaultQuery("refresh", "false"))

	result, err := c.RecommendationService.GetRecommendations(ctx.Request.Context(), user.UserID, refresh)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
