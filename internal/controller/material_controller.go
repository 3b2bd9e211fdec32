package controller

import (
	"io"
	"net/http"
	"strings"

	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MaterialController struct {
	MaterialService *service.MaterialService
}

func NewMaterialController(materialService *service.MaterialService) *MaterialController {
	return &MaterialController{MaterialService: materialService}
}

// @Summary 上传学习资料
// @Description multipart 表单上传 file 字段，或以 JSON 提交 content 文本
// @Tags 学习资料
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param title formData string true "标题"
// @Param subject formData string false "学科"
// @Param type formData string false "类型 notes/textbook/lecture/article"
// @Param file formData file false "文本文件"
// @Success 201 {object} util.Response{data=model.StudyMaterial}
// @Router /materials [post]
func (c *MaterialController) Upload(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.UploadMaterialRequest
	var content []byte

	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, util.MaxMaterialSize+1<<20)
		if err := ctx.ShouldBind(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			util.BadRequest(ctx, "file is required")
			return
		}
		if fileHeader.Size > util.MaxMaterialSize {
			util.BadRequest(ctx, "file exceeds 5MB")
			return
		}
		f, err := fileHeader.Open()
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		defer f.Close()
		content, err = io.ReadAll(io.LimitReader(f, util.MaxMaterialSize+1))
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
	} else {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		content = []byte(req.Content)
	}

	material, err := c.MaterialService.Upload(ctx.Request.Context(), user.UserID, req, content)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, material)
}

// @Summary 学习资料列表
// @Tags 学习资料
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.StudyMaterial}
// @Router /materials [get]
func (c *MaterialController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	materials, err := c.MaterialService.List(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, materials)
}

// @Summary 学习资料详情
// @Tags 学习资料
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "资料ID"
// @Success 200 {object} util.Response{data=service.MaterialDetail}
// @Router /materials/{id} [get]
func (c *MaterialController) Get(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.MaterialService.Get(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// @Summary 删除学习资料
// @Tags 学习资料
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "资料ID"
// @Success 200 {object} util.Response
// @Router /materials/{id} [delete]
func (c *MaterialController) Delete(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.MaterialService.Delete(ctx.Request.Context(), user.UserID, ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
