package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MaterialService struct {
	Repo    *repository.MaterialRepository
	Storage *StorageService
}

func NewMaterialService(repo *repository.MaterialRepository, storage *StorageService) *MaterialService {
	return &MaterialService{Repo: repo, Storage: storage}
}

type UploadMaterialRequest struct {
	Title   string             `json:"title" form:"title"`
	Subject string             `json:"subject" form:"subject"`
	Type    model.MaterialType `json:"type" form:"type"`
	Tags    []string           `json:"tags" form:"tags"`
	Content string             `json:"content" form:"content"`
}

type MaterialDetail struct {
	model.StudyMaterial
	Content string `json:"content"`
}

func validMaterialType(t model.MaterialType) bool {
	switch t {
	case model.MaterialNotes, model.MaterialTextbook, model.MaterialLecture, model.MaterialArticle:
		return true
	}
	return false
}

// Upload 校验文本内容后写入存储，再落元数据；元数据写入失败时清理已上传对象
func (s *MaterialService) Upload(ctx context.Context, userID string, req UploadMaterialRequest, content []byte) (*model.StudyMaterial, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, util.NewValidationError("title", "is required")
	}
	if req.Type == "" {
		req.Type = model.MaterialNotes
	}
	if !validMaterialType(req.Type) {
		return nil, util.NewValidationError("type", "unsupported material type %q", req.Type)
	}
	if len(content) == 0 {
		return nil, util.NewValidationError("content", "is empty")
	}
	if len(content) > util.MaxMaterialSize {
		return nil, util.NewValidationError("content", "exceeds %d bytes", util.MaxMaterialSize)
	}

	mimeType, err := util.ValidateMimeType(bytes.NewReader(content), []string{util.MimeText, util.MimeJSON})
	if err != nil {
		return nil, util.NewValidationError("content", "%v", err)
	}

	key := fmt.Sprintf("materials/%s/%s.txt", userID, uuid.New().String())
	url, err := s.Storage.Upload(ctx, key, bytes.NewReader(content), int64(len(content)), mimeType)
	if err != nil {
		return nil, err
	}

	if req.Tags == nil {
		req.Tags = []string{}
	}
	m := &model.StudyMaterial{
		UserID:     userID,
		Title:      strings.TrimSpace(req.Title),
		Subject:    req.Subject,
		Type:       req.Type,
		Tags:       req.Tags,
		ObjectKey:  key,
		ContentURL: url,
		Size:       int64(len(content)),
	}
	if err := s.Repo.Create(ctx, m); err != nil {
		if delErr := s.Storage.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("Failed to clean up orphan material object", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	return m, nil
}

func (s *MaterialService) List(ctx context.Context, userID string) ([]model.StudyMaterial, error) {
	return s.Repo.ListByUser(ctx, userID)
}

func (s *MaterialService) Get(ctx context.Context, userID, id string) (*MaterialDetail, error) {
	m, err := s.Repo.FindByIDAndUserID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	content, err := s.read(ctx, m.ObjectKey)
	if err != nil {
		return nil, err
	}
	return &MaterialDetail{StudyMaterial: *m, Content: content}, nil
}

// Content 仅返回正文，供测验生成使用
func (s *MaterialService) Content(ctx context.Context, userID, id string) (string, error) {
	m, err := s.Repo.FindByIDAndUserID(ctx, id, userID)
	if err != nil {
		return "", err
	}
	return s.read(ctx, m.ObjectKey)
}

func (s *MaterialService) Delete(ctx context.Context, userID, id string) error {
	m, err := s.Repo.FindByIDAndUserID(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id, userID); err != nil {
		return err
	}
	if err := s.Storage.Delete(ctx, m.ObjectKey); err != nil {
		logger.Log.Warn("Failed to delete material object", zap.String("key", m.ObjectKey), zap.Error(err))
	}
	return nil
}

func (s *MaterialService) read(ctx context.Context, key string) (string, error) {
	rc, err := s.Storage.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, util.MaxMaterialSize+1))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
