package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/progress"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/monitoring"
	"study_buddy_backend/pkg/tracing"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	RecentTopicCount = 5
	// staleFactor 过期后仍保留用于降级的时长倍数
	staleFactor = 4
	// generationTimeout 单次生成的上限，与发起请求的调用方生命周期无关
	generationTimeout = 60 * time.Second
	// DefaultMemoryCacheEntries 进程内缓存最多保存的用户数
	DefaultMemoryCacheEntries = 10000

	SourceGenerated = "generated"
	SourceCache     = "cache"
	SourceFallback  = "fallback"
	SourceEmpty     = "empty"
)

// CachedRecommendations 缓存条目，GeneratedAt 用于判断是否新鲜
type CachedRecommendations struct {
	Recommendations []model.StudyRecommendation `json:"recommendations"`
	GeneratedAt     time.Time                   `json:"generatedAt"`
}

type RecommendationCache interface {
	Get(ctx context.Context, userID string) (*CachedRecommendations, error)
	Set(ctx context.Context, userID string, entry CachedRecommendations, ttl time.Duration) error
}

// RedisRecommendationCache 未命中时 Get 返回 nil, nil
type RedisRecommendationCache struct {
	Client *redis.Client
}

func recommendationKey(userID string) string {
	return "study_buddy:recommendations:" + userID
}

func (c *RedisRecommendationCache) Get(ctx context.Context, userID string) (*CachedRecommendations, error) {
	raw, err := c.Client.Get(ctx, recommendationKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry CachedRecommendations
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *RedisRecommendationCache) Set(ctx context.Context, userID string, entry CachedRecommendations, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, recommendationKey(userID), raw, ttl).Err()
}

// MemoryRecommendationCache 未启用 Redis 时的进程内缓存，条目数有上限
type MemoryRecommendationCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
}

type memoryEntry struct {
	value     CachedRecommendations
	expiresAt time.Time
}

func NewMemoryRecommendationCache() *MemoryRecommendationCache {
	return &MemoryRecommendationCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: DefaultMemoryCacheEntries,
	}
}

func (c *MemoryRecommendationCache) Get(_ context.Context, userID string) (*CachedRecommendations, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[userID]
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, userID)
		return nil, nil
	}
	v := e.value
	return &v, nil
}

// Set 写满时先清理过期条目，仍然满则淘汰最早过期的条目
func (c *MemoryRecommendationCache) Set(_ context.Context, userID string, entry CachedRecommendations, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if _, exists := c.entries[userID]; !exists && len(c.entries) >= c.maxEntries {
		c.sweep(now)
		if len(c.entries) >= c.maxEntries {
			c.evictSoonest()
		}
	}
	c.entries[userID] = memoryEntry{value: entry, expiresAt: now.Add(ttl)}
	return nil
}

func (c *MemoryRecommendationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryRecommendationCache) sweep(now time.Time) {
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

func (c *MemoryRecommendationCache) evictSoonest() {
	var victim string
	var soonest time.Time
	for k, e := range c.entries {
		if victim == "" || e.expiresAt.Before(soonest) {
			victim, soonest = k, e.expiresAt
		}
	}
	delete(c.entries, victim)
}

type RecommendationResult struct {
	Recommendations []model.StudyRecommendation `json:"recommendations"`
	Source          string                      `json:"source"`
	GeneratedAt     *time.Time                  `json:"generatedAt,omitempty"`
}

type RecommendationService struct {
	ProgressRepo *repository.ProgressRepository
	Generator    StudyGenerator
	Cache        RecommendationCache

	ttl   atomic.Int64
	group singleflight.Group
	now   func() time.Time
}

func NewRecommendationService(progressRepo *repository.ProgressRepository, generator StudyGenerator, cache RecommendationCache, ttl time.Duration) *RecommendationService {
	if cache == nil {
		cache = NewMemoryRecommendationCache()
	}
	s := &RecommendationService{
		ProgressRepo: progressRepo,
		Generator:    generator,
		Cache:        cache,
		now:          time.Now,
	}
	s.SetTTL(ttl)
	return s
}

// SetTTL 热更新缓存新鲜期
func (s *RecommendationService) SetTTL(ttl time.Duration) {
	s.ttl.Store(int64(ttl))
}

// GetRecommendations 没有主题记录时返回空列表；缓存新鲜时直接返回，refresh 强制重新生成。
// 生成失败时返回缓存中的旧结果，没有缓存则返回上游错误。
func (s *RecommendationService) GetRecommendations(ctx context.Context, userID string, refresh bool) (*RecommendationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "RecommendationService.GetRecommendations")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.Bool("refresh", refresh))

	p, err := s.ProgressRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(p.Topics) == 0 {
		monitoring.RecommendationRequests.WithLabelValues(SourceEmpty).Inc()
		return &RecommendationResult{Recommendations: []model.StudyRecommendation{}, Source: SourceEmpty}, nil
	}

	ttl := time.Duration(s.ttl.Load())
	cached, cacheErr := s.Cache.Get(ctx, userID)
	if cacheErr != nil {
		logger.Log.Warn("Recommendation cache read failed", zap.String("user_id", userID), zap.Error(cacheErr))
	}
	if !refresh && cached != nil && s.now().Sub(cached.GeneratedAt) < ttl {
		monitoring.RecommendationRequests.WithLabelValues(SourceCache).Inc()
		return resultFrom(cached, SourceCache), nil
	}

	// 生成在独立的 context 中进行，首个调用方取消不会让同批等待者一起失败
	flight := s.group.DoChan(userID, func() (interface{}, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), generationTimeout)
		defer cancel()
		return s.generate(genCtx, userID, p, ttl)
	})
	var v interface{}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-flight:
		v, err = r.Val, r.Err
	}
	if err == nil {
		monitoring.RecommendationRequests.WithLabelValues(SourceGenerated).Inc()
		return resultFrom(v.(*CachedRecommendations), SourceGenerated), nil
	}

	span.RecordError(err)
	if cached != nil {
		logger.Log.Warn("Recommendation generation failed, serving cached result",
			zap.String("user_id", userID),
			zap.Time("generated_at", cached.GeneratedAt),
			zap.Error(err),
		)
		monitoring.RecommendationRequests.WithLabelValues(SourceFallback).Inc()
		return resultFrom(cached, SourceFallback), nil
	}
	monitoring.RecommendationRequests.WithLabelValues("error").Inc()
	if !errors.Is(err, util.ErrUpstream) {
		err = util.Upstream("recommendations", err)
	}
	return nil, err
}

func (s *RecommendationService) generate(ctx context.Context, userID string, p *model.LearningProgress, ttl time.Duration) (*CachedRecommendations, error) {
	recent := progress.RecentTopics(p.Topics, RecentTopicCount)
	weak := []string(p.WeakTopics)
	if weak == nil {
		weak = []string{}
	}

	recs, err := s.Generator.GenerateRecommendations(ctx, p.Topics, weak, recent)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []model.StudyRecommendation{}
	}

	entry := &CachedRecommendations{Recommendations: recs, GeneratedAt: s.now()}
	if err := s.Cache.Set(ctx, userID, *entry, ttl*staleFactor); err != nil {
		logger.Log.Warn("Recommendation cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
	return entry, nil
}

func resultFrom(entry *CachedRecommendations, source string) *RecommendationResult {
	generatedAt := entry.GeneratedAt
	return &RecommendationResult{
		Recommendations: entry.Recommendations,
		Source:          source,
		GeneratedAt:     &generatedAt,
	}
}
