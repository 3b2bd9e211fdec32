package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/testutil"
	"study_buddy_backend/internal/util"

	"github.com/go-redis/redis/v8"
)

func seedTopics(t *testing.T, repo *repository.ProgressRepository, userID string) {
	t.Helper()
	ctx := context.Background()
	p, err := repo.GetOrCreate(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	base := testutil.Date(2024, time.January, 1, 0)
	for i, name := range []string{"A", "B", "C", "D", "E", "F"} {
		p.Topics = append(p.Topics, model.TopicProgress{Topic: name, MasteryLevel: 30 + i*10, LastStudied: base.AddDate(0, 0, i)})
	}
	p.WeakTopics = []string{"A"}
	if err := repo.Set(ctx, p); err != nil {
		t.Fatal(err)
	}
}

func newRecommendationService(t *testing.T, gen *fakeGenerator) (*RecommendationService, *repository.ProgressRepository) {
	t.Helper()
	repo := repository.NewProgressRepository(testutil.DB(t))
	return NewRecommendationService(repo, gen, NewMemoryRecommendationCache(), time.Hour), repo
}

func TestRecommendationsEmptyWithoutTopics(t *testing.T) {
	gen := &fakeGenerator{}
	svc, _ := newRecommendationService(t, gen)

	res, err := svc.GetRecommendations(context.Background(), "u1", false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceEmpty || res.Recommendations == nil || len(res.Recommendations) != 0 {
		t.Fatalf("result = %+v", res)
	}
	if gen.callCount() != 0 {
		t.Fatal("generator must not be called without topics")
	}
}

func TestRecommendationsGenerateCacheAndFallback(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{recs: []model.StudyRecommendation{{Topic: "A", Priority: "high"}}}
	svc, repo := newRecommendationService(t, gen)
	seedTopics(t, repo, "u1")

	now := testutil.Date(2024, time.February, 1, 12)
	svc.now = func() time.Time { return now }

	res, err := svc.GetRecommendations(ctx, "u1", false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceGenerated || len(res.Recommendations) != 1 {
		t.Fatalf("first result = %+v", res)
	}
	if len(gen.lastRecent) != RecentTopicCount || gen.lastRecent[0] != "F" || gen.lastRecent[4] != "B" {
		t.Fatalf("recent topics = %v", gen.lastRecent)
	}
	if len(gen.lastWeak) != 1 || gen.lastWeak[0] != "A" {
		t.Fatalf("weak topics = %v", gen.lastWeak)
	}

	res, err = svc.GetRecommendations(ctx, "u1", false)
	if err != nil || res.Source != SourceCache {
		t.Fatalf("second result = %+v, err = %v", res, err)
	}
	if gen.callCount() != 1 {
		t.Fatalf("generator calls = %d", gen.callCount())
	}

	gen.fail(util.Upstream("ai", errors.New("quota exceeded")))
	res, err = svc.GetRecommendations(ctx, "u1", true)
	if err != nil {
		t.Fatalf("expected cached fallback, got %v", err)
	}
	if res.Source != SourceFallback || res.Recommendations[0].Topic != "A" {
		t.Fatalf("fallback result = %+v", res)
	}
}

func TestRecommendationsUpstreamFailureWithoutCache(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection refused")}
	svc, repo := newRecommendationService(t, gen)
	seedTopics(t, repo, "u1")

	_, err := svc.GetRecommendations(context.Background(), "u1", false)
	if !errors.Is(err, util.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestRecommendationsRegenerateWhenStale(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{recs: []model.StudyRecommendation{{Topic: "A"}}}
	svc, repo := newRecommendationService(t, gen)
	seedTopics(t, repo, "u1")

	now := time.Now()
	svc.now = func() time.Time { return now }
	if _, err := svc.GetRecommendations(ctx, "u1", false); err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	res, err := svc.GetRecommendations(ctx, "u1", false)
	if err != nil || res.Source != SourceGenerated {
		t.Fatalf("stale cache should regenerate: %+v, %v", res, err)
	}
	if gen.callCount() != 2 {
		t.Fatalf("generator calls = %d", gen.callCount())
	}
}

func TestRecommendationsDeduplicateConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{recs: []model.StudyRecommendation{{Topic: "A"}}, release: make(chan struct{})}
	svc, repo := newRecommendationService(t, gen)
	seedTopics(t, repo, "u1")

	const n = 5
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GetRecommendations(ctx, "u1", false); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(200 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	if gen.callCount() != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.callCount())
	}
}

func TestRecommendationsCancelledCallerDoesNotFailWaiters(t *testing.T) {
	gen := &fakeGenerator{
		recs:    []model.StudyRecommendation{{Topic: "A"}},
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	svc, repo := newRecommendationService(t, gen)
	seedTopics(t, repo, "u1")

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetRecommendations(firstCtx, "u1", false)
		firstErr <- err
	}()
	<-gen.entered

	type outcome struct {
		res *RecommendationResult
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := svc.GetRecommendations(context.Background(), "u1", false)
		second <- outcome{res, err}
	}()
	time.Sleep(100 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v", err)
	}
	close(gen.release)

	got := <-second
	if got.err != nil {
		t.Fatalf("waiter failed: %v", got.err)
	}
	if len(got.res.Recommendations) != 1 {
		t.Fatalf("waiter result = %+v", got.res)
	}
	if gen.callCount() != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.callCount())
	}
}

func TestMemoryRecommendationCacheBounded(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryRecommendationCache()
	c.maxEntries = 3

	if err := c.Set(ctx, "expired", CachedRecommendations{}, -time.Second); err != nil {
		t.Fatal(err)
	}
	for i, user := range []string{"soon", "later"} {
		if err := c.Set(ctx, user, CachedRecommendations{}, time.Duration(i+1)*time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	// 写满后先清理过期条目
	if err := c.Set(ctx, "d", CachedRecommendations{}, 3*time.Hour); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Fatalf("len = %d, want 3", c.Len())
	}

	// 没有过期条目时淘汰最早过期的
	if err := c.Set(ctx, "e", CachedRecommendations{}, 4*time.Hour); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Fatalf("len = %d, want 3", c.Len())
	}
	if got, _ := c.Get(ctx, "soon"); got != nil {
		t.Fatal("soonest-expiring entry should be evicted")
	}
	for _, user := range []string{"later", "d", "e"} {
		if got, _ := c.Get(ctx, user); got == nil {
			t.Fatalf("%s missing", user)
		}
	}
}

func TestRedisRecommendationCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis cache tests")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	cache := &RedisRecommendationCache{Client: client}

	user := "cache-test-" + model.GenerateUUID()
	got, err := cache.Get(ctx, user)
	if err != nil || got != nil {
		t.Fatalf("miss = %+v, err = %v", got, err)
	}

	entry := CachedRecommendations{Recommendations: []model.StudyRecommendation{{Topic: "A"}}, GeneratedAt: time.Now().UTC()}
	if err := cache.Set(ctx, user, entry, time.Minute); err != nil {
		t.Fatal(err)
	}
	got, err = cache.Get(ctx, user)
	if err != nil || got == nil || got.Recommendations[0].Topic != "A" {
		t.Fatalf("hit = %+v, err = %v", got, err)
	}
	client.Del(ctx, recommendationKey(user))
}
