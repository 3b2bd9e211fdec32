package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGinMiddlewareRecordsRouteAndStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := Tracer
	Tracer = tp.Tracer(ServiceName)
	t.Cleanup(func() { Tracer = prev })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(UserIDKey, "u1")
		c.Next()
	})
	r.Use(GinMiddleware())
	r.GET("/api/quizzes/:quizId", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/chat/sessions", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/quizzes/q-42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/chat/sessions", nil))

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d", len(spans))
	}
	if spans[0].Name() != "GET /api/quizzes/:quizId" {
		t.Fatalf("span name = %q", spans[0].Name())
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs["http.status_code"].AsInt64() != http.StatusOK || attrs["user_id"].AsString() != "u1" {
		t.Fatalf("attributes = %v", spans[0].Attributes())
	}
	if spans[0].Status().Code == codes.Error {
		t.Fatal("2xx must not be an error span")
	}
	if spans[1].Status().Code != codes.Error {
		t.Fatalf("5xx status = %v", spans[1].Status())
	}
}
