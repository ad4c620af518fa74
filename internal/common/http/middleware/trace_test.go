package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"codejudge/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
)

func TestTraceContextMiddlewareGeneratesIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var ctxTraceID interface{}
	router.Use(TraceContextMiddleware())
	router.GET("/", func(c *gin.Context) {
		ctxTraceID = c.Request.Context().Value(contextkey.TraceID)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	traceID := w.Header().Get("X-Trace-Id")
	if traceID == "" {
		t.Fatal("trace id header missing")
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id header missing")
	}
	if ctxTraceID != traceID {
		t.Fatalf("context trace id = %v, header = %s", ctxTraceID, traceID)
	}
}

func TestTraceContextMiddlewareHonorsIncomingID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TraceContextMiddleware())
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-Id", "upstream-trace")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Trace-Id"); got != "upstream-trace" {
		t.Fatalf("trace id = %q, want upstream-trace", got)
	}
}
