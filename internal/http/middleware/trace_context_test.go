package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openshelf/bibliograph-backend/internal/platform/ctxutil"
)

func traceEcho(t *testing.T) (*gin.Engine, *ctxutil.TraceData) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	captured := &ctxutil.TraceData{}
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/probe", func(c *gin.Context) {
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			*captured = *td
		}
		c.Status(http.StatusOK)
	})
	return r, captured
}

func TestAttachTraceContextKeepsCallerIDs(t *testing.T) {
	r, captured := traceEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-Trace-Id", "trace-from-caller")
	req.Header.Set("X-Request-Id", "req-from-caller")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if captured.TraceID != "trace-from-caller" {
		t.Fatalf("trace id: want=%q got=%q", "trace-from-caller", captured.TraceID)
	}
	if captured.RequestID != "req-from-caller" {
		t.Fatalf("request id: want=%q got=%q", "req-from-caller", captured.RequestID)
	}
	if got := rec.Header().Get("X-Trace-Id"); got != "trace-from-caller" {
		t.Fatalf("trace id not echoed, got=%q", got)
	}
}

func TestAttachTraceContextGeneratesIDs(t *testing.T) {
	r, captured := traceEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if captured.TraceID == "" || captured.RequestID == "" {
		t.Fatalf("expected generated ids, got trace=%q request=%q", captured.TraceID, captured.RequestID)
	}
	if _, err := uuid.Parse(captured.RequestID); err != nil {
		t.Fatalf("generated request id is not a uuid: %v", err)
	}
	if got := rec.Header().Get("X-Request-Id"); got != captured.RequestID {
		t.Fatalf("request id header mismatch: header=%q ctx=%q", got, captured.RequestID)
	}
}
