package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/logging"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sessionManager() *session.Manager {
	return session.NewManager(&config.Config{
		Session: config.SessionConfig{CookieName: "gitsphere_token"},
	})
}

func TestRequireSessionRejectsAnonymous(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(RequireSession(sessionManager()))
	r.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "detail") {
		t.Errorf("body = %s, want detail error envelope", rec.Body.String())
	}
}

func TestRequireSessionAcceptsCookie(t *testing.T) {
	t.Parallel()

	var seen string
	r := gin.New()
	r.Use(RequireSession(sessionManager()))
	r.GET("/api/v1/health", func(c *gin.Context) {
		seen = SessionToken(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	req.AddCookie(&http.Cookie{Name: "gitsphere_token", Value: "tok-123"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if seen != "tok-123" {
		t.Errorf("SessionToken = %q", seen)
	}
}

func TestRequireSessionAcceptsBearerHeader(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(RequireSession(sessionManager()))
	r.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("Authorization", "Bearer tok-456")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// memoryRequestLogger collects records for assertions.
type memoryRequestLogger struct {
	mu      sync.Mutex
	enabled bool
	records []*logging.RequestRecord
}

func (l *memoryRequestLogger) IsEnabled() bool { return l.enabled }

func (l *memoryRequestLogger) Log(record *logging.RequestRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
}

func (l *memoryRequestLogger) all() []*logging.RequestRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*logging.RequestRecord(nil), l.records...)
}

func TestRequestLoggingCapturesTrackedRoutes(t *testing.T) {
	t.Parallel()

	logger := &memoryRequestLogger{enabled: true}
	r := gin.New()
	r.Use(RequestLoggingMiddleware(logger))
	r.POST("/api/v1/battle/start", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"winner": "octocat"})
	})
	r.GET("/static/app.js", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("POST", "/api/v1/battle/start", strings.NewReader(`{"usernames":["a","b"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	req = httptest.NewRequest("GET", "/static/app.js", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	records := logger.all()
	if len(records) != 1 {
		t.Fatalf("records = %d, want only the tracked route logged", len(records))
	}
	rec0 := records[0]
	if rec0.Method != "POST" || rec0.URL != "/api/v1/battle/start" {
		t.Errorf("record = %s %s", rec0.Method, rec0.URL)
	}
	if rec0.Status != http.StatusOK {
		t.Errorf("Status = %d", rec0.Status)
	}
	if !strings.Contains(string(rec0.ReqBody), "usernames") {
		t.Errorf("ReqBody = %s", rec0.ReqBody)
	}
	if !strings.Contains(string(rec0.RespBody), "winner") {
		t.Errorf("RespBody = %s", rec0.RespBody)
	}
}

func TestRequestLoggingDisabledStillRecordsFailures(t *testing.T) {
	t.Parallel()

	logger := &memoryRequestLogger{enabled: false}
	r := gin.New()
	r.Use(RequestLoggingMiddleware(logger))
	r.GET("/api/v1/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/boom", func(c *gin.Context) {
		c.JSON(http.StatusBadGateway, gin.H{"detail": "backend unavailable"})
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/boom", nil))

	records := logger.all()
	if len(records) != 1 {
		t.Fatalf("records = %d, want only the failure logged", len(records))
	}
	if records[0].Status != http.StatusBadGateway {
		t.Errorf("Status = %d", records[0].Status)
	}
}

func TestRequestLoggingMasksSensitiveQuery(t *testing.T) {
	t.Parallel()

	logger := &memoryRequestLogger{enabled: true}
	r := gin.New()
	r.Use(RequestLoggingMiddleware(logger))
	r.POST("/api/auth/refresh", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("POST", "/api/auth/refresh?old_token=super-secret-jwt", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	records := logger.all()
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	if strings.Contains(records[0].URL, "super-secret-jwt") {
		t.Errorf("URL leaked token: %s", records[0].URL)
	}
}
