package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/gitsphere"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/session"
	"github.com/tidwall/gjson"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(backendURL string) (*gin.Engine, *config.Config) {
	cfg := &config.Config{
		Backend: config.BackendConfig{BaseURL: backendURL, TimeoutSeconds: 5},
		GitHub: config.GitHubConfig{
			ClientID: "test-client",
			Scopes:   []string{"public_repo", "read:user"},
		},
		Session: config.SessionConfig{CookieName: "gitsphere_token"},
	}

	client := gitsphere.NewClient(cfg)
	sessions := session.NewManager(cfg)
	h := NewAuthHandler(cfg, client, sessions)

	r := gin.New()
	r.GET("/api/auth/login", h.Login)
	r.GET("/api/auth/callback", h.Callback)
	r.POST("/api/auth/session", h.CreateSession)
	r.POST("/api/auth/refresh", h.Refresh)
	r.GET("/api/auth/status", h.Status)
	r.POST("/api/auth/logout", h.Logout)
	return r, cfg
}

func stateCookieFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == stateCookieName {
			return cookie
		}
	}
	return nil
}

func TestLoginIssuesStateAndAuthorizeURL(t *testing.T) {
	t.Parallel()

	r, _ := newAuthRouter("http://backend")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/auth/login", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := rec.Body.String()
	authorizeURL := gjson.Get(body, "authorize_url").String()
	state := gjson.Get(body, "state").String()

	if !strings.HasPrefix(authorizeURL, "https://github.com/login/oauth/authorize") {
		t.Errorf("authorize_url = %s", authorizeURL)
	}
	if !strings.Contains(authorizeURL, "state="+state) {
		t.Error("authorize_url should embed the issued state")
	}

	cookie := stateCookieFrom(rec)
	if cookie == nil {
		t.Fatal("state cookie not set")
	}
	if cookie.Value != state {
		t.Error("state cookie should match response state")
	}
	if !cookie.HttpOnly {
		t.Error("state cookie must be HttpOnly")
	}
}

func TestCallbackRelaysCodeToOpener(t *testing.T) {
	t.Parallel()

	r, _ := newAuthRouter("http://backend")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/auth/callback?code=abc&state=xyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "postMessage") {
		t.Error("callback page should post the result to the opener")
	}
	if !strings.Contains(body, `"code":"abc"`) || !strings.Contains(body, `"state":"xyz"`) {
		t.Errorf("callback page missing oauth payload: %s", body)
	}
}

func TestCallbackReportsMissingCode(t *testing.T) {
	t.Parallel()

	r, _ := newAuthRouter("http://backend")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/auth/callback", nil))

	if !strings.Contains(rec.Body.String(), "missing_code") {
		t.Error("callback page should relay a missing_code error")
	}
}

func TestCreateSessionSetsCookie(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/github" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"access_token":"session-jwt","scopes":["public_repo","read:user"]}`))
	}))
	defer backend.Close()

	r, _ := newAuthRouter(backend.URL)

	// Acquire a state first.
	loginRec := httptest.NewRecorder()
	r.ServeHTTP(loginRec, httptest.NewRequest("GET", "/api/auth/login", nil))
	cookie := stateCookieFrom(loginRec)
	if cookie == nil {
		t.Fatal("no state cookie from login")
	}

	body := fmt.Sprintf(`{"code":"abc","state":%q}`, cookie.Value)
	req := httptest.NewRequest("POST", "/api/auth/session", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var sessionCookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "gitsphere_token" {
			sessionCookie = ck
		}
	}
	if sessionCookie == nil {
		t.Fatal("session cookie not set")
	}
	if sessionCookie.Value != "session-jwt" {
		t.Errorf("session cookie = %q", sessionCookie.Value)
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
}

func TestCreateSessionRejectsStateMismatch(t *testing.T) {
	t.Parallel()

	r, _ := newAuthRouter("http://backend")

	loginRec := httptest.NewRecorder()
	r.ServeHTTP(loginRec, httptest.NewRequest("GET", "/api/auth/login", nil))
	cookie := stateCookieFrom(loginRec)

	req := httptest.NewRequest("POST", "/api/auth/session", strings.NewReader(`{"code":"abc","state":"forged"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 on state mismatch", rec.Code)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/refresh" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("old_token") != "old-jwt" {
			t.Errorf("old_token = %q", r.URL.Query().Get("old_token"))
		}
		_, _ = w.Write([]byte(`{"access_token":"new-jwt"}`))
	}))
	defer backend.Close()

	r, _ := newAuthRouter(backend.URL)

	req := httptest.NewRequest("POST", "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "gitsphere_token", Value: "old-jwt"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(gitsphere.HeaderNewToken) != "new-jwt" {
		t.Error("rotation header missing")
	}
	if rec.Header().Get(gitsphere.HeaderTokenRefreshed) != "true" {
		t.Error("refreshed header missing")
	}
}

func TestRefreshWithoutSession(t *testing.T) {
	t.Parallel()

	r, _ := newAuthRouter("http://backend")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/auth/refresh", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	t.Parallel()

	r, _ := newAuthRouter("http://backend")

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "gitsphere_token", Value: "jwt"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	cleared := false
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "gitsphere_token" && ck.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie should be expired on logout")
	}
}

func TestStatusSurfacesBackendRejection(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/token/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Invalid token"}`))
	}))
	defer backend.Close()

	r, _ := newAuthRouter(backend.URL)

	req := httptest.NewRequest("GET", "/api/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: "gitsphere_token", Value: "revoked-jwt"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if gjson.Get(body, "authenticated").Bool() {
		t.Error("a rejected token must not report authenticated")
	}
	if got := gjson.Get(body, "detail").String(); got != "Invalid token" {
		t.Errorf("detail = %q, want the backend's message", got)
	}
	if gjson.Get(body, "degraded").Exists() {
		t.Error("a backend verdict is not a degraded answer")
	}
}

func TestStatusDegradedWhenBackendUnreachable(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.NotFoundHandler())
	backendURL := backend.URL
	backend.Close()

	r, _ := newAuthRouter(backendURL)

	req := httptest.NewRequest("GET", "/api/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: "gitsphere_token", Value: "some-jwt"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !gjson.Get(rec.Body.String(), "degraded").Bool() {
		t.Error("transport failure should fall back to the degraded local read")
	}
}

func TestRefreshCoalescesConcurrentRequests(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{"access_token":"new-jwt"}`))
	}))
	defer backend.Close()

	r, _ := newAuthRouter(backend.URL)

	const workers = 8
	var wg sync.WaitGroup
	recs := make([]*httptest.ResponseRecorder, workers)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest("POST", "/api/auth/refresh", nil)
			req.AddCookie(&http.Cookie{Name: "gitsphere_token", Value: "stale-jwt"})
			recs[i] = httptest.NewRecorder()
			r.ServeHTTP(recs[i], req)
		}()
	}
	wg.Wait()

	if calls := refreshCalls.Load(); calls != 1 {
		t.Errorf("backend refresh calls = %d, want 1 for the same stale token", calls)
	}
	for i, rec := range recs {
		if rec.Code != http.StatusOK {
			t.Errorf("worker %d status = %d", i, rec.Code)
		}
		if rec.Header().Get(gitsphere.HeaderNewToken) != "new-jwt" {
			t.Errorf("worker %d missing rotated token header", i)
		}
	}
}
