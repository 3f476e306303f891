package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	claims := Claims{
		Scopes:    []string{"public_repo", "read:user"},
		TokenType: "github_token",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func testManager() *Manager {
	cfg := &config.Config{}
	cfg.Session.CookieName = "gitsphere_token"
	cfg.Session.RefreshThresholdMinutes = 30
	return NewManager(cfg)
}

func TestDecode(t *testing.T) {
	t.Parallel()

	token := signedToken(t, time.Hour)
	claims, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if claims.TokenType != "github_token" {
		t.Errorf("TokenType = %q, want github_token", claims.TokenType)
	}
	if len(claims.Scopes) != 2 {
		t.Errorf("Scopes = %v, want two entries", claims.Scopes)
	}

	if _, err = Decode("not-a-jwt"); err == nil {
		t.Fatal("Decode() on garbage expected error")
	}
}

func TestExpired(t *testing.T) {
	t.Parallel()

	if Expired(signedToken(t, time.Hour)) {
		t.Error("fresh token reported expired")
	}
	if !Expired(signedToken(t, -time.Minute)) {
		t.Error("stale token reported valid")
	}
	if !Expired("garbage") {
		t.Error("garbage token should count as expired")
	}
}

func TestNeedsRefresh(t *testing.T) {
	t.Parallel()

	m := testManager()
	if m.NeedsRefresh(signedToken(t, 2*time.Hour)) {
		t.Error("token with 2h left should not need refresh at 30m threshold")
	}
	if !m.NeedsRefresh(signedToken(t, 10*time.Minute)) {
		t.Error("token with 10m left should need refresh at 30m threshold")
	}
	if !m.NeedsRefresh("garbage") {
		t.Error("unparsable token should need refresh")
	}
}

func TestTokenExtraction(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	m := testManager()

	makeCtx := func(mutate func(*http.Request)) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		mutate(c.Request)
		return c
	}

	c := makeCtx(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "gitsphere_token", Value: "cookie-token"})
		r.Header.Set("Authorization", "Bearer header-token")
	})
	if got := m.Token(c); got != "cookie-token" {
		t.Errorf("Token() = %q, cookie should win over header", got)
	}

	c = makeCtx(func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer header-token")
	})
	if got := m.Token(c); got != "header-token" {
		t.Errorf("Token() = %q, want bearer fallback", got)
	}

	c = makeCtx(func(r *http.Request) {})
	if got := m.Token(c); got != "" {
		t.Errorf("Token() = %q, want empty", got)
	}
}

func TestWriteAndClear(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	m := testManager()
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	m.Write(c, signedToken(t, time.Hour))
	setCookie := recorder.Header().Get("Set-Cookie")
	if !strings.Contains(setCookie, "gitsphere_token=") {
		t.Fatalf("Set-Cookie = %q, want session cookie", setCookie)
	}
	if !strings.Contains(setCookie, "HttpOnly") {
		t.Errorf("Set-Cookie = %q, want HttpOnly", setCookie)
	}
	if !strings.Contains(setCookie, "Max-Age=") {
		t.Errorf("Set-Cookie = %q, want Max-Age derived from token expiry", setCookie)
	}

	recorder = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	m.Clear(c)
	if cleared := recorder.Header().Get("Set-Cookie"); !strings.Contains(cleared, "Max-Age=0") {
		t.Errorf("Clear() Set-Cookie = %q, want immediate expiry", cleared)
	}
}
