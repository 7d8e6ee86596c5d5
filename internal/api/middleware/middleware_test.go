package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-timetable/backend/config"
	"campus-timetable/backend/internal/api/handler"
	"campus-timetable/backend/pkg/jwt"
	"campus-timetable/backend/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "middleware-test-secret",
		Issuer:         "campus-identity",
		AccessTokenTTL: 15 * time.Minute,
	})
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth_InjectsIdentity(t *testing.T) {
	mgr := newJWT()
	token, err := mgr.IssueToken(jwt.Identity{UserID: "u1", InstitutionID: "i1", Role: "scheduler", CanEditTimetable: true}, 0)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	var got [3]interface{}
	r := gin.New()
	r.GET("/me", JWTAuth(mgr, nil, zap.NewNop()), func(c *gin.Context) {
		got = [3]interface{}{c.GetString(handler.CtxUserID), c.GetString(handler.CtxInstitutionID), c.GetBool(handler.CtxCanEditTimetable)}
		c.Status(http.StatusOK)
	})

	w := serve(r, "GET", "/me", token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got != [3]interface{}{"u1", "i1", true} {
		t.Errorf("unexpected identity %v", got)
	}
}

func TestJWTAuth_Rejects(t *testing.T) {
	mgr := newJWT()
	other := jwt.NewManager(&config.AuthConfig{JWTSecret: "another-secret", Issuer: "campus-identity", AccessTokenTTL: time.Minute})
	forged, _ := other.IssueToken(jwt.Identity{UserID: "u1", InstitutionID: "i1"}, 0)

	r := gin.New()
	r.GET("/me", JWTAuth(mgr, nil, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	for name, token := range map[string]string{"missing": "", "garbage": "not-a-jwt", "wrong secret": forged} {
		if w := serve(r, "GET", "/me", token); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, w.Code)
		}
	}

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("basic auth: expected 401, got %d", w.Code)
	}
}

// ── RateLimit ──

func TestRateLimit_LocalFallback(t *testing.T) {
	r := gin.New()
	r.POST("/write", RateLimit(nil, 2, time.Minute, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := serve(r, "POST", "/write", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
	if w := serve(r, "POST", "/write", ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after limit, got %d", w.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	r := gin.New()
	r.POST("/write", RateLimit(nil, 0, 0, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		if w := serve(r, "POST", "/write", ""); w.Code != http.StatusOK {
			t.Fatalf("expected 200 when disabled, got %d", w.Code)
		}
	}
}

// ── Metrics ──

type recordingMetrics struct {
	metrics.Nop
	routes []string
	status []int
}

func (r *recordingMetrics) HTTPRequest(_ string, route string, status int, _ time.Duration) {
	r.routes = append(r.routes, route)
	r.status = append(r.status, status)
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	rec := &recordingMetrics{}
	r := gin.New()
	r.Use(Metrics(rec))
	r.GET("/entries/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(r, "GET", "/entries/abc", "")
	serve(r, "GET", "/nowhere", "")

	if len(rec.routes) != 2 || rec.routes[0] != "/entries/:id" || rec.routes[1] != "unmatched" {
		t.Errorf("unexpected routes %v", rec.routes)
	}
	if rec.status[0] != http.StatusNoContent || rec.status[1] != http.StatusNotFound {
		t.Errorf("unexpected status %v", rec.status)
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, "GET", "/", "")
	if len(w.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("expected generated uuid, got %q", w.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "trace-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "trace-1" {
		t.Errorf("expected propagated id, got %q", w.Header().Get("X-Request-ID"))
	}
}
