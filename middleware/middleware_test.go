package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/reelapp/reel-backend/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "middleware-test-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newAuthRouter(admins []string) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		utils.Success(c, gin.H{"id": c.GetUint(ContextUserIDKey)})
	})
	r.GET("/admin", AuthRequired(), AdminRequired(admins), func(c *gin.Context) {
		utils.Success(c, nil)
	})
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	r := newAuthRouter(nil)

	if rec := do(r, http.MethodGet, "/me", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: got %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/me", "not-a-jwt"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: got %d", rec.Code)
	}

	token, err := utils.GenerateToken(42, "mia", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if rec := do(r, http.MethodGet, "/me", token); rec.Code != http.StatusOK {
		t.Fatalf("valid token: got %d body=%s", rec.Code, rec.Body.String())
	}

	utils.BlacklistToken(context.Background(), token, time.Now().Add(time.Hour))
	if rec := do(r, http.MethodGet, "/me", token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: got %d", rec.Code)
	}
}

func TestAdminRequired(t *testing.T) {
	r := newAuthRouter([]string{" Root "})

	user, _ := utils.GenerateToken(1, "viewer", time.Hour)
	if rec := do(r, http.MethodGet, "/admin", user); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin: got %d", rec.Code)
	}
	admin, _ := utils.GenerateToken(2, "root", time.Hour)
	if rec := do(r, http.MethodGet, "/admin", admin); rec.Code != http.StatusOK {
		t.Fatalf("admin: got %d", rec.Code)
	}
}

func TestRateLimitPerClient(t *testing.T) {
	r := gin.New()
	r.GET("/ping", RateLimitMiddleware(2), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	// burst is perMinute/2 = 1
	if rec := do(r, http.MethodGet, "/ping", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("first request: got %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/ping", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d", rec.Code)
	}
}

func TestLimiterStoreSweepsIdleBucketsPeriodically(t *testing.T) {
	store := newLimiterStore(60)
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	store.allow("ip:a", start)
	store.allow("ip:b", start)
	if len(store.limiters) != 2 {
		t.Fatalf("buckets: got %d want 2", len(store.limiters))
	}

	// Expired, but the previous sweep was less than a minute ago.
	later := start.Add(limiterIdleTTL + time.Second)
	store.lastSweep = later.Add(-limiterSweepEvery / 2)
	store.allow("ip:c", later)
	if len(store.limiters) != 3 {
		t.Fatalf("buckets before sweep: got %d want 3", len(store.limiters))
	}

	store.allow("ip:c", later.Add(limiterSweepEvery))
	if len(store.limiters) != 1 {
		t.Fatalf("buckets after sweep: got %d want 1", len(store.limiters))
	}
	if _, ok := store.limiters["ip:c"]; !ok {
		t.Fatal("active bucket was swept")
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/episodes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(r, http.MethodGet, "/episodes/7", "")
	do(r, http.MethodGet, "/episodes/8", "")
	do(r, http.MethodGet, "/nowhere", "")

	if got := testutil.ToFloat64(utils.HTTPRequestsTotal.WithLabelValues("GET", "/episodes/:id", "200")); got != 2 {
		t.Fatalf("templated route count: got %v", got)
	}
	if got := testutil.ToFloat64(utils.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("unmatched count: got %v", got)
	}
}
