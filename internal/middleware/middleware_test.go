package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dayoff-api/internal/models"
	"github.com/noah-isme/dayoff-api/internal/service"
	appErrors "github.com/noah-isme/dayoff-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	return s.claims, s.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/leaves/:id", handlers...)
	return r
}

func get(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/leaves/LV-1", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "PR", Role: models.RolePrincipal}}
	var seen *models.JWTClaims
	r := newRouter(JWT(validator), func(c *gin.Context) { seen = Claims(c) })

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer ").Code)

	w := get(r, "bearer token-123")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "token-123", validator.seen)
	require.NotNil(t, seen)
	assert.Equal(t, "PR", seen.UserID)

	validator.err = appErrors.Clone(appErrors.ErrUnauthorized, "expired")
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer token-123").Code)
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

func TestStaffOnly(t *testing.T) {
	cases := []struct {
		claims *models.JWTClaims
		want   int
	}{
		{nil, http.StatusUnauthorized},
		{&models.JWTClaims{UserID: "S1", Role: models.RoleStudent}, http.StatusForbidden},
		{&models.JWTClaims{UserID: "F1", Role: models.RoleNormalFaculty}, http.StatusOK},
		{&models.JWTClaims{UserID: "PR", Role: models.RolePrincipal}, http.StatusOK},
	}
	for _, tc := range cases {
		r := newRouter(withClaims(tc.claims), StaffOnly())
		assert.Equal(t, tc.want, get(r, "").Code)
	}
}

func TestRequireRolesSingleRole(t *testing.T) {
	r := newRouter(withClaims(&models.JWTClaims{UserID: "COC", Role: models.RoleCourseCoordinator}), RequireRoles(models.RoleStudent))
	assert.Equal(t, http.StatusForbidden, get(r, "").Code)
}

func TestRateLimiterPerUser(t *testing.T) {
	rl := NewRateLimiter(1, 2, nil)
	current := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }

	priya := newRouter(withClaims(&models.JWTClaims{UserID: "S1", Role: models.RoleStudent}), rl.Handler())
	karan := newRouter(withClaims(&models.JWTClaims{UserID: "S2", Role: models.RoleStudent}), rl.Handler())

	assert.Equal(t, http.StatusOK, get(priya, "").Code)
	assert.Equal(t, http.StatusOK, get(priya, "").Code)
	limited := get(priya, "")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, get(karan, "").Code)

	current = current.Add(time.Minute)
	assert.Equal(t, http.StatusOK, get(priya, "").Code)
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(60, 1, nil)
	current := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }

	rl.reserve("user:a")
	current = current.Add(11 * time.Minute)
	rl.reserve("user:b")

	rl.mu.Lock()
	assert.Len(t, rl.visitors, 2)
	rl.mu.Unlock()

	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "user:b")
}

func TestRateLimiterBackgroundCleanup(t *testing.T) {
	rl := NewRateLimiter(60, 1, nil)
	var mu sync.Mutex
	current := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	rl.reserve("user:a")
	mu.Lock()
	current = current.Add(time.Hour)
	mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl.StartCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		rl.mu.Lock()
		defer rl.mu.Unlock()
		return len(rl.visitors) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestMetricsMiddlewareRecordsRoutes(t *testing.T) {
	metrics := service.NewMetricsService()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/leaves/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/leaves/LV-1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.EqualValues(t, 2, metrics.Snapshot().RequestsTotal)
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	paths := map[string]bool{}
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "path" {
					paths[label.GetValue()] = true
				}
			}
		}
	}
	assert.True(t, paths["/leaves/:id"])
	assert.True(t, paths["unmatched"])
}
