package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func request(r *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/leaves", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSAllowList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New([]string{"https://portal.college.edu/"}))
	r.GET("/leaves", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := request(r, http.MethodGet, "https://portal.college.edu")
	assert.Equal(t, "https://portal.college.edu", w.Header().Get("Access-Control-Allow-Origin"))

	w = request(r, http.MethodGet, "https://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodOptions, "https://portal.college.edu")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCORSAllowAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(nil))
	r.GET("/leaves", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, "*", request(r, http.MethodGet, "").Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "https://x.test", request(r, http.MethodGet, "https://x.test").Header().Get("Access-Control-Allow-Origin"))
}
