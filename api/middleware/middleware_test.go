package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *models.ErrorDetail {
	t.Helper()
	var resp models.CrawlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestAuth(t *testing.T) {
	r := gin.New()
	r.GET("/x", Auth([]string{"k1", " "}), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(identityKey))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrCodeUnauthorized, decodeError(t, w).Code)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid API key", decodeError(t, w).Message)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer k1")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "k1", w.Body.String())
}

func TestAuth_NoKeys(t *testing.T) {
	r := gin.New()
	r.GET("/x", Auth(nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestPageBudget(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"field set", `{"max_pages":7,"url":"http://x"}`, 7},
		{"field missing", `{"url":"http://x"}`, 100},
		{"field zero", `{"max_pages":0}`, 100},
		{"field negative", `{"max_pages":-3}`, 100},
		{"field not a number", `{"max_pages":"7"}`, 100},
		{"not json", `max_pages=7`, 100},
		{"empty", ``, 100},
	}

	cost := PageBudget("max_pages", 100)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got int
			var seen string
			r := gin.New()
			r.POST("/x", func(c *gin.Context) {
				got = cost(c)
				c.Next()
			}, func(c *gin.Context) {
				b, err := io.ReadAll(c.Request.Body)
				require.NoError(t, err)
				seen = string(b)
			})

			serve(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.body, seen, "handler must see the original body")
		})
	}
}

func TestLimiter_Charge(t *testing.T) {
	l := NewLimiter(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 10})
	r := gin.New()
	r.POST("/crawl", l.Charge(PageBudget("max_pages", 4)), func(c *gin.Context) {
		var req models.CrawlRequest
		require.NoError(t, c.ShouldBindJSON(&req))
		c.JSON(http.StatusOK, req)
	})
	r.GET("/one", l.Charge(nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func(body string) *httptest.ResponseRecorder {
		return serve(r, httptest.NewRequest(http.MethodPost, "/crawl", strings.NewReader(body)))
	}

	w := post(`{"url":"http://x","mode":"1","max_pages":6}`)
	require.Equal(t, http.StatusOK, w.Code)
	var req models.CrawlRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &req))
	assert.Equal(t, 6, req.MaxPages)

	// 4 left: the fallback budget of 4 fits, then nothing remains.
	assert.Equal(t, http.StatusOK, post(`{"url":"http://x","mode":"1"}`).Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/one", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, models.ErrCodeRateLimited, decodeError(t, w).Code)
}

func TestLimiter_ClampsToBurst(t *testing.T) {
	l := NewLimiter(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 3})
	r := gin.New()
	r.POST("/crawl", l.Charge(PageBudget("max_pages", 1)), func(c *gin.Context) { c.Status(http.StatusOK) })

	body := `{"max_pages":500}`
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodPost, "/crawl", strings.NewReader(body))).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, httptest.NewRequest(http.MethodPost, "/crawl", strings.NewReader(body))).Code)
}

func TestLimiter_PerIdentity(t *testing.T) {
	l := NewLimiter(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	r := gin.New()
	r.GET("/x", Auth([]string{"a", "b"}), l.Charge(nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-API-Key", key)
		return serve(r, req).Code
	}
	assert.Equal(t, http.StatusOK, get("a"))
	assert.Equal(t, http.StatusTooManyRequests, get("a"))
	assert.Equal(t, http.StatusOK, get("b"))
}
