package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meal-intake/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

// identityRouter 回傳目前的使用者與 session
func identityRouter(secret string) *gin.Engine {
	r := gin.New()
	r.Use(requestid.New(), Session(), Auth(secret))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":       UserID(c),
			"session":    SessionID(c),
			"request_id": common.RequestIDFrom(c.Request.Context()),
		})
	})
	return r
}

func TestAuthAcceptsValidToken(t *testing.T) {
	r := identityRouter(testSecret)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-42", time.Now().Add(time.Hour)))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user":"user-42"`)
}

func TestAuthWithoutTokenIsAnonymous(t *testing.T) {
	rec := httptest.NewRecorder()
	identityRouter(testSecret).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user":""`)
}

func TestAuthRejectsInvalidTokens(t *testing.T) {
	tests := map[string]string{
		"wrong secret": "Bearer " + signToken(t, "other", "u", time.Now().Add(time.Hour)),
		"expired":      "Bearer " + signToken(t, testSecret, "u", time.Now().Add(-time.Hour)),
		"no subject":   "Bearer " + signToken(t, testSecret, "", time.Now().Add(time.Hour)),
		"not bearer":   "Basic dXNlcjpwYXNz",
		"garbage":      "Bearer abc.def.ghi",
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			identityRouter(testSecret).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), common.ErrCodeUnauthorized)
		})
	}
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	identityRouter("").ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user":""`)
}

func TestSessionEchoesOrGenerates(t *testing.T) {
	r := identityRouter("")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	generated := rec.Header().Get(HeaderSessionID)
	assert.True(t, common.IsUUID(generated))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderSessionID, generated)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, generated, rec.Header().Get(HeaderSessionID))

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderSessionID, "../../etc/passwd")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEqual(t, "../../etc/passwd", rec.Header().Get(HeaderSessionID))
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(60, time.Minute, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiterKeepsNewClientBucket(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	allowed := 0
	for i := 0; i < 10; i++ {
		if rl.Allow("1.2.3.4") {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
	assert.Len(t, rl.clients, 1)
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	now = now.Add(limiterIdleTTL + time.Second)
	assert.True(t, rl.Allow("b"))

	_, stale := rl.clients["a"]
	assert.False(t, stale)
	assert.Contains(t, rl.clients, "b")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewRateLimiter(1, time.Minute, 1)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestDeduplicationRejectsRepeatedSubmission(t *testing.T) {
	d := NewDeduplicator(time.Second)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	var calls int
	r := gin.New()
	r.Use(Session(), Deduplication(d))
	r.POST("/analyze", func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
	})

	send := func(session, body string) int {
		req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
		req.Header.Set(HeaderSessionID, session)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	s1 := common.GenerateUUID()
	s2 := common.GenerateUUID()

	assert.Equal(t, http.StatusOK, send(s1, `{"query":"sopa"}`))
	assert.Equal(t, http.StatusTooManyRequests, send(s1, `{"query":"sopa"}`))
	assert.Equal(t, http.StatusOK, send(s1, `{"query":"bolo"}`))
	assert.Equal(t, http.StatusOK, send(s2, `{"query":"sopa"}`))

	now = now.Add(2 * time.Second)
	assert.Equal(t, http.StatusOK, send(s1, `{"query":"sopa"}`))
	assert.Equal(t, 4, calls)
}

func TestDeduplicationPreservesBody(t *testing.T) {
	r := gin.New()
	r.Use(Deduplication(NewDeduplicator(time.Second)))
	r.POST("/echo", func(c *gin.Context) {
		var body map[string]string
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, body)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"query":"caldo verde"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"caldo verde"}`, rec.Body.String())
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), common.ErrCodeInternalError)
}
