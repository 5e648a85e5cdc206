package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Nemi_Hub/internal/pkg"
	"Nemi_Hub/internal/repository/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthEngine(t *testing.T) (*gin.Engine, *pkg.JWTManager, *redis.TokenRepository, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb, err := redis.NewClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	jwt := pkg.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	tokens := redis.NewTokenRepository(rdb)

	r := gin.New()
	r.GET("/me", AuthMiddleware(jwt, tokens), func(c *gin.Context) {
		uid, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": uid})
	})
	return r, jwt, tokens, mr
}

func get(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, jwt, tokens, mr := newAuthEngine(t)
	ctx := context.Background()

	pair, err := jwt.GeneratePair(7)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Token "+pair.AccessToken).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer broken").Code)

	// 未登录 (redis 中没有 token)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+pair.AccessToken).Code)

	require.NoError(t, tokens.AddUserToken(ctx, 7, pair.AccessToken))
	mr.FastForward(redis.UserTokenExpire - time.Minute)

	w := get(r, "Bearer "+pair.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		UserID uint64 `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint64(7), body.UserID)

	// 访问后续期
	assert.Greater(t, mr.TTL("login:user:token:7"), redis.UserTokenExpire-time.Second)

	// 其它地方登录覆盖了 token
	require.NoError(t, tokens.AddUserToken(ctx, 7, "other"))
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+pair.AccessToken).Code)

	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "Bearer "+pair.AccessToken).Code)
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestLogger(logger))
	r.GET("/ok", func(c *gin.Context) {
		c.Set(ContextUserIDKey, uint64(3))
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)

	var entries []map[string]any
	for _, l := range lines {
		var m map[string]any
		require.NoError(t, json.Unmarshal(l, &m))
		entries = append(entries, m)
	}
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, float64(3), entries[0]["user_id"])
	assert.Equal(t, "ERROR", entries[1]["level"])
	assert.Contains(t, entries[1]["errors"], assert.AnError.Error())
	assert.Equal(t, "WARN", entries[2]["level"])
	assert.Equal(t, float64(http.StatusNotFound), entries[2]["status"])
}
