package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/emilythestrangee/forum-core/backend/internal/auth"
)

var secret = []byte("middleware-secret")

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/whoami", func(c *gin.Context) {
		userID, _ := CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	r.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	identity := auth.NewIdentityContext(auth.NewJWTVerifier(secret))
	r := newRouter(AuthMiddleware(identity))

	token, err := auth.NewIssuer(secret, time.Hour).Issue("u1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantKind string
	}{
		{"valid", "Bearer " + token, http.StatusOK, ""},
		{"missing", "", http.StatusUnauthorized, "missing_credential"},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, "missing_credential"},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "invalid_credential"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.wantKind == "" {
				assert.Equal(t, "u1", body["user_id"])
				return
			}
			assert.Equal(t, tt.wantKind, body["kind"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newRouter(RequestLogger(zap.New(core)))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/whoami", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/whoami", entries[0].ContextMap()["route"])
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := newRouter(Recovery(zap.New(core)))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"internal"`)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
