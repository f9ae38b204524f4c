package handlers

import (
	"encoding/json"
	"errors"
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

	"github.com/emilythestrangee/forum-core/backend/internal/apperr"
	"github.com/emilythestrangee/forum-core/backend/internal/auth"
	"github.com/emilythestrangee/forum-core/backend/internal/metrics"
	"github.com/emilythestrangee/forum-core/backend/internal/middleware"
	"github.com/emilythestrangee/forum-core/backend/internal/models"
	"github.com/emilythestrangee/forum-core/backend/internal/repository"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindMissingCredential, http.StatusUnauthorized},
		{apperr.KindInvalidCredential, http.StatusUnauthorized},
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindForbidden, http.StatusForbidden},
		{apperr.KindValidation, http.StatusBadRequest},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindInternal, http.StatusInternalServerError},
		{apperr.Kind("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}

func TestRespondErrorHidesInternalCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.ErrorLevel)
	r := responder{log: zap.New(core), metrics: metrics.New()}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/posts", nil)

	r.respondError(c, apperr.Internal(errors.New("connection refused on 10.0.0.7"), "error retrieving posts"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.7")
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal", body["kind"])
	assert.Equal(t, 1, logs.Len())
}

func TestRespondErrorClientKindsAreNotLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := responder{log: zap.New(core), metrics: metrics.New()}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/api/posts/p1", nil)

	r.respondError(c, apperr.Forbidden("caller is not the author of this resource"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"caller is not the author of this resource","kind":"forbidden"}`, rec.Body.String())
	assert.Zero(t, logs.Len())
}

func TestCurrentUserWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := responder{log: zap.NewNop(), metrics: metrics.New()}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/me", nil)

	_, ok := r.currentUser(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Set(middleware.UserIDKey, "u1")
	userID, ok := r.currentUser(c)
	assert.True(t, ok)
	assert.Equal(t, "u1", userID)
}

func TestStoreError(t *testing.T) {
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(storeError(repository.ErrNotFound, "User not found")))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(storeError(repository.ErrDuplicate, "")))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(storeError(errors.New("boom"), "")))

	forbidden := apperr.Forbidden("no")
	assert.Same(t, forbidden, storeErrorOrSelf(forbidden))
}

func TestPostResponse(t *testing.T) {
	created := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	post := &models.Post{
		ID:       "p1",
		AuthorID: "u1",
		Author:   &models.User{ID: "u1", FirstName: "Lois", LastName: "Lane", Email: "lois@dailyplanet.com"},
		Title:    "t",
		Content:  "c",
		Comments: []models.Comment{{ID: "c1", PostID: "p1", AuthorID: "u2", Content: "hi"}},
		Votes: []models.Vote{
			{ID: "v1", VoterID: "u2", TargetType: "post", TargetID: "p1"},
			{ID: "v2", VoterID: "u3", TargetType: "post", TargetID: "p1", Down: true},
			{ID: "v3", VoterID: "u4", TargetType: "post", TargetID: "p1"},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}

	resp := postResponse(post)
	assert.Equal(t, 2, resp["upvotes"])
	assert.Equal(t, 1, resp["downvotes"])
	assert.Equal(t, "u1", resp["author"])
	assert.Equal(t, &models.Profile{ID: "u1", FirstName: "Lois", LastName: "Lane"}, resp["user"])

	comments := resp["comments"].([]gin.H)
	require.Len(t, comments, 1)
	assert.Equal(t, []models.Vote{}, comments[0]["votes"])
	assert.Nil(t, comments[0]["user"].(*models.Profile))
}

func TestNewHandlerWiresEverySubHandler(t *testing.T) {
	store, err := repository.OpenBadger(repository.BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})

	h := NewHandler(store, auth.NewIssuer([]byte("s"), time.Hour), metrics.New(), zap.NewNop())
	assert.NotNil(t, h.Auth)
	assert.NotNil(t, h.Post)
	assert.NotNil(t, h.Comment)
	assert.NotNil(t, h.Vote)
	assert.NotNil(t, h.User)
}
