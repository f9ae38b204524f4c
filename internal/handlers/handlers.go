package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/forum-core/backend/internal/apperr"
	"github.com/emilythestrangee/forum-core/backend/internal/auth"
	"github.com/emilythestrangee/forum-core/backend/internal/forum"
	"github.com/emilythestrangee/forum-core/backend/internal/metrics"
	"github.com/emilythestrangee/forum-core/backend/internal/middleware"
	"github.com/emilythestrangee/forum-core/backend/internal/repository"
)

// Handler combines all handler types
type Handler struct {
	Auth    *AuthHandler
	Post    *PostHandler
	Comment *CommentHandler
	Vote    *VoteHandler
	User    *UserHandler
}

// NewHandler wires the forum services on top of store and builds every
// sub-handler from them.
func NewHandler(store repository.Store, issuer *auth.Issuer, m *metrics.Metrics, log *zap.Logger) *Handler {
	cascade := forum.NewCascadeDeleter(store)
	content := forum.NewContentStore(store, cascade)
	votes := forum.NewVoteLedger(store)
	base := responder{log: log, metrics: m}

	return &Handler{
		Auth:    &AuthHandler{responder: base, store: store, issuer: issuer},
		Post:    &PostHandler{responder: base, content: content},
		Comment: &CommentHandler{responder: base, content: content},
		Vote:    &VoteHandler{responder: base, votes: votes},
		User:    &UserHandler{responder: base, store: store, content: content},
	}
}

// responder holds what every handler needs to answer a request.
type responder struct {
	log     *zap.Logger
	metrics *metrics.Metrics
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindMissingCredential, apperr.KindInvalidCredential:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (r responder) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		r.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		_ = c.Error(err)
	}
	c.JSON(statusFor(kind), gin.H{
		"error": apperr.MessageOf(err),
		"kind":  kind,
	})
}

// bindError answers a request whose body could not be decoded or failed
// binding validation.
func (r responder) bindError(c *gin.Context, err error) {
	r.respondError(c, apperr.Wrap(apperr.KindValidation, err, err.Error()))
}

// record counts a mutation and passes err through.
func (r responder) record(op string, err error) error {
	r.metrics.RecordMutation(op, err)
	return err
}

// currentUser returns the authenticated caller or answers 401.
func (r responder) currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		r.respondError(c, apperr.New(apperr.KindMissingCredential, "user not authenticated"))
		return "", false
	}
	return userID, true
}

// storeError classifies errors coming straight from the repository.
func storeError(err error, notFound string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("already exists")
	default:
		return apperr.Internal(err, "store operation failed")
	}
}
