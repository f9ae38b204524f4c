package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/emilythestrangee/forum-core/backend/internal/apperr"
	"github.com/emilythestrangee/forum-core/backend/internal/auth"
	"github.com/emilythestrangee/forum-core/backend/internal/models"
	"github.com/emilythestrangee/forum-core/backend/internal/repository"
)

// AuthHandler issues the credentials the auth middleware later verifies.
type AuthHandler struct {
	responder
	store  repository.Store
	issuer *auth.Issuer
}

var errInvalidLogin = apperr.New(apperr.KindInvalidCredential, "Invalid credentials")

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bindError(c, err)
		return
	}

	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		h.respondError(c, apperr.Internal(err, "Failed to hash password"))
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = h.store.CreateUser(c.Request.Context(), user)
	if errors.Is(err, repository.ErrDuplicate) {
		err = apperr.Conflict("Email already registered")
	}
	if err = h.record("register", err); err != nil {
		h.respondError(c, storeErrorOrSelf(err))
		return
	}

	token, err := h.issuer.Issue(user.ID)
	if err != nil {
		h.respondError(c, apperr.Internal(err, "Failed to generate token"))
		return
	}

	c.JSON(http.StatusCreated, models.AuthResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    *user,
	})
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bindError(c, err)
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(input.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		h.respondError(c, errInvalidLogin)
		return
	}
	if err != nil {
		h.respondError(c, storeError(err, "User not found"))
		return
	}

	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		h.respondError(c, errInvalidLogin)
		return
	}

	token, err := h.issuer.Issue(user.ID)
	if err != nil {
		h.respondError(c, apperr.Internal(err, "Failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Message: "Login successful",
		Token:   token,
		User:    *user,
	})
}

// GetMe returns the current authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	user, err := h.store.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, storeError(err, "User not found"))
		return
	}
	c.JSON(http.StatusOK, user)
}

// storeErrorOrSelf leaves classified errors alone and classifies the rest.
func storeErrorOrSelf(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return storeError(err, "not found")
}
