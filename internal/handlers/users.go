package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum-core/backend/internal/forum"
	"github.com/emilythestrangee/forum-core/backend/internal/repository"
)

type UserHandler struct {
	responder
	store   repository.Store
	content *forum.ContentStore
}

// GetUserProfile returns a user's public profile and their posts
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		h.respondError(c, storeError(err, "User not found"))
		return
	}

	posts, err := h.content.ListPosts(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	authored := make([]gin.H, 0)
	for i := range posts {
		if posts[i].AuthorID == userID {
			authored = append(authored, postResponse(&posts[i]))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  user.Profile(),
		"posts": authored,
	})
}
