package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum-core/backend/internal/forum"
	"github.com/emilythestrangee/forum-core/backend/internal/models"
)

type PostHandler struct {
	responder
	content *forum.ContentStore
}

func postResponse(post *models.Post) gin.H {
	up, down := models.Tally(post.Votes)
	comments := make([]gin.H, 0, len(post.Comments))
	for i := range post.Comments {
		comments = append(comments, commentResponse(&post.Comments[i]))
	}
	return gin.H{
		"id":         post.ID,
		"title":      post.Title,
		"content":    post.Content,
		"author":     post.AuthorID,
		"user":       post.Author.Profile(),
		"comments":   comments,
		"votes":      post.Votes,
		"upvotes":    up,
		"downvotes":  down,
		"created_at": post.CreatedAt,
		"updated_at": post.UpdatedAt,
	}
}

func (h *PostHandler) GetPosts(c *gin.Context) {
	posts, err := h.content.ListPosts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	responses := make([]gin.H, 0, len(posts))
	for i := range posts {
		responses = append(responses, postResponse(&posts[i]))
	}
	c.JSON(http.StatusOK, responses)
}

// GetPost returns a single post with its comments and votes
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.content.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, postResponse(post))
}

// CreatePost creates a new post (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bindError(c, err)
		return
	}

	post, err := h.content.CreatePost(c.Request.Context(), userID, input.Title, input.Content)
	if err = h.record("create_post", err); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, postResponse(post))
}

// UpdatePost updates an existing post (PROTECTED - requires ownership)
func (h *PostHandler) UpdatePost(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var input models.UpdatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bindError(c, err)
		return
	}

	post, err := h.content.UpdatePost(c.Request.Context(), c.Param("id"), userID, input.Title, input.Content)
	if err = h.record("update_post", err); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, postResponse(post))
}

// DeletePost deletes a post with its comments and votes (PROTECTED - requires ownership)
func (h *PostHandler) DeletePost(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	err := h.content.DeletePost(c.Request.Context(), c.Param("id"), userID)
	if err = h.record("delete_post", err); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}
