package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum-core/backend/internal/forum"
	"github.com/emilythestrangee/forum-core/backend/internal/models"
)

type CommentHandler struct {
	responder
	content *forum.ContentStore
}

func commentResponse(comment *models.Comment) gin.H {
	up, down := models.Tally(comment.Votes)
	votes := comment.Votes
	if votes == nil {
		votes = []models.Vote{}
	}
	return gin.H{
		"id":         comment.ID,
		"post":       comment.PostID,
		"content":    comment.Content,
		"author":     comment.AuthorID,
		"user":       comment.Author.Profile(),
		"votes":      votes,
		"upvotes":    up,
		"downvotes":  down,
		"created_at": comment.CreatedAt,
		"updated_at": comment.UpdatedAt,
	}
}

// GetComments returns all comments of a post, oldest first
func (h *CommentHandler) GetComments(c *gin.Context) {
	comments, err := h.content.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	responses := make([]gin.H, 0, len(comments))
	for i := range comments {
		responses = append(responses, commentResponse(&comments[i]))
	}
	c.JSON(http.StatusOK, responses)
}

func (h *CommentHandler) GetComment(c *gin.Context) {
	comment, err := h.content.GetComment(c.Request.Context(), c.Param("id"), c.Param("commentId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, commentResponse(comment))
}

// CreateComment creates a new comment on a post
func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bindError(c, err)
		return
	}

	comment, err := h.content.CreateComment(c.Request.Context(), c.Param("id"), userID, input.Content)
	if err = h.record("create_comment", err); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commentResponse(comment))
}

// UpdateComment updates a comment (owner only)
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var input models.UpdateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bindError(c, err)
		return
	}

	comment, err := h.content.UpdateComment(c.Request.Context(), c.Param("id"), c.Param("commentId"), userID, input.Content)
	if err = h.record("update_comment", err); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, commentResponse(comment))
}

// DeleteComment deletes a comment and its votes (owner only)
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	err := h.content.DeleteComment(c.Request.Context(), c.Param("id"), c.Param("commentId"), userID)
	if err = h.record("delete_comment", err); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
