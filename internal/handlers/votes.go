package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum-core/backend/internal/apperr"
	"github.com/emilythestrangee/forum-core/backend/internal/forum"
	"github.com/emilythestrangee/forum-core/backend/internal/models"
)

type VoteHandler struct {
	responder
	votes *forum.VoteLedger
}

func voteResponse(vote *models.Vote) gin.H {
	return gin.H{
		"id":          vote.ID,
		"voter":       vote.VoterID,
		"target_type": vote.TargetType,
		"target_id":   vote.TargetID,
		"direction":   vote.Direction(),
		"down":        vote.Down,
		"created_at":  vote.CreatedAt,
		"updated_at":  vote.UpdatedAt,
	}
}

// CastVote records the caller's vote on a post or comment. A second vote on
// the same target is a conflict; use SetDirection to flip it.
func (h *VoteHandler) CastVote(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var input models.CastVoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bindError(c, err)
		return
	}

	target := models.Target{Kind: models.TargetKind(input.TargetType), ID: input.TargetID}
	vote, err := h.votes.CastVote(c.Request.Context(), userID, target, models.Direction(input.Direction))
	if err = h.record("cast_vote", err); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, voteResponse(vote))
}

// GetVote returns the caller's vote on ?target_type=&target_id=, or 204.
func (h *VoteHandler) GetVote(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	target := models.Target{
		Kind: models.TargetKind(c.Query("target_type")),
		ID:   c.Query("target_id"),
	}
	if !target.Kind.Valid() || target.ID == "" {
		h.respondError(c, apperr.Validation("target_type (post or comment) and target_id are required"))
		return
	}

	vote, found, err := h.votes.GetVote(c.Request.Context(), userID, target)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, voteResponse(vote))
}

func (h *VoteHandler) SetDirection(c *gin.Context) {
	if _, ok := h.currentUser(c); !ok {
		return
	}

	var input models.SetDirectionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bindError(c, err)
		return
	}

	err := h.votes.SetDirection(c.Request.Context(), c.Param("id"), models.Direction(input.Direction))
	if err = h.record("set_vote_direction", err); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vote updated"})
}

func (h *VoteHandler) RemoveVote(c *gin.Context) {
	if _, ok := h.currentUser(c); !ok {
		return
	}

	err := h.votes.RemoveVote(c.Request.Context(), c.Param("id"))
	if err = h.record("remove_vote", err); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vote removed"})
}
