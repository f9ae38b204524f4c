package forum

import (
	"context"
	"errors"

	"github.com/emilythestrangee/forum-core/backend/internal/apperr"
	"github.com/emilythestrangee/forum-core/backend/internal/models"
	"github.com/emilythestrangee/forum-core/backend/internal/repository"
)

// VoteLedger keeps at most one vote per (voter, target). Voting is open to
// any identified caller; ownership is not checked.
type VoteLedger struct {
	store repository.Store
	settings
}

func NewVoteLedger(store repository.Store, opts ...Option) *VoteLedger {
	return &VoteLedger{store: store, settings: applyOptions(opts)}
}

func validDirection(dir models.Direction) error {
	if dir != models.Up && dir != models.Down {
		return apperr.Validation("direction must be up or down")
	}
	return nil
}

// CastVote records a new vote. It fails with a conflict when the voter
// already has a vote on target; changing direction goes through SetDirection.
func (l *VoteLedger) CastVote(ctx context.Context, voterID string, target models.Target, dir models.Direction) (*models.Vote, error) {
	switch {
	case voterID == "":
		return nil, apperr.Validation("voter is required")
	case !target.Kind.Valid():
		return nil, apperr.Validation("target type must be post or comment")
	case target.ID == "":
		return nil, apperr.Validation("target id is required")
	}
	if err := validDirection(dir); err != nil {
		return nil, err
	}

	now := l.now()
	vote := &models.Vote{
		ID:        l.newID(),
		VoterID:   voterID,
		Down:      dir.IsDown(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	vote.SetTarget(target)

	err := l.store.InsertVote(ctx, vote)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Conflict("vote already exists")
	}
	if err != nil {
		return nil, apperr.Internal(err, "error creating vote")
	}
	return vote, nil
}

// GetVote looks up the voter's vote on target. A missing vote is reported
// as found == false with a nil error.
func (l *VoteLedger) GetVote(ctx context.Context, voterID string, target models.Target) (vote *models.Vote, found bool, err error) {
	vote, err = l.store.FindVote(ctx, voterID, target)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.Internal(err, "error retrieving vote")
	}
	return vote, true, nil
}

// SetDirection flips an existing vote in place.
func (l *VoteLedger) SetDirection(ctx context.Context, voteID string, dir models.Direction) error {
	if err := validDirection(dir); err != nil {
		return err
	}
	return storeError(l.store.SetVoteDirection(ctx, voteID, dir.IsDown()), "vote not found")
}

func (l *VoteLedger) RemoveVote(ctx context.Context, voteID string) error {
	return storeError(l.store.DeleteVote(ctx, voteID), "vote not found")
}
