package forum

import (
	"context"

	"github.com/emilythestrangee/forum-core/backend/internal/models"
	"github.com/emilythestrangee/forum-core/backend/internal/repository"
)

// CascadeReport counts what a cascade removed.
type CascadeReport struct {
	Comments int
	Votes    int64
}

// CascadeDeleter removes the dependents of a deleted post: its comments,
// the votes on the post and the votes on each of those comments.
type CascadeDeleter struct {
	store repository.Store
}

func NewCascadeDeleter(store repository.Store) *CascadeDeleter {
	return &CascadeDeleter{store: store}
}

// OnPostDeleted sweeps the dependents of postID in one transaction. Running
// it again for an already-swept post removes nothing and succeeds.
func (d *CascadeDeleter) OnPostDeleted(ctx context.Context, postID string) (CascadeReport, error) {
	var report CascadeReport
	err := d.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		report, err = d.sweep(ctx, tx, postID)
		return err
	})
	if err != nil {
		return CascadeReport{}, storeError(err, "post not found")
	}
	return report, nil
}

func (d *CascadeDeleter) sweep(ctx context.Context, tx repository.Store, postID string) (CascadeReport, error) {
	commentIDs, err := tx.DeleteCommentsByPost(ctx, postID)
	if err != nil {
		return CascadeReport{}, err
	}

	targets := make([]models.Target, 0, len(commentIDs)+1)
	targets = append(targets, models.PostTarget(postID))
	for _, id := range commentIDs {
		targets = append(targets, models.CommentTarget(id))
	}

	votes, err := tx.DeleteVotesByTargets(ctx, targets)
	if err != nil {
		return CascadeReport{}, err
	}
	return CascadeReport{Comments: len(commentIDs), Votes: votes}, nil
}
