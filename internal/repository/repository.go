// Package repository defines the persistence contracts of the forum and
// their GORM (Postgres) and Badger implementations.
package repository

import (
	"context"
	"errors"

	"github.com/emilythestrangee/forum-core/backend/internal/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	// GetPost returns the post without relations.
	GetPost(ctx context.Context, id string) (*models.Post, error)
	// GetPostDetail returns the post with author, comments (with their votes) and votes.
	GetPostDetail(ctx context.Context, id string) (*models.Post, error)
	// ListPostDetails returns every post, newest first, with relations resolved.
	ListPostDetails(ctx context.Context) ([]models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id string) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	// GetComment returns the comment with its author and votes.
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	// ListComments returns the comments of a post, oldest first.
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, id string) error
	// DeleteCommentsByPost removes every comment of postID and returns their ids.
	DeleteCommentsByPost(ctx context.Context, postID string) ([]string, error)
}

type VoteRepository interface {
	// InsertVote creates the vote unless one already exists for the same
	// (voter, target); in that case it returns ErrDuplicate and writes nothing.
	InsertVote(ctx context.Context, vote *models.Vote) error
	GetVote(ctx context.Context, id string) (*models.Vote, error)
	FindVote(ctx context.Context, voterID string, target models.Target) (*models.Vote, error)
	SetVoteDirection(ctx context.Context, id string, down bool) error
	DeleteVote(ctx context.Context, id string) error
	// DeleteVotesByTargets removes all votes on any of targets and returns how many were removed.
	DeleteVotesByTargets(ctx context.Context, targets []models.Target) (int64, error)
}

// Store is the full persistence surface used by the forum core.
type Store interface {
	UserRepository
	PostRepository
	CommentRepository
	VoteRepository

	// InTx runs fn against a transaction-bound Store. The transaction commits
	// when fn returns nil and rolls back otherwise. Nested calls reuse the
	// outer transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// Health returns backend-specific status information.
	Health(ctx context.Context) map[string]string

	Close() error
}
