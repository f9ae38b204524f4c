package forum

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/emilythestrangee/forum-core/backend/internal/apperr"
	"github.com/emilythestrangee/forum-core/backend/internal/models"
	"github.com/emilythestrangee/forum-core/backend/internal/repository"
)

// ContentStore applies create/read/update/delete operations on posts and
// comments. Updates and deletes check, in order: existence, ownership,
// field validation; the first failing check aborts before any write.
type ContentStore struct {
	store    repository.Store
	cascade  *CascadeDeleter
	validate *validator.Validate
	settings
}

func NewContentStore(store repository.Store, cascade *CascadeDeleter, opts ...Option) *ContentStore {
	return &ContentStore{
		store:    store,
		cascade:  cascade,
		validate: newValidator(),
		settings: applyOptions(opts),
	}
}

type newPostFields struct {
	Author  string `json:"author" validate:"required"`
	Title   string `json:"title" validate:"notblank,max=300"`
	Content string `json:"content" validate:"notblank"`
}

// CreatePost stores a new post authored by authorID.
func (s *ContentStore) CreatePost(ctx context.Context, authorID, title, content string) (*models.Post, error) {
	if err := validateFields(s.validate, newPostFields{
		Author:  authorID,
		Title:   title,
		Content: content,
	}); err != nil {
		return nil, err
	}

	now := s.now()
	post := &models.Post{
		ID:        s.newID(),
		AuthorID:  authorID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, apperr.Internal(err, "post could not be created")
	}
	post.Normalize()
	return post, nil
}

// GetPost returns the post with its comments and votes resolved.
func (s *ContentStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.store.GetPostDetail(ctx, id)
	if err != nil {
		return nil, storeError(err, "post not found")
	}
	post.Normalize()
	return post, nil
}

// ListPosts returns a fresh snapshot of every post, newest first.
func (s *ContentStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := s.store.ListPostDetails(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "error retrieving posts")
	}
	if posts == nil {
		posts = []models.Post{}
	}
	for i := range posts {
		posts[i].Normalize()
	}
	return posts, nil
}

// UpdatePost replaces the title and content of a post owned by callerID.
func (s *ContentStore) UpdatePost(ctx context.Context, id, callerID, title, content string) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, storeError(err, "post does not exist")
	}
	if err := Authorize(post.AuthorID, callerID); err != nil {
		return nil, err
	}
	if err := validateFields(s.validate, postFields{Title: title, Content: content}); err != nil {
		return nil, err
	}

	post.Title = title
	post.Content = content
	post.UpdatedAt = s.now()
	if err := s.store.UpdatePost(ctx, post); err != nil {
		return nil, storeError(err, "post does not exist")
	}
	return s.GetPost(ctx, id)
}

// DeletePost removes a post owned by callerID together with its comments
// and every vote on the post or those comments.
func (s *ContentStore) DeletePost(ctx context.Context, id, callerID string) error {
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		post, err := tx.GetPost(ctx, id)
		if err != nil {
			return storeError(err, "post does not exist")
		}
		if err := Authorize(post.AuthorID, callerID); err != nil {
			return err
		}
		if err := tx.DeletePost(ctx, id); err != nil {
			return storeError(err, "post does not exist")
		}
		_, err = s.cascade.sweep(ctx, tx, id)
		return err
	})
	return storeError(err, "post does not exist")
}

// CreateComment adds a comment by authorID under an existing post.
func (s *ContentStore) CreateComment(ctx context.Context, postID, authorID, content string) (*models.Comment, error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, storeError(err, "post not found")
	}
	if authorID == "" {
		return nil, apperr.Validation("author is required")
	}
	if err := validateFields(s.validate, commentFields{Content: content}); err != nil {
		return nil, err
	}

	now := s.now()
	comment := &models.Comment{
		ID:        s.newID(),
		PostID:    postID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, apperr.Internal(err, "comment could not be created")
	}
	comment.Normalize()
	return comment, nil
}

// scopedComment loads a comment and requires it to belong to postID.
func scopedComment(ctx context.Context, store repository.Store, postID, commentID string) (*models.Comment, error) {
	comment, err := store.GetComment(ctx, commentID)
	if err != nil {
		return nil, storeError(err, "comment not found")
	}
	if comment.PostID != postID {
		return nil, apperr.NotFound("comment not found")
	}
	return comment, nil
}

func (s *ContentStore) GetComment(ctx context.Context, postID, commentID string) (*models.Comment, error) {
	comment, err := scopedComment(ctx, s.store, postID, commentID)
	if err != nil {
		return nil, err
	}
	comment.Normalize()
	return comment, nil
}

// ListComments returns the comments of a post in chronological order.
func (s *ContentStore) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, storeError(err, "post not found")
	}
	comments, err := s.store.ListComments(ctx, postID)
	if err != nil {
		return nil, apperr.Internal(err, "error retrieving comments")
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	for i := range comments {
		comments[i].Normalize()
	}
	return comments, nil
}

func (s *ContentStore) UpdateComment(ctx context.Context, postID, commentID, callerID, content string) (*models.Comment, error) {
	comment, err := scopedComment(ctx, s.store, postID, commentID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(comment.AuthorID, callerID); err != nil {
		return nil, err
	}
	if err := validateFields(s.validate, commentFields{Content: content}); err != nil {
		return nil, err
	}

	comment.Content = content
	comment.UpdatedAt = s.now()
	if err := s.store.UpdateComment(ctx, comment); err != nil {
		return nil, storeError(err, "comment not found")
	}
	comment.Normalize()
	return comment, nil
}

// DeleteComment removes a comment owned by callerID and the votes cast on it.
func (s *ContentStore) DeleteComment(ctx context.Context, postID, commentID, callerID string) error {
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		comment, err := scopedComment(ctx, tx, postID, commentID)
		if err != nil {
			return err
		}
		if err := Authorize(comment.AuthorID, callerID); err != nil {
			return err
		}
		if _, err := tx.DeleteVotesByTargets(ctx, []models.Target{models.CommentTarget(commentID)}); err != nil {
			return err
		}
		return tx.DeleteComment(ctx, commentID)
	})
	return storeError(err, "comment not found")
}
