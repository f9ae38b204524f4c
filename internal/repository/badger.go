package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/emilythestrangee/forum-core/backend/internal/models"
)

const (
	userKeyPrefix    = "user:"
	postKeyPrefix    = "post:"
	commentKeyPrefix = "comment:"
	voteKeyPrefix    = "vote:"

	userEmailIndex    = "idx:user-email:"
	postCommentsIndex = "idx:post-comments:"
	voteVoterIndex    = "idx:vote-voter:"
	voteTargetIndex   = "idx:vote-target:"

	// index key components are joined with NUL so that ids may contain any printable character
	sep = "\x00"

	maxConflictRetries = 5
)

func userKey(id string) []byte    { return []byte(userKeyPrefix + id) }
func postKey(id string) []byte    { return []byte(postKeyPrefix + id) }
func commentKey(id string) []byte { return []byte(commentKeyPrefix + id) }
func voteKey(id string) []byte    { return []byte(voteKeyPrefix + id) }

func userEmailKey(email string) []byte { return []byte(userEmailIndex + email) }

func postCommentsPrefix(postID string) []byte {
	return []byte(postCommentsIndex + postID + sep)
}

func postCommentKey(postID, commentID string) []byte {
	return append(postCommentsPrefix(postID), commentID...)
}

func voteVoterKey(voterID string, t models.Target) []byte {
	return []byte(voteVoterIndex + voterID + sep + string(t.Kind) + sep + t.ID)
}

func voteTargetPrefix(t models.Target) []byte {
	return []byte(voteTargetIndex + string(t.Kind) + sep + t.ID + sep)
}

func voteTargetKey(t models.Target, voteID string) []byte {
	return append(voteTargetPrefix(t), voteID...)
}

// Stored shapes. Relations are never persisted inside a record.

type userRecord struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r *userRecord) model() *models.User {
	return &models.User{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type postRecord struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *postRecord) model() *models.Post {
	return &models.Post{
		ID:        r.ID,
		AuthorID:  r.AuthorID,
		Title:     r.Title,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type commentRecord struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *commentRecord) model() *models.Comment {
	return &models.Comment{
		ID:        r.ID,
		PostID:    r.PostID,
		AuthorID:  r.AuthorID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// BadgerStore implements Store on an embedded BadgerDB.
type BadgerStore struct {
	db  *badger.DB
	txn *badger.Txn
}

type BadgerOptions struct {
	Path     string
	InMemory bool
	Logger   *zap.Logger
}

// OpenBadger opens (or creates) a Badger database.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	if opts.Logger != nil {
		bopts = bopts.WithLogger(badgerLogger{opts.Logger.Named("badger").Sugar()})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// badgerLogger adapts zap to badger.Logger.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}

func (s *BadgerStore) view(fn func(txn *badger.Txn) error) error {
	if s.txn != nil {
		return fn(s.txn)
	}
	return s.db.View(fn)
}

// update runs fn in a read-write transaction, retrying when a concurrent
// transaction touched the same keys.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	if s.txn != nil {
		return fn(s.txn)
	}
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func marshalEntity(entity any) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

func unmarshalEntity(data []byte, entity any) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}

func getEntity[T any](txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := item.Value(func(val []byte) error {
		return unmarshalEntity(val, &v)
	}); err != nil {
		return nil, err
	}
	return &v, nil
}

func setEntity(txn *badger.Txn, key []byte, entity any) error {
	data, err := marshalEntity(entity)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func keyExists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// scanSuffixes returns the part after prefix of every key under prefix.
func scanSuffixes(txn *badger.Txn, prefix []byte) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().Key()
		out = append(out, string(bytes.TrimPrefix(key, prefix)))
	}
	return out
}

func normalizeTimes(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}

// Users

func (s *BadgerStore) CreateUser(_ context.Context, user *models.User) error {
	normalizeTimes(&user.CreatedAt, &user.UpdatedAt)
	rec := userRecord{
		ID:           user.ID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	return s.update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{userEmailKey(user.Email), userKey(user.ID)} {
			taken, err := keyExists(txn, key)
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicate
			}
		}
		if err := setEntity(txn, userKey(user.ID), rec); err != nil {
			return err
		}
		return txn.Set(userEmailKey(user.Email), []byte(user.ID))
	})
}

func (s *BadgerStore) GetUser(_ context.Context, id string) (*models.User, error) {
	var user *models.User
	err := s.view(func(txn *badger.Txn) error {
		rec, err := getEntity[userRecord](txn, userKey(id))
		if err != nil {
			return err
		}
		user = rec.model()
		return nil
	})
	return user, err
}

func (s *BadgerStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var id string
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		id = string(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

// Posts

func (s *BadgerStore) CreatePost(_ context.Context, post *models.Post) error {
	normalizeTimes(&post.CreatedAt, &post.UpdatedAt)
	rec := postRecord{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Title:     post.Title,
		Content:   post.Content,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
	return s.update(func(txn *badger.Txn) error {
		taken, err := keyExists(txn, postKey(post.ID))
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicate
		}
		return setEntity(txn, postKey(post.ID), rec)
	})
}

func (s *BadgerStore) GetPost(_ context.Context, id string) (*models.Post, error) {
	var post *models.Post
	err := s.view(func(txn *badger.Txn) error {
		rec, err := getEntity[postRecord](txn, postKey(id))
		if err != nil {
			return err
		}
		post = rec.model()
		return nil
	})
	return post, err
}

func (s *BadgerStore) GetPostDetail(_ context.Context, id string) (*models.Post, error) {
	var post *models.Post
	err := s.view(func(txn *badger.Txn) error {
		rec, err := getEntity[postRecord](txn, postKey(id))
		if err != nil {
			return err
		}
		post = rec.model()
		return resolvePost(txn, post)
	})
	return post, err
}

func (s *BadgerStore) ListPostDetails(_ context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := s.view(func(txn *badger.Txn) error {
		prefix := []byte(postKeyPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		var recs []postRecord
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec postRecord
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &rec)
			}); err != nil {
				it.Close()
				return err
			}
			recs = append(recs, rec)
		}
		it.Close()

		for i := range recs {
			post := recs[i].model()
			if err := resolvePost(txn, post); err != nil {
				return err
			}
			posts = append(posts, *post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (s *BadgerStore) UpdatePost(_ context.Context, post *models.Post) error {
	return s.update(func(txn *badger.Txn) error {
		rec, err := getEntity[postRecord](txn, postKey(post.ID))
		if err != nil {
			return err
		}
		rec.Title = post.Title
		rec.Content = post.Content
		rec.UpdatedAt = post.UpdatedAt
		return setEntity(txn, postKey(post.ID), rec)
	})
}

func (s *BadgerStore) DeletePost(_ context.Context, id string) error {
	return s.update(func(txn *badger.Txn) error {
		found, err := keyExists(txn, postKey(id))
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		return txn.Delete(postKey(id))
	})
}

func resolvePost(txn *badger.Txn, post *models.Post) error {
	author, err := loadAuthor(txn, post.AuthorID)
	if err != nil {
		return err
	}
	post.Author = author

	comments, err := loadComments(txn, post.ID)
	if err != nil {
		return err
	}
	post.Comments = comments

	votes, err := loadVotes(txn, models.PostTarget(post.ID))
	if err != nil {
		return err
	}
	post.Votes = votes
	return nil
}

// loadAuthor tolerates authors that were never registered locally.
func loadAuthor(txn *badger.Txn, id string) (*models.User, error) {
	rec, err := getEntity[userRecord](txn, userKey(id))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.model(), nil
}

func loadComment(txn *badger.Txn, id string) (*models.Comment, error) {
	rec, err := getEntity[commentRecord](txn, commentKey(id))
	if err != nil {
		return nil, err
	}
	comment := rec.model()
	if comment.Author, err = loadAuthor(txn, comment.AuthorID); err != nil {
		return nil, err
	}
	if comment.Votes, err = loadVotes(txn, models.CommentTarget(comment.ID)); err != nil {
		return nil, err
	}
	return comment, nil
}

func loadComments(txn *badger.Txn, postID string) ([]models.Comment, error) {
	ids := scanSuffixes(txn, postCommentsPrefix(postID))
	comments := make([]models.Comment, 0, len(ids))
	for _, id := range ids {
		comment, err := loadComment(txn, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		comments = append(comments, *comment)
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

func loadVotes(txn *badger.Txn, target models.Target) ([]models.Vote, error) {
	ids := scanSuffixes(txn, voteTargetPrefix(target))
	votes := make([]models.Vote, 0, len(ids))
	for _, id := range ids {
		vote, err := getEntity[models.Vote](txn, voteKey(id))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		votes = append(votes, *vote)
	}
	sort.SliceStable(votes, func(i, j int) bool {
		return votes[i].CreatedAt.Before(votes[j].CreatedAt)
	})
	return votes, nil
}

// Comments

func (s *BadgerStore) CreateComment(_ context.Context, comment *models.Comment) error {
	normalizeTimes(&comment.CreatedAt, &comment.UpdatedAt)
	rec := commentRecord{
		ID:        comment.ID,
		PostID:    comment.PostID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
	return s.update(func(txn *badger.Txn) error {
		taken, err := keyExists(txn, commentKey(comment.ID))
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicate
		}
		if err := setEntity(txn, commentKey(comment.ID), rec); err != nil {
			return err
		}
		return txn.Set(postCommentKey(comment.PostID, comment.ID), []byte{})
	})
}

func (s *BadgerStore) GetComment(_ context.Context, id string) (*models.Comment, error) {
	var comment *models.Comment
	err := s.view(func(txn *badger.Txn) error {
		var err error
		comment, err = loadComment(txn, id)
		return err
	})
	return comment, err
}

func (s *BadgerStore) ListComments(_ context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.view(func(txn *badger.Txn) error {
		var err error
		comments, err = loadComments(txn, postID)
		return err
	})
	return comments, err
}

func (s *BadgerStore) UpdateComment(_ context.Context, comment *models.Comment) error {
	return s.update(func(txn *badger.Txn) error {
		rec, err := getEntity[commentRecord](txn, commentKey(comment.ID))
		if err != nil {
			return err
		}
		rec.Content = comment.Content
		rec.UpdatedAt = comment.UpdatedAt
		return setEntity(txn, commentKey(comment.ID), rec)
	})
}

func (s *BadgerStore) DeleteComment(_ context.Context, id string) error {
	return s.update(func(txn *badger.Txn) error {
		rec, err := getEntity[commentRecord](txn, commentKey(id))
		if err != nil {
			return err
		}
		if err := txn.Delete(postCommentKey(rec.PostID, id)); err != nil {
			return err
		}
		return txn.Delete(commentKey(id))
	})
}

func (s *BadgerStore) DeleteCommentsByPost(_ context.Context, postID string) ([]string, error) {
	var ids []string
	err := s.update(func(txn *badger.Txn) error {
		ids = scanSuffixes(txn, postCommentsPrefix(postID))
		for _, id := range ids {
			if err := txn.Delete(commentKey(id)); err != nil {
				return err
			}
			if err := txn.Delete(postCommentKey(postID, id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Votes

func (s *BadgerStore) InsertVote(_ context.Context, vote *models.Vote) error {
	normalizeTimes(&vote.CreatedAt, &vote.UpdatedAt)
	target := vote.Target()
	return s.update(func(txn *badger.Txn) error {
		// the read registers the key with the transaction, so two concurrent
		// inserts for the same (voter, target) cannot both commit
		taken, err := keyExists(txn, voteVoterKey(vote.VoterID, target))
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicate
		}
		if err := setEntity(txn, voteKey(vote.ID), vote); err != nil {
			return err
		}
		if err := txn.Set(voteVoterKey(vote.VoterID, target), []byte(vote.ID)); err != nil {
			return err
		}
		return txn.Set(voteTargetKey(target, vote.ID), []byte{})
	})
}

func (s *BadgerStore) GetVote(_ context.Context, id string) (*models.Vote, error) {
	var vote *models.Vote
	err := s.view(func(txn *badger.Txn) error {
		var err error
		vote, err = getEntity[models.Vote](txn, voteKey(id))
		return err
	})
	return vote, err
}

func (s *BadgerStore) FindVote(_ context.Context, voterID string, target models.Target) (*models.Vote, error) {
	var vote *models.Vote
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get(voteVoterKey(voterID, target))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		vote, err = getEntity[models.Vote](txn, voteKey(string(id)))
		return err
	})
	return vote, err
}

func (s *BadgerStore) SetVoteDirection(_ context.Context, id string, down bool) error {
	return s.update(func(txn *badger.Txn) error {
		vote, err := getEntity[models.Vote](txn, voteKey(id))
		if err != nil {
			return err
		}
		vote.Down = down
		vote.UpdatedAt = time.Now().UTC()
		return setEntity(txn, voteKey(id), vote)
	})
}

func deleteVoteKeys(txn *badger.Txn, vote *models.Vote) error {
	target := vote.Target()
	for _, key := range [][]byte{
		voteKey(vote.ID),
		voteVoterKey(vote.VoterID, target),
		voteTargetKey(target, vote.ID),
	} {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *BadgerStore) DeleteVote(_ context.Context, id string) error {
	return s.update(func(txn *badger.Txn) error {
		vote, err := getEntity[models.Vote](txn, voteKey(id))
		if err != nil {
			return err
		}
		return deleteVoteKeys(txn, vote)
	})
}

func (s *BadgerStore) DeleteVotesByTargets(_ context.Context, targets []models.Target) (int64, error) {
	var removed int64
	err := s.update(func(txn *badger.Txn) error {
		removed = 0
		for _, target := range targets {
			for _, id := range scanSuffixes(txn, voteTargetPrefix(target)) {
				vote, err := getEntity[models.Vote](txn, voteKey(id))
				if errors.Is(err, ErrNotFound) {
					// dangling index entry
					if err := txn.Delete(voteTargetKey(target, id)); err != nil {
						return err
					}
					continue
				}
				if err != nil {
					return err
				}
				if err := deleteVoteKeys(txn, vote); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// Transactions and lifecycle

func (s *BadgerStore) InTx(_ context.Context, fn func(tx Store) error) error {
	if s.txn != nil {
		return fn(s)
	}
	return s.update(func(txn *badger.Txn) error {
		return fn(&BadgerStore{db: s.db, txn: txn})
	})
}

func (s *BadgerStore) Health(_ context.Context) map[string]string {
	stats := map[string]string{"driver": "badger"}
	if s.db.IsClosed() {
		stats["status"] = "down"
		stats["error"] = "database closed"
		return stats
	}
	lsm, vlog := s.db.Size()
	stats["status"] = "up"
	stats["lsm_size"] = fmt.Sprintf("%d", lsm)
	stats["vlog_size"] = fmt.Sprintf("%d", vlog)
	return stats
}

func (s *BadgerStore) Close() error {
	if s.txn != nil {
		return nil
	}
	return s.db.Close()
}
