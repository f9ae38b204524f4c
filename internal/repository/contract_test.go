package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/forum-core/backend/internal/models"
)

// runStoreContract exercises behaviour every Store implementation must share.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	newPost := func(t *testing.T, author string, at time.Time) *models.Post {
		t.Helper()
		p := &models.Post{ID: uuid.NewString(), AuthorID: author, Title: "title", Content: "content", CreatedAt: at, UpdatedAt: at}
		require.NoError(t, store.CreatePost(ctx, p))
		return p
	}
	newComment := func(t *testing.T, postID, author string, at time.Time) *models.Comment {
		t.Helper()
		c := &models.Comment{ID: uuid.NewString(), PostID: postID, AuthorID: author, Content: "comment", CreatedAt: at, UpdatedAt: at}
		require.NoError(t, store.CreateComment(ctx, c))
		return c
	}
	newVote := func(t *testing.T, voter string, target models.Target, down bool) *models.Vote {
		t.Helper()
		v := &models.Vote{ID: uuid.NewString(), VoterID: voter, Down: down}
		v.SetTarget(target)
		require.NoError(t, store.InsertVote(ctx, v))
		return v
	}

	t.Run("users", func(t *testing.T) {
		u := &models.User{ID: uuid.NewString(), FirstName: "Bruce", LastName: "Wayne", Email: "bruce-" + uuid.NewString() + "@wayne.com", PasswordHash: "hash"}
		require.NoError(t, store.CreateUser(ctx, u))

		got, err := store.GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "hash", got.PasswordHash)

		dup := &models.User{ID: uuid.NewString(), Email: u.Email, PasswordHash: "x"}
		assert.ErrorIs(t, store.CreateUser(ctx, dup), ErrDuplicate)

		_, err = store.GetUser(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("post detail resolves relations", func(t *testing.T) {
		author := &models.User{ID: uuid.NewString(), FirstName: "Diana", LastName: "Prince", Email: uuid.NewString() + "@themyscira.org", PasswordHash: "h"}
		require.NoError(t, store.CreateUser(ctx, author))

		p := newPost(t, author.ID, base)
		c2 := newComment(t, p.ID, "u2", base.Add(2*time.Minute))
		c1 := newComment(t, p.ID, "u3", base.Add(time.Minute))
		newVote(t, "u2", models.PostTarget(p.ID), false)
		newVote(t, "u3", models.CommentTarget(c1.ID), true)

		got, err := store.GetPostDetail(ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Author)
		assert.Equal(t, "Diana", got.Author.FirstName)
		require.Len(t, got.Comments, 2)
		assert.Equal(t, c1.ID, got.Comments[0].ID)
		assert.Equal(t, c2.ID, got.Comments[1].ID)
		require.Len(t, got.Comments[0].Votes, 1)
		assert.True(t, got.Comments[0].Votes[0].Down)
		assert.Empty(t, got.Comments[1].Votes)
		require.Len(t, got.Votes, 1)
		assert.Equal(t, "u2", got.Votes[0].VoterID)

		bare, err := store.GetPost(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, bare.Comments)
	})

	t.Run("list is newest first", func(t *testing.T) {
		older := newPost(t, "u1", base.Add(-48*time.Hour))
		newer := newPost(t, "u1", base.Add(48*time.Hour))

		posts, err := store.ListPostDetails(ctx)
		require.NoError(t, err)

		index := map[string]int{}
		for i, p := range posts {
			index[p.ID] = i
		}
		assert.Less(t, index[newer.ID], index[older.ID])
		for i := 1; i < len(posts); i++ {
			assert.False(t, posts[i].CreatedAt.After(posts[i-1].CreatedAt))
		}
	})

	t.Run("update and delete post", func(t *testing.T) {
		p := newPost(t, "u1", base)
		p.Title, p.Content, p.UpdatedAt = "new title", "new content", base.Add(time.Hour)
		require.NoError(t, store.UpdatePost(ctx, p))

		got, err := store.GetPost(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "new title", got.Title)
		assert.Equal(t, "u1", got.AuthorID)

		require.NoError(t, store.DeletePost(ctx, p.ID))
		assert.ErrorIs(t, store.DeletePost(ctx, p.ID), ErrNotFound)
		assert.ErrorIs(t, store.UpdatePost(ctx, p), ErrNotFound)
		_, err = store.GetPostDetail(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("comments", func(t *testing.T) {
		p := newPost(t, "u1", base)
		c := newComment(t, p.ID, "u2", base)

		c.Content, c.UpdatedAt = "edited", base.Add(time.Minute)
		require.NoError(t, store.UpdateComment(ctx, c))
		got, err := store.GetComment(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Content)
		assert.Equal(t, p.ID, got.PostID)

		require.NoError(t, store.DeleteComment(ctx, c.ID))
		assert.ErrorIs(t, store.DeleteComment(ctx, c.ID), ErrNotFound)

		list, err := store.ListComments(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("delete comments by post", func(t *testing.T) {
		p := newPost(t, "u1", base)
		other := newPost(t, "u1", base)
		a := newComment(t, p.ID, "u2", base)
		b := newComment(t, p.ID, "u3", base.Add(time.Second))
		keep := newComment(t, other.ID, "u2", base)

		ids, err := store.DeleteCommentsByPost(ctx, p.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

		ids, err = store.DeleteCommentsByPost(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)

		_, err = store.GetComment(ctx, keep.ID)
		assert.NoError(t, err)
	})

	t.Run("vote uniqueness and direction", func(t *testing.T) {
		target := models.PostTarget(uuid.NewString())
		v := newVote(t, "u1", target, true)

		dup := &models.Vote{ID: uuid.NewString(), VoterID: "u1", Down: false}
		dup.SetTarget(target)
		assert.ErrorIs(t, store.InsertVote(ctx, dup), ErrDuplicate)

		// same id under the other kind is a different target
		sameIDComment := &models.Vote{ID: uuid.NewString(), VoterID: "u1"}
		sameIDComment.SetTarget(models.CommentTarget(target.ID))
		require.NoError(t, store.InsertVote(ctx, sameIDComment))

		require.NoError(t, store.SetVoteDirection(ctx, v.ID, false))
		got, err := store.FindVote(ctx, "u1", target)
		require.NoError(t, err)
		assert.Equal(t, v.ID, got.ID)
		assert.False(t, got.Down)

		assert.ErrorIs(t, store.SetVoteDirection(ctx, "missing", true), ErrNotFound)

		require.NoError(t, store.DeleteVote(ctx, v.ID))
		_, err = store.FindVote(ctx, "u1", target)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.DeleteVote(ctx, v.ID), ErrNotFound)

		// the pair is free again once the vote is gone
		newVote(t, "u1", target, false)
	})

	t.Run("concurrent inserts keep one vote", func(t *testing.T) {
		target := models.CommentTarget(uuid.NewString())
		const writers = 8

		var wg sync.WaitGroup
		results := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v := &models.Vote{ID: uuid.NewString(), VoterID: "racer"}
				v.SetTarget(target)
				results[i] = store.InsertVote(ctx, v)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, ErrDuplicate)
		}
		assert.Equal(t, 1, succeeded)
	})

	t.Run("delete votes by targets", func(t *testing.T) {
		p := models.PostTarget(uuid.NewString())
		c := models.CommentTarget(uuid.NewString())
		untouched := models.PostTarget(uuid.NewString())
		newVote(t, "u1", p, false)
		newVote(t, "u2", p, true)
		newVote(t, "u1", c, false)
		keep := newVote(t, "u1", untouched, false)

		n, err := store.DeleteVotesByTargets(ctx, []models.Target{p, c})
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		n, err = store.DeleteVotesByTargets(ctx, []models.Target{p, c})
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		_, err = store.GetVote(ctx, keep.ID)
		assert.NoError(t, err)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		p := &models.Post{ID: uuid.NewString(), AuthorID: "u1", Title: "t", Content: "c", CreatedAt: base, UpdatedAt: base}
		err := store.InTx(ctx, func(tx Store) error {
			if err := tx.CreatePost(ctx, p); err != nil {
				return err
			}
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)

		_, err = store.GetPost(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("health", func(t *testing.T) {
		assert.Equal(t, "up", store.Health(ctx)["status"])
	})
}
