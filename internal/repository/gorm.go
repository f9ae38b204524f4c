package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/forum-core/backend/internal/models"
)

// GormStore implements Store on a relational database through GORM.
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func commentsOldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at asc")
}

func votesOldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at asc")
}

// withPostRelations preloads everything a post detail carries.
func withPostRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Votes", votesOldestFirst).
		Preload("Comments", commentsOldestFirst).
		Preload("Comments.Author").
		Preload("Comments.Votes", votesOldestFirst)
}

// Users

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	res := s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Posts

func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(post).Error)
}

func (s *GormStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.conn(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (s *GormStore) GetPostDetail(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := withPostRelations(s.conn(ctx)).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (s *GormStore) ListPostDetails(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := withPostRelations(s.conn(ctx)).Order("created_at desc").Find(&posts).Error; err != nil {
		return nil, translate(err)
	}
	return posts, nil
}

func (s *GormStore) UpdatePost(ctx context.Context, post *models.Post) error {
	res := s.conn(ctx).Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
		"title":      post.Title,
		"content":    post.Content,
		"updated_at": post.UpdatedAt,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeletePost(ctx context.Context, id string) error {
	res := s.conn(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Comments

func (s *GormStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(comment).Error)
}

func (s *GormStore) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := s.conn(ctx).
		Preload("Author").
		Preload("Votes", votesOldestFirst).
		First(&comment, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (s *GormStore) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.conn(ctx).
		Preload("Author").
		Preload("Votes", votesOldestFirst).
		Where("post_id = ?", postID).
		Order("created_at asc").
		Find(&comments).Error
	if err != nil {
		return nil, translate(err)
	}
	return comments, nil
}

func (s *GormStore) UpdateComment(ctx context.Context, comment *models.Comment) error {
	res := s.conn(ctx).Model(&models.Comment{}).Where("id = ?", comment.ID).Updates(map[string]any{
		"content":    comment.Content,
		"updated_at": comment.UpdatedAt,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteComment(ctx context.Context, id string) error {
	res := s.conn(ctx).Where("id = ?", id).Delete(&models.Comment{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteCommentsByPost(ctx context.Context, postID string) ([]string, error) {
	var removed []models.Comment
	err := s.conn(ctx).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("post_id = ?", postID).
		Delete(&removed).Error
	if err != nil {
		return nil, translate(err)
	}

	ids := make([]string, 0, len(removed))
	for _, c := range removed {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// Votes

func (s *GormStore) InsertVote(ctx context.Context, vote *models.Vote) error {
	// the unique (voter_id, target_type, target_id) index makes this a single conditional insert
	res := s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(vote)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *GormStore) GetVote(ctx context.Context, id string) (*models.Vote, error) {
	var vote models.Vote
	if err := s.conn(ctx).First(&vote, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &vote, nil
}

func (s *GormStore) FindVote(ctx context.Context, voterID string, target models.Target) (*models.Vote, error) {
	var vote models.Vote
	err := s.conn(ctx).
		Where("voter_id = ? AND target_type = ? AND target_id = ?", voterID, string(target.Kind), target.ID).
		First(&vote).Error
	if err != nil {
		return nil, translate(err)
	}
	return &vote, nil
}

func (s *GormStore) SetVoteDirection(ctx context.Context, id string, down bool) error {
	res := s.conn(ctx).Model(&models.Vote{}).Where("id = ?", id).Updates(map[string]any{
		"down":       down,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteVote(ctx context.Context, id string) error {
	res := s.conn(ctx).Where("id = ?", id).Delete(&models.Vote{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteVotesByTargets(ctx context.Context, targets []models.Target) (int64, error) {
	byKind := make(map[models.TargetKind][]string)
	for _, t := range targets {
		byKind[t.Kind] = append(byKind[t.Kind], t.ID)
	}

	var total int64
	for kind, ids := range byKind {
		res := s.conn(ctx).
			Where("target_type = ? AND target_id IN ?", string(kind), ids).
			Delete(&models.Vote{})
		if res.Error != nil {
			return total, translate(res.Error)
		}
		total += res.RowsAffected
	}
	return total, nil
}

// Transactions and lifecycle

func (s *GormStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}

// Health checks the health of the database connection by pinging the database.
func (s *GormStore) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats := map[string]string{"driver": "postgres"}

	sqlDB, err := s.db.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"

	dbStats := sqlDB.Stats()
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)

	return stats
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
