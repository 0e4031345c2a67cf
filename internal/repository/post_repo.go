package repository

import (
	"context"
	"strings"
	"time"

	"github.com/citygallery/citygallery/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedQuery is the compiled form of the feed filters; nil fields are not
// applied.
type FeedQuery struct {
	Search   string
	GroupID  *uuid.UUID
	From     *time.Time
	To       *time.Time
	AuthorID *uuid.UUID
}

// FeedKeyRow is the lightweight projection used for grouped feeds; the full
// rows are only loaded for the windowed items.
type FeedKeyRow struct {
	ID        uuid.UUID
	CreatedAt time.Time
	AuthorID  uuid.UUID
	GroupID   *uuid.UUID
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Post, error)
	FindFeedPage(ctx context.Context, q FeedQuery, offset, limit int) ([]*model.Post, int64, error)
	FindFeedKeys(ctx context.Context, q FeedQuery) ([]FeedKeyRow, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		Where("id = ?", id).
		First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []*model.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		Where("id IN ?", ids).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// applyFeedQuery compiles the filter into WHERE clauses. LOWER/LIKE keeps the
// search case-insensitive on both postgres and sqlite.
func applyFeedQuery(db *gorm.DB, q FeedQuery) *gorm.DB {
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern)
	}
	if q.GroupID != nil {
		db = db.Where("group_id = ?", *q.GroupID)
	}
	if q.From != nil {
		db = db.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("created_at <= ?", *q.To)
	}
	if q.AuthorID != nil {
		db = db.Where("author_id = ?", *q.AuthorID)
	}
	return db
}

func (r *postRepository) FindFeedPage(ctx context.Context, q FeedQuery, offset, limit int) ([]*model.Post, int64, error) {
	var posts []*model.Post
	var total int64

	query := applyFeedQuery(r.db.WithContext(ctx).Model(&model.Post{}), q)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Secondary id sort stabilizes pagination for posts sharing a timestamp.
	if err := query.
		Preload("Author").
		Preload("Group").
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (r *postRepository) FindFeedKeys(ctx context.Context, q FeedQuery) ([]FeedKeyRow, error) {
	var rows []FeedKeyRow
	query := applyFeedQuery(r.db.WithContext(ctx).Model(&model.Post{}), q)
	if err := query.
		Select("id", "created_at", "author_id", "group_id").
		Order("created_at DESC").
		Order("id DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Post{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
