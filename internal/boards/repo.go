package boards

import (
	"context"
	"errors"

	"github.com/roomdang/roomdang-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for board posts and replies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, postID int64) (*models.Post, error)
	CreateReply(ctx context.Context, reply *models.PostReply) error
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *repositoryImpl) GetPost(ctx context.Context, postID int64) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).First(&post, postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

func (r *repositoryImpl) CreateReply(ctx context.Context, reply *models.PostReply) error {
	return r.db.WithContext(ctx).Create(reply).Error
}
