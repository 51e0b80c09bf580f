package boards

import (
	"context"
	"strings"
	"time"

	"github.com/roomdang/roomdang-backend/internal/events"
	"github.com/roomdang/roomdang-backend/pkg/db/models"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines board post and reply operations.
type Service interface {
	CreatePost(ctx context.Context, params CreatePostParams) (*models.Post, error)
	CreateReply(ctx context.Context, params CreateReplyParams) (*models.PostReply, error)
}

type service struct {
	tx   txRunner
	repo Repository
	bus  *events.Bus
}

// CreatePostParams carries a post-creation command.
type CreatePostParams struct {
	AuthorID int64
	Title    string
	Content  string
}

// CreateReplyParams carries a reply-creation command.
type CreateReplyParams struct {
	PostID   int64
	AuthorID int64
	Content  string
}

// NewService wires board dependencies.
func NewService(tx txRunner, repo Repository, bus *events.Bus) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "boards repository required")
	}
	if bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event bus required")
	}
	return &service{tx: tx, repo: repo, bus: bus}, nil
}

func (s *service) CreatePost(ctx context.Context, params CreatePostParams) (*models.Post, error) {
	if params.AuthorID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author id required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content required")
	}

	post := &models.Post{
		AuthorID:  params.AuthorID,
		Title:     params.Title,
		Content:   params.Content,
		CreatedAt: time.Now().UTC(),
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreatePost(ctx, post)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create post")
	}
	return post, nil
}

// CreateReply persists the reply and notifies the post owner through the
// event bus once the write is committed. Replying to your own post does
// not notify.
func (s *service) CreateReply(ctx context.Context, params CreateReplyParams) (*models.PostReply, error) {
	if params.PostID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id required")
	}
	if params.AuthorID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author id required")
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content required")
	}

	post, err := s.repo.GetPost(ctx, params.PostID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get post")
	}
	if post == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}

	reply := &models.PostReply{
		PostID:    params.PostID,
		AuthorID:  params.AuthorID,
		Content:   params.Content,
		CreatedAt: time.Now().UTC(),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateReply(ctx, reply)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reply")
	}

	if post.AuthorID != params.AuthorID {
		s.bus.Publish(ctx, events.PostReplyCreated{
			ReplyID:      reply.ID,
			PostID:       post.ID,
			PostTitle:    post.Title,
			PostOwnerID:  post.AuthorID,
			ReplyContent: params.Content,
		})
	}

	return reply, nil
}
