package messages

import (
	"context"
	"strings"
	"time"

	"github.com/roomdang/roomdang-backend/internal/events"
	"github.com/roomdang/roomdang-backend/pkg/db/models"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/pagination"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// MemberLookup resolves member display data for event payloads.
type MemberLookup interface {
	Nickname(ctx context.Context, memberID int64) (string, error)
}

// Service defines direct-message operations.
type Service interface {
	Send(ctx context.Context, params SendParams) (*models.Message, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	members MemberLookup
	bus     *events.Bus
}

// SendParams carries a message-send command.
type SendParams struct {
	SenderID   int64
	ReceiverID int64
	Content    string
}

// ListParams configures pagination for a member's inbox.
type ListParams struct {
	ReceiverID int64
	Limit      int
	Cursor     string
}

// ListResult wraps returned messages and the cursor for the next page.
type ListResult struct {
	Items  []models.Message `json:"items"`
	Cursor string           `json:"cursor"`
}

// NewService wires message dependencies.
func NewService(tx txRunner, repo Repository, members MemberLookup, bus *events.Bus) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "messages repository required")
	}
	if members == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "member lookup required")
	}
	if bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event bus required")
	}
	return &service{tx: tx, repo: repo, members: members, bus: bus}, nil
}

// Send persists the message in its own transaction and publishes the
// domain event only after the commit, so alarm delivery can never roll
// the message back.
func (s *service) Send(ctx context.Context, params SendParams) (*models.Message, error) {
	if params.SenderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender id required")
	}
	if params.ReceiverID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver id required")
	}
	if params.SenderID == params.ReceiverID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot message yourself")
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content required")
	}

	senderNickname, err := s.members.Nickname(ctx, params.SenderID)
	if err != nil {
		return nil, err
	}
	receiverNickname, err := s.members.Nickname(ctx, params.ReceiverID)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		SenderID:   params.SenderID,
		ReceiverID: params.ReceiverID,
		Content:    params.Content,
		CreatedAt:  time.Now().UTC(),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, message)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create message")
	}

	s.bus.Publish(ctx, events.MessageCreated{
		MessageID:        message.ID,
		SenderID:         params.SenderID,
		SenderNickname:   senderNickname,
		ReceiverID:       params.ReceiverID,
		ReceiverNickname: receiverNickname,
		Content:          params.Content,
	})

	return message, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ReceiverID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver id required")
	}

	query := listMessagesParams{
		ReceiverID: params.ReceiverID,
		Limit:      params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}
