package alarms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roomdang/roomdang-backend/pkg/db/models"
	"github.com/roomdang/roomdang-backend/pkg/enums"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/pagination"
)

// fallbackRedirectPath is returned when an alarm carries no related entity.
const fallbackRedirectPath = "/notifications"

// Service defines alarm persistence and retrieval operations.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.Alarm, error)
	Get(ctx context.Context, receiverID, alarmID int64) (*models.Alarm, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Counts(ctx context.Context, receiverID int64) (*CountsResult, error)
	MarkRead(ctx context.Context, receiverID, alarmID int64) error
	MarkAllRead(ctx context.Context, receiverID int64) (int64, error)
	Delete(ctx context.Context, receiverID, alarmID int64) error
	RedirectURL(ctx context.Context, receiverID, alarmID int64) (string, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type service struct {
	repo Repository
}

// CreateParams carries an alarm-creation command from a listener or an
// admin endpoint.
type CreateParams struct {
	ReceiverID int64
	Title      string
	Content    string
	AlarmType  enums.AlarmType
	RelID      *int64
}

func (p CreateParams) validate() error {
	if p.ReceiverID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "receiver id required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if strings.TrimSpace(p.Content) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "content required")
	}
	if !p.AlarmType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid alarm type")
	}
	return nil
}

// ListParams configures pagination and filters for a member's alarms.
type ListParams struct {
	ReceiverID int64
	Limit      int
	Cursor     string
	AlarmType  *enums.AlarmType
	UnreadOnly bool
	Since      *time.Time
	Until      *time.Time
}

// ListResult wraps returned alarms and the cursor for the next page.
type ListResult struct {
	Items  []models.Alarm `json:"items"`
	Cursor string         `json:"cursor"`
}

// CountsResult reports total and unread alarm counts for a member.
type CountsResult struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
}

// NewService wires alarm store dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "alarms repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.Alarm, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	alarm := &models.Alarm{
		ReceiverID: params.ReceiverID,
		Title:      params.Title,
		Content:    params.Content,
		AlarmType:  params.AlarmType,
		RelID:      params.RelID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, alarm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create alarm")
	}
	return alarm, nil
}

func (s *service) Get(ctx context.Context, receiverID, alarmID int64) (*models.Alarm, error) {
	if receiverID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver id required")
	}
	if alarmID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "alarm id required")
	}

	alarm, err := s.repo.Get(ctx, receiverID, alarmID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get alarm")
	}
	if alarm == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "alarm not found")
	}
	return alarm, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ReceiverID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver id required")
	}
	if params.AlarmType != nil && !params.AlarmType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid alarm type filter")
	}

	query := listAlarmsParams{
		ReceiverID: params.ReceiverID,
		Limit:      params.Limit,
		AlarmType:  params.AlarmType,
		UnreadOnly: params.UnreadOnly,
		Since:      params.Since,
		Until:      params.Until,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list alarms")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) Counts(ctx context.Context, receiverID int64) (*CountsResult, error) {
	if receiverID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver id required")
	}

	counts, err := s.repo.Counts(ctx, receiverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count alarms")
	}
	return &CountsResult{Total: counts.Total, Unread: counts.Unread}, nil
}

func (s *service) MarkRead(ctx context.Context, receiverID, alarmID int64) error {
	if receiverID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "receiver id required")
	}
	if alarmID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "alarm id required")
	}

	result, err := s.repo.MarkRead(ctx, receiverID, alarmID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark alarm read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "alarm not found")
	}
	// Already-read alarms stay read; a second mark is a no-op, not an error.
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, receiverID int64) (int64, error) {
	if receiverID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "receiver id required")
	}

	count, err := s.repo.MarkAllRead(ctx, receiverID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark alarms read")
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, receiverID, alarmID int64) error {
	if receiverID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "receiver id required")
	}
	if alarmID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "alarm id required")
	}

	deleted, err := s.repo.Delete(ctx, receiverID, alarmID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete alarm")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "alarm not found")
	}
	return nil
}

// RedirectURL resolves the in-app destination for an alarm and marks it
// read on the way through, since following the link is an acknowledgement.
func (s *service) RedirectURL(ctx context.Context, receiverID, alarmID int64) (string, error) {
	alarm, err := s.Get(ctx, receiverID, alarmID)
	if err != nil {
		return "", err
	}

	if _, err := s.repo.MarkRead(ctx, receiverID, alarmID, time.Now().UTC()); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark alarm read")
	}

	return redirectPathFor(alarm), nil
}

func (s *service) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if cutoff.IsZero() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "cutoff required")
	}

	count, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete old alarms")
	}
	return count, nil
}

func redirectPathFor(alarm *models.Alarm) string {
	if alarm.RelID == nil {
		return fallbackRedirectPath
	}
	switch alarm.AlarmType {
	case enums.AlarmTypeMessage:
		return fmt.Sprintf("/messages/%d", *alarm.RelID)
	case enums.AlarmTypeSubscribe, enums.AlarmTypePartyApply, enums.AlarmTypePartyStatus:
		return fmt.Sprintf("/parties/%d", *alarm.RelID)
	case enums.AlarmTypePostReply:
		return fmt.Sprintf("/boards/%d", *alarm.RelID)
	default:
		return "/alarms"
	}
}
