package alarms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roomdang/roomdang-backend/pkg/db/models"
	"github.com/roomdang/roomdang-backend/pkg/enums"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	paginationpkg "github.com/roomdang/roomdang-backend/pkg/pagination"
	"gorm.io/gorm"
)

type fakeRepository struct {
	createFn      func(ctx context.Context, alarm *models.Alarm) error
	getFn         func(ctx context.Context, receiverID, alarmID int64) (*models.Alarm, error)
	listFn        func(ctx context.Context, params listAlarmsParams) ([]models.Alarm, *paginationpkg.Cursor, error)
	markReadFn    func(ctx context.Context, receiverID, alarmID int64, now time.Time) (alarmMarkResult, error)
	markAllReadFn func(ctx context.Context, receiverID int64, now time.Time) (int64, error)
	deleteFn      func(ctx context.Context, receiverID, alarmID int64) (bool, error)
	deleteOlderFn func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, alarm *models.Alarm) error {
	if f.createFn != nil {
		return f.createFn(ctx, alarm)
	}
	alarm.ID = 1
	return nil
}

func (f *fakeRepository) Get(ctx context.Context, receiverID, alarmID int64) (*models.Alarm, error) {
	if f.getFn != nil {
		return f.getFn(ctx, receiverID, alarmID)
	}
	return nil, nil
}

func (f *fakeRepository) List(ctx context.Context, params listAlarmsParams) ([]models.Alarm, *paginationpkg.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) Counts(ctx context.Context, receiverID int64) (alarmCounts, error) {
	return alarmCounts{}, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, receiverID, alarmID int64, now time.Time) (alarmMarkResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, receiverID, alarmID, now)
	}
	return alarmMarkResult{}, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, receiverID int64, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, receiverID, now)
	}
	return 0, nil
}

func (f *fakeRepository) Delete(ctx context.Context, receiverID, alarmID int64) (bool, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, receiverID, alarmID)
	}
	return false, nil
}

func (f *fakeRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.deleteOlderFn != nil {
		return f.deleteOlderFn(ctx, cutoff)
	}
	return 0, nil
}

func newServiceWithRepo(repo Repository) Service {
	svc, _ := NewService(repo)
	return svc
}

func TestService_CreateRejectsInvalidCommand(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})

	cases := []struct {
		name   string
		params CreateParams
	}{
		{"missing receiver", CreateParams{Title: "t", Content: "c", AlarmType: enums.AlarmTypeMessage}},
		{"blank title", CreateParams{ReceiverID: 1, Title: "  ", Content: "c", AlarmType: enums.AlarmTypeMessage}},
		{"blank content", CreateParams{ReceiverID: 1, Title: "t", Content: "", AlarmType: enums.AlarmTypeMessage}},
		{"invalid type", CreateParams{ReceiverID: 1, Title: "t", Content: "c", AlarmType: enums.AlarmType("NOPE")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.params)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %s", pkgerrors.As(err).Code())
			}
		})
	}
}

func TestService_CreatePersistsAlarm(t *testing.T) {
	var created *models.Alarm
	repo := &fakeRepository{
		createFn: func(ctx context.Context, alarm *models.Alarm) error {
			alarm.ID = 314
			created = alarm
			return nil
		},
	}
	svc := newServiceWithRepo(repo)

	relID := int64(7)
	alarm, err := svc.Create(context.Background(), CreateParams{
		ReceiverID: 42,
		Title:      "party application",
		Content:    "Zoe applied",
		AlarmType:  enums.AlarmTypeSubscribe,
		RelID:      &relID,
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if alarm.ID != 314 {
		t.Fatalf("expected persisted id, got %d", alarm.ID)
	}
	if created.ReadStatus {
		t.Fatal("new alarms must start unread")
	}
	if created.RelID == nil || *created.RelID != 7 {
		t.Fatal("expected rel id carried through")
	}
}

func TestService_ListAlarms(t *testing.T) {
	first := models.Alarm{ID: 2, CreatedAt: time.Now().Add(-time.Hour)}
	next := models.Alarm{ID: 1, CreatedAt: time.Now().Add(-2 * time.Hour)}

	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listAlarmsParams) ([]models.Alarm, *paginationpkg.Cursor, error) {
			if params.ReceiverID != 42 {
				t.Fatalf("unexpected receiver %d", params.ReceiverID)
			}
			return []models.Alarm{first}, &paginationpkg.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
		},
	}

	svc := newServiceWithRepo(repo)
	result, err := svc.List(context.Background(), ListParams{ReceiverID: 42, Limit: 1})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 alarm, got %d", len(result.Items))
	}
	if result.Cursor == "" {
		t.Fatal("expected cursor for next page")
	}
	decoded, err := paginationpkg.ParseCursor(result.Cursor)
	if err != nil {
		t.Fatalf("invalid cursor %q: %v", result.Cursor, err)
	}
	if decoded.ID != next.ID {
		t.Fatalf("expected cursor id %d got %d", next.ID, decoded.ID)
	}
}

func TestService_ListInvalidCursor(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	_, err := svc.List(context.Background(), ListParams{ReceiverID: 42, Cursor: "bad"})
	if err == nil {
		t.Fatal("expected error for invalid cursor")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", pkgerrors.As(err).Code())
	}
}

func TestService_MarkReadIsIdempotent(t *testing.T) {
	calls := 0
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, receiverID, alarmID int64, now time.Time) (alarmMarkResult, error) {
			calls++
			if calls == 1 {
				return alarmMarkResult{Found: true, Updated: true}, nil
			}
			return alarmMarkResult{Found: true, Updated: false}, nil
		},
	}
	svc := newServiceWithRepo(repo)

	if err := svc.MarkRead(context.Background(), 42, 1); err != nil {
		t.Fatalf("unexpected first mark-read error: %v", err)
	}
	if err := svc.MarkRead(context.Background(), 42, 1); err != nil {
		t.Fatalf("second mark-read must be a no-op, got %v", err)
	}
}

func TestService_MarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, receiverID, alarmID int64, now time.Time) (alarmMarkResult, error) {
			return alarmMarkResult{Found: false}, nil
		},
	}
	svc := newServiceWithRepo(repo)

	err := svc.MarkRead(context.Background(), 42, 1)
	if err == nil {
		t.Fatal("expected not-found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %s", pkgerrors.As(err).Code())
	}
}

func TestService_RedirectURL(t *testing.T) {
	relID := int64(7)
	cases := []struct {
		name     string
		alarm    models.Alarm
		expected string
	}{
		{"message", models.Alarm{ID: 1, AlarmType: enums.AlarmTypeMessage, RelID: &relID}, "/messages/7"},
		{"subscribe", models.Alarm{ID: 1, AlarmType: enums.AlarmTypeSubscribe, RelID: &relID}, "/parties/7"},
		{"party apply", models.Alarm{ID: 1, AlarmType: enums.AlarmTypePartyApply, RelID: &relID}, "/parties/7"},
		{"post reply", models.Alarm{ID: 1, AlarmType: enums.AlarmTypePostReply, RelID: &relID}, "/boards/7"},
		{"system default", models.Alarm{ID: 1, AlarmType: enums.AlarmTypeSystem, RelID: &relID}, "/alarms"},
		{"no rel id", models.Alarm{ID: 1, AlarmType: enums.AlarmTypeMessage}, "/notifications"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alarm := tc.alarm
			repo := &fakeRepository{
				getFn: func(ctx context.Context, receiverID, alarmID int64) (*models.Alarm, error) {
					return &alarm, nil
				},
				markReadFn: func(ctx context.Context, receiverID, alarmID int64, now time.Time) (alarmMarkResult, error) {
					return alarmMarkResult{Found: true, Updated: true}, nil
				},
			}
			svc := newServiceWithRepo(repo)

			url, err := svc.RedirectURL(context.Background(), 42, 1)
			if err != nil {
				t.Fatalf("unexpected redirect error: %v", err)
			}
			if url != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, url)
			}
		})
	}
}

func TestService_DeleteNotFound(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{
		deleteFn: func(ctx context.Context, receiverID, alarmID int64) (bool, error) {
			return false, nil
		},
	})

	err := svc.Delete(context.Background(), 42, 1)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_DeleteOlderThanDependencyFailure(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{
		deleteOlderFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			return 0, errors.New("db down")
		},
	})

	_, err := svc.DeleteOlderThan(context.Background(), time.Now().Add(-30*24*time.Hour))
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
