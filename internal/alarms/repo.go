package alarms

import (
	"context"
	"errors"
	"time"

	"github.com/roomdang/roomdang-backend/pkg/db/models"
	"github.com/roomdang/roomdang-backend/pkg/enums"
	"github.com/roomdang/roomdang-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for alarms.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, alarm *models.Alarm) error
	Get(ctx context.Context, receiverID, alarmID int64) (*models.Alarm, error)
	List(ctx context.Context, params listAlarmsParams) ([]models.Alarm, *pagination.Cursor, error)
	Counts(ctx context.Context, receiverID int64) (alarmCounts, error)
	MarkRead(ctx context.Context, receiverID, alarmID int64, now time.Time) (alarmMarkResult, error)
	MarkAllRead(ctx context.Context, receiverID int64, now time.Time) (int64, error)
	Delete(ctx context.Context, receiverID, alarmID int64) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an alarms repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listAlarmsParams struct {
	ReceiverID int64
	Limit      int
	Cursor     *pagination.Cursor
	AlarmType  *enums.AlarmType
	UnreadOnly bool
	Since      *time.Time
	Until      *time.Time
}

type alarmCounts struct {
	Total  int64
	Unread int64
}

type alarmMarkResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, alarm *models.Alarm) error {
	return r.db.WithContext(ctx).Create(alarm).Error
}

func (r *repositoryImpl) Get(ctx context.Context, receiverID, alarmID int64) (*models.Alarm, error) {
	var alarm models.Alarm
	err := r.db.WithContext(ctx).
		Where("id = ? AND receiver_id = ?", alarmID, receiverID).
		First(&alarm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alarm, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listAlarmsParams) ([]models.Alarm, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Alarm{}).Where("receiver_id = ?", params.ReceiverID)
	if params.AlarmType != nil {
		query = query.Where("alarm_type = ?", *params.AlarmType)
	}
	if params.UnreadOnly {
		query = query.Where("read_status = ?", false)
	}
	if params.Since != nil {
		query = query.Where("created_at >= ?", *params.Since)
	}
	if params.Until != nil {
		query = query.Where("created_at < ?", *params.Until)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var alarms []models.Alarm
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&alarms).Error; err != nil {
		return nil, nil, err
	}

	if len(alarms) > normalized {
		next := alarms[normalized]
		alarms = alarms[:normalized]
		return alarms, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return alarms, nil, nil
}

func (r *repositoryImpl) Counts(ctx context.Context, receiverID int64) (alarmCounts, error) {
	var counts alarmCounts
	if err := r.db.WithContext(ctx).
		Model(&models.Alarm{}).
		Where("receiver_id = ?", receiverID).
		Count(&counts.Total).Error; err != nil {
		return alarmCounts{}, err
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Alarm{}).
		Where("receiver_id = ? AND read_status = ?", receiverID, false).
		Count(&counts.Unread).Error; err != nil {
		return alarmCounts{}, err
	}
	return counts, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, receiverID, alarmID int64, now time.Time) (alarmMarkResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Alarm{}).
		Where("id = ? AND receiver_id = ? AND read_status = ?", alarmID, receiverID, false).
		UpdateColumns(map[string]any{"read_status": true, "modified_at": now})
	if result.Error != nil {
		return alarmMarkResult{}, result.Error
	}

	mark := alarmMarkResult{Updated: result.RowsAffected > 0}
	if result.RowsAffected > 0 {
		mark.Found = true
		return mark, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Alarm{}).
		Where("id = ? AND receiver_id = ?", alarmID, receiverID).
		Count(&count).Error; err != nil {
		return alarmMarkResult{}, err
	}
	mark.Found = count > 0
	return mark, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, receiverID int64, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Alarm{}).
		Where("receiver_id = ? AND read_status = ?", receiverID, false).
		UpdateColumns(map[string]any{"read_status": true, "modified_at": now})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, receiverID, alarmID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND receiver_id = ?", alarmID, receiverID).
		Delete(&models.Alarm{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.Alarm{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
