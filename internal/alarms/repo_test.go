package alarms

import (
	"context"
	"testing"
	"time"

	"github.com/roomdang/roomdang-backend/pkg/db/models"
	"github.com/roomdang/roomdang-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAlarmsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS alarms (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  receiver_id INTEGER NOT NULL,
  title TEXT NOT NULL,
  content TEXT NOT NULL,
  read_status INTEGER NOT NULL DEFAULT 0,
  rel_id INTEGER,
  alarm_type TEXT NOT NULL,
  created_at DATETIME,
  modified_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedAlarm(t *testing.T, db *gorm.DB, receiverID int64, alarmType enums.AlarmType, createdAt time.Time) models.Alarm {
	t.Helper()
	alarm := models.Alarm{
		ReceiverID: receiverID,
		Title:      "title",
		Content:    "content",
		AlarmType:  alarmType,
		CreatedAt:  createdAt,
	}
	require.NoError(t, db.Create(&alarm).Error)
	return alarm
}

func TestRepository_ListPaginatesAndFilters(t *testing.T) {
	db := setupAlarmsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	oldest := seedAlarm(t, db, 42, enums.AlarmTypeMessage, now.Add(-3*time.Hour))
	middle := seedAlarm(t, db, 42, enums.AlarmTypeSubscribe, now.Add(-2*time.Hour))
	newest := seedAlarm(t, db, 42, enums.AlarmTypeMessage, now.Add(-time.Hour))
	seedAlarm(t, db, 99, enums.AlarmTypeMessage, now)

	rows, cursor, err := repo.List(ctx, listAlarmsParams{ReceiverID: 42, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newest.ID, rows[0].ID)
	assert.Equal(t, middle.ID, rows[1].ID)
	require.NotNil(t, cursor)

	rows, cursor, err = repo.List(ctx, listAlarmsParams{ReceiverID: 42, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, oldest.ID, rows[0].ID)
	assert.Nil(t, cursor)

	messageType := enums.AlarmTypeMessage
	rows, _, err = repo.List(ctx, listAlarmsParams{ReceiverID: 42, AlarmType: &messageType})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRepository_MarkReadIsMonotonic(t *testing.T) {
	db := setupAlarmsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	alarm := seedAlarm(t, db, 42, enums.AlarmTypeMessage, time.Now().UTC())

	first, err := repo.MarkRead(ctx, 42, alarm.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, first.Found)
	assert.True(t, first.Updated)

	second, err := repo.MarkRead(ctx, 42, alarm.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, second.Found)
	assert.False(t, second.Updated)

	var stored models.Alarm
	require.NoError(t, db.First(&stored, alarm.ID).Error)
	assert.True(t, stored.ReadStatus)
}

func TestRepository_MarkReadScopedToReceiver(t *testing.T) {
	db := setupAlarmsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	alarm := seedAlarm(t, db, 42, enums.AlarmTypeMessage, time.Now().UTC())

	result, err := repo.MarkRead(ctx, 99, alarm.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, result.Found)
}

func TestRepository_MarkAllRead(t *testing.T) {
	db := setupAlarmsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedAlarm(t, db, 42, enums.AlarmTypeMessage, time.Now().UTC())
	seedAlarm(t, db, 42, enums.AlarmTypeSubscribe, time.Now().UTC())
	seedAlarm(t, db, 99, enums.AlarmTypeMessage, time.Now().UTC())

	count, err := repo.MarkAllRead(ctx, 42, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	counts, err := repo.Counts(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Total)
	assert.Equal(t, int64(0), counts.Unread)
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	db := setupAlarmsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	seedAlarm(t, db, 42, enums.AlarmTypeMessage, now.Add(-40*24*time.Hour))
	seedAlarm(t, db, 42, enums.AlarmTypeMessage, now.Add(-35*24*time.Hour))
	fresh := seedAlarm(t, db, 42, enums.AlarmTypeMessage, now.Add(-time.Hour))

	deleted, err := repo.DeleteOlderThan(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.Alarm
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, fresh.ID, remaining[0].ID)
}
