package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/roomdang/roomdang-backend/pkg/logger"
)

const alarmRetentionDays = 30

// alarmSweeper is the slice of the alarm service the cleanup job needs.
type alarmSweeper interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlarmCleanupJobParams configure the retention sweep.
type AlarmCleanupJobParams struct {
	Logger    *logger.Logger
	Alarms    alarmSweeper
	Retention int
}

// NewAlarmCleanupJob builds the job that purges alarms past retention.
func NewAlarmCleanupJob(params AlarmCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Alarms == nil {
		return nil, fmt.Errorf("alarm service required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = alarmRetentionDays
	}
	return &alarmCleanupJob{
		logg:      params.Logger,
		alarms:    params.Alarms,
		retention: retention,
		now:       time.Now,
	}, nil
}

type alarmCleanupJob struct {
	logg      *logger.Logger
	alarms    alarmSweeper
	retention int
	now       func() time.Time
}

func (j *alarmCleanupJob) Name() string { return "alarm-cleanup" }

func (j *alarmCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.alarms.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("alarm cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "alarm cleanup complete")
	return nil
}
