package models

import (
	"time"

	"github.com/roomdang/roomdang-backend/pkg/enums"
)

// Alarm stores a persisted notification addressed to a single member.
// RelID is a soft reference to the message/post/party that triggered it.
type Alarm struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ReceiverID int64           `gorm:"not null;index:idx_alarms_receiver_created" json:"receiverId"`
	Title      string          `gorm:"type:text;not null" json:"title"`
	Content    string          `gorm:"type:text;not null" json:"content"`
	ReadStatus bool            `gorm:"not null;default:false" json:"readStatus"`
	RelID      *int64          `json:"relId"`
	AlarmType  enums.AlarmType `gorm:"type:text;not null" json:"alarmType"`
	CreatedAt  time.Time       `gorm:"not null;index:idx_alarms_receiver_created" json:"createdAt"`
	ModifiedAt time.Time       `gorm:"autoUpdateTime" json:"modifiedAt"`
}
