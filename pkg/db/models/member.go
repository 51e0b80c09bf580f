package models

import "time"

// Member is the platform account. The alarm subsystem only correlates on its
// id; profile data lives here for the feature modules that publish events.
type Member struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Nickname     string    `gorm:"type:text;not null;uniqueIndex" json:"nickname"`
	Email        string    `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"type:text;not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
}
