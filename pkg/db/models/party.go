package models

import (
	"time"

	"github.com/roomdang/roomdang-backend/pkg/enums"
)

// Party is a group meetup for an escape-room run.
type Party struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	HostID      int64     `gorm:"not null;index" json:"hostId"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	ScheduledAt time.Time `gorm:"not null" json:"scheduledAt"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}

// PartyMember is one member's application to a party.
type PartyMember struct {
	ID        int64                   `gorm:"primaryKey;autoIncrement" json:"id"`
	PartyID   int64                   `gorm:"not null;index:idx_party_members_party_member" json:"partyId"`
	MemberID  int64                   `gorm:"not null;index:idx_party_members_party_member" json:"memberId"`
	Status    enums.PartyMemberStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt time.Time               `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time               `gorm:"autoUpdateTime" json:"updatedAt"`
}
