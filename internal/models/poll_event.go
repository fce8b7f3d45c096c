package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PollEventCreated = "poll_created"
	PollEventBet     = "bet_placed"
	PollEventSettled = "poll_settled"
)

// PollEvent is the audit trail of committed poll mutations.
type PollEvent struct {
	ID      uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	PollID  string         `gorm:"type:varchar(36);not null;index" json:"poll_id"`
	Type    string         `gorm:"type:varchar(30);not null;index" json:"type"`
	Payload datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (PollEvent) TableName() string {
	return "poll_events"
}
