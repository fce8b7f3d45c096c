package models

import "time"

// Bet is one participant's stake on a poll. Rows are never updated after insert.
type Bet struct {
	ID     string `gorm:"type:varchar(36);primaryKey" json:"id"`
	User   string `gorm:"column:user_key;type:varchar(100);not null;index" json:"user"`
	PollID string `gorm:"type:varchar(36);not null;index" json:"poll_id"`
	Choice uint8  `gorm:"type:smallint;not null" json:"choice"`
	Amount uint64 `gorm:"type:numeric(20,0);not null" json:"amount"`

	// Claimed has no writer; payouts are not implemented.
	Claimed bool `gorm:"not null;default:false" json:"claimed"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (Bet) TableName() string {
	return "bets"
}
