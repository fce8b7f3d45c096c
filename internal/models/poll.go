package models

import "time"

// Poll is one wagering round. Totals are lamports staked per outcome.
type Poll struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Authority string `gorm:"type:varchar(100);not null;index" json:"authority"`
	Vault     string `gorm:"type:varchar(100);not null;index" json:"vault"`

	StartPrice uint64 `gorm:"type:numeric(20,0);not null" json:"start_price"`
	EndTime    int64  `gorm:"not null" json:"end_time"`

	TotalPump     uint64 `gorm:"type:numeric(20,0);not null;default:0" json:"total_pump"`
	TotalDump     uint64 `gorm:"type:numeric(20,0);not null;default:0" json:"total_dump"`
	TotalStagnate uint64 `gorm:"type:numeric(20,0);not null;default:0" json:"total_stagnate"`

	Settled       bool       `gorm:"not null;default:false;index" json:"settled"`
	WinningChoice uint8      `gorm:"type:smallint;not null;default:0" json:"winning_choice"`
	EndPrice      uint64     `gorm:"type:numeric(20,0);not null;default:0" json:"end_price"`
	SettledAt     *time.Time `gorm:"type:timestamptz" json:"settled_at,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Poll) TableName() string {
	return "polls"
}
