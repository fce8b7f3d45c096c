package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TransferKindBetStake = "bet_stake"
	TransferKindAirdrop  = "airdrop"
)

// Transfer journals every balance movement.
type Transfer struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	FromKey   string `gorm:"type:varchar(100);index" json:"from_key"`
	ToKey     string `gorm:"type:varchar(100);not null;index" json:"to_key"`
	Amount    uint64 `gorm:"type:numeric(20,0);not null" json:"amount"`
	Kind      string `gorm:"type:varchar(20);not null;index" json:"kind"`
	Reference string `gorm:"type:varchar(100);index" json:"reference,omitempty"`

	Memo datatypes.JSON `gorm:"type:jsonb" json:"memo,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (Transfer) TableName() string {
	return "transfers"
}
