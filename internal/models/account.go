package models

import "time"

// Account holds a native-currency balance in lamports. Stakers and vaults are both accounts.
type Account struct {
	Key     string `gorm:"type:varchar(100);primaryKey" json:"key"`
	Balance uint64 `gorm:"type:numeric(20,0);not null;default:0" json:"balance"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}
