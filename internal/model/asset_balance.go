package model

import (
	"time"
)

// AssetBalanceModel 托管台账余额，每个 (资产, 地址) 一条
type AssetBalanceModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Asset   string `json:"asset" gorm:"not null;uniqueIndex:idx_balance_asset_address"`
	Address string `json:"address" gorm:"not null;uniqueIndex:idx_balance_asset_address"`
	Balance int64  `json:"balance" gorm:"not null;default:0"`
}

// TableName 自定义表名
func (AssetBalanceModel) TableName() string {
	return "asset_balance"
}
