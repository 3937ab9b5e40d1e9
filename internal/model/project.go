package model

import (
	"time"
)

// ProjectModel 筹款项目，销售条款在创建后不可变
type ProjectModel struct {
	Id        int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Name        string `json:"name" gorm:"not null"`
	Symbol      string `json:"symbol" gorm:"not null"`
	Description string `json:"description" gorm:"type:text;not null"`

	// 销售条款
	CreatorAddress string    `json:"creator_address" gorm:"not null;index"`
	AssetRef       string    `json:"asset_ref" gorm:"not null"` // 托管资产句柄
	TotalSupply    int64     `json:"total_supply" gorm:"not null"`
	UnitPrice      int64     `json:"unit_price" gorm:"not null"`
	TargetRaise    int64     `json:"target_raise" gorm:"not null"` // total_supply * unit_price，创建时固定
	StartTime      time.Time `json:"start_time" gorm:"not null"`
	EndTime        time.Time `json:"end_time" gorm:"not null"`

	// 记账字段
	AmountRaised     int64 `json:"amount_raised" gorm:"not null;default:0"`
	UnitsSold        int64 `json:"units_sold" gorm:"not null;default:0"`
	ParticipantCount int64 `json:"participant_count" gorm:"not null;default:0"` // 只增不减
	Withdrawn        bool  `json:"withdrawn" gorm:"not null;default:false"`
}

// TableName 自定义表名
func (ProjectModel) TableName() string {
	return "project"
}

// AvailableUnits 剩余可认购份额
func (p *ProjectModel) AvailableUnits() int64 {
	return p.TotalSupply - p.UnitsSold
}
