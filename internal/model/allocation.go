package model

import (
	"time"
)

// AllocationModel 认购记录，每个 (项目, 地址) 一条
type AllocationModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId     int64  `json:"project_id" gorm:"not null;uniqueIndex:idx_alloc_project_address"`
	Address       string `json:"address" gorm:"not null;uniqueIndex:idx_alloc_project_address"`
	UnitsReserved int64  `json:"units_reserved" gorm:"not null;default:0"`
	AmountPaid    int64  `json:"amount_paid" gorm:"not null;default:0"`

	// 结算状态，认购记录只能被领取或退款清零一次
	Status    AllocationStatus `json:"status" gorm:"not null;default:'active'"`
	SettledAt *time.Time       `json:"settled_at"`
}

// AllocationStatus 认购状态
type AllocationStatus string

const (
	AllocationStatusActive   AllocationStatus = "active"   // 认购中
	AllocationStatusClaimed  AllocationStatus = "claimed"  // 已领取
	AllocationStatusRefunded AllocationStatus = "refunded" // 已退款
)

// TableName 自定义表名
func (AllocationModel) TableName() string {
	return "allocation"
}
