package model

import (
	"time"
)

// ProjectCounterModel 项目ID计数器，注册表持有的显式单调计数器，
// 不依赖数据库自增主键，ID从1开始且不复用
type ProjectCounterModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	UpdatedAt time.Time `json:"updated_at"`

	NextId int64 `json:"next_id" gorm:"not null;default:0"` // 最近分配的项目ID
}

// TableName 自定义表名
func (ProjectCounterModel) TableName() string {
	return "project_counter"
}
