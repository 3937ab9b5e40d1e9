package model

import (
	"time"
)

// EventModel 业务事件记录，与状态变更同事务写入，供外部对账
type EventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId int64  `json:"project_id" gorm:"not null;index"`
	EventType string `json:"event_type" gorm:"not null;index"`
	Address   string `json:"address"`
	Data      string `json:"data" gorm:"type:text"` // JSON载荷
}

// TableName 自定义表名
func (EventModel) TableName() string {
	return "event"
}
