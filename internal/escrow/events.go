package escrow

import (
	"encoding/json"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/sarisssa/dappify-contracts/internal/logger"
	"github.com/sarisssa/dappify-contracts/internal/model"
	"gorm.io/gorm"
)

// 事件类型
const (
	EventProjectCreated   = "project_created"
	EventUnitsAllocated   = "units_allocated"
	EventUnitsClaimed     = "units_claimed"
	EventRefundIssued     = "refund_issued"
	EventCreatorWithdrawn = "creator_withdrawn"
	EventSaleWindowClosed = "sale_window_closed"
)

// Event 业务事件，载荷包含外部对账所需的全部金额与身份
type Event struct {
	Type      string                 `json:"type"`
	ProjectId int64                  `json:"project_id"`
	Address   string                 `json:"address,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber 事件订阅回调
type Subscriber func(Event)

// Notifier 事件分发器，订阅回调在ants协程池中异步执行
type Notifier struct {
	pool *ants.Pool

	mu   sync.RWMutex
	subs []Subscriber
}

// NewNotifier 创建事件分发器
func NewNotifier(poolSize int) (*Notifier, error) {
	if poolSize <= 0 {
		poolSize = 8
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &Notifier{pool: pool}, nil
}

// Subscribe 注册订阅者
func (n *Notifier) Subscribe(sub Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, sub)
}

// Publish 异步分发事件，提交失败只记录日志，不影响主流程
func (n *Notifier) Publish(evt Event) {
	n.mu.RLock()
	subs := make([]Subscriber, len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()

	for _, sub := range subs {
		sub := sub
		if err := n.pool.Submit(func() {
			sub(evt)
		}); err != nil {
			logger.Error("Failed to submit event %s for project %d: %v", evt.Type, evt.ProjectId, err)
		}
	}
}

// Close 关闭协程池
func (n *Notifier) Close() {
	n.pool.Release()
}

// recordEvent 在当前事务内写入事件记录，随操作一起提交或回滚
func recordEvent(tx *gorm.DB, evt Event) error {
	payload, err := json.Marshal(evt.Data)
	if err != nil {
		return err
	}

	record := model.EventModel{
		ProjectId: evt.ProjectId,
		EventType: evt.Type,
		Address:   evt.Address,
		Data:      string(payload),
	}
	return tx.Create(&record).Error
}
