package escrow

import (
	"sync"
)

// Guard 调用级互斥令牌，入口获取、出口释放。
// 出站转账期间重入同一项目/账户的操作会直接失败而不是阻塞，
// 避免外部回调借调用栈重入结算路径
type Guard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewGuard 创建互斥保护
func NewGuard() *Guard {
	return &Guard{held: make(map[string]struct{})}
}

// Enter 获取令牌，已被持有时返回 OperationInProgressError
func (g *Guard) Enter(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.held[key]; ok {
		return &OperationInProgressError{Key: key}
	}
	g.held[key] = struct{}{}
	return nil
}

// Leave 释放令牌
func (g *Guard) Leave(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.held, key)
}
