package escrow

import (
	"context"
)

// AssetIssuer 外部资产发行方，创建项目时铸造固定供给到托管账户，
// 结算时从托管账户向领取人转账
type AssetIssuer interface {
	// Mint 铸造份额到指定地址
	Mint(ctx context.Context, asset string, to string, amount int64) error
	// Transfer 在两个地址之间转移份额
	Transfer(ctx context.Context, asset string, from, to string, amount int64) error
	// BalanceOf 查询余额
	BalanceOf(ctx context.Context, asset string, address string) (int64, error)
}

// PaymentChannel 资金收付通道。出站支付可能触发任意外部代码，
// 结算路径必须先变更台账再调用
type PaymentChannel interface {
	// Collect 从出资人收取认购款到托管账户
	Collect(ctx context.Context, from string, amount int64) error
	// Send 从托管账户向外支付
	Send(ctx context.Context, to string, amount int64) error
}
