package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarisssa/dappify-contracts/internal/model"
	"gorm.io/gorm"
)

// PaymentAsset 资金台账使用的资产标识
const PaymentAsset = "NATIVE"

// ErrInsufficientBalance 余额不足
var ErrInsufficientBalance = errors.New("余额不足")

// Ledger 托管台账，实现资产发行与资金收付两个协作方接口。
// 份额资产与资金记在同一张余额表，按资产标识区分
type Ledger struct {
	db      *gorm.DB
	custody string // 托管账户地址
}

// NewLedger 创建托管台账
func NewLedger(db *gorm.DB, custody string) *Ledger {
	return &Ledger{db: db, custody: custody}
}

// Mint 铸造资产到指定地址
func (l *Ledger) Mint(ctx context.Context, asset string, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("铸造数量非法: %d", amount)
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return credit(tx, asset, to, amount)
	})
}

// Transfer 在两个地址之间转移资产
func (l *Ledger) Transfer(ctx context.Context, asset string, from, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("转账数量非法: %d", amount)
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := debit(tx, asset, from, amount); err != nil {
			return err
		}
		return credit(tx, asset, to, amount)
	})
}

// BalanceOf 查询余额
func (l *Ledger) BalanceOf(ctx context.Context, asset string, address string) (int64, error) {
	var balance model.AssetBalanceModel
	err := l.db.WithContext(ctx).
		Where("asset = ? AND address = ?", asset, address).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("查询余额失败: %w", err)
	}
	return balance.Balance, nil
}

// Collect 从出资人收取认购款到托管账户
func (l *Ledger) Collect(ctx context.Context, from string, amount int64) error {
	return l.Transfer(ctx, PaymentAsset, from, l.custody, amount)
}

// Send 从托管账户向外支付
func (l *Ledger) Send(ctx context.Context, to string, amount int64) error {
	return l.Transfer(ctx, PaymentAsset, l.custody, to, amount)
}

// Deposit 充值资金到指定地址
func (l *Ledger) Deposit(ctx context.Context, address string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("充值数量非法: %d", amount)
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return credit(tx, PaymentAsset, address, amount)
	})
}

// credit 入账，余额记录不存在时创建
func credit(tx *gorm.DB, asset, address string, amount int64) error {
	var balance model.AssetBalanceModel
	err := tx.Where("asset = ? AND address = ?", asset, address).First(&balance).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		balance = model.AssetBalanceModel{Asset: asset, Address: address, Balance: amount}
		if err := tx.Create(&balance).Error; err != nil {
			return fmt.Errorf("创建余额记录失败: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("读取余额失败: %w", err)
	}

	if err := tx.Model(&balance).
		Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
		return fmt.Errorf("入账失败: %w", err)
	}
	return nil
}

// debit 出账，余额不足直接失败
func debit(tx *gorm.DB, asset, address string, amount int64) error {
	var balance model.AssetBalanceModel
	err := tx.Where("asset = ? AND address = ?", asset, address).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: asset=%s, address=%s", ErrInsufficientBalance, asset, address)
		}
		return fmt.Errorf("读取余额失败: %w", err)
	}
	if balance.Balance < amount {
		return fmt.Errorf("%w: asset=%s, address=%s, balance=%d, amount=%d",
			ErrInsufficientBalance, asset, address, balance.Balance, amount)
	}

	if err := tx.Model(&balance).
		Update("balance", gorm.Expr("balance - ?", amount)).Error; err != nil {
		return fmt.Errorf("出账失败: %w", err)
	}
	return nil
}
