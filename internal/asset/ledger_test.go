package asset

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sarisssa/dappify-contracts/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "assets.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.AssetBalanceModel{}))

	return NewLedger(db, "custody")
}

func TestMintAndBalance(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Mint(ctx, "GEN-1", "custody", 1000))
	require.NoError(t, ledger.Mint(ctx, "GEN-1", "custody", 500))

	balance, err := ledger.BalanceOf(ctx, "GEN-1", "custody")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), balance)

	// 未知地址余额为零
	balance, err = ledger.BalanceOf(ctx, "GEN-1", "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestTransferMovesBalance(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Mint(ctx, "GEN-1", "custody", 1000))
	require.NoError(t, ledger.Transfer(ctx, "GEN-1", "custody", "alice", 300))

	custodyBalance, err := ledger.BalanceOf(ctx, "GEN-1", "custody")
	require.NoError(t, err)
	assert.Equal(t, int64(700), custodyBalance)

	aliceBalance, err := ledger.BalanceOf(ctx, "GEN-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(300), aliceBalance)
}

func TestTransferInsufficientBalance(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Mint(ctx, "GEN-1", "custody", 100))

	err := ledger.Transfer(ctx, "GEN-1", "custody", "alice", 200)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// 失败的转账不改变余额
	balance, err := ledger.BalanceOf(ctx, "GEN-1", "custody")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestCollectAndSend(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Deposit(ctx, "alice", 500))
	require.NoError(t, ledger.Collect(ctx, "alice", 300))

	custodyBalance, err := ledger.BalanceOf(ctx, PaymentAsset, "custody")
	require.NoError(t, err)
	assert.Equal(t, int64(300), custodyBalance)

	require.NoError(t, ledger.Send(ctx, "bob", 100))

	bobBalance, err := ledger.BalanceOf(ctx, PaymentAsset, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(100), bobBalance)

	// 收款超过余额失败
	err = ledger.Collect(ctx, "alice", 1000)
	require.ErrorIs(t, err, ErrInsufficientBalance)
}
