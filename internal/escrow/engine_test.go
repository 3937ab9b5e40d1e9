package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/sarisssa/dappify-contracts/internal/asset"
	"github.com/sarisssa/dappify-contracts/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateTerms)
		field  string
	}{
		{"空名称", func(terms *CreateTerms) { terms.Name = "" }, "name"},
		{"空符号", func(terms *CreateTerms) { terms.Symbol = "" }, "symbol"},
		{"空描述", func(terms *CreateTerms) { terms.Description = "" }, "description"},
		{"空创建者", func(terms *CreateTerms) { terms.CreatorAddress = "" }, "creator_address"},
		{"零供给", func(terms *CreateTerms) { terms.TotalSupply = 0 }, "total_supply"},
		{"零单价", func(terms *CreateTerms) { terms.UnitPrice = 0 }, "unit_price"},
		{"开始时间不在未来", func(terms *CreateTerms) { terms.StartTime = env.clock.Now() }, "start_time"},
		{"销售时长不足30天", func(terms *CreateTerms) {
			terms.EndTime = terms.StartTime.Add(29 * 24 * time.Hour)
		}, "end_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := env.saleTerms()
			tt.mutate(&terms)

			_, err := env.engine.CreateProject(ctx, terms)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestCreateProjectAssignsSequentialIds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.engine.CreateProject(ctx, env.saleTerms())
	require.NoError(t, err)
	second, err := env.engine.CreateProject(ctx, env.saleTerms())
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Id)
	assert.Equal(t, int64(2), second.Id)
}

func TestCreateProjectMintsSupplyToCustody(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	project, err := env.engine.CreateProject(ctx, env.saleTerms())
	require.NoError(t, err)

	assert.Equal(t, int64(10000), project.TargetRaise)

	balance, err := env.ledger.BalanceOf(ctx, project.AssetRef, "custody")
	require.NoError(t, err)
	assert.Equal(t, project.TotalSupply, balance)
}

func TestAllocateUnknownProject(t *testing.T) {
	env := newTestEnv(t)

	err := env.engine.Allocate(context.Background(), 42, "alice", 10, 100)
	var notFound *ProjectNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(42), notFound.ProjectId)
}

func TestAllocateOutsideSaleWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	project, err := env.engine.CreateProject(ctx, env.saleTerms())
	require.NoError(t, err)
	env.fund(t, "alice", 10000)

	// 销售未开始
	err = env.engine.Allocate(ctx, project.Id, "alice", 10, 100)
	var notStarted *SaleNotStartedError
	require.ErrorAs(t, err, &notStarted)

	// 销售已结束
	env.clock.Set(project.EndTime.Add(time.Minute))
	err = env.engine.Allocate(ctx, project.Id, "alice", 10, 100)
	var ended *SaleEndedError
	require.ErrorAs(t, err, &ended)
}

func TestAllocateInvalidUnits(t *testing.T) {
	env := newTestEnv(t)
	project := env.createSale(t)

	for _, units := range []int64{0, -5} {
		err := env.engine.Allocate(context.Background(), project.Id, "alice", units, 0)
		var invalid *InvalidUnitAmountError
		require.ErrorAs(t, err, &invalid)
	}
}

func TestAllocateExactPaymentContract(t *testing.T) {
	env := newTestEnv(t)
	project := env.createSale(t)
	env.fund(t, "alice", 10000)

	// 多付与少付都被拒绝
	for _, payment := range []int64{99, 101} {
		err := env.engine.Allocate(context.Background(), project.Id, "alice", 10, payment)
		var invalid *InvalidPaymentError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, int64(100), invalid.Expected)
		assert.Equal(t, payment, invalid.Actual)
	}
}

func TestAllocateFailureLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	project := env.createSale(t)
	env.fund(t, "alice", 10000)

	require.NoError(t, env.engine.Allocate(context.Background(), project.Id, "alice", 10, 100))

	// 错误支付不改变任何记账字段
	err := env.engine.Allocate(context.Background(), project.Id, "alice", 10, 50)
	var invalid *InvalidPaymentError
	require.ErrorAs(t, err, &invalid)

	reloaded := env.reloadProject(t, project.Id)
	assert.Equal(t, int64(100), reloaded.AmountRaised)
	assert.Equal(t, int64(1), reloaded.ParticipantCount)

	alloc := env.reloadAllocation(t, project.Id, "alice")
	assert.Equal(t, int64(10), alloc.UnitsReserved)
	env.requireConservation(t, project.Id)
}

func TestAllocateInsufficientUnits(t *testing.T) {
	env := newTestEnv(t)
	project := env.createSale(t)
	env.fund(t, "alice", 9000)
	env.fund(t, "bob", 1500)

	require.NoError(t, env.engine.Allocate(context.Background(), project.Id, "alice", 900, 9000))

	err := env.engine.Allocate(context.Background(), project.Id, "bob", 150, 1500)
	var insufficient *InsufficientUnitsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(100), insufficient.Available)
	assert.Equal(t, int64(150), insufficient.Requested)

	// 状态不变
	reloaded := env.reloadProject(t, project.Id)
	assert.Equal(t, int64(9000), reloaded.AmountRaised)
	assert.Equal(t, int64(900), reloaded.UnitsSold)
	env.requireConservation(t, project.Id)
}

func TestAllocateCountsParticipantsOnce(t *testing.T) {
	env := newTestEnv(t)
	project := env.createSale(t)
	env.fund(t, "alice", 10000)
	env.fund(t, "bob", 10000)

	ctx := context.Background()
	require.NoError(t, env.engine.Allocate(ctx, project.Id, "alice", 10, 100))
	require.NoError(t, env.engine.Allocate(ctx, project.Id, "alice", 20, 200))
	require.NoError(t, env.engine.Allocate(ctx, project.Id, "bob", 5, 50))

	reloaded := env.reloadProject(t, project.Id)
	assert.Equal(t, int64(2), reloaded.ParticipantCount)
	assert.Equal(t, int64(350), reloaded.AmountRaised)
	assert.Equal(t, int64(35), reloaded.UnitsSold)

	alloc := env.reloadAllocation(t, project.Id, "alice")
	assert.Equal(t, int64(30), alloc.UnitsReserved)
	assert.Equal(t, int64(300), alloc.AmountPaid)
	env.requireConservation(t, project.Id)
}

func TestAllocateCollectsPaymentToCustody(t *testing.T) {
	env := newTestEnv(t)
	project := env.createSale(t)
	env.fund(t, "alice", 500)

	ctx := context.Background()
	require.NoError(t, env.engine.Allocate(ctx, project.Id, "alice", 30, 300))

	balance, err := env.ledger.BalanceOf(ctx, asset.PaymentAsset, "custody")
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)

	remaining, err := env.ledger.BalanceOf(ctx, asset.PaymentAsset, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(200), remaining)
}

func TestAllocateEventWriteFailureCollectsNothing(t *testing.T) {
	env := newTestEnv(t)
	project := env.createSale(t)
	env.fund(t, "alice", 10000)

	// 事件写入失败必须在收款之前中止认购，
	// 否则引擎回滚会丢弃认购却留下已收取的款项
	require.NoError(t, env.db.Migrator().DropTable(&model.EventModel{}))

	ctx := context.Background()
	err := env.engine.Allocate(ctx, project.Id, "alice", 10, 100)
	require.Error(t, err)

	balance, err := env.ledger.BalanceOf(ctx, asset.PaymentAsset, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), balance)

	reloaded := env.reloadProject(t, project.Id)
	assert.Equal(t, int64(0), reloaded.AmountRaised)
	assert.Equal(t, int64(0), reloaded.ParticipantCount)
}

func TestAllocateCollectFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	project := env.createSale(t)
	// alice没有充值，收款必然失败

	err := env.engine.Allocate(context.Background(), project.Id, "alice", 10, 100)
	var transferErr *TransferFailedError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, "collect", transferErr.Op)

	reloaded := env.reloadProject(t, project.Id)
	assert.Equal(t, int64(0), reloaded.AmountRaised)
	assert.Equal(t, int64(0), reloaded.ParticipantCount)
}
