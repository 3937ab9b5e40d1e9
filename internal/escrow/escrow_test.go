package escrow

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sarisssa/dappify-contracts/internal/asset"
	"github.com/sarisssa/dappify-contracts/internal/database"
	"github.com/sarisssa/dappify-contracts/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeClock 可控时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv 测试环境：引擎库与托管台账库分开建，
// 避免sqlite单写锁下的事务争用
type testEnv struct {
	engine *Engine
	ledger *asset.Ledger
	clock  *fakeClock
	db     *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()

	db := openTestDB(t, filepath.Join(dir, "engine.db"))
	ledgerDB := openTestDB(t, filepath.Join(dir, "assets.db"))

	ledger := asset.NewLedger(ledgerDB, "custody")
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}

	notifier, err := NewNotifier(2)
	require.NoError(t, err)
	t.Cleanup(notifier.Close)

	engine := NewEngine(db, ledger, ledger, notifier, Options{
		Clock:          clock,
		CustodyAddress: "custody",
	})

	return &testEnv{
		engine: engine,
		ledger: ledger,
		clock:  clock,
		db:     db,
	}
}

func openTestDB(t *testing.T, path string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// saleTerms 标准销售条款：供给1000，单价10，1小时后开始，持续31天
func (env *testEnv) saleTerms() CreateTerms {
	start := env.clock.Now().Add(time.Hour)
	return CreateTerms{
		Name:           "Genesis Sale",
		Symbol:         "GEN",
		Description:    "fixed supply sale",
		CreatorAddress: "creator",
		TotalSupply:    1000,
		UnitPrice:      10,
		StartTime:      start,
		EndTime:        start.Add(31 * 24 * time.Hour),
	}
}

// createSale 创建标准项目并把时钟拨到销售窗口内
func (env *testEnv) createSale(t *testing.T) *model.ProjectModel {
	t.Helper()

	project, err := env.engine.CreateProject(context.Background(), env.saleTerms())
	require.NoError(t, err)

	env.clock.Set(project.StartTime.Add(time.Minute))
	return project
}

// fund 给账户充值认购资金
func (env *testEnv) fund(t *testing.T, address string, amount int64) {
	t.Helper()
	require.NoError(t, env.ledger.Deposit(context.Background(), address, amount))
}

// reloadProject 重新读取项目
func (env *testEnv) reloadProject(t *testing.T, id int64) *model.ProjectModel {
	t.Helper()

	var project model.ProjectModel
	require.NoError(t, env.db.First(&project, id).Error)
	return &project
}

// reloadAllocation 重新读取认购记录
func (env *testEnv) reloadAllocation(t *testing.T, projectId int64, address string) *model.AllocationModel {
	t.Helper()

	var alloc model.AllocationModel
	require.NoError(t, env.db.
		Where("project_id = ? AND address = ?", projectId, address).
		First(&alloc).Error)
	return &alloc
}

// requireConservation 校验 amount_raised 与认购记录支付总额一致
func (env *testEnv) requireConservation(t *testing.T, projectId int64) {
	t.Helper()

	project := env.reloadProject(t, projectId)

	var paidSum int64
	require.NoError(t, env.db.Model(&model.AllocationModel{}).
		Where("project_id = ?", projectId).
		Select("COALESCE(SUM(amount_paid), 0)").
		Scan(&paidSum).Error)

	require.Equal(t, project.AmountRaised, paidSum,
		fmt.Sprintf("amount_raised=%d 与支付总额=%d 不一致", project.AmountRaised, paidSum))
}
