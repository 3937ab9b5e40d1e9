package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sarisssa/dappify-contracts/internal/logger"
	"github.com/sarisssa/dappify-contracts/internal/model"
	"gorm.io/gorm"
)

// Engine 托管引擎：项目注册、认购台账与结算状态机。
// 每个操作在单个数据库事务中执行，任何失败回滚本次调用的全部效果
type Engine struct {
	db       *gorm.DB
	issuer   AssetIssuer
	payments PaymentChannel
	notifier *Notifier
	guard    *Guard
	clock    Clock
	minUnit  int64
	custody  string
}

// Options 引擎可选参数
type Options struct {
	Clock          Clock
	MinUnit        int64  // 最小可交易份额
	CustodyAddress string // 托管账户地址
}

// NewEngine 创建托管引擎
func NewEngine(db *gorm.DB, issuer AssetIssuer, payments PaymentChannel, notifier *Notifier, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.MinUnit <= 0 {
		opts.MinUnit = 1
	}
	if opts.CustodyAddress == "" {
		opts.CustodyAddress = "custody"
	}

	return &Engine{
		db:       db,
		issuer:   issuer,
		payments: payments,
		notifier: notifier,
		guard:    NewGuard(),
		clock:    opts.Clock,
		minUnit:  opts.MinUnit,
		custody:  opts.CustodyAddress,
	}
}

// CreateTerms 项目创建条款
type CreateTerms struct {
	Name           string    `json:"name"`
	Symbol         string    `json:"symbol"`
	Description    string    `json:"description"`
	CreatorAddress string    `json:"creator_address"`
	TotalSupply    int64     `json:"total_supply"`
	UnitPrice      int64     `json:"unit_price"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

// CreateProject 创建项目：校验条款，铸造全部供给到托管账户，
// 分配单调递增的项目ID并固化 target_raise
func (e *Engine) CreateProject(ctx context.Context, terms CreateTerms) (*model.ProjectModel, error) {
	if err := e.validateTerms(terms); err != nil {
		return nil, err
	}

	var project model.ProjectModel
	err := e.db.Transaction(func(tx *gorm.DB) error {
		// 计数器先占位更新，同事务内串行化并发创建
		if err := tx.Model(&model.ProjectCounterModel{}).
			Where("id = ?", 1).
			Update("next_id", gorm.Expr("next_id + 1")).Error; err != nil {
			return fmt.Errorf("failed to advance project counter: %w", err)
		}

		var counter model.ProjectCounterModel
		if err := tx.First(&counter, 1).Error; err != nil {
			return fmt.Errorf("failed to read project counter: %w", err)
		}
		projectId := counter.NextId

		assetRef := fmt.Sprintf("%s-%d", terms.Symbol, projectId)

		project = model.ProjectModel{
			Id:             projectId,
			Name:           terms.Name,
			Symbol:         terms.Symbol,
			Description:    terms.Description,
			CreatorAddress: terms.CreatorAddress,
			AssetRef:       assetRef,
			TotalSupply:    terms.TotalSupply,
			UnitPrice:      terms.UnitPrice,
			TargetRaise:    terms.TotalSupply * terms.UnitPrice,
			StartTime:      terms.StartTime,
			EndTime:        terms.EndTime,
		}
		if err := tx.Create(&project).Error; err != nil {
			return fmt.Errorf("failed to store project: %w", err)
		}

		if err := recordEvent(tx, e.projectCreatedEvent(&project)); err != nil {
			return err
		}

		// 铸造是事务内最后一个可失败步骤，铸造成功后引擎侧不会再回滚
		if err := e.issuer.Mint(ctx, assetRef, e.custody, terms.TotalSupply); err != nil {
			return &TransferFailedError{Op: "mint", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Created project %d (%s), supply=%d, price=%d, target=%d",
		project.Id, project.Symbol, project.TotalSupply, project.UnitPrice, project.TargetRaise)
	e.notifier.Publish(e.projectCreatedEvent(&project))

	return &project, nil
}

// Allocate 认购：在销售窗口内按精确支付预留份额
func (e *Engine) Allocate(ctx context.Context, projectId int64, address string, units, payment int64) error {
	if address == "" {
		return &ValidationError{Field: "address", Reason: "不能为空"}
	}

	// 认购按项目持有令牌，剩余份额检查与扣减之间不允许并发写入
	key := fmt.Sprintf("project:%d", projectId)
	if err := e.guard.Enter(key); err != nil {
		return err
	}
	defer e.guard.Leave(key)

	var evt Event
	err := e.db.Transaction(func(tx *gorm.DB) error {
		project, err := e.loadProject(tx, projectId)
		if err != nil {
			return err
		}

		now := e.clock.Now()
		if !now.After(project.StartTime) {
			return &SaleNotStartedError{StartTime: project.StartTime}
		}
		if now.After(project.EndTime) {
			return &SaleEndedError{EndTime: project.EndTime}
		}

		if units <= 0 || units%e.minUnit != 0 {
			return &InvalidUnitAmountError{Units: units, MinUnit: e.minUnit}
		}
		if expected := units * project.UnitPrice; payment != expected {
			return &InvalidPaymentError{Expected: expected, Actual: payment}
		}
		if available := project.AvailableUnits(); units > available {
			return &InsufficientUnitsError{Available: available, Requested: units}
		}

		var alloc model.AllocationModel
		err = tx.Where("project_id = ? AND address = ?", projectId, address).First(&alloc).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			alloc = model.AllocationModel{
				ProjectId: projectId,
				Address:   address,
				Status:    model.AllocationStatusActive,
			}
			if err := tx.Create(&alloc).Error; err != nil {
				return fmt.Errorf("failed to create allocation: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load allocation: %w", err)
		}

		// 首次出资的账户计入参与人数，退款不回退该计数
		projectUpdates := map[string]interface{}{
			"amount_raised": gorm.Expr("amount_raised + ?", payment),
			"units_sold":    gorm.Expr("units_sold + ?", units),
		}
		if alloc.UnitsReserved == 0 {
			projectUpdates["participant_count"] = gorm.Expr("participant_count + 1")
		}

		if err := tx.Model(&alloc).Updates(map[string]interface{}{
			"units_reserved": gorm.Expr("units_reserved + ?", units),
			"amount_paid":    gorm.Expr("amount_paid + ?", payment),
		}).Error; err != nil {
			return fmt.Errorf("failed to update allocation: %w", err)
		}

		if err := tx.Model(&model.ProjectModel{}).Where("id = ?", projectId).
			Updates(projectUpdates).Error; err != nil {
			return fmt.Errorf("failed to update project accounting: %w", err)
		}

		evt = Event{
			Type:      EventUnitsAllocated,
			ProjectId: projectId,
			Address:   address,
			Data: map[string]interface{}{
				"units":   units,
				"payment": payment,
			},
		}
		if err := recordEvent(tx, evt); err != nil {
			return err
		}

		// 收款放在事务内全部可失败步骤之后，收款失败回滚全部效果，
		// 收款成功后引擎侧不会再回滚
		if err := e.payments.Collect(ctx, address, payment); err != nil {
			return &TransferFailedError{Op: "collect", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Allocated %d units of project %d to %s, payment=%d", units, projectId, address, payment)
	e.notifier.Publish(evt)

	return nil
}

// validateTerms 校验创建条款
func (e *Engine) validateTerms(terms CreateTerms) error {
	if terms.Name == "" {
		return &ValidationError{Field: "name", Reason: "不能为空"}
	}
	if terms.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "不能为空"}
	}
	if terms.Description == "" {
		return &ValidationError{Field: "description", Reason: "不能为空"}
	}
	if terms.CreatorAddress == "" {
		return &ValidationError{Field: "creator_address", Reason: "不能为空"}
	}
	if terms.TotalSupply <= 0 {
		return &ValidationError{Field: "total_supply", Reason: "必须大于0"}
	}
	if terms.UnitPrice <= 0 {
		return &ValidationError{Field: "unit_price", Reason: "必须大于0"}
	}
	if terms.TotalSupply*terms.UnitPrice/terms.UnitPrice != terms.TotalSupply {
		return &ValidationError{Field: "target_raise", Reason: "金额溢出"}
	}
	if !terms.StartTime.After(e.clock.Now()) {
		return &ValidationError{Field: "start_time", Reason: "必须晚于当前时间"}
	}
	if terms.EndTime.Before(terms.StartTime.Add(MinSaleDuration)) {
		return &ValidationError{Field: "end_time", Reason: "销售时长不足30天"}
	}
	return nil
}

// loadProject 读取项目，不存在时返回 ProjectNotFoundError
func (e *Engine) loadProject(tx *gorm.DB, projectId int64) (*model.ProjectModel, error) {
	var project model.ProjectModel
	if err := tx.First(&project, projectId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ProjectNotFoundError{ProjectId: projectId}
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return &project, nil
}

// projectCreatedEvent 项目创建事件载荷
func (e *Engine) projectCreatedEvent(p *model.ProjectModel) Event {
	return Event{
		Type:      EventProjectCreated,
		ProjectId: p.Id,
		Address:   p.CreatorAddress,
		Data: map[string]interface{}{
			"name":         p.Name,
			"symbol":       p.Symbol,
			"asset_ref":    p.AssetRef,
			"total_supply": p.TotalSupply,
			"unit_price":   p.UnitPrice,
			"target_raise": p.TargetRaise,
			"start_time":   p.StartTime,
			"end_time":     p.EndTime,
		},
	}
}
