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

// 结算路径共用规则：台账变更与事件写入在前，出站转账是事务内最后一个
// 可失败步骤，转账失败回滚整个操作；出站调用成功后事务内不再有任何
// 可失败步骤，避免引擎侧回滚留下已落地的外部转账。
// 操作期间持有项目级互斥令牌，出站调用触发的重入直接失败。

// Claim 领取：销售成功后将认购份额从托管账户转给出资人，认购清零且不可恢复
func (e *Engine) Claim(ctx context.Context, projectId int64, address string) error {
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
		if !now.After(project.EndTime) {
			return &SaleNotEndedError{EndTime: project.EndTime}
		}
		if project.AmountRaised < project.TargetRaise {
			return &TargetNotMetError{Raised: project.AmountRaised, Target: project.TargetRaise}
		}

		alloc, err := e.loadAllocation(tx, projectId, address)
		if err != nil {
			return err
		}
		units := alloc.UnitsReserved

		// 先清零认购再转出资产
		if err := e.settleAllocation(tx, alloc, model.AllocationStatusClaimed, now, false); err != nil {
			return err
		}

		evt = Event{
			Type:      EventUnitsClaimed,
			ProjectId: projectId,
			Address:   address,
			Data: map[string]interface{}{
				"asset_ref": project.AssetRef,
				"units":     units,
			},
		}
		if err := recordEvent(tx, evt); err != nil {
			return err
		}

		if err := e.issuer.Transfer(ctx, project.AssetRef, e.custody, address, units); err != nil {
			return &TransferFailedError{Op: "claim", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Claimed units of project %d for %s", projectId, address)
	e.notifier.Publish(evt)

	return nil
}

// Refund 退款：销售失败后退还认购款，认购清零并从 amount_raised 扣减
func (e *Engine) Refund(ctx context.Context, projectId int64, address string) error {
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
		if !now.After(project.EndTime) || now.Before(project.StartTime.Add(MinSaleDuration)) {
			return &RefundTooEarlyError{RefundableAt: refundableAt(project)}
		}
		if project.AmountRaised >= project.TargetRaise {
			return &TargetAchievedError{Raised: project.AmountRaised, Target: project.TargetRaise}
		}

		alloc, err := e.loadAllocation(tx, projectId, address)
		if err != nil {
			return err
		}
		units := alloc.UnitsReserved
		refundAmount := units * project.UnitPrice

		// 先清零认购、扣减筹款额，再向外支付
		if err := e.settleAllocation(tx, alloc, model.AllocationStatusRefunded, now, true); err != nil {
			return err
		}

		if err := tx.Model(&model.ProjectModel{}).Where("id = ?", projectId).
			Updates(map[string]interface{}{
				"amount_raised": gorm.Expr("amount_raised - ?", refundAmount),
				"units_sold":    gorm.Expr("units_sold - ?", units),
			}).Error; err != nil {
			return fmt.Errorf("failed to update project accounting: %w", err)
		}

		evt = Event{
			Type:      EventRefundIssued,
			ProjectId: projectId,
			Address:   address,
			Data: map[string]interface{}{
				"units":  units,
				"amount": refundAmount,
			},
		}
		if err := recordEvent(tx, evt); err != nil {
			return err
		}

		if err := e.payments.Send(ctx, address, refundAmount); err != nil {
			return &TransferFailedError{Op: "refund", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Refunded allocation of project %d for %s", projectId, address)
	e.notifier.Publish(evt)

	return nil
}

// Withdraw 提取：创建者在达标后一次性提取筹款，平台留存1%手续费于托管账户
func (e *Engine) Withdraw(ctx context.Context, projectId int64, caller string) error {
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

		if caller != project.CreatorAddress {
			return &NotCreatorError{ProjectId: projectId, Address: caller}
		}
		if project.Withdrawn {
			return &AlreadyWithdrawnError{ProjectId: projectId}
		}
		if project.AmountRaised < project.TargetRaise {
			return &TargetNotMetError{Raised: project.AmountRaised, Target: project.TargetRaise}
		}

		creatorAmount := project.AmountRaised * 99 / 100
		platformFee := project.AmountRaised - creatorAmount

		// 先置位 withdrawn 再向外支付，支付失败随事务回滚为 false
		if err := tx.Model(&model.ProjectModel{}).Where("id = ?", projectId).
			Update("withdrawn", true).Error; err != nil {
			return fmt.Errorf("failed to mark project withdrawn: %w", err)
		}

		evt = Event{
			Type:      EventCreatorWithdrawn,
			ProjectId: projectId,
			Address:   project.CreatorAddress,
			Data: map[string]interface{}{
				"creator_amount": creatorAmount,
				"platform_fee":   platformFee,
			},
		}
		if err := recordEvent(tx, evt); err != nil {
			return err
		}

		if err := e.payments.Send(ctx, project.CreatorAddress, creatorAmount); err != nil {
			return &TransferFailedError{Op: "withdraw", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Creator withdrew funds of project %d", projectId)
	e.notifier.Publish(evt)

	return nil
}

// loadAllocation 读取待结算的认购，无认购或已清零时返回 NoAllocationError
func (e *Engine) loadAllocation(tx *gorm.DB, projectId int64, address string) (*model.AllocationModel, error) {
	var alloc model.AllocationModel
	err := tx.Where("project_id = ? AND address = ?", projectId, address).First(&alloc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NoAllocationError{ProjectId: projectId, Address: address}
		}
		return nil, fmt.Errorf("failed to load allocation: %w", err)
	}
	if alloc.UnitsReserved == 0 {
		return nil, &NoAllocationError{ProjectId: projectId, Address: address}
	}
	return &alloc, nil
}

// settleAllocation 认购清零，结算是终态，二次结算会因份额为0被拒绝。
// 领取保留 amount_paid 供对账，退款连同 amount_paid 一起清零
func (e *Engine) settleAllocation(tx *gorm.DB, alloc *model.AllocationModel, status model.AllocationStatus, now time.Time, zeroPaid bool) error {
	updates := map[string]interface{}{
		"units_reserved": 0,
		"status":         status,
		"settled_at":     now,
	}
	if zeroPaid {
		updates["amount_paid"] = 0
	}
	if err := tx.Model(alloc).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to settle allocation: %w", err)
	}
	return nil
}
