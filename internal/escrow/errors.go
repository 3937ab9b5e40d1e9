package escrow

import (
	"fmt"
	"time"
)

// 错误分类：创建校验、时间窗口、状态/权限、出站转账。
// 全部为携带结构化参数的类型化错误，调用方通过 errors.As 分支处理。

// ValidationError 创建参数校验错误
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("参数校验失败: %s %s", e.Field, e.Reason)
}

// ProjectNotFoundError 项目不存在
type ProjectNotFoundError struct {
	ProjectId int64
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("项目不存在: id=%d", e.ProjectId)
}

// SaleNotStartedError 销售尚未开始
type SaleNotStartedError struct {
	StartTime time.Time
}

func (e *SaleNotStartedError) Error() string {
	return fmt.Sprintf("销售尚未开始: start_time=%s", e.StartTime.Format(time.RFC3339))
}

// SaleEndedError 销售已结束
type SaleEndedError struct {
	EndTime time.Time
}

func (e *SaleEndedError) Error() string {
	return fmt.Sprintf("销售已结束: end_time=%s", e.EndTime.Format(time.RFC3339))
}

// SaleNotEndedError 销售窗口尚未关闭
type SaleNotEndedError struct {
	EndTime time.Time
}

func (e *SaleNotEndedError) Error() string {
	return fmt.Sprintf("销售尚未结束: end_time=%s", e.EndTime.Format(time.RFC3339))
}

// InvalidUnitAmountError 份额数量非法
type InvalidUnitAmountError struct {
	Units   int64
	MinUnit int64
}

func (e *InvalidUnitAmountError) Error() string {
	return fmt.Sprintf("份额数量非法: units=%d, min_unit=%d", e.Units, e.MinUnit)
}

// InvalidPaymentError 支付金额与份额不匹配（只接受精确支付）
type InvalidPaymentError struct {
	Expected int64
	Actual   int64
}

func (e *InvalidPaymentError) Error() string {
	return fmt.Sprintf("支付金额不匹配: expected=%d, actual=%d", e.Expected, e.Actual)
}

// InsufficientUnitsError 剩余份额不足
type InsufficientUnitsError struct {
	Available int64
	Requested int64
}

func (e *InsufficientUnitsError) Error() string {
	return fmt.Sprintf("剩余份额不足: available=%d, requested=%d", e.Available, e.Requested)
}

// TargetNotMetError 未达到目标筹款额
type TargetNotMetError struct {
	Raised int64
	Target int64
}

func (e *TargetNotMetError) Error() string {
	return fmt.Sprintf("未达到目标筹款额: raised=%d, target=%d", e.Raised, e.Target)
}

// TargetAchievedError 已达到目标筹款额，不可退款
type TargetAchievedError struct {
	Raised int64
	Target int64
}

func (e *TargetAchievedError) Error() string {
	return fmt.Sprintf("已达到目标筹款额: raised=%d, target=%d", e.Raised, e.Target)
}

// RefundTooEarlyError 退款窗口未到
type RefundTooEarlyError struct {
	RefundableAt time.Time
}

func (e *RefundTooEarlyError) Error() string {
	return fmt.Sprintf("退款窗口未到: refundable_at=%s", e.RefundableAt.Format(time.RFC3339))
}

// NoAllocationError 无可结算的认购
type NoAllocationError struct {
	ProjectId int64
	Address   string
}

func (e *NoAllocationError) Error() string {
	return fmt.Sprintf("无可结算的认购: project=%d, address=%s", e.ProjectId, e.Address)
}

// NotCreatorError 非项目创建者
type NotCreatorError struct {
	ProjectId int64
	Address   string
}

func (e *NotCreatorError) Error() string {
	return fmt.Sprintf("非项目创建者: project=%d, address=%s", e.ProjectId, e.Address)
}

// AlreadyWithdrawnError 已提取过筹款
type AlreadyWithdrawnError struct {
	ProjectId int64
}

func (e *AlreadyWithdrawnError) Error() string {
	return fmt.Sprintf("筹款已提取: project=%d", e.ProjectId)
}

// TransferFailedError 出站转账失败，整个操作回滚
type TransferFailedError struct {
	Op  string // claim, refund, withdraw, collect
	Err error
}

func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("出站转账失败: op=%s: %v", e.Op, e.Err)
}

func (e *TransferFailedError) Unwrap() error {
	return e.Err
}

// OperationInProgressError 同一项目/账户的操作正在执行中（重入保护）
type OperationInProgressError struct {
	Key string
}

func (e *OperationInProgressError) Error() string {
	return fmt.Sprintf("操作正在执行中: %s", e.Key)
}
