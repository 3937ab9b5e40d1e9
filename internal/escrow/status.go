package escrow

import (
	"time"

	"github.com/sarisssa/dappify-contracts/internal/model"
)

// MinSaleDuration 最短销售时长，退款窗口从 start_time + MinSaleDuration 起可用
const MinSaleDuration = 30 * 24 * time.Hour

// ProjectStatus 项目状态，由时间和筹款额即时推导，从不落库
type ProjectStatus string

const (
	StatusPending           ProjectStatus = "pending"            // 未开始
	StatusActive            ProjectStatus = "active"             // 销售中
	StatusPendingSettlement ProjectStatus = "pending_settlement" // 窗口已关闭，等待结算条件
	StatusSuccessful        ProjectStatus = "successful"         // 达标，可领取/提取
	StatusRefundable        ProjectStatus = "refundable"         // 未达标，可退款
)

// EvaluateOutcome 纯函数，按当前时间与累计筹款额对项目分类
func EvaluateOutcome(p *model.ProjectModel, now time.Time) ProjectStatus {
	if !now.After(p.StartTime) {
		return StatusPending
	}
	if !now.After(p.EndTime) {
		return StatusActive
	}

	if p.AmountRaised >= p.TargetRaise {
		return StatusSuccessful
	}
	if !now.Before(p.StartTime.Add(MinSaleDuration)) {
		return StatusRefundable
	}
	return StatusPendingSettlement
}

// refundableAt 退款窗口的起始时刻
func refundableAt(p *model.ProjectModel) time.Time {
	earliest := p.StartTime.Add(MinSaleDuration)
	if p.EndTime.After(earliest) {
		return p.EndTime
	}
	return earliest
}
