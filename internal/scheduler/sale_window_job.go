package scheduler

import (
	"encoding/json"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sarisssa/dappify-contracts/internal/config"
	"github.com/sarisssa/dappify-contracts/internal/escrow"
	"github.com/sarisssa/dappify-contracts/internal/logger"
	"github.com/sarisssa/dappify-contracts/internal/model"
	"gorm.io/gorm"
)

// SaleWindowJob 销售窗口关闭任务：为已过 end_time 的项目补发一次性的
// 窗口关闭事件，项目状态本身始终即时推导，不落库
type SaleWindowJob struct {
	db       *gorm.DB
	notifier *escrow.Notifier
	config   *config.Config
}

// NewSaleWindowJob 创建销售窗口关闭任务
func NewSaleWindowJob(db *gorm.DB, notifier *escrow.Notifier, cfg *config.Config) *SaleWindowJob {
	return &SaleWindowJob{
		db:       db,
		notifier: notifier,
		config:   cfg,
	}
}

// GetName 获取任务名称
func (j *SaleWindowJob) GetName() string {
	return "sale_window_watcher"
}

// GetSchedule 获取调度配置
func (j *SaleWindowJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *SaleWindowJob) Execute() {
	logger.Info("Starting sale window watcher task")

	now := time.Now()

	// 查找窗口已关闭且尚未发出关闭事件的项目
	var projects []model.ProjectModel
	err := j.db.Where("end_time < ?", now).
		Where("id NOT IN (?)", j.db.Model(&model.EventModel{}).
			Select("project_id").
			Where("event_type = ?", escrow.EventSaleWindowClosed)).
		Find(&projects).Error
	if err != nil {
		logger.Error("Failed to fetch closed projects: %v", err)
		return
	}

	closedCount := 0

	for _, project := range projects {
		outcome := escrow.EvaluateOutcome(&project, now)

		payload, err := json.Marshal(map[string]interface{}{
			"outcome":       string(outcome),
			"amount_raised": project.AmountRaised,
			"target_raise":  project.TargetRaise,
		})
		if err != nil {
			logger.Error("Failed to marshal close event for project %d: %v", project.Id, err)
			continue
		}

		record := model.EventModel{
			ProjectId: project.Id,
			EventType: escrow.EventSaleWindowClosed,
			Data:      string(payload),
		}
		if err := j.db.Create(&record).Error; err != nil {
			logger.Error("Failed to record close event for project %d: %v", project.Id, err)
			continue
		}

		j.notifier.Publish(escrow.Event{
			Type:      escrow.EventSaleWindowClosed,
			ProjectId: project.Id,
			Data: map[string]interface{}{
				"outcome":       string(outcome),
				"amount_raised": project.AmountRaised,
				"target_raise":  project.TargetRaise,
			},
		})

		logger.Info("Sale window closed for project %d, outcome=%s", project.Id, outcome)
		closedCount++
	}

	logger.Info("Sale window watcher completed. Closed %d projects", closedCount)
}
