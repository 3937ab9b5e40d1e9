package escrow

import (
	"errors"
	"fmt"

	"github.com/sarisssa/dappify-contracts/internal/model"
	"gorm.io/gorm"
)

// ProjectDetail 项目详情与指定账户的认购视图合并返回
type ProjectDetail struct {
	Project        model.ProjectModel `json:"project"`
	Status         ProjectStatus      `json:"status"`
	AvailableUnits int64              `json:"available_units"`

	// 账户字段，未指定账户时为零值
	Address       string `json:"address,omitempty"`
	UnitsReserved int64  `json:"units_reserved"`
	AmountPaid    int64  `json:"amount_paid"`
}

// ListProjects 获取项目列表
func (e *Engine) ListProjects(page, pageSize int) ([]model.ProjectModel, int64, error) {
	var projects []model.ProjectModel
	var total int64

	if err := e.db.Model(&model.ProjectModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := e.db.Order("id ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目列表失败: %w", err)
	}

	return projects, total, nil
}

// GetProjectForAccount 获取项目详情，address为空时账户字段置零
func (e *Engine) GetProjectForAccount(projectId int64, address string) (*ProjectDetail, error) {
	project, err := e.loadProject(e.db, projectId)
	if err != nil {
		return nil, err
	}

	detail := &ProjectDetail{
		Project:        *project,
		Status:         EvaluateOutcome(project, e.clock.Now()),
		AvailableUnits: project.AvailableUnits(),
	}

	if address == "" {
		return detail, nil
	}

	detail.Address = address

	var alloc model.AllocationModel
	err = e.db.Where("project_id = ? AND address = ?", projectId, address).First(&alloc).Error
	switch {
	case err == nil:
		detail.UnitsReserved = alloc.UnitsReserved
		detail.AmountPaid = alloc.AmountPaid
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("获取认购记录失败: %w", err)
	}

	return detail, nil
}

// ListProjectEvents 获取项目事件记录
func (e *Engine) ListProjectEvents(projectId int64, page, pageSize int) ([]model.EventModel, int64, error) {
	var events []model.EventModel
	var total int64

	if err := e.db.Model(&model.EventModel{}).
		Where("project_id = ?", projectId).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取事件总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := e.db.Where("project_id = ?", projectId).
		Order("id ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("获取事件列表失败: %w", err)
	}

	return events, total, nil
}

// Stats 引擎全局统计
func (e *Engine) Stats() (map[string]interface{}, error) {
	var totalProjects int64
	if err := e.db.Model(&model.ProjectModel{}).Count(&totalProjects).Error; err != nil {
		return nil, fmt.Errorf("获取项目总数失败: %w", err)
	}

	var totalRaised int64
	if err := e.db.Model(&model.ProjectModel{}).
		Select("COALESCE(SUM(amount_raised), 0)").
		Scan(&totalRaised).Error; err != nil {
		return nil, fmt.Errorf("获取筹款总额失败: %w", err)
	}

	var totalParticipants int64
	if err := e.db.Model(&model.ProjectModel{}).
		Select("COALESCE(SUM(participant_count), 0)").
		Scan(&totalParticipants).Error; err != nil {
		return nil, fmt.Errorf("获取参与人数失败: %w", err)
	}

	var withdrawnProjects int64
	if err := e.db.Model(&model.ProjectModel{}).
		Where("withdrawn = ?", true).
		Count(&withdrawnProjects).Error; err != nil {
		return nil, fmt.Errorf("获取已提取项目数失败: %w", err)
	}

	return map[string]interface{}{
		"total_projects":     totalProjects,
		"total_raised":       totalRaised,
		"total_participants": totalParticipants,
		"withdrawn_projects": withdrawnProjects,
	}, nil
}
