package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sarisssa/dappify-contracts/internal/asset"
	"github.com/sarisssa/dappify-contracts/internal/escrow"
)

// EscrowHandler 托管引擎API
type EscrowHandler struct {
	engine *escrow.Engine
	ledger *asset.Ledger // 内置台账模式下可用，链上模式为nil
}

// NewEscrowHandler 创建托管引擎API
func NewEscrowHandler(engine *escrow.Engine, ledger *asset.Ledger) *EscrowHandler {
	return &EscrowHandler{
		engine: engine,
		ledger: ledger,
	}
}

// CreateProject 创建项目
func (h *EscrowHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.engine.CreateProject(c.Request.Context(), escrow.CreateTerms{
		Name:           req.Name,
		Symbol:         req.Symbol,
		Description:    req.Description,
		CreatorAddress: req.CreatorAddress,
		TotalSupply:    req.TotalSupply,
		UnitPrice:      req.UnitPrice,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
	})
	if err != nil {
		EngineErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "项目创建成功", project)
}

// ListProjects 获取项目列表
func (h *EscrowHandler) ListProjects(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	projects, total, err := h.engine.ListProjects(page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"projects":  projects,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetProject 获取项目详情，可选account查询参数合并账户认购视图
func (h *EscrowHandler) GetProject(c *gin.Context) {
	projectId, err := h.projectId(c)
	if err != nil {
		return
	}

	detail, err := h.engine.GetProjectForAccount(projectId, c.Query("account"))
	if err != nil {
		EngineErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "", detail)
}

// Allocate 认购份额
func (h *EscrowHandler) Allocate(c *gin.Context) {
	projectId, err := h.projectId(c)
	if err != nil {
		return
	}

	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.Allocate(c.Request.Context(), projectId, req.Address, req.Units, req.Payment); err != nil {
		EngineErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "认购成功", nil)
}

// Claim 领取份额
func (h *EscrowHandler) Claim(c *gin.Context) {
	projectId, err := h.projectId(c)
	if err != nil {
		return
	}

	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.Claim(c.Request.Context(), projectId, req.Address); err != nil {
		EngineErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "领取成功", nil)
}

// Refund 退款
func (h *EscrowHandler) Refund(c *gin.Context) {
	projectId, err := h.projectId(c)
	if err != nil {
		return
	}

	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.Refund(c.Request.Context(), projectId, req.Address); err != nil {
		EngineErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "退款成功", nil)
}

// Withdraw 创建者提取筹款
func (h *EscrowHandler) Withdraw(c *gin.Context) {
	projectId, err := h.projectId(c)
	if err != nil {
		return
	}

	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.Withdraw(c.Request.Context(), projectId, req.Address); err != nil {
		EngineErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "提取成功", nil)
}

// ListEvents 获取项目事件记录
func (h *EscrowHandler) ListEvents(c *gin.Context) {
	projectId, err := h.projectId(c)
	if err != nil {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	events, total, err := h.engine.ListProjectEvents(projectId, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"events":    events,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetStats 获取全局统计
func (h *EscrowHandler) GetStats(c *gin.Context) {
	stats, err := h.engine.Stats()
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", stats)
}

// Deposit 资金充值（仅内置台账模式）
func (h *EscrowHandler) Deposit(c *gin.Context) {
	if h.ledger == nil {
		ErrorResponse(c, http.StatusNotImplemented, "链上模式不支持充值接口")
		return
	}

	address := c.Param("address")
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledger.Deposit(c.Request.Context(), address, req.Amount); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "充值成功", nil)
}

// projectId 解析路径中的项目ID，解析失败时已写入响应
func (h *EscrowHandler) projectId(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return 0, err
	}
	return id, nil
}
