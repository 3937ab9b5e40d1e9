package handler

import (
	"time"
)

// Response 统一响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name           string    `json:"name" binding:"required"`
	Symbol         string    `json:"symbol" binding:"required"`
	Description    string    `json:"description" binding:"required"`
	CreatorAddress string    `json:"creator_address" binding:"required"`
	TotalSupply    int64     `json:"total_supply" binding:"required"`
	UnitPrice      int64     `json:"unit_price" binding:"required"`
	StartTime      time.Time `json:"start_time" binding:"required"`
	EndTime        time.Time `json:"end_time" binding:"required"`
}

// AllocateRequest 认购请求
type AllocateRequest struct {
	Address string `json:"address" binding:"required"`
	Units   int64  `json:"units" binding:"required"`
	Payment int64  `json:"payment" binding:"required"`
}

// SettleRequest 结算请求（领取/退款/提取），调用方身份由address标识
type SettleRequest struct {
	Address string `json:"address" binding:"required"`
}

// DepositRequest 资金充值请求
type DepositRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}
