package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sarisssa/dappify-contracts/internal/escrow"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// EngineErrorResponse 按错误类型映射HTTP状态码
func EngineErrorResponse(c *gin.Context, err error) {
	ErrorResponse(c, statusFromError(err), err.Error())
}

// statusFromError 类型化错误到HTTP状态码
func statusFromError(err error) int {
	var (
		validation   *escrow.ValidationError
		notFound     *escrow.ProjectNotFoundError
		noAlloc      *escrow.NoAllocationError
		notStarted   *escrow.SaleNotStartedError
		ended        *escrow.SaleEndedError
		notEnded     *escrow.SaleNotEndedError
		invalidUnits *escrow.InvalidUnitAmountError
		invalidPay   *escrow.InvalidPaymentError
		insufficient *escrow.InsufficientUnitsError
		notMet       *escrow.TargetNotMetError
		achieved     *escrow.TargetAchievedError
		tooEarly     *escrow.RefundTooEarlyError
		notCreator   *escrow.NotCreatorError
		withdrawn    *escrow.AlreadyWithdrawnError
		inProgress   *escrow.OperationInProgressError
		transfer     *escrow.TransferFailedError
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &invalidUnits), errors.As(err, &invalidPay):
		return http.StatusBadRequest
	case errors.As(err, &notCreator):
		return http.StatusForbidden
	case errors.As(err, &notFound), errors.As(err, &noAlloc):
		return http.StatusNotFound
	case errors.As(err, &notStarted), errors.As(err, &ended), errors.As(err, &notEnded),
		errors.As(err, &insufficient), errors.As(err, &notMet), errors.As(err, &achieved),
		errors.As(err, &tooEarly), errors.As(err, &withdrawn), errors.As(err, &inProgress):
		return http.StatusConflict
	case errors.As(err, &transfer):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
