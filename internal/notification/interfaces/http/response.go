// Package http 控制面 HTTP 接口：同步测试发送与 webhook 占位。
// 测试发送直接调用渠道投递适配器，不复用策略/水合逻辑。
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
)

// apiResponse 统一响应包裹
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// respondOK 成功响应
func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, apiResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// respondError 将错误渲染为结构化响应。
// 分类错误原样暴露消息/错误码/状态与细节，未分类错误一律 500。
func respondError(c *gin.Context, err error) {
	var classified *domain.ClassifiedError
	if errors.As(err, &classified) {
		c.JSON(classified.Status, apiResponse{
			Success: false,
			Message: classified.Message,
			Error:   classified.Code,
			Data:    classified.Details,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, apiResponse{
		Success: false,
		Message: "Something went wrong",
		Error:   "INTERNAL_SERVER_ERROR",
	})
}

// respondValidationError 请求体校验失败
func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, apiResponse{
		Success: false,
		Message: "Validation failed",
		Error:   "VALIDATION_ERROR",
		Data:    gin.H{"detail": err.Error()},
	})
}
