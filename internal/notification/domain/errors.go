package domain

import (
	"fmt"
	"net/http"
)

// 错误码。下游协作服务返回的结构化错误原样透传其错误码；
// 非结构化故障统一用固定错误码标识故障来源。
const (
	// CodeUserServiceUnavailable 用户服务不可达或返回非结构化错误
	CodeUserServiceUnavailable = "USER_SERVICE_UNAVAILABLE"
	// CodeTemplateServiceUnavailable 模板渲染服务不可达或返回非结构化错误
	CodeTemplateServiceUnavailable = "TEMPLATE_SERVICE_UNAVAILABLE"
	// CodeEmailContentMissing 覆盖与模板渲染后仍缺少邮件主题或正文
	CodeEmailContentMissing = "EMAIL_CONTENT_MISSING"
	// CodePushContentMissing 覆盖与模板渲染后仍缺少推送标题或正文
	CodePushContentMissing = "PUSH_CONTENT_MISSING"
	// CodeEmailProviderError SMTP 中继传输层故障
	CodeEmailProviderError = "EMAIL_PROVIDER_ERROR"
	// CodePushProviderError 推送网关传输层故障
	CodePushProviderError = "PUSH_PROVIDER_ERROR"
)

// ClassifiedError 管线统一的错误返回形态。无论故障来自下游协作服务
// 还是投递提供方，都在边界处收敛为一次性打标的错误；
// 消费者只根据 Status 的档位（而不是错误码）决定 ack/nack。
type ClassifiedError struct {
	// Message 人类可读消息，结构化下游错误原样透传
	Message string
	// Status HTTP 状态档位，>=500 视为可重试
	Status int
	// Code 领域错误码
	Code string
	// Details 诊断细节，仅用于日志与同步响应
	Details map[string]any
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Retryable 是否应由 broker 重投递。超时与非结构化不可用均落在 >=500 档位。
func (e *ClassifiedError) Retryable() bool {
	return e.Status >= http.StatusInternalServerError
}

// NewClassified 构造分类错误
func NewClassified(message string, status int, code string, details map[string]any) *ClassifiedError {
	return &ClassifiedError{
		Message: message,
		Status:  status,
		Code:    code,
		Details: details,
	}
}

// NewServiceUnavailable 下游不可达或返回非结构化故障时的统一包装，可重试
func NewServiceUnavailable(message, code string, details map[string]any) *ClassifiedError {
	return NewClassified(message, http.StatusBadGateway, code, details)
}

// NewContentMissing 内容缺失，永久性客户端错误，不重投递
func NewContentMissing(message, code string, notificationID string) *ClassifiedError {
	return NewClassified(message, http.StatusBadRequest, code, map[string]any{
		"notification_id": notificationID,
	})
}

// NewProviderError 投递提供方传输层故障，可重试，保留原始诊断字段
func NewProviderError(channel Channel, cause error, details map[string]any) *ClassifiedError {
	code := CodeEmailProviderError
	if channel == ChannelPush {
		code = CodePushProviderError
	}
	if details == nil {
		details = map[string]any{}
	}
	details["cause"] = cause.Error()
	return NewClassified("provider dispatch failed", http.StatusBadGateway, code, details)
}
