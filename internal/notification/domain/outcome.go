package domain

// DeliveryStatus 单个工作单元的最终状态
type DeliveryStatus string

const (
	StatusSent       DeliveryStatus = "sent"       // 全部目标投递成功
	StatusPartial    DeliveryStatus = "partial"    // 多播部分成功
	StatusSuppressed DeliveryStatus = "suppressed" // 策略抑制，未触达提供方
)

// 抑制原因码
const (
	SuppressEmailNotEnabled     = "EMAIL_NOT_ENABLED"
	SuppressPushNotEnabled      = "PUSH_NOT_ENABLED"
	SuppressEmailAddressMissing = "EMAIL_ADDRESS_MISSING"
	SuppressPushTokensMissing   = "PUSH_TOKENS_MISSING"
	SuppressQuietHours          = "QUIET_HOURS_ACTIVE"
)

// Suppression 投递策略的短路结果。抑制不是错误：任务照常确认，
// 只是按策略跳过投递，绝不重投递、绝不进入死信队列。
type Suppression struct {
	// Code 抑制原因码
	Code string
	// Reason 人类可读说明
	Reason string
}

// TargetErrorUnregistered 推送目标令牌已失效（不再注册），
// 携带此错误码的令牌会被异步从用户画像中清理。
const TargetErrorUnregistered = "UNREGISTERED"

// TargetResult 单个投递目标的结果。多播时与目标令牌按位置对齐。
type TargetResult struct {
	// Target 目标地址或令牌
	Target string
	// Success 是否投递成功
	Success bool
	// MessageID 提供方返回的消息标识
	MessageID string
	// ErrorCode 失败时的提供方错误码
	ErrorCode string
	// ErrorMessage 失败时的提供方错误消息
	ErrorMessage string
}

// DispatchResult 提供方一次投递调用的完整结果
type DispatchResult struct {
	// Results 逐目标结果，与投递目标顺序一致
	Results []TargetResult
	// SuccessCount 成功数
	SuccessCount int
	// FailureCount 失败数
	FailureCount int
	// Provider 提供方原始响应字段，仅用于日志与同步响应
	Provider map[string]any
}

// DeliveryOutcome 单个工作单元的最终处理结果。
// 管线不持久化该结构：记录日志、发布事件后即丢弃。
type DeliveryOutcome struct {
	// NotificationID 工作单元 ID
	NotificationID string `json:"notification_id"`
	// UserID 目标用户
	UserID string `json:"user_id"`
	// Channel 渠道
	Channel Channel `json:"channel"`
	// CorrelationID 关联 ID（缺失时由管线生成）
	CorrelationID string `json:"correlation_id"`
	// Status 最终状态
	Status DeliveryStatus `json:"status"`
	// SuppressionCode 抑制原因码，仅 suppressed 状态有值
	SuppressionCode string `json:"suppression_code,omitempty"`
	// InvalidTargets 被判定为不可达的目标（失效令牌）
	InvalidTargets []string `json:"invalid_targets,omitempty"`
	// Dispatch 提供方结果，suppressed 时为 nil
	Dispatch *DispatchResult `json:"-"`
}
