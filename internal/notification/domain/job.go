// Package domain 通知投递管线的领域模型
package domain

import (
	"encoding/json"
	"fmt"
)

// Channel 通知渠道
type Channel string

const (
	ChannelEmail Channel = "email" // 邮件渠道
	ChannelPush  Channel = "push"  // 推送渠道
)

// NotificationJob 从队列拉取的一个投递工作单元。
// 由一次 broker 投递创建，在 ack 或终态 nack 时销毁；管线自身不重试，
// 重试统一由 broker 重投递完成。
type NotificationJob struct {
	// NotificationID 调用方分配的全局唯一 ID
	NotificationID string `json:"notification_id"`
	// UserID 目标用户 ID
	UserID string `json:"user_id"`
	// Channel 渠道，由队列隐含，解码时注入
	Channel Channel `json:"-"`
	// TemplateID 模板 ID，可选
	TemplateID string `json:"template_id,omitempty"`
	// Language 渲染语言，可选
	Language string `json:"language,omitempty"`
	// Variables 模板渲染入参，可以为空
	Variables map[string]any `json:"variables,omitempty"`
	// PayloadOverrides 内容覆盖，优先于模板渲染结果
	PayloadOverrides *PayloadOverrides `json:"payload_overrides,omitempty"`
	// Metadata 附加元数据
	Metadata *JobMetadata `json:"metadata,omitempty"`
}

// PayloadOverrides 调用方直接提供的内容字段，优先于模板渲染
type PayloadOverrides struct {
	// Subject 邮件主题
	Subject string `json:"subject,omitempty"`
	// Title 推送标题
	Title string `json:"title,omitempty"`
	// Body 正文（邮件为 HTML）
	Body string `json:"body,omitempty"`
	// Text 纯文本正文
	Text string `json:"text,omitempty"`
	// Data 推送附加数据
	Data map[string]any `json:"data,omitempty"`
	// Image 推送图片 URL
	Image string `json:"image,omitempty"`
	// Headers 邮件附加头
	Headers map[string]string `json:"headers,omitempty"`
}

// JobMetadata 工作单元元数据
type JobMetadata struct {
	// CorrelationID 幂等关联 ID，缺失时由管线生成
	CorrelationID string `json:"correlation_id,omitempty"`
}

// CorrelationID 返回调用方指定的关联 ID，未指定时返回空串
func (j *NotificationJob) CorrelationID() string {
	if j.Metadata == nil {
		return ""
	}
	return j.Metadata.CorrelationID
}

// DecodeError 原始消息无法解析为工作单元，属于永久失败：
// 消费者直接确认并丢弃，不重投递也不进入死信队列。
type DecodeError struct {
	Reason string
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode notification job: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("decode notification job: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// DecodeJob 将原始字节解析为 NotificationJob，渠道由所在队列决定。
// 失败时不产生任何副作用。
func DecodeJob(raw []byte, channel Channel) (*NotificationJob, error) {
	var job NotificationJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, &DecodeError{Reason: "malformed payload", Cause: err}
	}
	if job.NotificationID == "" {
		return nil, &DecodeError{Reason: "notification_id is required"}
	}
	if job.UserID == "" {
		return nil, &DecodeError{Reason: "user_id is required"}
	}
	job.Channel = channel
	return &job, nil
}
