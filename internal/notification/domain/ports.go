package domain

import "context"

// ProfileService 用户服务协作接口。实现方在边界处完成错误分类：
// 结构化错误体原样透传，网络/非结构化故障包装为可重试的 ClassifiedError。
type ProfileService interface {
	// FetchProfile 按用户 ID 拉取画像
	FetchProfile(ctx context.Context, userID string) (*UserProfile, error)
	// RemovePushToken 删除用户的单个失效推送令牌
	RemovePushToken(ctx context.Context, userID, token string) error
}

// RenderedTemplate 模板渲染服务返回的内容载荷
type RenderedTemplate struct {
	// Subject 渲染后的邮件主题
	Subject string `json:"rendered_subject"`
	// Title 渲染后的推送标题
	Title string `json:"rendered_title"`
	// Body 渲染后的正文（邮件为 HTML）
	Body string `json:"rendered_body"`
	// Text 渲染后的纯文本
	Text string `json:"rendered_text"`
	// Data 渲染后的结构化数据
	Data map[string]any `json:"rendered_data"`
	// Image 图片引用
	Image string `json:"rendered_image"`
}

// TemplateRenderer 模板渲染协作接口
type TemplateRenderer interface {
	Render(ctx context.Context, templateID, language string, variables map[string]any) (*RenderedTemplate, error)
}

// RenderedContent 水合后的投递内容，生命周期仅限单个任务
type RenderedContent struct {
	// Headline 标题字段：邮件主题或推送标题
	Headline string
	// Body 正文
	Body string
	// Text 纯文本正文，可选
	Text string
	// Data 结构化数据，可选
	Data map[string]any
	// Image 图片 URL，可选
	Image string
}

// Dispatcher 渠道投递适配器。邮件为单目标单结果；
// 推送为有序多播，结果与令牌按位置对齐。
// 传输层故障以 ClassifiedError（ProviderError，可重试）返回。
type Dispatcher interface {
	Dispatch(ctx context.Context, job *NotificationJob, profile *UserProfile, content *RenderedContent) (*DispatchResult, error)
}

// OutcomePublisher 投递结果事件发布接口，尽力而为：
// 发布失败只记日志，绝不影响任务的 ack/nack 决策。
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, outcome *DeliveryOutcome) error
}
