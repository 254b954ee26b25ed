// Package application 通知投递管线的编排逻辑：
// 收件人解析、内容水合、投递策略、提供方投递与结果归集。
package application

import (
	"context"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
)

// firstNonEmpty 按序返回第一个非空值。内容解析的优先级链统一经过该函数，
// 保证与 I/O 无关、可单独测试。
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// mergeData 合并结构化数据：base 打底，override 覆盖同名键
func mergeData(base, override map[string]any) map[string]any {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// HydrateContent 解析最终投递内容。优先取调用方的 payload_overrides；
// 覆盖后仍缺失的字段，在 template_id 存在时调用模板渲染服务补齐；
// 标题或正文仍缺失则返回永久性的内容缺失错误。
// 渲染服务只在确有字段缺失时才被调用。
// 该函数对 job 与用户画像均为只读。
func HydrateContent(ctx context.Context, renderer domain.TemplateRenderer, job *domain.NotificationJob) (*domain.RenderedContent, error) {
	content := &domain.RenderedContent{}

	if o := job.PayloadOverrides; o != nil {
		switch job.Channel {
		case domain.ChannelPush:
			content.Headline = o.Title
		default:
			content.Headline = o.Subject
		}
		content.Body = o.Body
		content.Text = o.Text
		content.Data = mergeData(nil, o.Data)
		content.Image = o.Image
	}

	if (content.Headline == "" || content.Body == "") && job.TemplateID != "" {
		rendered, err := renderer.Render(ctx, job.TemplateID, job.Language, job.Variables)
		if err != nil {
			return nil, err
		}

		switch job.Channel {
		case domain.ChannelPush:
			content.Headline = firstNonEmpty(content.Headline, rendered.Title, rendered.Subject)
			content.Body = firstNonEmpty(content.Body, rendered.Text, rendered.Body)
		default:
			content.Headline = firstNonEmpty(content.Headline, rendered.Subject)
			content.Body = firstNonEmpty(content.Body, rendered.Body)
			content.Text = firstNonEmpty(content.Text, rendered.Text)
		}
		// 渲染数据打底，覆盖数据优先
		var override map[string]any
		if job.PayloadOverrides != nil {
			override = job.PayloadOverrides.Data
		}
		content.Data = mergeData(rendered.Data, override)
		content.Image = firstNonEmpty(content.Image, rendered.Image)
	}

	if content.Headline == "" || content.Body == "" {
		if job.Channel == domain.ChannelPush {
			return nil, domain.NewContentMissing("push title and body are required", domain.CodePushContentMissing, job.NotificationID)
		}
		return nil, domain.NewContentMissing("email subject and body are required", domain.CodeEmailContentMissing, job.NotificationID)
	}

	return content, nil
}
