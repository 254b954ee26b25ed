package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
	"github.com/wyfcoding/notifyhub/pkg/config"
)

// TemplateClient 模板渲染服务客户端，实现 domain.TemplateRenderer
type TemplateClient struct {
	base baseClient
}

// NewTemplateClient 创建模板渲染服务客户端
func NewTemplateClient(endpoint config.ServiceEndpoint) *TemplateClient {
	return &TemplateClient{
		base: newBaseClient(endpoint, "template", domain.CodeTemplateServiceUnavailable),
	}
}

// renderRequest 渲染请求体
type renderRequest struct {
	Language  string         `json:"language,omitempty"`
	Variables map[string]any `json:"variables"`
}

// Render 调用模板渲染服务。响应可能把载荷嵌在 data 键下，也可能是裸载荷，
// 两种形态都要解包。
func (c *TemplateClient) Render(ctx context.Context, templateID, language string, variables map[string]any) (*domain.RenderedTemplate, error) {
	if variables == nil {
		variables = map[string]any{}
	}

	path := "/templates/" + url.PathEscape(templateID) + "/render"
	env, err := c.base.doJSON(ctx, http.MethodPost, path, renderRequest{
		Language:  language,
		Variables: variables,
	})
	if err != nil {
		return nil, err
	}

	payload := unwrapNested(env.Data)

	var rendered domain.RenderedTemplate
	if err := json.Unmarshal(payload, &rendered); err != nil {
		return nil, domain.NewServiceUnavailable(
			"template service returned an undecodable payload",
			domain.CodeTemplateServiceUnavailable,
			map[string]any{"template_id": templateID, "error": err.Error()},
		)
	}
	return &rendered, nil
}

// unwrapNested 兼容再嵌一层 data 的响应形态
func unwrapNested(raw json.RawMessage) json.RawMessage {
	var nested struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested.Data) > 0 {
		return nested.Data
	}
	return raw
}
