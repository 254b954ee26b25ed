// Package client 下游协作服务（用户服务、模板渲染服务）的 HTTP 客户端。
// 错误分类在此边界一次性完成：结构化错误体原样透传，
// 网络故障/超时/非结构化响应包装为可重试的 ClassifiedError。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
	"github.com/wyfcoding/notifyhub/pkg/config"
	"github.com/wyfcoding/notifyhub/pkg/logger"
)

// envelope 下游服务的统一响应包裹
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// baseClient 单个下游服务的长生命周期 HTTP 客户端，
// 进程启动时构造一次，所有任务复用，不做任务级变更。
type baseClient struct {
	http    *http.Client
	baseURL string
	// name 日志用服务名
	name string
	// unavailableCode 非结构化故障的固定错误码
	unavailableCode string
}

func newBaseClient(endpoint config.ServiceEndpoint, name, unavailableCode string) baseClient {
	return baseClient{
		http: &http.Client{
			Timeout: time.Duration(endpoint.TimeoutMS) * time.Millisecond,
		},
		baseURL:         strings.TrimRight(endpoint.BaseURL, "/"),
		name:            name,
		unavailableCode: unavailableCode,
	}
}

// doJSON 执行一次 JSON 请求，返回响应包裹。
// 传输层错误（含超时）与无法解析的错误响应统一为可重试的 unavailable 错误。
func (c *baseClient) doJSON(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error(ctx, "collaborator request failed",
			"service", c.name,
			"method", method,
			"path", path,
			"error", err,
		)
		return nil, domain.NewServiceUnavailable(
			fmt.Sprintf("failed to reach %s service", c.name),
			c.unavailableCode,
			map[string]any{"error": err.Error()},
		)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewServiceUnavailable(
			fmt.Sprintf("failed to read %s service response", c.name),
			c.unavailableCode,
			map[string]any{"error": err.Error()},
		)
	}

	var env envelope
	decodable := json.Unmarshal(raw, &env) == nil

	if resp.StatusCode >= http.StatusBadRequest {
		logger.Error(ctx, "collaborator returned error",
			"service", c.name,
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		// 结构化错误体：消息/错误码/状态原样透传，由协作方完成分类
		if decodable && env.Message != "" {
			return nil, domain.NewClassified(env.Message, resp.StatusCode, env.Code, decodeDetails(env.Data))
		}
		// 非结构化故障：固定错误码，可重试
		return nil, domain.NewServiceUnavailable(
			fmt.Sprintf("%s service returned an unexpected response", c.name),
			c.unavailableCode,
			map[string]any{"status": resp.StatusCode},
		)
	}

	if !decodable {
		return nil, domain.NewServiceUnavailable(
			fmt.Sprintf("%s service returned an undecodable body", c.name),
			c.unavailableCode,
			map[string]any{"status": resp.StatusCode},
		)
	}

	// 兼容不带包裹的裸载荷
	if env.Data == nil {
		env.Data = json.RawMessage(raw)
	}
	return &env, nil
}

// decodeDetails 尽力解析错误细节，失败时返回 nil
func decodeDetails(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var details map[string]any
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil
	}
	return details
}
