package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
	"github.com/wyfcoding/notifyhub/pkg/config"
)

// UserClient 用户服务客户端，实现 domain.ProfileService
type UserClient struct {
	base baseClient
}

// NewUserClient 创建用户服务客户端
func NewUserClient(endpoint config.ServiceEndpoint) *UserClient {
	return &UserClient{
		base: newBaseClient(endpoint, "user", domain.CodeUserServiceUnavailable),
	}
}

// FetchProfile 按用户 ID 拉取画像。每个任务独立拉取，不做缓存。
func (c *UserClient) FetchProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	env, err := c.base.doJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}

	var profile domain.UserProfile
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		return nil, domain.NewServiceUnavailable(
			"user service returned an undecodable profile",
			domain.CodeUserServiceUnavailable,
			map[string]any{"user_id": userID, "error": err.Error()},
		)
	}
	return &profile, nil
}

// RemovePushToken 删除用户的单个失效推送令牌，归集器视角下尽力而为。
func (c *UserClient) RemovePushToken(ctx context.Context, userID, token string) error {
	path := fmt.Sprintf("/users/%s/push-tokens/%s", url.PathEscape(userID), url.PathEscape(token))
	_, err := c.base.doJSON(ctx, http.MethodDelete, path, nil)
	return err
}
