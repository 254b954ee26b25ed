package provider

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
	"github.com/wyfcoding/notifyhub/pkg/config"
	"github.com/wyfcoding/notifyhub/pkg/logger"
)

// targetErrorFailed 非令牌失效类的单目标投递失败
const targetErrorFailed = "DELIVERY_FAILED"

// PushGateway FCM 推送网关适配器，实现 domain.Dispatcher。
// 有序多播：结果序列与令牌序列按位置对齐。
type PushGateway struct {
	client *messaging.Client
}

// NewPushGateway 初始化 Firebase 应用与 messaging 客户端，进程内仅构造一次。
func NewPushGateway(ctx context.Context, cfg config.FirebaseConfig) (*PushGateway, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize messaging client: %w", err)
	}

	logger.Info(ctx, "firebase messaging client initialized", "project_id", cfg.ProjectID)
	return &PushGateway{client: client}, nil
}

// Dispatch 向用户的全部令牌多播一条推送。
// 网关级故障（连接/鉴权）包装为可重试的 ProviderError；
// 单令牌失败体现在逐目标结果里，不作为任务级错误。
func (g *PushGateway) Dispatch(ctx context.Context, job *domain.NotificationJob, profile *domain.UserProfile, content *domain.RenderedContent) (*domain.DispatchResult, error) {
	tokens := profile.PushTokens

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title:    content.Headline,
			Body:     content.Body,
			ImageURL: content.Image,
		},
		Data: pushData(job, content),
	}
	if content.Image != "" {
		message.APNS = &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{MutableContent: true},
			},
			FCMOptions: &messaging.APNSFCMOptions{ImageURL: content.Image},
		}
	}

	resp, err := g.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, domain.NewProviderError(domain.ChannelPush, err, map[string]any{
			"token_count": len(tokens),
		})
	}

	results := make([]domain.TargetResult, len(resp.Responses))
	for i, r := range resp.Responses {
		result := domain.TargetResult{
			Target:    tokens[i],
			Success:   r.Success,
			MessageID: r.MessageID,
		}
		if r.Error != nil {
			result.ErrorMessage = r.Error.Error()
			if messaging.IsUnregistered(r.Error) {
				result.ErrorCode = domain.TargetErrorUnregistered
			} else {
				result.ErrorCode = targetErrorFailed
			}
		}
		results[i] = result
	}

	logger.Info(ctx, "push notification dispatched",
		"notification_id", job.NotificationID,
		"success_count", resp.SuccessCount,
		"failure_count", resp.FailureCount,
	)

	return &domain.DispatchResult{
		Results:      results,
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
		Provider: map[string]any{
			"success_count": resp.SuccessCount,
			"failure_count": resp.FailureCount,
		},
	}, nil
}

// pushData 组装推送附加数据。FCM 传输要求字符串值；
// notification_id 与 correlation_id 总是注入，便于端上与日志关联。
func pushData(job *domain.NotificationJob, content *domain.RenderedContent) map[string]string {
	data := make(map[string]string, len(content.Data)+2)
	for k, v := range content.Data {
		if s, ok := v.(string); ok {
			data[k] = s
			continue
		}
		data[k] = fmt.Sprintf("%v", v)
	}
	data["notification_id"] = job.NotificationID
	if cid := job.CorrelationID(); cid != "" {
		data["correlation_id"] = cid
	}
	return data
}
