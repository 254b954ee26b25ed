package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
)

// NotificationHandler 控制面处理器。持有渠道投递适配器，
// 用于在队列之外直接验证提供方连通性。
type NotificationHandler struct {
	channel    domain.Channel
	dispatcher domain.Dispatcher
}

// NewNotificationHandler 创建控制面处理器
func NewNotificationHandler(channel domain.Channel, dispatcher domain.Dispatcher) *NotificationHandler {
	return &NotificationHandler{
		channel:    channel,
		dispatcher: dispatcher,
	}
}

// RegisterRoutes 注册路由
func (h *NotificationHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		switch h.channel {
		case domain.ChannelPush:
			api.POST("/push/test", h.SendTestPush)
		default:
			api.POST("/email/test", h.SendTestEmail)
		}
		api.POST("/webhooks/:provider", h.ProviderWebhook)
	}
}

// SendTestEmailRequest 测试邮件请求
type SendTestEmailRequest struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	HTML    string `json:"html" binding:"required"`
	Text    string `json:"text"`
}

// SendTestEmail 同步发送一封测试邮件，直接触达 SMTP 中继
func (h *NotificationHandler) SendTestEmail(c *gin.Context) {
	var req SendTestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(),
		testJob(),
		&domain.UserProfile{Email: req.To},
		&domain.RenderedContent{
			Headline: req.Subject,
			Body:     req.HTML,
			Text:     req.Text,
		},
	)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Test email dispatched", gin.H{
		"message_id": result.Results[0].MessageID,
		"to":         req.To,
		"accepted":   []string{req.To},
	})
}

// SendTestPushRequest 测试推送请求
type SendTestPushRequest struct {
	PushToken string         `json:"push_token" binding:"required"`
	Title     string         `json:"title" binding:"required"`
	Body      string         `json:"body" binding:"required"`
	Data      map[string]any `json:"data"`
	Image     string         `json:"image"`
}

// SendTestPush 同步向单个令牌发送一条测试推送
func (h *NotificationHandler) SendTestPush(c *gin.Context) {
	var req SendTestPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(),
		testJob(),
		&domain.UserProfile{PushTokens: []string{req.PushToken}},
		&domain.RenderedContent{
			Headline: req.Title,
			Body:     req.Body,
			Data:     req.Data,
			Image:    req.Image,
		},
	)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]gin.H, 0, len(result.Results))
	for _, r := range result.Results {
		responses = append(responses, gin.H{
			"success":    r.Success,
			"message_id": r.MessageID,
			"error":      r.ErrorMessage,
		})
	}

	respondOK(c, "Test push dispatched", gin.H{
		"success_count": result.SuccessCount,
		"failure_count": result.FailureCount,
		"responses":     responses,
	})
}

// ProviderWebhook 提供方回执占位：仅确认接收，具体处理逻辑待各提供方接入
func (h *NotificationHandler) ProviderWebhook(c *gin.Context) {
	provider := c.Param("provider")

	var body map[string]any
	_ = c.ShouldBindJSON(&body)

	respondOK(c, "Webhook received from "+provider, gin.H{
		"provider":    provider,
		"received_at": time.Now().UTC().Format(time.RFC3339),
		"body":        body,
	})
}

// testJob 测试发送使用的固定工作单元
func testJob() *domain.NotificationJob {
	return &domain.NotificationJob{
		NotificationID: "test-notification",
		UserID:         "test-user",
		Metadata:       &domain.JobMetadata{CorrelationID: "test-correlation"},
	}
}
