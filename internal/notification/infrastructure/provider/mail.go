// Package provider 渠道投递适配器：SMTP 邮件中继与 FCM 推送网关。
// 适配器只做传输：策略与内容水合一律在管线中完成。
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
	"github.com/wyfcoding/notifyhub/pkg/config"
	"github.com/wyfcoding/notifyhub/pkg/logger"
)

// MailRelay SMTP 邮件中继适配器，实现 domain.Dispatcher。
// 单地址单结果；传输层故障包装为可重试的 ProviderError。
type MailRelay struct {
	dialer  *gomail.Dialer
	from    string
	timeout time.Duration
}

// NewMailRelay 创建邮件中继适配器。拨号器长生命周期复用，自身按连接发送。
func NewMailRelay(cfg config.EmailConfig) *MailRelay {
	return &MailRelay{
		dialer:  gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password),
		from:    cfg.DefaultFrom,
		timeout: time.Duration(cfg.SMTP.Timeout) * time.Second,
	}
}

// Dispatch 发送单封邮件。总是携带 X-Notification-Id / X-Correlation-Id 头，
// 任务的 payload_overrides.headers 在其上覆盖。
func (m *MailRelay) Dispatch(ctx context.Context, job *domain.NotificationJob, profile *domain.UserProfile, content *domain.RenderedContent) (*domain.DispatchResult, error) {
	to := profile.Email
	messageID := fmt.Sprintf("<%s@notifyhub>", uuid.New().String())

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", content.Headline)
	msg.SetHeader("Message-ID", messageID)
	msg.SetHeader("X-Notification-Id", job.NotificationID)
	msg.SetHeader("X-Correlation-Id", job.CorrelationID())
	if job.PayloadOverrides != nil {
		for k, v := range job.PayloadOverrides.Headers {
			msg.SetHeader(k, v)
		}
	}

	if content.Text != "" {
		msg.SetBody("text/plain", content.Text)
		msg.AddAlternative("text/html", content.Body)
	} else {
		msg.SetBody("text/html", content.Body)
	}

	if err := m.send(ctx, msg); err != nil {
		return nil, domain.NewProviderError(domain.ChannelEmail, err, map[string]any{
			"host": m.dialer.Host,
			"to":   to,
		})
	}

	logger.Info(ctx, "email dispatched",
		"notification_id", job.NotificationID,
		"message_id", messageID,
		"to", to,
	)

	return &domain.DispatchResult{
		Results: []domain.TargetResult{{
			Target:    to,
			Success:   true,
			MessageID: messageID,
		}},
		SuccessCount: 1,
		FailureCount: 0,
		Provider: map[string]any{
			"message_id": messageID,
			"accepted":   []string{to},
		},
	}, nil
}

// send 在超时约束下执行阻塞的 SMTP 发送
func (m *MailRelay) send(ctx context.Context, msg *gomail.Message) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
