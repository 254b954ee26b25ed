package application

import (
	"strconv"
	"strings"
	"time"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
)

// PolicyEvaluator 渠道投递策略。返回非 nil 表示按策略抑制投递，
// 任务以成功姿态确认，提供方不被触达。
type PolicyEvaluator interface {
	Evaluate(profile *domain.UserProfile, now time.Time) *domain.Suppression
}

// EmailPolicy 邮件渠道策略：停用/退订抑制，缺失邮箱抑制。
type EmailPolicy struct{}

// Evaluate 按固定顺序评估抑制规则
func (EmailPolicy) Evaluate(profile *domain.UserProfile, _ time.Time) *domain.Suppression {
	if !profile.Active() || !profile.EmailEnabled() {
		return &domain.Suppression{
			Code:   domain.SuppressEmailNotEnabled,
			Reason: "email notifications disabled for user",
		}
	}
	if profile.Email == "" {
		return &domain.Suppression{
			Code:   domain.SuppressEmailAddressMissing,
			Reason: "user has no email address",
		}
	}
	return nil
}

// PushPolicy 推送渠道策略：停用/退订抑制，缺失令牌抑制，免打扰时段抑制。
type PushPolicy struct{}

// Evaluate 按固定顺序评估抑制规则
func (PushPolicy) Evaluate(profile *domain.UserProfile, now time.Time) *domain.Suppression {
	if !profile.Active() || !profile.PushEnabled() {
		return &domain.Suppression{
			Code:   domain.SuppressPushNotEnabled,
			Reason: "push notifications disabled for user",
		}
	}
	if len(profile.PushTokens) == 0 {
		return &domain.Suppression{
			Code:   domain.SuppressPushTokensMissing,
			Reason: "user has no push tokens",
		}
	}
	if profile.Preferences != nil &&
		inQuietHours(profile.Preferences.QuietHoursStart, profile.Preferences.QuietHoursEnd, now) {
		return &domain.Suppression{
			Code:   domain.SuppressQuietHours,
			Reason: "notification falls within quiet hours",
		}
	}
	return nil
}

// inQuietHours 判断 now 是否落在 [start, end) 免打扰窗口内。
// start == end 表示未启用；start > end 表示跨午夜窗口。
// 时间格式非法视为未设置。
func inQuietHours(start, end string, now time.Time) bool {
	s, okStart := parseClockMinutes(start)
	e, okEnd := parseClockMinutes(end)
	if !okStart || !okEnd || s == e {
		return false
	}

	current := now.Hour()*60 + now.Minute()

	if s < e {
		return current >= s && current < e
	}
	// 跨午夜：[s, 1440) ∪ [0, e)
	return current >= s || current < e
}

// parseClockMinutes 解析 HH:MM 为当日分钟数
func parseClockMinutes(value string) (int, bool) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, false
	}
	return hours*60 + minutes, true
}
