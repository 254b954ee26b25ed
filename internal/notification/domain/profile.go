package domain

// UserProfile 用户画像，由用户服务持有，管线每次任务均重新拉取（无缓存）。
type UserProfile struct {
	// UserID 用户 ID
	UserID string `json:"user_id"`
	// Email 邮箱地址
	Email string `json:"email"`
	// PushTokens 推送令牌，顺序即多播目标与结果的对应顺序
	PushTokens []string `json:"push_tokens"`
	// IsActive 账号是否有效，缺失视为有效
	IsActive *bool `json:"is_active"`
	// Preferences 通知偏好
	Preferences *Preferences `json:"preferences"`
}

// Preferences 用户通知偏好，布尔字段缺失一律视为允许
type Preferences struct {
	// EmailNotifications 是否接收邮件通知
	EmailNotifications *bool `json:"email_notifications"`
	// PushNotifications 是否接收推送通知
	PushNotifications *bool `json:"push_notifications"`
	// QuietHoursStart 免打扰开始时间，HH:MM，空串表示未设置
	QuietHoursStart string `json:"quiet_hours_start"`
	// QuietHoursEnd 免打扰结束时间，HH:MM
	QuietHoursEnd string `json:"quiet_hours_end"`
}

// Active 账号是否有效
func (p *UserProfile) Active() bool {
	return p.IsActive == nil || *p.IsActive
}

// EmailEnabled 是否允许邮件通知
func (p *UserProfile) EmailEnabled() bool {
	if p.Preferences == nil || p.Preferences.EmailNotifications == nil {
		return true
	}
	return *p.Preferences.EmailNotifications
}

// PushEnabled 是否允许推送通知
func (p *UserProfile) PushEnabled() bool {
	if p.Preferences == nil || p.Preferences.PushNotifications == nil {
		return true
	}
	return *p.Preferences.PushNotifications
}
