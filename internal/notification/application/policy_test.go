package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
)

func boolPtr(v bool) *bool { return &v }

func clock(hour, minute int) time.Time {
	return time.Date(2026, 9, 1, hour, minute, 0, 0, time.UTC)
}

func TestEmailPolicy(t *testing.T) {
	cases := []struct {
		name    string
		profile *domain.UserProfile
		code    string
	}{
		{
			"allowed",
			&domain.UserProfile{UserID: "u1", Email: "u1@example.com"},
			"",
		},
		{
			"inactive account",
			&domain.UserProfile{UserID: "u1", Email: "u1@example.com", IsActive: boolPtr(false)},
			domain.SuppressEmailNotEnabled,
		},
		{
			"opted out",
			&domain.UserProfile{
				UserID:      "u1",
				Email:       "u1@example.com",
				Preferences: &domain.Preferences{EmailNotifications: boolPtr(false)},
			},
			domain.SuppressEmailNotEnabled,
		},
		{
			"missing address",
			&domain.UserProfile{UserID: "u1"},
			domain.SuppressEmailAddressMissing,
		},
		{
			// 退订优先于缺失地址
			"opted out without address",
			&domain.UserProfile{
				UserID:      "u1",
				Preferences: &domain.Preferences{EmailNotifications: boolPtr(false)},
			},
			domain.SuppressEmailNotEnabled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sup := EmailPolicy{}.Evaluate(tc.profile, clock(12, 0))
			if tc.code == "" {
				assert.Nil(t, sup)
				return
			}
			require.NotNil(t, sup)
			assert.Equal(t, tc.code, sup.Code)
		})
	}
}

func TestPushPolicy(t *testing.T) {
	cases := []struct {
		name    string
		profile *domain.UserProfile
		now     time.Time
		code    string
	}{
		{
			"allowed",
			&domain.UserProfile{UserID: "u1", PushTokens: []string{"tok-1"}},
			clock(12, 0),
			"",
		},
		{
			"opted out",
			&domain.UserProfile{
				UserID:      "u1",
				PushTokens:  []string{"tok-1"},
				Preferences: &domain.Preferences{PushNotifications: boolPtr(false)},
			},
			clock(12, 0),
			domain.SuppressPushNotEnabled,
		},
		{
			"no tokens",
			&domain.UserProfile{UserID: "u1"},
			clock(12, 0),
			domain.SuppressPushTokensMissing,
		},
		{
			"quiet hours active",
			&domain.UserProfile{
				UserID:     "u1",
				PushTokens: []string{"tok-1"},
				Preferences: &domain.Preferences{
					QuietHoursStart: "22:00",
					QuietHoursEnd:   "06:00",
				},
			},
			clock(23, 30),
			domain.SuppressQuietHours,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sup := PushPolicy{}.Evaluate(tc.profile, tc.now)
			if tc.code == "" {
				assert.Nil(t, sup)
				return
			}
			require.NotNil(t, sup)
			assert.Equal(t, tc.code, sup.Code)
		})
	}
}

func TestInQuietHours(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		now        time.Time
		want       bool
	}{
		{"overnight window late evening", "22:00", "06:00", clock(23, 0), true},
		{"overnight window early morning", "22:00", "06:00", clock(5, 0), true},
		{"overnight window daytime", "22:00", "06:00", clock(12, 0), false},
		{"window end exclusive", "22:00", "06:00", clock(6, 0), false},
		{"window start inclusive", "22:00", "06:00", clock(22, 0), true},
		{"same-day window inside", "09:00", "17:00", clock(12, 0), true},
		{"same-day window outside", "09:00", "17:00", clock(18, 0), false},
		{"start equals end disabled", "08:00", "08:00", clock(8, 0), false},
		{"unset", "", "", clock(12, 0), false},
		{"invalid format ignored", "25:00", "06:00", clock(3, 0), false},
		{"partial config ignored", "22:00", "", clock(23, 0), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, inQuietHours(tc.start, tc.end, tc.now))
		})
	}
}
