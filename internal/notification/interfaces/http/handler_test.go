package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
)

// fakeDispatcher 预设投递结果并记录入参
type fakeDispatcher struct {
	result      *domain.DispatchResult
	err         error
	lastProfile *domain.UserProfile
	lastContent *domain.RenderedContent
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _ *domain.NotificationJob, profile *domain.UserProfile, content *domain.RenderedContent) (*domain.DispatchResult, error) {
	f.lastProfile = profile
	f.lastContent = content
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func setupRouter(channel domain.Channel, dispatcher domain.Dispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewNotificationHandler(channel, dispatcher).RegisterRoutes(engine)
	return engine
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSendTestEmail(t *testing.T) {
	dispatcher := &fakeDispatcher{
		result: &domain.DispatchResult{
			Results:      []domain.TargetResult{{Target: "dev@example.com", Success: true, MessageID: "<mid@notifyhub>"}},
			SuccessCount: 1,
		},
	}
	router := setupRouter(domain.ChannelEmail, dispatcher)

	w := performJSON(t, router, http.MethodPost, "/api/v1/email/test", gin.H{
		"to":      "dev@example.com",
		"subject": "Smoke test",
		"html":    "<p>hello</p>",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	require.NotNil(t, dispatcher.lastProfile)
	assert.Equal(t, "dev@example.com", dispatcher.lastProfile.Email)
	assert.Equal(t, "Smoke test", dispatcher.lastContent.Headline)
}

func TestSendTestEmailValidation(t *testing.T) {
	router := setupRouter(domain.ChannelEmail, &fakeDispatcher{})

	cases := []struct {
		name string
		body gin.H
	}{
		{"missing to", gin.H{"subject": "s", "html": "<p>h</p>"}},
		{"invalid email", gin.H{"to": "not-an-email", "subject": "s", "html": "<p>h</p>"}},
		{"missing html", gin.H{"to": "dev@example.com", "subject": "s"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := performJSON(t, router, http.MethodPost, "/api/v1/email/test", tc.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, "VALIDATION_ERROR", resp.Error)
		})
	}
}

func TestSendTestEmailClassifiedError(t *testing.T) {
	dispatcher := &fakeDispatcher{
		err: domain.NewProviderError(domain.ChannelEmail, errors.New("smtp refused"), nil),
	}
	router := setupRouter(domain.ChannelEmail, dispatcher)

	w := performJSON(t, router, http.MethodPost, "/api/v1/email/test", gin.H{
		"to":      "dev@example.com",
		"subject": "Smoke test",
		"html":    "<p>hello</p>",
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, domain.CodeEmailProviderError, resp.Error)
}

func TestSendTestPush(t *testing.T) {
	dispatcher := &fakeDispatcher{
		result: &domain.DispatchResult{
			Results:      []domain.TargetResult{{Target: "tok-1", Success: true, MessageID: "projects/x/messages/1"}},
			SuccessCount: 1,
		},
	}
	router := setupRouter(domain.ChannelPush, dispatcher)

	w := performJSON(t, router, http.MethodPost, "/api/v1/push/test", gin.H{
		"push_token": "tok-1",
		"title":      "Hi",
		"body":       "there",
		"data":       gin.H{"k": "v"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, dispatcher.lastProfile)
	assert.Equal(t, []string{"tok-1"}, dispatcher.lastProfile.PushTokens)
	assert.Equal(t, "v", dispatcher.lastContent.Data["k"])
}

func TestRoutesAreChannelScoped(t *testing.T) {
	emailRouter := setupRouter(domain.ChannelEmail, &fakeDispatcher{})

	w := performJSON(t, emailRouter, http.MethodPost, "/api/v1/push/test", gin.H{
		"push_token": "tok-1",
		"title":      "Hi",
		"body":       "there",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProviderWebhook(t *testing.T) {
	router := setupRouter(domain.ChannelEmail, &fakeDispatcher{})

	w := performJSON(t, router, http.MethodPost, "/api/v1/webhooks/ses", gin.H{
		"event": "bounce",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}
