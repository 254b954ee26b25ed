package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
	"github.com/wyfcoding/notifyhub/pkg/config"
)

func endpoint(baseURL string) config.ServiceEndpoint {
	return config.ServiceEndpoint{BaseURL: baseURL, TimeoutMS: 2000}
}

func TestFetchProfileEnvelopePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/user-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"user_id": "user-1",
				"email": "user-1@example.com",
				"push_tokens": ["tok-a", "tok-b"],
				"is_active": true,
				"preferences": {"email_notifications": false}
			}
		}`))
	}))
	defer srv.Close()

	c := NewUserClient(endpoint(srv.URL))
	profile, err := c.FetchProfile(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", profile.UserID)
	assert.Equal(t, []string{"tok-a", "tok-b"}, profile.PushTokens)
	assert.True(t, profile.Active())
	assert.False(t, profile.EmailEnabled())
	assert.True(t, profile.PushEnabled())
}

func TestFetchProfileBarePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id": "user-1", "email": "user-1@example.com"}`))
	}))
	defer srv.Close()

	c := NewUserClient(endpoint(srv.URL))
	profile, err := c.FetchProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1@example.com", profile.Email)
}

func TestFetchProfileStructuredErrorPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success": false, "message": "User not found", "error": "USER_NOT_FOUND"}`))
	}))
	defer srv.Close()

	c := NewUserClient(endpoint(srv.URL))
	_, err := c.FetchProfile(context.Background(), "ghost")

	var classified *domain.ClassifiedError
	require.ErrorAs(t, err, &classified)

	// 结构化错误体的消息/错误码/状态全部透传
	assert.Equal(t, "User not found", classified.Message)
	assert.Equal(t, "USER_NOT_FOUND", classified.Code)
	assert.Equal(t, http.StatusNotFound, classified.Status)
	assert.False(t, classified.Retryable())
}

func TestFetchProfileUnstructuredErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>Bad Gateway</html>`))
	}))
	defer srv.Close()

	c := NewUserClient(endpoint(srv.URL))
	_, err := c.FetchProfile(context.Background(), "user-1")

	var classified *domain.ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, domain.CodeUserServiceUnavailable, classified.Code)
	assert.True(t, classified.Retryable())
}

func TestFetchProfileConnectionRefused(t *testing.T) {
	c := NewUserClient(endpoint("http://127.0.0.1:1"))
	_, err := c.FetchProfile(context.Background(), "user-1")

	var classified *domain.ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, domain.CodeUserServiceUnavailable, classified.Code)
	assert.True(t, classified.Retryable())
}

func TestRemovePushToken(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "message": "Token removed"}`))
	}))
	defer srv.Close()

	c := NewUserClient(endpoint(srv.URL))
	err := c.RemovePushToken(context.Background(), "user-1", "tok/with:odd chars")
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/users/user-1/push-tokens/tok%2Fwith:odd%20chars", gotPath)
}

func TestRenderSendsVariables(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/templates/welcome/render", r.URL.Path)

		var body renderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "zh", body.Language)
		assert.Equal(t, "Wang", body.Variables["name"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"rendered_subject": "Welcome Wang",
				"rendered_body": "<p>hello</p>",
				"rendered_text": "hello"
			}
		}`))
	}))
	defer srv.Close()

	c := NewTemplateClient(endpoint(srv.URL))
	rendered, err := c.Render(context.Background(), "welcome", "zh", map[string]any{"name": "Wang"})
	require.NoError(t, err)

	assert.Equal(t, "Welcome Wang", rendered.Subject)
	assert.Equal(t, "<p>hello</p>", rendered.Body)
	assert.Equal(t, "hello", rendered.Text)
}

func TestRenderNestedDataPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"data": {"rendered_title": "Nested title", "rendered_text": "nested text"}
			}
		}`))
	}))
	defer srv.Close()

	c := NewTemplateClient(endpoint(srv.URL))
	rendered, err := c.Render(context.Background(), "promo", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "Nested title", rendered.Title)
	assert.Equal(t, "nested text", rendered.Text)
}

func TestRenderStructuredErrorPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success": false, "message": "Template has no email content", "error": "TEMPLATE_CONTENT_MISSING"}`))
	}))
	defer srv.Close()

	c := NewTemplateClient(endpoint(srv.URL))
	_, err := c.Render(context.Background(), "empty", "", nil)

	var classified *domain.ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, "TEMPLATE_CONTENT_MISSING", classified.Code)
	assert.False(t, classified.Retryable())
}
