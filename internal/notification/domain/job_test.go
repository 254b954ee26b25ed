package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJob(t *testing.T) {
	raw := []byte(`{
		"notification_id": "ntf-1",
		"user_id": "user-1",
		"template_id": "welcome",
		"language": "en",
		"variables": {"name": "Wang"},
		"payload_overrides": {"subject": "Hi", "data": {"k": "v"}},
		"metadata": {"correlation_id": "corr-1"}
	}`)

	job, err := DecodeJob(raw, ChannelEmail)
	require.NoError(t, err)

	assert.Equal(t, "ntf-1", job.NotificationID)
	assert.Equal(t, "user-1", job.UserID)
	assert.Equal(t, ChannelEmail, job.Channel)
	assert.Equal(t, "welcome", job.TemplateID)
	assert.Equal(t, "Hi", job.PayloadOverrides.Subject)
	assert.Equal(t, "corr-1", job.CorrelationID())
}

func TestDecodeJobMalformed(t *testing.T) {
	_, err := DecodeJob([]byte(`{not json`), ChannelPush)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Error(), "malformed payload")
}

func TestDecodeJobMissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing notification_id", `{"user_id": "user-1"}`},
		{"missing user_id", `{"notification_id": "ntf-1"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeJob([]byte(tc.raw), ChannelEmail)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestCorrelationIDWithoutMetadata(t *testing.T) {
	job := &NotificationJob{NotificationID: "ntf-1", UserID: "user-1"}
	assert.Empty(t, job.CorrelationID())
}
