package consumer

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
	"github.com/wyfcoding/notifyhub/pkg/metrics"
)

// fakeAcknowledger 记录 ack/nack 决策
type fakeAcknowledger struct {
	acks    int
	nacks   int
	requeue bool
}

func (f *fakeAcknowledger) Ack(_ uint64, _ bool) error {
	f.acks++
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacks++
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	return f.Nack(0, false, requeue)
}

// fakePipeline 预设处理结果
type fakePipeline struct {
	outcome *domain.DeliveryOutcome
	err     error
	calls   int
	lastJob *domain.NotificationJob
}

func (f *fakePipeline) Process(_ context.Context, job *domain.NotificationJob) (*domain.DeliveryOutcome, error) {
	f.calls++
	f.lastJob = job
	return f.outcome, f.err
}

func newTestConsumer(pipeline JobProcessor) *Consumer {
	return NewConsumer(nil, pipeline, domain.ChannelEmail, metrics.New("test"))
}

func delivery(ack *fakeAcknowledger, body string) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         []byte(body),
	}
}

func TestHandleAcksOnSuccess(t *testing.T) {
	pipeline := &fakePipeline{
		outcome: &domain.DeliveryOutcome{
			NotificationID: "ntf-1",
			Status:         domain.StatusSent,
		},
	}
	consumer := newTestConsumer(pipeline)
	ack := &fakeAcknowledger{}

	consumer.handle(context.Background(), delivery(ack, `{"notification_id":"ntf-1","user_id":"user-1"}`))

	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)
	require.NotNil(t, pipeline.lastJob)
	assert.Equal(t, domain.ChannelEmail, pipeline.lastJob.Channel)
}

func TestHandleDropsMalformedMessage(t *testing.T) {
	pipeline := &fakePipeline{}
	consumer := newTestConsumer(pipeline)
	ack := &fakeAcknowledger{}

	consumer.handle(context.Background(), delivery(ack, `{broken`))

	// 解码失败直接确认丢弃：不进管线、不重投递、不进死信
	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)
	assert.Zero(t, pipeline.calls)
}

func TestHandleDropsMessageMissingRequiredFields(t *testing.T) {
	pipeline := &fakePipeline{}
	consumer := newTestConsumer(pipeline)
	ack := &fakeAcknowledger{}

	consumer.handle(context.Background(), delivery(ack, `{"notification_id":"ntf-1"}`))

	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, pipeline.calls)
}

func TestHandleRequeuesRetryableFailure(t *testing.T) {
	pipeline := &fakePipeline{
		err: domain.NewServiceUnavailable("user service down", domain.CodeUserServiceUnavailable, nil),
	}
	consumer := newTestConsumer(pipeline)
	ack := &fakeAcknowledger{}

	consumer.handle(context.Background(), delivery(ack, `{"notification_id":"ntf-1","user_id":"user-1"}`))

	assert.Zero(t, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeue)
}

func TestHandleDeadLettersPermanentFailure(t *testing.T) {
	pipeline := &fakePipeline{
		err: domain.NewContentMissing("email subject and body are required", domain.CodeEmailContentMissing, "ntf-1"),
	}
	consumer := newTestConsumer(pipeline)
	ack := &fakeAcknowledger{}

	consumer.handle(context.Background(), delivery(ack, `{"notification_id":"ntf-1","user_id":"user-1"}`))

	// 永久失败：nack 不重投递，经由死信交换机进入失败队列
	assert.Zero(t, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.False(t, ack.requeue)
}

func TestHandleUnclassifiedErrorNotRequeued(t *testing.T) {
	pipeline := &fakePipeline{err: errors.New("unexpected panic-adjacent failure")}
	consumer := newTestConsumer(pipeline)
	ack := &fakeAcknowledger{}

	consumer.handle(context.Background(), delivery(ack, `{"notification_id":"ntf-1","user_id":"user-1"}`))

	assert.Equal(t, 1, ack.nacks)
	assert.False(t, ack.requeue)
}

func TestHandleAcksSuppressedOutcome(t *testing.T) {
	pipeline := &fakePipeline{
		outcome: &domain.DeliveryOutcome{
			NotificationID:  "ntf-1",
			Status:          domain.StatusSuppressed,
			SuppressionCode: domain.SuppressQuietHours,
		},
	}
	consumer := newTestConsumer(pipeline)
	ack := &fakeAcknowledger{}

	consumer.handle(context.Background(), delivery(ack, `{"notification_id":"ntf-1","user_id":"user-1"}`))

	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)
}
