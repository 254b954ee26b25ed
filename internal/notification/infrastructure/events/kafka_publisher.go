// Package events 投递结果事件发布。
// 事件流是旁路观测通道：发布失败只记日志，不影响任务的 ack/nack。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
	"github.com/wyfcoding/notifyhub/pkg/config"
	"github.com/wyfcoding/notifyhub/pkg/logger"
)

// outcomeEvent 发布到事件流的投递结果
type outcomeEvent struct {
	NotificationID  string                `json:"notification_id"`
	UserID          string                `json:"user_id"`
	Channel         domain.Channel        `json:"channel"`
	CorrelationID   string                `json:"correlation_id"`
	Status          domain.DeliveryStatus `json:"status"`
	SuppressionCode string                `json:"suppression_code,omitempty"`
	InvalidTargets  []string              `json:"invalid_targets,omitempty"`
	OccurredAt      time.Time             `json:"occurred_at"`
}

// KafkaOutcomePublisher 基于 Kafka 的投递结果事件发布器，实现 domain.OutcomePublisher
type KafkaOutcomePublisher struct {
	writer *kafka.Writer
}

// NewKafkaOutcomePublisher 创建事件发布器
func NewKafkaOutcomePublisher(cfg config.KafkaConfig) *KafkaOutcomePublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.OutcomeTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}

	logger.Info(context.Background(), "outcome event publisher created",
		"brokers", cfg.Brokers,
		"topic", cfg.OutcomeTopic,
	)
	return &KafkaOutcomePublisher{writer: writer}
}

// PublishOutcome 发布单条投递结果事件。
// 使用 user_id 做 key，保证同一用户的事件有序。
func (p *KafkaOutcomePublisher) PublishOutcome(ctx context.Context, outcome *domain.DeliveryOutcome) error {
	event := outcomeEvent{
		NotificationID:  outcome.NotificationID,
		UserID:          outcome.UserID,
		Channel:         outcome.Channel,
		CorrelationID:   outcome.CorrelationID,
		Status:          outcome.Status,
		SuppressionCode: outcome.SuppressionCode,
		InvalidTargets:  outcome.InvalidTargets,
		OccurredAt:      time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome event: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(outcome.UserID),
		Value: payload,
	})
}

// Close 关闭底层 writer
func (p *KafkaOutcomePublisher) Close() error {
	return p.writer.Close()
}
