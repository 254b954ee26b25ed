// Package consumer 队列消费循环。每条投递由独立 goroutine 处理，
// 并发度由 broker 的 prefetch 信用额度约束；任务之间无顺序保证。
package consumer

import (
	"context"
	"errors"
	"strconv"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
	"github.com/wyfcoding/notifyhub/pkg/logger"
	"github.com/wyfcoding/notifyhub/pkg/metrics"
	"github.com/wyfcoding/notifyhub/pkg/mq"
)

// JobProcessor 投递管线入口
type JobProcessor interface {
	Process(ctx context.Context, job *domain.NotificationJob) (*domain.DeliveryOutcome, error)
}

// Consumer 单队列消费者
type Consumer struct {
	broker   *mq.Broker
	pipeline JobProcessor
	channel  domain.Channel
	metrics  *metrics.Metrics
}

// NewConsumer 创建消费者
func NewConsumer(broker *mq.Broker, pipeline JobProcessor, channel domain.Channel, m *metrics.Metrics) *Consumer {
	return &Consumer{
		broker:   broker,
		pipeline: pipeline,
		channel:  channel,
		metrics:  m,
	}
}

// Run 启动消费循环并阻塞，直到 ctx 取消或连接断开。
// 返回前等待全部在途任务处理完毕。
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.broker.Consume(ctx, string(c.channel)+"-consumer")
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for delivery := range deliveries {
		wg.Add(1)
		go func(d amqp.Delivery) {
			defer wg.Done()
			// 任务一旦开始就不被关停中断：取消粒度只到“不再重回队列”
			c.handle(context.WithoutCancel(ctx), d)
		}(delivery)
	}
	wg.Wait()

	logger.Info(ctx, "consumer drained", "queue", c.broker.Queue())
	return nil
}

// handle 处理单条投递并作出 ack/nack 决策：
//   - 解码失败：永久丢弃，直接确认（无重放路径，死信无意义）；
//   - 可重试故障（>=500 档位，含超时与非结构化不可用）：nack 并要求重投递；
//   - 永久性客户端故障：nack 不重投递，首次失败即进入死信队列；
//   - 抑制与 sent/partial：正常确认。
//
// 决策只看错误的状态档位，不看错误码。
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	c.metrics.JobsConsumedTotal.Inc()

	job, err := domain.DecodeJob(d.Body, c.channel)
	if err != nil {
		c.metrics.JobsDroppedTotal.Inc()
		// 原始报文进日志，留作取证
		logger.Error(ctx, "failed to decode message, dropping",
			"error", err,
			"payload", string(d.Body),
		)
		c.ack(ctx, d)
		return
	}

	outcome, err := c.pipeline.Process(ctx, job)
	if err != nil {
		requeue := false
		var classified *domain.ClassifiedError
		if errors.As(err, &classified) {
			requeue = classified.Retryable()
		}
		c.metrics.JobsFailedTotal.WithLabelValues(strconv.FormatBool(requeue)).Inc()
		logger.Error(ctx, "notification job failed",
			"notification_id", job.NotificationID,
			"user_id", job.UserID,
			"error", err,
			"requeue", requeue,
		)
		if nackErr := d.Nack(false, requeue); nackErr != nil {
			logger.Error(ctx, "failed to nack message", "error", nackErr)
		}
		return
	}

	logger.Info(ctx, "notification job completed",
		"notification_id", outcome.NotificationID,
		"status", outcome.Status,
		"invalid_targets", len(outcome.InvalidTargets),
	)
	c.ack(ctx, d)
}

func (c *Consumer) ack(ctx context.Context, d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		logger.Error(ctx, "failed to ack message", "error", err)
	}
}
