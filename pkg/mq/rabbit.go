// Package mq 提供 RabbitMQ 连接封装，负责拓扑声明（交换机/队列/死信队列/绑定）、
// prefetch 信用额度设置与消费通道管理
package mq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wyfcoding/notifyhub/pkg/logger"
)

// Config RabbitMQ 配置
type Config struct {
	// 连接地址
	URI string
	// 交换机名称（direct 类型）
	Exchange string
	// 工作队列名称
	Queue string
	// 死信队列名称
	DeadLetterQueue string
	// 预取数量，限制单消费者在途未确认消息数
	Prefetch int
}

// Broker RabbitMQ 连接与通道的长生命周期持有者。
// 在进程启动时构造一次，注入到消费者中，进程退出时 Close。
type Broker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  Config
}

// Connect 建立连接并声明拓扑：
// direct 交换机、带死信参数的工作队列、死信队列、绑定关系，以及 prefetch。
func Connect(cfg Config) (*Broker, error) {
	conn, err := amqp.Dial(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(channel, cfg); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	if err := channel.Qos(cfg.Prefetch, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	logger.Info(context.Background(), "RabbitMQ connection established",
		"exchange", cfg.Exchange,
		"queue", cfg.Queue,
		"prefetch", cfg.Prefetch,
	)

	return &Broker{
		conn:    conn,
		channel: channel,
		config:  cfg,
	}, nil
}

// declareTopology 声明交换机、队列与绑定
func declareTopology(channel *amqp.Channel, cfg Config) error {
	if err := channel.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// 工作队列：消息被 reject 且不重回队列时，经由死信交换机路由到死信队列
	if _, err := channel.QueueDeclare(cfg.Queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    cfg.Exchange,
		"x-dead-letter-routing-key": cfg.DeadLetterQueue,
	}); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if _, err := channel.QueueDeclare(cfg.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead letter queue: %w", err)
	}

	if err := channel.QueueBind(cfg.Queue, cfg.Queue, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	if err := channel.QueueBind(cfg.DeadLetterQueue, cfg.DeadLetterQueue, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead letter queue: %w", err)
	}

	return nil
}

// Consume 开始消费工作队列，手动确认模式。
// ctx 取消后通道关闭，已投递未确认的消息由 broker 重新入队。
func (b *Broker) Consume(ctx context.Context, consumerTag string) (<-chan amqp.Delivery, error) {
	deliveries, err := b.channel.ConsumeWithContext(ctx, b.config.Queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	logger.Info(ctx, "consumer started",
		"queue", b.config.Queue,
		"consumer_tag", consumerTag,
	)

	return deliveries, nil
}

// NotifyClose 注册连接关闭通知，用于进程级故障退出
func (b *Broker) NotifyClose() <-chan *amqp.Error {
	return b.conn.NotifyClose(make(chan *amqp.Error, 1))
}

// Queue 返回工作队列名称
func (b *Broker) Queue() string {
	return b.config.Queue
}

// Close 关闭通道与连接
func (b *Broker) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var firstErr error
	if b.channel != nil {
		if err := b.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		logger.Error(ctx, "error closing RabbitMQ connection", "error", firstErr)
		return firstErr
	}

	logger.Info(ctx, "RabbitMQ connection closed gracefully")
	return nil
}
