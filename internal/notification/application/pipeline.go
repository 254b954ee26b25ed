package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wyfcoding/notifyhub/internal/notification/domain"
	"github.com/wyfcoding/notifyhub/pkg/logger"
	"github.com/wyfcoding/notifyhub/pkg/metrics"
)

// Pipeline 单渠道的通知投递管线：
// 收件人解析 → 投递策略 → 内容水合 → 提供方投递 → 结果归集。
// 管线自身无状态，所有协作方连接在进程启动时构造并注入，
// 任务之间不共享可变状态，因此核心路径无需加锁。
type Pipeline struct {
	channel    domain.Channel
	profiles   domain.ProfileService
	renderer   domain.TemplateRenderer
	policy     PolicyEvaluator
	dispatcher domain.Dispatcher
	outcomes   domain.OutcomePublisher
	metrics    *metrics.Metrics

	// now 便于在测试中固定时钟
	now func() time.Time
}

// NewPipeline 构造投递管线。outcomes 可以为 nil（不发布结果事件）。
func NewPipeline(
	channel domain.Channel,
	profiles domain.ProfileService,
	renderer domain.TemplateRenderer,
	policy PolicyEvaluator,
	dispatcher domain.Dispatcher,
	outcomes domain.OutcomePublisher,
	m *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		channel:    channel,
		profiles:   profiles,
		renderer:   renderer,
		policy:     policy,
		dispatcher: dispatcher,
		outcomes:   outcomes,
		metrics:    m,
		now:        time.Now,
	}
}

// Process 处理单个工作单元，返回最终结果或分类错误。
// 错误的重试档位由消费者转换为 ack/nack 决策；管线内部不做任何重试。
func (p *Pipeline) Process(ctx context.Context, job *domain.NotificationJob) (*domain.DeliveryOutcome, error) {
	correlationID := job.CorrelationID()
	if correlationID == "" {
		correlationID = uuid.New().String()
		if job.Metadata == nil {
			job.Metadata = &domain.JobMetadata{}
		}
		job.Metadata.CorrelationID = correlationID
	}
	ctx = logger.WithCorrelationID(ctx, correlationID)

	profile, err := p.profiles.FetchProfile(ctx, job.UserID)
	if err != nil {
		return nil, err
	}

	if sup := p.policy.Evaluate(profile, p.now()); sup != nil {
		outcome := &domain.DeliveryOutcome{
			NotificationID:  job.NotificationID,
			UserID:          job.UserID,
			Channel:         p.channel,
			CorrelationID:   correlationID,
			Status:          domain.StatusSuppressed,
			SuppressionCode: sup.Code,
		}
		p.metrics.JobsSuppressedTotal.WithLabelValues(sup.Code).Inc()
		logger.Warn(ctx, "notification suppressed by delivery policy",
			"notification_id", job.NotificationID,
			"user_id", job.UserID,
			"reason", sup.Code,
		)
		p.publish(ctx, outcome)
		return outcome, nil
	}

	content, err := HydrateContent(ctx, p.renderer, job)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := p.dispatcher.Dispatch(ctx, job, profile, content)
	if err != nil {
		return nil, err
	}
	p.metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	outcome := p.reconcile(ctx, job, result, correlationID)
	p.metrics.JobsDeliveredTotal.WithLabelValues(string(outcome.Status)).Inc()
	logger.Info(ctx, "notification processed",
		"notification_id", job.NotificationID,
		"status", outcome.Status,
		"success_count", result.SuccessCount,
		"failure_count", result.FailureCount,
	)
	p.publish(ctx, outcome)
	return outcome, nil
}

// reconcile 将提供方结果映射为最终状态，并调度失效令牌清理。
func (p *Pipeline) reconcile(ctx context.Context, job *domain.NotificationJob, result *domain.DispatchResult, correlationID string) *domain.DeliveryOutcome {
	var invalid []string
	for _, r := range result.Results {
		if !r.Success && r.ErrorCode == domain.TargetErrorUnregistered {
			invalid = append(invalid, r.Target)
		}
	}

	if len(invalid) > 0 {
		p.pruneTargets(ctx, job.UserID, invalid)
	}

	status := domain.StatusSent
	if result.FailureCount > 0 {
		status = domain.StatusPartial
	}

	return &domain.DeliveryOutcome{
		NotificationID: job.NotificationID,
		UserID:         job.UserID,
		Channel:        p.channel,
		CorrelationID:  correlationID,
		Status:         status,
		InvalidTargets: invalid,
		Dispatch:       result,
	}
}

// pruneTargets 并发清理失效推送令牌，互相独立，逐个尽力而为。
// 单个清理失败只记日志，绝不使任务失败。
func (p *Pipeline) pruneTargets(ctx context.Context, userID string, targets []string) {
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			if err := p.profiles.RemovePushToken(ctx, userID, token); err != nil {
				logger.Warn(ctx, "failed to remove invalid push token",
					"user_id", userID,
					"token", token,
					"error", err,
				)
				return
			}
			p.metrics.TokensPrunedTotal.Inc()
		}(target)
	}
	wg.Wait()
}

// publish 尽力而为地发布投递结果事件
func (p *Pipeline) publish(ctx context.Context, outcome *domain.DeliveryOutcome) {
	if p.outcomes == nil {
		return
	}
	if err := p.outcomes.PublishOutcome(ctx, outcome); err != nil {
		logger.Warn(ctx, "failed to publish delivery outcome event",
			"notification_id", outcome.NotificationID,
			"error", err,
		)
	}
}
