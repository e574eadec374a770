package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"kailospay.backend/internal/domain/entities"
	"kailospay.backend/pkg/logger"
	"kailospay.backend/pkg/metrics"
)

type paymentCounter interface {
	CountByStatus(ctx context.Context, status entities.PaymentStatus) (int64, error)
}

type contractCounter interface {
	CountByStatus(ctx context.Context, status entities.ContractStatus) (int64, error)
}

type uploadCounter interface {
	CountByStatus(ctx context.Context, status entities.DocumentStatus) (int64, error)
}

// ReviewBacklogJob publishes the size of the admin review queues as gauges.
// It only reads.
type ReviewBacklogJob struct {
	payments  paymentCounter
	contracts contractCounter
	uploads   uploadCounter
	metrics   *metrics.Metrics
	spec      string
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewReviewBacklogJob(payments paymentCounter, contracts contractCounter, uploads uploadCounter, m *metrics.Metrics, spec string) *ReviewBacklogJob {
	return &ReviewBacklogJob{
		payments:  payments,
		contracts: contracts,
		uploads:   uploads,
		metrics:   m,
		spec:      spec,
		stop:      make(chan struct{}),
	}
}

// Start schedules the collector and blocks until ctx is done or Stop is called.
func (j *ReviewBacklogJob) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(j.spec, func() { j.collect(ctx) }); err != nil {
		return fmt.Errorf("invalid backlog schedule %q: %w", j.spec, err)
	}

	logger.Info(ctx, "Starting review backlog job", zap.String("schedule", j.spec))
	j.collect(ctx)
	c.Start()

	select {
	case <-ctx.Done():
	case <-j.stop:
	}
	<-c.Stop().Done()
	logger.Info(context.Background(), "Review backlog job stopped")
	return nil
}

func (j *ReviewBacklogJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

func (j *ReviewBacklogJob) collect(ctx context.Context) {
	if n, err := j.payments.CountByStatus(ctx, entities.PaymentPending); err != nil {
		logger.Warn(ctx, "Backlog count failed", zap.String("queue", "payments_pending"), zap.Error(err))
	} else {
		j.metrics.SetBacklog("payments_pending", n)
	}

	if n, err := j.contracts.CountByStatus(ctx, entities.ContractSubmitted); err != nil {
		logger.Warn(ctx, "Backlog count failed", zap.String("queue", "contracts_submitted"), zap.Error(err))
	} else {
		j.metrics.SetBacklog("contracts_submitted", n)
	}

	if n, err := j.uploads.CountByStatus(ctx, entities.DocumentPending); err != nil {
		logger.Warn(ctx, "Backlog count failed", zap.String("queue", "uploads_pending"), zap.Error(err))
	} else {
		j.metrics.SetBacklog("uploads_pending", n)
	}
}
