package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/dayoff-api/internal/models"
	"github.com/noah-isme/dayoff-api/pkg/jobs"
)

const auditJobType = "audit.record"

// AuditSink persists audit entries.
type AuditSink interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// LogAuditSink writes audit entries to the structured log.
type LogAuditSink struct {
	logger *zap.Logger
}

// NewLogAuditSink constructs a log-backed sink.
func NewLogAuditSink(logger *zap.Logger) *LogAuditSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogAuditSink{logger: logger}
}

// CreateAuditLog implements AuditSink.
func (s *LogAuditSink) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	fields := []zap.Field{
		zap.String("audit_id", log.ID),
		zap.String("action", log.Action),
		zap.String("resource", log.Resource),
		zap.Time("at", log.CreatedAt),
	}
	if log.UserID != nil {
		fields = append(fields, zap.String("user_id", *log.UserID))
	}
	if log.ResourceID != nil {
		fields = append(fields, zap.String("resource_id", *log.ResourceID))
	}
	if len(log.NewValues) > 0 {
		fields = append(fields, zap.ByteString("new_values", log.NewValues))
	}
	s.logger.Info("audit", fields...)
	return nil
}

// AuditEntry describes one auditable event before it is persisted.
type AuditEntry struct {
	UserID     string
	Action     string
	Resource   string
	ResourceID string
	Before     interface{}
	After      interface{}
	IPAddress  string
	UserAgent  string
}

// AuditDispatcher records audit entries asynchronously through a job queue.
type AuditDispatcher struct {
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// AuditOption customises the dispatcher.
type AuditOption func(*AuditDispatcher)

// WithAuditMetrics counts dropped entries.
func WithAuditMetrics(metrics *MetricsService) AuditOption {
	return func(d *AuditDispatcher) { d.metrics = metrics }
}

// WithAuditClock overrides the timestamp source.
func WithAuditClock(now func() time.Time) AuditOption {
	return func(d *AuditDispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewAuditDispatcher builds a dispatcher feeding sink through a worker queue.
func NewAuditDispatcher(sink AuditSink, cfg jobs.QueueConfig, logger *zap.Logger, opts ...AuditOption) *AuditDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	d := &AuditDispatcher{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = jobs.NewQueue("audit", func(ctx context.Context, job jobs.Job) error {
		entry, ok := job.Payload.(*models.AuditLog)
		if !ok {
			return nil
		}
		return sink.CreateAuditLog(ctx, entry)
	}, cfg)
	return d
}

// Start launches the workers.
func (d *AuditDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop flushes queued entries and stops the workers.
func (d *AuditDispatcher) Stop() {
	d.queue.Stop()
}

// Record queues an entry. Failures are logged and never surface to callers.
func (d *AuditDispatcher) Record(entry AuditEntry) {
	if d == nil {
		return
	}
	log, err := d.build(entry)
	if err != nil {
		d.logger.Warn("failed to encode audit entry", zap.String("action", entry.Action), zap.Error(err))
		d.metrics.RecordAuditFailure()
		return
	}
	if err := d.queue.Enqueue(jobs.Job{ID: log.ID, Type: auditJobType, Payload: log}); err != nil {
		d.logger.Warn("failed to queue audit entry", zap.String("action", entry.Action), zap.Error(err))
		d.metrics.RecordAuditFailure()
	}
}

func (d *AuditDispatcher) build(entry AuditEntry) (*models.AuditLog, error) {
	log := &models.AuditLog{
		ID:        uuid.NewString(),
		Action:    entry.Action,
		Resource:  entry.Resource,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
		CreatedAt: d.now().UTC(),
	}
	if entry.UserID != "" {
		userID := entry.UserID
		log.UserID = &userID
	}
	if entry.ResourceID != "" {
		resourceID := entry.ResourceID
		log.ResourceID = &resourceID
	}
	var err error
	if log.OldValues, err = encodeAuditValue(entry.Before); err != nil {
		return nil, err
	}
	if log.NewValues, err = encodeAuditValue(entry.After); err != nil {
		return nil, err
	}
	return log, nil
}

func encodeAuditValue(value interface{}) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode audit value: %w", err)
	}
	return raw, nil
}
