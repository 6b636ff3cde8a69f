package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pratik-mahalle/ec2-automations/internal/domain/event"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/report"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/storage"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
)

// CleanupSummary is attached to every log-cleaner result
type CleanupSummary struct {
	Bucket       string    `json:"bucket"`
	Prefix       string    `json:"prefix,omitempty"`
	Cutoff       time.Time `json:"cutoff,omitempty"`
	Scanned      int       `json:"scanned"`
	DeletedCount int       `json:"deleted_logs_count"`
}

// LogCleaner deletes objects that have outlived the retention window
type LogCleaner struct {
	store         storage.Store
	bucket        string
	prefix        string
	retentionDays int
	now           func() time.Time
	logger        *logger.Logger
}

// NewLogCleaner creates the log-cleaner handler
func NewLogCleaner(deps Deps) (*LogCleaner, error) {
	if deps.Config == nil {
		return nil, errors.Configuration("log-cleaner: configuration is required")
	}
	if deps.Store == nil {
		return nil, errors.Configuration("log-cleaner: storage client is required")
	}

	cfg := deps.Config.Cleaner
	if cfg.Bucket == "" {
		return nil, errors.Configuration("log-cleaner: BUCKET_NAME must be set")
	}
	if cfg.RetentionDays < 1 {
		return nil, errors.Configuration(fmt.Sprintf("log-cleaner: RETENTION_DAYS must be at least 1, got %d", cfg.RetentionDays))
	}

	return &LogCleaner{
		store:         deps.Store,
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		retentionDays: cfg.RetentionDays,
		now:           deps.clock(),
		logger:        deps.log(),
	}, nil
}

// Name implements Handler
func (h *LogCleaner) Name() string {
	return NameLogCleaner
}

// Handle deletes every object last modified strictly before now minus the
// retention window. A failed delete is recorded and the rest still run.
func (h *LogCleaner) Handle(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
	if _, err := event.DecodeScheduledEvent(payload); err != nil {
		return nil, err
	}

	summary := CleanupSummary{Bucket: h.bucket, Prefix: h.prefix}

	objects, err := h.store.List(ctx, h.bucket, h.prefix)
	if err != nil {
		return nil, errors.ExternalService("s3", err)
	}
	if len(objects) == 0 {
		return report.NotApplicable("No logs found to clean").WithDetails(summary), nil
	}

	summary.Scanned = len(objects)
	summary.Cutoff = storage.Cutoff(h.now().UTC(), h.retentionDays)
	expired := storage.SelectExpired(objects, summary.Cutoff)

	log := logger.FromContext(ctx, h.logger).WithFields(map[string]interface{}{
		"bucket": h.bucket,
		"cutoff": summary.Cutoff,
	})

	attempted := make([]string, 0, len(expired))
	deleted := make([]string, 0, len(expired))
	failed := make(map[string]string)

	for _, obj := range expired {
		attempted = append(attempted, obj.Key)
		if err := h.store.Delete(ctx, h.bucket, obj.Key); err != nil {
			failed[obj.Key] = err.Error()
			log.With("key", obj.Key).ErrorWithErr(err, "Failed to delete object")
			continue
		}
		deleted = append(deleted, obj.Key)
	}
	summary.DeletedCount = len(deleted)

	msg := "Log cleaning completed"
	if len(failed) > 0 {
		msg = fmt.Sprintf("Log cleaning completed with %d failed deletions", len(failed))
	}

	log.WithFields(map[string]interface{}{
		"scanned": summary.Scanned,
		"expired": len(expired),
		"deleted": summary.DeletedCount,
	}).Info("Cleaned log bucket")

	return report.FromBatch(msg, attempted, deleted, failed).WithDetails(summary), nil
}
