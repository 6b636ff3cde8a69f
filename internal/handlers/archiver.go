package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pratik-mahalle/ec2-automations/internal/domain/event"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/instance"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/report"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/storage"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
)

// StateArchiver saves the description of an instance that is going away
type StateArchiver struct {
	compute instance.Compute
	store   storage.Store
	bucket  string
	states  event.States
	logger  *logger.Logger
}

// NewStateArchiver creates the state-archiver handler
func NewStateArchiver(deps Deps) (*StateArchiver, error) {
	if deps.Config == nil {
		return nil, errors.Configuration("state-archiver: configuration is required")
	}
	if deps.Compute == nil || deps.Store == nil {
		return nil, errors.Configuration("state-archiver: compute and storage clients are required")
	}
	if deps.Config.Archive.Bucket == "" {
		return nil, errors.Configuration("state-archiver: ARCHIVE_BUCKET must be set")
	}
	if len(deps.Config.Archive.States) == 0 {
		return nil, errors.Configuration("state-archiver: ARCHIVE_STATES must not be empty")
	}

	return &StateArchiver{
		compute: deps.Compute,
		store:   deps.Store,
		bucket:  deps.Config.Archive.Bucket,
		states:  event.ParseStates(deps.Config.Archive.States),
		logger:  deps.log(),
	}, nil
}

// Name implements Handler
func (h *StateArchiver) Name() string {
	return NameArchiver
}

// ArchiveKey is the object key an instance snapshot is stored under
func ArchiveKey(instanceID, state string) string {
	return fmt.Sprintf("%s-%s.json", instanceID, state)
}

// Handle archives the instance when the event reports a shutdown state.
// The key depends only on the event, so a duplicate overwrites in place.
func (h *StateArchiver) Handle(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
	evt, err := event.DecodeInstanceStateEvent(payload, event.RequireState())
	if err != nil {
		return nil, err
	}

	id := evt.Detail.InstanceID
	state := evt.Detail.State
	log := logger.FromContext(ctx, h.logger).WithFields(map[string]interface{}{
		"instance_id": id,
		"state":       state,
	})

	if !h.states.Contains(state) {
		log.Info("Instance state does not require archiving, skipping")
		return report.NotApplicable(fmt.Sprintf("Instance %s is in state '%s', no action taken.", id, state)), nil
	}

	inst, err := h.compute.Describe(ctx, id)
	if err != nil {
		return nil, errors.ExternalService("ec2", err)
	}

	body, err := json.MarshalIndent(inst, "", "    ")
	if err != nil {
		return nil, errors.Internal("failed to serialize instance state", err)
	}

	key := ArchiveKey(id, state)
	if err := h.store.Put(ctx, h.bucket, key, body, "application/json"); err != nil {
		return nil, errors.ExternalService("s3", err)
	}

	log.WithFields(map[string]interface{}{
		"bucket": h.bucket,
		"key":    key,
	}).Info("Saved instance state")

	return report.Success(fmt.Sprintf("State saved for instance %s", id), id).
		WithDetails(map[string]string{"bucket": h.bucket, "key": key}), nil
}
