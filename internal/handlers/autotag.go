package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pratik-mahalle/ec2-automations/internal/domain/event"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/instance"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/report"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
)

// Tags written by AutoTagger
const (
	TagLaunchDate = "LaunchDate"
	TagOwner      = "Owner"
)

// AutoTagger labels newly launched instances with their launch date and owner
type AutoTagger struct {
	compute instance.Compute
	owner   string
	states  event.States
	now     func() time.Time
	logger  *logger.Logger
}

// NewAutoTagger creates the auto-tag handler
func NewAutoTagger(deps Deps) (*AutoTagger, error) {
	if deps.Config == nil {
		return nil, errors.Configuration("auto-tag: configuration is required")
	}
	if deps.Compute == nil {
		return nil, errors.Configuration("auto-tag: compute client is required")
	}
	if deps.Config.AutoTag.Owner == "" {
		return nil, errors.Configuration("auto-tag: AUTO_TAG_OWNER must not be empty")
	}

	return &AutoTagger{
		compute: deps.Compute,
		owner:   deps.Config.AutoTag.Owner,
		states:  event.ParseStates(deps.Config.AutoTag.States),
		now:     deps.clock(),
		logger:  deps.log(),
	}, nil
}

// Name implements Handler
func (h *AutoTagger) Name() string {
	return NameAutoTag
}

// Handle tags the instance named by the event. The launch date comes from
// the event time, so a redelivered event writes the same value again.
func (h *AutoTagger) Handle(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
	evt, err := event.DecodeInstanceStateEvent(payload)
	if err != nil {
		return nil, err
	}

	id := evt.Detail.InstanceID
	state := evt.Detail.State
	if state != "" && !h.states.Contains(state) {
		return report.NotApplicable(fmt.Sprintf("Instance %s is in state '%s', no tags applied.", id, state)), nil
	}

	launched := evt.Time
	if launched.IsZero() {
		launched = h.now()
	}

	tags := []instance.Tag{
		{Key: TagLaunchDate, Value: launched.UTC().Format("2006-01-02")},
		{Key: TagOwner, Value: h.owner},
	}

	if err := h.compute.Tag(ctx, []string{id}, tags); err != nil {
		return nil, errors.ExternalService("ec2", err)
	}

	logger.FromContext(ctx, h.logger).WithFields(map[string]interface{}{
		"instance_id": id,
		"tags":        tags,
	}).Info("Tagged instance")

	return report.Success(fmt.Sprintf("Tags applied successfully to instance %s", id), id).
		WithDetails(map[string]interface{}{"tags": tags}), nil
}
