package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pratik-mahalle/ec2-automations/internal/domain/event"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/instance"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/report"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
)

// Scheduler stops and starts instances according to their action tag
type Scheduler struct {
	compute    instance.Compute
	tagKey     string
	stopValue  string
	startValue string
	logger     *logger.Logger
}

// NewScheduler creates the instance-scheduler handler
func NewScheduler(deps Deps) (*Scheduler, error) {
	if deps.Config == nil {
		return nil, errors.Configuration("instance-scheduler: configuration is required")
	}
	if deps.Compute == nil {
		return nil, errors.Configuration("instance-scheduler: compute client is required")
	}

	cfg := deps.Config.Scheduler
	return &Scheduler{
		compute:    deps.Compute,
		tagKey:     cfg.TagKey,
		stopValue:  cfg.StopValue,
		startValue: cfg.StartValue,
		logger:     deps.log(),
	}, nil
}

// Name implements Handler
func (h *Scheduler) Name() string {
	return NameScheduler
}

// Handle queries tagged instances and issues one stop and one start request.
// The two groups are attempted independently so a failed stop never hides
// the start outcome, and the other way round.
func (h *Scheduler) Handle(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
	evt, err := event.DecodeScheduledEvent(payload)
	if err != nil {
		return nil, err
	}

	doStop, doStart := true, true
	switch action := strings.TrimSpace(evt.Detail.Action); {
	case action == "":
	case strings.EqualFold(action, "stop") || action == h.stopValue:
		doStart = false
	case strings.EqualFold(action, "start") || action == h.startValue:
		doStop = false
	default:
		return nil, errors.MalformedEvent(
			fmt.Sprintf("Invalid event structure: action must be stop, start, %q or %q, got %q", h.stopValue, h.startValue, evt.Detail.Action),
			nil,
		)
	}

	instances, err := h.compute.DescribeByTag(ctx, h.tagKey, []string{h.stopValue, h.startValue})
	if err != nil {
		return nil, errors.ExternalService("ec2", err)
	}

	plan := instance.Partition(instances, h.tagKey, h.stopValue, h.startValue)
	if !doStop {
		plan.Stop = []string{}
	}
	if !doStart {
		plan.Start = []string{}
	}

	log := logger.FromContext(ctx, h.logger)
	if len(plan.Conflicts) > 0 {
		log.WithFields(map[string]interface{}{
			"tag_key":   h.tagKey,
			"instances": plan.Conflicts,
		}).Warn("Instances carry both stop and start tags, skipping")
	}

	var batch instance.BatchResult
	batch.Merge(h.apply(ctx, log, "stop", plan.Stop, h.compute.Stop))
	batch.Merge(h.apply(ctx, log, "start", plan.Start, h.compute.Start))

	msg := fmt.Sprintf("%s: %v, %s: %v", h.stopValue, plan.Stop, h.startValue, plan.Start)
	return report.FromBatch(msg, batch.Attempted, batch.Succeeded, batch.Failed).WithDetails(plan), nil
}

type batchAction func(ctx context.Context, ids []string) (instance.BatchResult, error)

func (h *Scheduler) apply(ctx context.Context, log *logger.Logger, verb string, ids []string, action batchAction) instance.BatchResult {
	if len(ids) == 0 {
		return instance.BatchResult{}
	}

	res, err := action(ctx, ids)
	if len(res.Attempted) == 0 {
		res.Attempted = append([]string(nil), ids...)
	}
	if err != nil {
		if len(res.Failed) == 0 {
			res = instance.FailAll(ids, err.Error())
		}
		log.WithFields(map[string]interface{}{
			"instances": ids,
			"action":    verb,
		}).ErrorWithErr(err, "Instance request failed")
		return res
	}

	log.WithFields(map[string]interface{}{
		"instances": res.Succeeded,
		"action":    verb,
	}).Infof("Requested %s for %d instances", verb, len(res.Succeeded))

	return res
}
