package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pratik-mahalle/ec2-automations/internal/domain/event"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/notification"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/report"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
)

// StateNotifier publishes instance state changes to a topic
type StateNotifier struct {
	publisher notification.Publisher
	topic     string
	subject   string
	states    event.States
	logger    *logger.Logger
}

// NewStateNotifier creates the state-notifier handler
func NewStateNotifier(deps Deps) (*StateNotifier, error) {
	if deps.Config == nil {
		return nil, errors.Configuration("state-notifier: configuration is required")
	}
	if deps.Publisher == nil {
		return nil, errors.Configuration("state-notifier: notification client is required")
	}
	if deps.Config.Notifier.TopicARN == "" {
		return nil, errors.Configuration("state-notifier: STATE_TOPIC_ARN must be set")
	}

	return &StateNotifier{
		publisher: deps.Publisher,
		topic:     deps.Config.Notifier.TopicARN,
		subject:   deps.Config.Notifier.Subject,
		states:    event.ParseStates(deps.Config.Notifier.States),
		logger:    deps.log(),
	}, nil
}

// Name implements Handler
func (h *StateNotifier) Name() string {
	return NameNotifier
}

// StateMessage is the notification text for an instance entering state
func StateMessage(instanceID, state string) string {
	return fmt.Sprintf("EC2 Instance %s is now %s.", instanceID, state)
}

// Handle publishes one message for the event
func (h *StateNotifier) Handle(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
	evt, err := event.DecodeInstanceStateEvent(payload, event.RequireState())
	if err != nil {
		return nil, err
	}

	id := evt.Detail.InstanceID
	state := evt.Detail.State
	if !h.states.Contains(state) {
		return report.NotApplicable(fmt.Sprintf("Instance %s is in state '%s', no notification sent.", id, state)), nil
	}

	body := StateMessage(id, state)
	messageID, err := h.publisher.Publish(ctx, notification.Message{
		Topic:           h.topic,
		Subject:         h.subject,
		Body:            body,
		GroupID:         id,
		DeduplicationID: deduplicationID(evt),
	})
	if err != nil {
		return nil, errors.ExternalService("sns", err)
	}

	logger.FromContext(ctx, h.logger).WithFields(map[string]interface{}{
		"instance_id": id,
		"state":       state,
		"message_id":  messageID,
	}).Info(body)

	return report.Success(body, id).WithDetails(map[string]string{
		"topic":      h.topic,
		"message_id": messageID,
	}), nil
}

// deduplicationID prefers the EventBridge event id, which is stable across
// redeliveries of the same event.
func deduplicationID(evt *event.InstanceStateEvent) string {
	if evt.ID != "" {
		return evt.ID
	}
	id := evt.Detail.InstanceID + "-" + evt.Detail.State
	if !evt.Time.IsZero() {
		id += "-" + strconv.FormatInt(evt.Time.Unix(), 10)
	}
	return id
}
