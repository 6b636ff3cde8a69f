package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/validator"
)

type decodeOptions struct {
	requireState bool
}

// Option changes what DecodeInstanceStateEvent treats as required
type Option func(*decodeOptions)

// RequireState makes detail.state a required field
func RequireState() Option {
	return func(o *decodeOptions) {
		o.requireState = true
	}
}

// DecodeInstanceStateEvent extracts the instance state-change fields from a
// raw EventBridge payload. Any shape problem is returned as a MalformedEvent.
func DecodeInstanceStateEvent(payload []byte, opts ...Option) (*InstanceStateEvent, error) {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	envelope, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}

	if isEmpty(envelope.Detail) {
		return nil, errors.MalformedEvent("Invalid event structure: event does not contain 'detail'", nil)
	}

	var detail InstanceStateDetail
	if err := json.Unmarshal(envelope.Detail, &detail); err != nil {
		return nil, errors.MalformedEvent(fmt.Sprintf("Invalid event structure: detail is not an object: %v", err), nil)
	}

	if verrs := validator.Validate(&detail); len(verrs) > 0 {
		return nil, errors.MalformedEvent("Invalid event structure: "+validator.Summary(verrs), verrs)
	}

	if o.requireState && detail.State == "" {
		verrs := []validator.ValidationError{{
			Field:   "state",
			Tag:     "required",
			Message: "state is required",
		}}
		return nil, errors.MalformedEvent("Invalid event structure: state is required", verrs)
	}

	return &InstanceStateEvent{
		ID:         envelope.ID,
		Source:     envelope.Source,
		DetailType: envelope.DetailType,
		Region:     envelope.Region,
		Time:       envelope.Time,
		Detail:     detail,
	}, nil
}

// DecodeScheduledEvent accepts any JSON object. detail.action is optional.
func DecodeScheduledEvent(payload []byte) (*ScheduledEvent, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return &ScheduledEvent{}, nil
	}

	envelope, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}

	evt := &ScheduledEvent{
		ID:     envelope.ID,
		Source: envelope.Source,
		Time:   envelope.Time,
	}

	if !isEmpty(envelope.Detail) {
		if err := json.Unmarshal(envelope.Detail, &evt.Detail); err != nil {
			return nil, errors.MalformedEvent(fmt.Sprintf("Invalid event structure: detail is not an object: %v", err), nil)
		}
	}

	return evt, nil
}

// decodeEnvelope reads the EventBridge envelope field by field. Only the
// payload being an object is enforced; a mistyped envelope field such as an
// empty time or a numeric account is left at its zero value.
func decodeEnvelope(payload []byte) (*events.CloudWatchEvent, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.MalformedEvent("Invalid event structure: payload is not a JSON object", nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, errors.MalformedEvent(fmt.Sprintf("Invalid event structure: %v", err), nil)
	}

	envelope := &events.CloudWatchEvent{Detail: fields["detail"]}
	lenient(fields["version"], &envelope.Version)
	lenient(fields["id"], &envelope.ID)
	lenient(fields["detail-type"], &envelope.DetailType)
	lenient(fields["source"], &envelope.Source)
	lenient(fields["account"], &envelope.AccountID)
	lenient(fields["region"], &envelope.Region)
	lenient(fields["resources"], &envelope.Resources)
	envelope.Time = parseTime(fields["time"])

	return envelope, nil
}

func lenient(raw json.RawMessage, dst interface{}) {
	if isEmpty(raw) {
		return
	}
	_ = json.Unmarshal(raw, dst)
}

func parseTime(raw json.RawMessage) time.Time {
	var s string
	if isEmpty(raw) || json.Unmarshal(raw, &s) != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
