package event

import (
	"testing"
	"time"

	apperrors "github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
)

func TestDecodeInstanceStateEvent(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		opts      []Option
		wantErr   bool
		wantID    string
		wantState string
	}{
		{
			name:      "full event",
			payload:   `{"id":"e1","source":"aws.ec2","detail-type":"EC2 Instance State-change Notification","time":"2024-05-01T10:00:00Z","region":"us-east-1","detail":{"instance-id":"i-1","state":"running"}}`,
			wantID:    "i-1",
			wantState: "running",
		},
		{
			name:    "state optional by default",
			payload: `{"detail":{"instance-id":"i-1"}}`,
			wantID:  "i-1",
		},
		{
			name:    "state required",
			payload: `{"detail":{"instance-id":"i-1"}}`,
			opts:    []Option{RequireState()},
			wantErr: true,
		},
		{
			name:    "missing detail",
			payload: `{"source":"aws.ec2"}`,
			wantErr: true,
		},
		{
			name:    "null detail",
			payload: `{"detail":null}`,
			wantErr: true,
		},
		{
			name:    "empty instance id",
			payload: `{"detail":{"instance-id":"","state":"running"}}`,
			wantErr: true,
		},
		{
			name:    "detail is a string",
			payload: `{"detail":"i-1"}`,
			wantErr: true,
		},
		{
			name:    "top level array",
			payload: `[{"detail":{"instance-id":"i-1"}}]`,
			wantErr: true,
		},
		{
			name:    "empty payload",
			payload: ``,
			wantErr: true,
		},
		{
			name:      "empty time",
			payload:   `{"time":"","detail":{"instance-id":"i-123","state":"terminated"}}`,
			opts:      []Option{RequireState()},
			wantID:    "i-123",
			wantState: "terminated",
		},
		{
			name:      "numeric account",
			payload:   `{"account":123456789012,"detail":{"instance-id":"i-123","state":"terminated"}}`,
			opts:      []Option{RequireState()},
			wantID:    "i-123",
			wantState: "terminated",
		},
		{
			name:      "mistyped envelope fields",
			payload:   `{"id":7,"time":"yesterday","resources":"arn","region":false,"detail":{"instance-id":"i-1","state":"running"}}`,
			wantID:    "i-1",
			wantState: "running",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := DecodeInstanceStateEvent([]byte(tt.payload), tt.opts...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got event %+v", evt)
				}
				appErr, ok := apperrors.As(err)
				if !ok {
					t.Fatalf("expected AppError, got %T", err)
				}
				if appErr.Code != apperrors.ErrCodeMalformed {
					t.Errorf("expected code %s, got %s", apperrors.ErrCodeMalformed, appErr.Code)
				}
				if !appErr.ClientError() {
					t.Errorf("expected a client error, got status %d", appErr.StatusCode)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if evt.Detail.InstanceID != tt.wantID {
				t.Errorf("expected instance id %q, got %q", tt.wantID, evt.Detail.InstanceID)
			}
			if evt.Detail.State != tt.wantState {
				t.Errorf("expected state %q, got %q", tt.wantState, evt.Detail.State)
			}
		})
	}
}

func TestDecodeInstanceStateEvent_Envelope(t *testing.T) {
	payload := `{"id":"e1","source":"aws.ec2","detail-type":"EC2 Instance State-change Notification","time":"2024-05-01T10:00:00Z","region":"eu-west-1","detail":{"instance-id":"i-1","state":"stopped"}}`

	evt, err := DecodeInstanceStateEvent([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if evt.ID != "e1" || evt.Source != "aws.ec2" || evt.Region != "eu-west-1" {
		t.Errorf("envelope fields not decoded: %+v", evt)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if !evt.Time.Equal(want) {
		t.Errorf("expected time %v, got %v", want, evt.Time)
	}
}

func TestDecodeInstanceStateEvent_UnparseableTime(t *testing.T) {
	evt, err := DecodeInstanceStateEvent([]byte(`{"id":"e1","time":"","account":123,"detail":{"instance-id":"i-1"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !evt.Time.IsZero() {
		t.Errorf("expected zero time, got %v", evt.Time)
	}
	if evt.ID != "e1" {
		t.Errorf("expected id e1, got %q", evt.ID)
	}
}

func TestDecodeScheduledEvent(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantAction string
		wantErr    bool
	}{
		{name: "empty payload", payload: ""},
		{name: "empty object", payload: `{}`},
		{name: "scheduled event", payload: `{"source":"aws.events","detail-type":"Scheduled Event","detail":{}}`},
		{name: "with action", payload: `{"detail":{"action":"Auto-Stop"}}`, wantAction: "Auto-Stop"},
		{name: "empty time", payload: `{"time":"","detail":{}}`},
		{name: "numeric account", payload: `{"account":123456789012,"detail":{"action":"Auto-Start"}}`, wantAction: "Auto-Start"},
		{name: "not an object", payload: `"run"`, wantErr: true},
		{name: "bad detail", payload: `{"detail":[1,2]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := DecodeScheduledEvent([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if evt.Detail.Action != tt.wantAction {
				t.Errorf("expected action %q, got %q", tt.wantAction, evt.Detail.Action)
			}
		})
	}
}

func TestStates(t *testing.T) {
	states := ParseStates([]string{" Terminated ", "", "shutting-down"})

	if len(states) != 2 {
		t.Fatalf("expected 2 states, got %v", states)
	}
	if !states.Contains("terminated") || !states.Contains("SHUTTING-DOWN") {
		t.Errorf("expected configured states to match, got %v", states)
	}
	if states.Contains("running") {
		t.Error("running should not match")
	}

	var all States
	if !all.Contains("anything") {
		t.Error("empty set should match every state")
	}
}
