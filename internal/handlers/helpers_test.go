package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/ec2-automations/internal/config"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/report"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
)

var fixedNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{
			TagKey:     "Action",
			StopValue:  "Auto-Stop",
			StartValue: "Auto-Start",
		},
		AutoTag: config.AutoTagConfig{
			Owner:  "AutoTagging",
			States: []string{"pending", "running"},
		},
		Archive: config.ArchiveConfig{
			Bucket: "ec2-instance-state-backup",
			States: []string{"shutting-down", "terminated"},
		},
		Cleaner: config.CleanerConfig{
			Bucket:        "app-logs",
			RetentionDays: 90,
		},
		Notifier: config.NotifierConfig{
			TopicARN: "arn:aws:sns:us-east-1:123456789012:ec2-state",
			Subject:  "EC2 State Change Notification",
		},
		Logging: config.LoggingConfig{Level: "error", Format: "json"},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

// stateEvent builds an instance state-change payload. An empty state is
// left out of the detail entirely.
func stateEvent(id, state string) json.RawMessage {
	detail := map[string]string{"instance-id": id}
	if state != "" {
		detail["state"] = state
	}
	payload := map[string]interface{}{
		"version":     "0",
		"id":          fmt.Sprintf("evt-%s-%s", id, state),
		"detail-type": "EC2 Instance State-change Notification",
		"source":      "aws.ec2",
		"account":     "123456789012",
		"time":        "2024-05-01T10:00:00Z",
		"region":      "us-east-1",
		"resources":   []string{},
		"detail":      detail,
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func scheduledEvent(action string) json.RawMessage {
	payload := map[string]interface{}{
		"version":     "0",
		"id":          "evt-schedule",
		"detail-type": "Scheduled Event",
		"source":      "aws.events",
		"time":        "2024-05-01T18:00:00Z",
		"region":      "us-east-1",
		"detail":      map[string]string{},
	}
	if action != "" {
		payload["detail"] = map[string]string{"action": action}
	}
	raw, _ := json.Marshal(payload)
	return raw
}

// run invokes h through a Runner and decodes the response body
func run(t *testing.T, h Handler, payload json.RawMessage) (report.Response, *report.Result) {
	t.Helper()

	runner := NewRunner(testLogger(), config.MetricsConfig{})
	resp := runner.Run(WithRequestID(context.Background(), "test-request"), h, payload)

	res, err := resp.Decode()
	require.NoError(t, err, "response body must be a JSON result: %s", resp.Body)
	return resp, res
}
