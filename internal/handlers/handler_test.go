package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/ec2-automations/internal/config"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/report"
	apperrors "github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
	"github.com/pratik-mahalle/ec2-automations/internal/testutil"
)

type stubHandler struct {
	handle func(ctx context.Context, payload json.RawMessage) (*report.Result, error)
}

func (s stubHandler) Name() string { return "stub" }

func (s stubHandler) Handle(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
	return s.handle(ctx, payload)
}

func TestRunner_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		handle      func(ctx context.Context, payload json.RawMessage) (*report.Result, error)
		wantStatus  int
		wantMessage string
	}{
		{
			name: "success",
			handle: func(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
				return report.Success("done", "i-1"), nil
			},
			wantStatus:  http.StatusOK,
			wantMessage: "done",
		},
		{
			name: "nil result",
			handle: func(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
				return nil, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "client error",
			handle: func(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
				return nil, apperrors.MalformedEvent("Invalid event structure: bad", nil)
			},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid event structure: bad",
		},
		{
			name: "unexpected error",
			handle: func(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
				return nil, errors.New("secret connection string leaked")
			},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: report.UnexpectedMessage,
		},
		{
			name: "panic",
			handle: func(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
				var m map[string]int
				m["boom"]++
				return nil, nil
			},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: report.UnexpectedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, res := run(t, stubHandler{handle: tt.handle}, json.RawMessage(`{}`))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantMessage, res.Message)
		})
	}
}

func TestRunner_PassesLoggerAndRequestID(t *testing.T) {
	var gotID string
	h := stubHandler{handle: func(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
		gotID = RequestID(ctx)
		return report.Success("ok"), nil
	}}

	runner := NewRunner(nil, config.MetricsConfig{})
	resp := runner.Run(WithRequestID(context.Background(), "req-42"), h, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-42", gotID)
}

func TestRunner_LambdaNeverReturnsError(t *testing.T) {
	h := stubHandler{handle: func(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
		panic("unreachable state")
	}}

	fn := NewRunner(testLogger(), config.MetricsConfig{}).Lambda(h)
	resp, err := fn(context.Background(), json.RawMessage(`{}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	id := RequestID(context.Background())
	assert.NotEmpty(t, id)
	assert.NotEqual(t, id, RequestID(context.Background()))
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{NameAutoTag, NameScheduler, NameLogCleaner, NameArchiver, NameNotifier}, Names())

	for _, name := range Names() {
		assert.NotEmpty(t, Description(name), name)
	}

	deps := Deps{
		Config:    testConfig(),
		Compute:   testutil.NewMockCompute(),
		Store:     testutil.NewMockStore(),
		Publisher: testutil.NewMockPublisher(),
	}
	for _, name := range Names() {
		h, err := New(name, deps)
		require.NoError(t, err, name)
		assert.Equal(t, name, h.Name())
	}

	_, err := New("reboot-everything", deps)
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeConfiguration, appErr.Code)

	h, err := New(NameNotifier, Deps{Config: testConfig()})
	assert.Error(t, err)
	assert.Nil(t, h)
}

func TestRunner_PushesPerContainer(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	ok := stubHandler{handle: func(ctx context.Context, payload json.RawMessage) (*report.Result, error) {
		return report.Success("done"), nil
	}}

	for _, id := range []string{"container-a", "container-b"} {
		runner := NewRunner(testLogger(), config.MetricsConfig{
			PushgatewayURL: gateway.URL,
			Job:            "ec2-automations",
			Instance:       id,
		})
		runner.Run(context.Background(), ok, json.RawMessage(`{}`))
	}

	assert.Equal(t, []string{
		"/metrics/job/ec2-automations/instance/container-a",
		"/metrics/job/ec2-automations/instance/container-b",
	}, paths)
}

func TestRunner_PushGroupingDefaultsToLogStream(t *testing.T) {
	saved := lambdacontext.LogStreamName
	defer func() { lambdacontext.LogStreamName = saved }()
	lambdacontext.LogStreamName = "2024/06/30/[$LATEST]abc"

	runner := NewRunner(testLogger(), config.MetricsConfig{})
	assert.Equal(t, map[string]string{"instance": "2024/06/30/[$LATEST]abc"}, runner.pushGrouping())

	runner = NewRunner(testLogger(), config.MetricsConfig{Instance: "local"})
	assert.Equal(t, map[string]string{"instance": "local"}, runner.pushGrouping())
}
