package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"github.com/pratik-mahalle/ec2-automations/internal/config"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/instance"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/notification"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/report"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/storage"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/metrics"
)

// Handler is one event-triggered automation. Handle decodes the payload,
// selects targets, acts on them and describes the outcome. Returned errors
// are converted to results by the Runner and never reach the trigger.
type Handler interface {
	Name() string
	Handle(ctx context.Context, payload json.RawMessage) (*report.Result, error)
}

// Deps are the collaborator handles a handler may use
type Deps struct {
	Config    *config.Config
	Compute   instance.Compute
	Store     storage.Store
	Publisher notification.Publisher
	Logger    *logger.Logger
	Now       func() time.Time
}

func (d Deps) clock() func() time.Time {
	if d.Now != nil {
		return d.Now
	}
	return time.Now
}

func (d Deps) log() *logger.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logger.Nop()
}

type requestIDKey struct{}

// WithRequestID attaches an invocation id to ctx for callers outside Lambda
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the Lambda request id, a caller supplied id, or a new one
func RequestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Runner wraps handlers with the behaviour every invocation shares:
// logging, panic recovery, error conversion and metrics.
type Runner struct {
	logger  *logger.Logger
	metrics config.MetricsConfig
}

// NewRunner creates a new runner
func NewRunner(log *logger.Logger, metricsCfg config.MetricsConfig) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		logger:  log,
		metrics: metricsCfg,
	}
}

// Run invokes h once and always returns a response
func (r *Runner) Run(ctx context.Context, h Handler, payload json.RawMessage) report.Response {
	start := time.Now()
	requestID := RequestID(ctx)

	log := r.logger.WithFields(map[string]interface{}{
		"handler":    h.Name(),
		"request_id": requestID,
	})
	ctx = log.WithContext(ctx)

	if json.Valid(payload) {
		log.RawJSON("event", payload, "Received event")
	} else {
		log.Debugf("Received non-JSON event of %d bytes", len(payload))
	}

	res := r.invoke(ctx, log, h, payload)
	resp := res.Response()

	r.summarize(log, res, resp.StatusCode)

	metrics.RecordInvocation(h.Name(), string(res.Outcome), time.Since(start))
	metrics.RecordTargets(h.Name(), len(res.Attempted), len(res.Affected), len(res.Failed))
	r.push(ctx, log)

	return resp
}

// Lambda adapts h to the signature expected by lambda.Start
func (r *Runner) Lambda(h Handler) func(context.Context, json.RawMessage) (report.Response, error) {
	return func(ctx context.Context, payload json.RawMessage) (report.Response, error) {
		return r.Run(ctx, h, payload), nil
	}
}

func (r *Runner) invoke(ctx context.Context, log *logger.Logger, h Handler, payload json.RawMessage) (res *report.Result) {
	defer func() {
		if p := recover(); p != nil {
			log.WithFields(map[string]interface{}{
				"panic": fmt.Sprint(p),
				"stack": string(debug.Stack()),
			}).Error("Handler panicked")
			res = report.FromError(fmt.Errorf("panic: %v", p))
		}
	}()

	result, err := h.Handle(ctx, payload)
	if err != nil {
		if appErr, ok := errors.As(err); ok && appErr.ClientError() {
			log.WithError(err).Warn("Rejected event")
		} else {
			log.ErrorWithErr(err, "Handler failed")
		}
		return report.FromError(err)
	}

	if result == nil {
		return report.Success("")
	}
	return result
}

// summarize writes the one line observers read. It must never fail the
// invocation, so anything it panics on is swallowed.
func (r *Runner) summarize(log *logger.Logger, res *report.Result, status int) {
	defer func() { _ = recover() }()

	fields := map[string]interface{}{
		"status_code": status,
		"outcome":     res.Outcome,
	}
	if len(res.Affected) > 0 {
		fields["affected"] = res.Affected
	}
	if len(res.Attempted) > 0 {
		fields["attempted"] = res.Attempted
	}
	if len(res.Failed) > 0 {
		fields["failed"] = res.Failed
	}
	if res.NoAction {
		fields["no_action"] = true
	}

	entry := log.WithFields(fields)
	switch res.Outcome {
	case report.OutcomeSuccess:
		entry.Info(res.Message)
	case report.OutcomeClientError:
		entry.Warn(res.Message)
	default:
		entry.Error(res.Message)
	}
}

func (r *Runner) push(ctx context.Context, log *logger.Logger) {
	if r.metrics.PushgatewayURL == "" {
		return
	}

	pushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := metrics.Push(pushCtx, r.metrics.PushgatewayURL, r.metrics.Job, r.pushGrouping()); err != nil {
		log.WithError(err).Warn("Failed to push metrics")
	}
}

// pushGrouping identifies this process on the Pushgateway so containers
// running the same handler do not replace each other's series.
func (r *Runner) pushGrouping() map[string]string {
	id := r.metrics.Instance
	if id == "" {
		id = lambdacontext.LogStreamName
	}
	return map[string]string{"instance": id}
}
