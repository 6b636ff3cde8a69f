package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/ec2-automations/internal/api/middleware"
	automation "github.com/pratik-mahalle/ec2-automations/internal/handlers"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/utils"
)

// maxEventBytes matches the largest asynchronous Lambda payload
const maxEventBytes = 256 * 1024

// HandlerInfo describes one registered automation
type HandlerInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// InvokeHandler runs automations over HTTP the way Lambda would
type InvokeHandler struct {
	deps   automation.Deps
	runner *automation.Runner
	logger *logger.Logger
}

// NewInvokeHandler creates a new invoke handler
func NewInvokeHandler(deps automation.Deps, runner *automation.Runner, log *logger.Logger) *InvokeHandler {
	return &InvokeHandler{
		deps:   deps,
		runner: runner,
		logger: log,
	}
}

// List returns every registered handler
func (h *InvokeHandler) List(w http.ResponseWriter, r *http.Request) {
	names := automation.Names()
	out := make([]HandlerInfo, 0, len(names))
	for _, name := range names {
		out = append(out, HandlerInfo{Name: name, Description: automation.Description(name)})
	}
	utils.WriteSuccess(w, http.StatusOK, out)
}

// Invoke runs the handler named in the path with the request body as event.
// The response body is the Lambda response, and the HTTP status mirrors its
// statusCode.
func (h *InvokeHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "handler")
	middleware.AddLogField(w, "handler", name)

	if !isRegistered(name) {
		utils.WriteError(w, errors.NotFound("handler "+name))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes+1))
	if err != nil {
		utils.WriteError(w, errors.BadRequest("failed to read event body"))
		return
	}
	if len(payload) > maxEventBytes {
		utils.WriteError(w, errors.BadRequest("event body exceeds 256 KiB"))
		return
	}

	handler, err := automation.New(name, h.deps)
	if err != nil {
		h.logger.With("handler", name).ErrorWithErr(err, "Failed to build handler")
		utils.WriteFailure(w, err, "failed to build handler")
		return
	}

	ctx := automation.WithRequestID(r.Context(), middleware.GetRequestID(r))
	resp := h.runner.Run(ctx, handler, payload)

	utils.WriteInvocation(w, resp)
}

func isRegistered(name string) bool {
	for _, n := range automation.Names() {
		if n == name {
			return true
		}
	}
	return false
}
