package report

import (
	"encoding/json"
	"net/http"

	"github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
)

// Outcome classifies how an invocation ended
type Outcome string

// Outcomes
const (
	OutcomeSuccess     Outcome = "success"
	OutcomeClientError Outcome = "client-error"
	OutcomeServerError Outcome = "server-error"
)

// UnexpectedMessage is the only text surfaced for errors that are not
// AppErrors. The full error is logged instead.
const UnexpectedMessage = "internal error"

// Result is the structured outcome of one handler invocation
type Result struct {
	Outcome   Outcome           `json:"outcome"`
	Message   string            `json:"message,omitempty"`
	Code      string            `json:"code,omitempty"`
	NoAction  bool              `json:"no_action,omitempty"`
	Affected  []string          `json:"affected,omitempty"`
	Attempted []string          `json:"attempted,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
	Details   interface{}       `json:"details,omitempty"`
}

// Response is the value returned to the invoking framework
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Success reports a completed action on the affected identifiers
func Success(message string, affected ...string) *Result {
	return &Result{
		Outcome:  OutcomeSuccess,
		Message:  message,
		Affected: affected,
	}
}

// NotApplicable reports a well-formed event that needs no action
func NotApplicable(message string) *Result {
	return &Result{
		Outcome:  OutcomeSuccess,
		Message:  message,
		NoAction: true,
	}
}

// FromBatch reports a batched action. Any failed target makes the whole
// invocation a server error while still listing what succeeded.
func FromBatch(message string, attempted, succeeded []string, failed map[string]string) *Result {
	res := &Result{
		Outcome:   OutcomeSuccess,
		Message:   message,
		Affected:  succeeded,
		Attempted: attempted,
	}
	if len(failed) > 0 {
		res.Outcome = OutcomeServerError
		res.Failed = failed
	}
	return res
}

// FromError converts err into an error Result. AppErrors keep their message
// and details; anything else is reduced to UnexpectedMessage.
func FromError(err error) *Result {
	appErr, ok := errors.As(err)
	if !ok {
		return &Result{
			Outcome: OutcomeServerError,
			Message: UnexpectedMessage,
			Code:    errors.ErrCodeInternal,
		}
	}

	outcome := OutcomeServerError
	if appErr.ClientError() {
		outcome = OutcomeClientError
	}

	return &Result{
		Outcome: outcome,
		Message: appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}
}

// WithDetails attaches handler specific data to the result
func (r *Result) WithDetails(details interface{}) *Result {
	r.Details = details
	return r
}

// StatusCode maps the outcome onto the 200/400/500 partition
func (r *Result) StatusCode() int {
	switch r.Outcome {
	case OutcomeSuccess:
		return http.StatusOK
	case OutcomeClientError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Response renders the result for the invoking framework. It never fails:
// if the result cannot be encoded the body falls back to the message.
func (r *Result) Response() Response {
	body, err := json.Marshal(r)
	if err != nil {
		fallback, _ := json.Marshal(r.Message)
		body = fallback
	}
	return Response{
		StatusCode: r.StatusCode(),
		Body:       string(body),
	}
}

// Decode parses a Response body back into a Result
func (resp Response) Decode() (*Result, error) {
	var res Result
	if err := json.Unmarshal([]byte(resp.Body), &res); err != nil {
		return nil, err
	}
	return &res, nil
}
