package client

import (
	"context"
	"net/http"
	"net/url"
)

// HandlerInfo describes one handler the server can run
type HandlerInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// InvokeResponse is the Lambda style response of one invocation. Body holds
// the JSON encoded result.
type InvokeResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Handlers lists the handlers the server can run
func (c *Client) Handlers(ctx context.Context) ([]HandlerInfo, error) {
	var out []HandlerInfo
	if err := c.doRequest(ctx, http.MethodGet, "/handlers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Invoke runs handler once with event as its payload. A handler that reports
// a 400 or 500 outcome is not an error here; inspect StatusCode instead.
func (c *Client) Invoke(ctx context.Context, handler string, event []byte) (*InvokeResponse, error) {
	if event == nil {
		event = []byte("{}")
	}

	env, err := c.send(ctx, http.MethodPost, "/invoke/"+url.PathEscape(handler), event)
	if err != nil {
		return nil, err
	}

	return &InvokeResponse{
		StatusCode: env.StatusCode,
		Body:       env.Body,
	}, nil
}
