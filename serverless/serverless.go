// Package serverless adapts the kernel to API Gateway proxy events.
package serverless

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/tailored-agentic-units/flora/kernel"
	"github.com/tailored-agentic-units/flora/observability"
)

// Error bodies returned to the caller.
const (
	MissingFieldsMessage = "Missing 'message' or 'session_id' in request body"
	InternalErrorMessage = "An internal error occurred."
	UnavailableMessage   = "The assistant is busy, please try again shortly."
)

// EventError is emitted when a request fails.
const EventError observability.EventType = "serverless.error"

// Runner processes one user message for a session. *kernel.Kernel
// satisfies it.
type Runner interface {
	Run(ctx context.Context, sessionID, message string) (*kernel.Result, error)
}

// CORSHeaders are attached to successful responses.
var CORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type",
	"Access-Control-Allow-Methods": "OPTIONS,POST",
}

// Handler serves API Gateway proxy requests.
type Handler struct {
	runner   Runner
	observer observability.Observer
}

// New creates a Handler. A nil observer discards events.
func New(runner Runner, observer observability.Observer) *Handler {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	return &Handler{runner: runner, observer: observer}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// Handle processes one proxy event. Failures are reported in the
// response; the returned error is always nil so the gateway sees a
// well-formed reply.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: CORSHeaders}, nil
	}

	body := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return respond(http.StatusBadRequest, map[string]string{"error": MissingFieldsMessage}, nil), nil
		}
		body = string(decoded)
	}
	if body == "" {
		body = "{}"
	}

	var in chatRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil || in.Message == "" || in.SessionID == "" {
		return respond(http.StatusBadRequest, map[string]string{"error": MissingFieldsMessage}, nil), nil
	}

	result, err := h.runner.Run(ctx, in.SessionID, in.Message)
	if err != nil {
		h.observer.OnEvent(ctx, observability.NewEvent(EventError, observability.LevelError, "serverless.Handle", map[string]any{
			"request_id": req.RequestContext.RequestID,
			"error":      err.Error(),
		}))
		if errors.Is(err, kernel.ErrAgentTimeout) {
			return respond(http.StatusServiceUnavailable, map[string]string{"error": UnavailableMessage},
				map[string]string{"Retry-After": "5"}), nil
		}
		return respond(http.StatusInternalServerError, map[string]string{"error": InternalErrorMessage}, nil), nil
	}

	return respond(http.StatusOK, map[string]string{"response": result.Response}, CORSHeaders), nil
}

func respond(status int, body map[string]string, headers map[string]string) events.APIGatewayProxyResponse {
	data, _ := json.Marshal(body)
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: h, Body: string(data)}
}
