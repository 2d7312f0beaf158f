package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/iloveyushi/ainaojin/pkg/logger"
)

// Call describes one outgoing request as seen by the stages.
type Call struct {
	Operation string
	Method    string
	// Path is relative to the base URL, already escaped.
	Path   string
	Query  url.Values
	Header http.Header
}

// Response is the transport envelope of a successful call. Only Body
// reaches the caller.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       Payload
}

// RequestStage runs before dispatch and may add headers or query values.
type RequestStage func(ctx context.Context, call *Call)

// ResponseStage runs after a 2xx response, before the body is returned.
type ResponseStage func(ctx context.Context, call *Call, resp *Response)

// RequestIDStage stamps header with a fresh UUID unless the call already carries one.
func RequestIDStage(header string) RequestStage {
	return func(_ context.Context, call *Call) {
		if header == "" || call.Header.Get(header) != "" {
			return
		}
		call.Header.Set(header, uuid.NewString())
	}
}

// LogRequestStage logs the destination path and parameters.
func LogRequestStage(l logger.Logger) RequestStage {
	return func(ctx context.Context, call *Call) {
		l.Info(ctx, "request",
			logger.String("operation", call.Operation),
			logger.String("method", call.Method),
			logger.String("path", call.Path),
			logger.String("params", call.Query.Encode()),
		)
	}
}

// LogResponseStage logs the raw payload.
func LogResponseStage(l logger.Logger) ResponseStage {
	return func(ctx context.Context, call *Call, resp *Response) {
		l.Info(ctx, "response",
			logger.String("operation", call.Operation),
			logger.Int("status", resp.StatusCode),
			logger.String("payload", resp.Body.String()),
		)
	}
}
