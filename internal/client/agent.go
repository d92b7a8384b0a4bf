// Package client sends invocation requests to the remediation agent service.
package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"vulnagent/internal/domain/remediation"
	vaerrors "vulnagent/internal/errors"
	"vulnagent/internal/observability"
	jsonx "vulnagent/internal/shared/json"
	"vulnagent/internal/shared/logging"
)

// DefaultAgentURL is the local agent runtime's invocation endpoint.
const DefaultAgentURL = "http://localhost:8080/invocations"

const maxLoggedBody = 512

// Invoker sends one request and returns the raw response body.
type Invoker interface {
	Invoke(ctx context.Context, req remediation.InvocationRequest) (string, error)
}

// RequestRecorder receives one callback per completed invocation.
type RequestRecorder interface {
	RecordAgentRequest(ctx context.Context, kind string, outcome string, latency time.Duration)
}

// AgentClient posts invocation requests to a single endpoint. It never retries:
// a failed call surfaces as a TransportError.
type AgentClient struct {
	endpoint     string
	httpClient   *http.Client
	timeout      time.Duration
	logger       logging.Logger
	tracer       trace.Tracer
	recorder     RequestRecorder
	maxBodyBytes int64
}

// Option configures an AgentClient.
type Option func(*AgentClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *AgentClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the round-trip timeout of the default http.Client. It has
// no effect together with WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *AgentClient) {
		c.timeout = timeout
	}
}

// WithLogger sets the transport logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *AgentClient) {
		c.logger = logging.OrNop(logger)
	}
}

// WithTracer sets the tracer used for invoke spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *AgentClient) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithRecorder sets the request metrics recorder.
func WithRecorder(recorder RequestRecorder) Option {
	return func(c *AgentClient) {
		c.recorder = recorder
	}
}

// WithMaxResponseBytes caps the response size; 0 disables the cap.
func WithMaxResponseBytes(limit int64) Option {
	return func(c *AgentClient) {
		c.maxBodyBytes = limit
	}
}

// NewAgentClient creates a client for endpoint, or DefaultAgentURL when blank.
func NewAgentClient(endpoint string, opts ...Option) *AgentClient {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultAgentURL
	}
	c := &AgentClient{
		endpoint:     endpoint,
		logger:       logging.Nop(),
		tracer:       noop.NewTracerProvider().Tracer("vulnagent"),
		maxBodyBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Built last so the transport sees the final logger whatever the option order.
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(c.timeout, c.logger)
	}
	return c
}

// Endpoint returns the invocation URL.
func (c *AgentClient) Endpoint() string {
	return c.endpoint
}

// Invoke posts req as JSON and returns the body of a 2xx response verbatim.
func (c *AgentClient) Invoke(ctx context.Context, req remediation.InvocationRequest) (string, error) {
	kind := requestKind(req)
	logger := c.logger
	attrs := observability.RequestAttrs(req.SwarmMode, req.HumanResponse)
	if req.ConversationID != nil {
		attrs = append(attrs, observability.ConversationAttrs(*req.ConversationID)...)
		logger = logging.WithConversation(c.logger, *req.ConversationID)
	}
	ctx, span := c.tracer.Start(ctx, observability.SpanAgentInvoke, trace.WithAttributes(attrs...))

	started := time.Now()
	body, err := c.invoke(ctx, span, req)
	latency := time.Since(started)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		logger.Warn("agent %s request failed after %s: %v", kind, latency, err)
	} else {
		logger.Info("agent %s request ok: bytes=%d latency=%s", kind, len(body), latency)
	}
	if c.recorder != nil {
		c.recorder.RecordAgentRequest(ctx, kind, outcome, latency)
	}
	observability.EndSpan(span, err)
	return body, err
}

func (c *AgentClient) invoke(ctx context.Context, span trace.Span, req remediation.InvocationRequest) (string, error) {
	payload, err := jsonx.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode invocation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", vaerrors.NewTransportError(err, 0, "")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("POST %s swarm_mode=%t human_response=%q prompt_len=%d",
		c.endpoint, req.SwarmMode, req.HumanResponse, len(req.Prompt))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", vaerrors.NewTransportError(err, 0, "")
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int(observability.AttrHTTPStatus, resp.StatusCode))

	data, err := ReadAllWithLimit(resp.Body, c.maxBodyBytes)
	if err != nil {
		return "", vaerrors.NewTransportError(err, 0, "")
	}
	span.SetAttributes(attribute.Int(observability.AttrPayloadBytes, len(data)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", vaerrors.NewTransportError(nil, resp.StatusCode, truncate(string(data), maxLoggedBody))
	}
	return string(data), nil
}

func requestKind(req remediation.InvocationRequest) string {
	if req.HumanResponse != "" {
		return "decision"
	}
	return "analyze"
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
