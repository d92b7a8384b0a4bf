// Package conversation runs the analyze → handoff → decision loop against the
// agent service and normalizes every response on the way back.
package conversation

import (
	"context"
	"strings"
	"sync"

	"vulnagent/internal/client"
	"vulnagent/internal/domain/remediation"
	vaerrors "vulnagent/internal/errors"
	"vulnagent/internal/handoff"
	"vulnagent/internal/history"
	"vulnagent/internal/observability"
	"vulnagent/internal/presentation"
	"vulnagent/internal/shared/logging"
	"vulnagent/internal/wireformat"
)

// Result is one normalized response.
type Result struct {
	Envelope remediation.ResultEnvelope
	Outcome  handoff.Outcome
	View     presentation.View
	Entry    history.Entry
}

// SessionInfo describes the conversation for status endpoints.
type SessionInfo struct {
	State     handoff.State    `json:"state" yaml:"state"`
	SwarmMode bool             `json:"swarm_mode" yaml:"swarm_mode"`
	Pending   handoff.Snapshot `json:"pending" yaml:"pending"`
}

// Service owns the single in-flight conversation. Calls are serialized.
type Service struct {
	mu sync.Mutex

	invoker   client.Invoker
	extractor *wireformat.Extractor
	machine   *handoff.Machine
	history   *history.Store
	tracer    *observability.TracerProvider
	logger    logging.Logger
}

type serviceOptions struct {
	logger  logging.Logger
	history *history.Store
	tracer  *observability.TracerProvider
	metrics *observability.MetricsCollector
}

// Option configures a Service.
type Option func(*serviceOptions)

// WithLogger sets the service logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithHistory sets the store that keeps recent results.
func WithHistory(store *history.Store) Option {
	return func(o *serviceOptions) {
		o.history = store
	}
}

// WithTracer sets the tracer provider for conversation spans.
func WithTracer(tracer *observability.TracerProvider) Option {
	return func(o *serviceOptions) {
		o.tracer = tracer
	}
}

// WithMetrics attaches the collector to extraction and state transitions.
func WithMetrics(metrics *observability.MetricsCollector) Option {
	return func(o *serviceOptions) {
		o.metrics = metrics
	}
}

// NewService wires a service around invoker.
func NewService(invoker client.Invoker, opts ...Option) *Service {
	options := serviceOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := logging.OrNop(options.logger)
	store := options.history
	if store == nil {
		store = history.NewStore(0)
	}

	extractorOpts := []wireformat.Option{wireformat.WithLogger(logger)}
	machineOpts := []handoff.Option{handoff.WithLogger(logger)}
	if options.metrics != nil {
		extractorOpts = append(extractorOpts, wireformat.WithObserver(options.metrics))
		machineOpts = append(machineOpts, handoff.WithObserver(options.metrics))
	}

	return &Service{
		invoker:   invoker,
		extractor: wireformat.NewExtractor(extractorOpts...),
		machine:   handoff.NewMachine(handoff.NewSession(), machineOpts...),
		history:   store,
		tracer:    options.tracer,
		logger:    logger,
	}
}

// Analyze starts a new analysis. Any pending handoff is discarded.
func (s *Service) Analyze(ctx context.Context, prompt string, swarm bool) (Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		err := vaerrors.NewStateError("analyze", "Please enter a prompt")
		return Result{View: presentation.ErrorView(err)}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.StartSpan(ctx, observability.SpanConversationAnalyze, observability.RequestAttrs(swarm, "")...)
	s.machine.Begin(swarm)

	req := remediation.InvocationRequest{Prompt: prompt, SwarmMode: swarm}
	result, err := s.roundTrip(ctx, req, history.Entry{Prompt: prompt, SwarmMode: swarm})
	span.SetAttributes(observability.OutcomeAttrs(result.View.Status, result.Outcome.Overridden)...)
	observability.EndSpan(span, err)
	return result, err
}

// Decide submits approve or reject for the pending handoff. An invalid
// decision leaves the handoff pending.
func (s *Service) Decide(ctx context.Context, decision string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.StartSpan(ctx, observability.SpanConversationDecide)
	req, err := s.machine.Submit(decision)
	if err != nil {
		observability.EndSpan(span, err)
		return Result{View: presentation.ErrorView(err)}, err
	}
	span.SetAttributes(observability.RequestAttrs(req.SwarmMode, req.HumanResponse)...)
	if req.ConversationID != nil {
		span.SetAttributes(observability.ConversationAttrs(*req.ConversationID)...)
	}

	entry := history.Entry{Prompt: req.Prompt, SwarmMode: req.SwarmMode, Decision: req.HumanResponse}
	result, err := s.roundTrip(ctx, req, entry)
	span.SetAttributes(observability.OutcomeAttrs(result.View.Status, result.Outcome.Overridden)...)
	observability.EndSpan(span, err)
	return result, err
}

// Cancel abandons the pending handoff locally.
func (s *Service) Cancel(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, span := s.tracer.StartSpan(ctx, observability.SpanConversationCancel)
	message, err := s.machine.Cancel()
	observability.EndSpan(span, err)
	if err != nil {
		return Result{View: presentation.ErrorView(err)}, err
	}
	s.logger.Info("human handoff cancelled")
	return Result{
		Outcome: handoff.Outcome{State: handoff.StateCancelled},
		View:    presentation.BannerView(message, handoff.StateCancelled),
	}, nil
}

// Normalize runs the response pipeline over a captured body without contacting
// the agent service. It never touches the live conversation.
func (s *Service) Normalize(ctx context.Context, raw string, swarm bool) (Result, error) {
	_, span := s.tracer.StartSpan(ctx, observability.SpanConversationNormalize, observability.RequestAttrs(swarm, "")...)
	machine := handoff.NewMachine(nil, handoff.WithLogger(s.logger))
	machine.Begin(swarm)

	result, err := s.process(raw, machine, swarm)
	span.SetAttributes(observability.OutcomeAttrs(result.View.Status, result.Outcome.Overridden)...)
	observability.EndSpan(span, err)
	return result, err
}

// Session reports the live conversation state. It does not wait for an
// in-flight call, so a running request shows up as processing.
func (s *Service) Session() SessionInfo {
	return SessionInfo{
		State:     s.machine.State(),
		SwarmMode: s.machine.SwarmMode(),
		Pending:   s.machine.Session().Snapshot(),
	}
}

// Conversation returns the latest stored result for a conversation id.
func (s *Service) Conversation(id string) (history.Entry, bool) {
	return s.history.Get(id)
}

// Recent returns up to limit stored results, newest first.
func (s *Service) Recent(limit int) []history.Entry {
	return s.history.Recent(limit)
}

func (s *Service) roundTrip(ctx context.Context, req remediation.InvocationRequest, entry history.Entry) (Result, error) {
	body, err := s.invoker.Invoke(ctx, req)
	if err != nil {
		s.machine.Fail(err)
		return Result{View: presentation.ErrorView(err)}, err
	}

	result, err := s.process(body, s.machine, req.SwarmMode)
	if err != nil {
		return result, err
	}

	entry.State = result.Outcome.State
	entry.Overridden = result.Outcome.Overridden
	entry.Envelope = result.Envelope
	entry.View = result.View
	if id := result.Envelope.ConversationID; id != nil {
		entry.ConversationID = *id
	} else if req.ConversationID != nil {
		entry.ConversationID = *req.ConversationID
	}
	result.Entry = s.history.Record(entry)
	return result, nil
}

// process decodes, probes, extracts and applies one response body.
func (s *Service) process(body string, machine *handoff.Machine, swarm bool) (Result, error) {
	payload := wireformat.DecodePayload(body)
	if message, ok := wireformat.ProbeSemanticError(payload.Text); ok {
		err := vaerrors.NewSemanticError(message)
		machine.Fail(err)
		return Result{View: presentation.ErrorView(err)}, err
	}

	env := s.extractor.Extract(payload.Text)
	outcome := machine.Apply(env)
	return Result{
		Envelope: outcome.Envelope,
		Outcome:  outcome,
		View:     presentation.BuildView(outcome, swarm),
	}, nil
}
