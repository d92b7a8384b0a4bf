// Package handoff decides, per response, whether a conversation is finished or
// waits on a human approve/reject decision.
package handoff

import (
	"fmt"
	"strings"
	"sync"

	"vulnagent/internal/domain/remediation"
	vaerrors "vulnagent/internal/errors"
	"vulnagent/internal/resolver"
	"vulnagent/internal/shared/logging"
)

// State of the current conversation.
type State string

const (
	StateIdle               State = "idle"
	StateProcessing         State = "processing"
	StateCompleted          State = "completed"
	StateAwaitingHumanInput State = "awaiting_human_input"
	StateCancelled          State = "cancelled"
)

// Decision is the human's exclusive choice at a handoff.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// CancelMessage is surfaced to the user when a handoff is cancelled.
const CancelMessage = "Human handoff cancelled by user"

// ParseDecision accepts exactly "approve" or "reject" (case and surrounding
// space ignored).
func ParseDecision(input string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(input))) {
	case DecisionApprove:
		return DecisionApprove, nil
	case DecisionReject:
		return DecisionReject, nil
	default:
		return "", vaerrors.NewStateError("submit", "Please select approve or reject before submitting")
	}
}

// Directive is the natural-language prompt sent back with a decision.
func (d Decision) Directive() string {
	return fmt.Sprintf("Human has chosen to %s the remediation plan", d)
}

// Outcome is the machine's verdict on one envelope.
type Outcome struct {
	State State
	// Envelope carries the effective status; it differs from the extracted one
	// when an empty handoff was overridden to completed.
	Envelope       remediation.ResultEnvelope
	Overridden     bool
	HumanPrompt    string
	ConversationID *string
}

// AwaitingInput reports whether the presenter should solicit a decision.
func (o Outcome) AwaitingInput() bool {
	return o.State == StateAwaitingHumanInput
}

// TransitionObserver is notified of state changes and status overrides.
type TransitionObserver interface {
	ObserveTransition(from, to State)
	ObserveOverride()
}

// Machine drives Idle → Processing → {Completed, AwaitingHumanInput}, and from
// AwaitingHumanInput back to Processing (decision) or Cancelled.
type Machine struct {
	mu       sync.Mutex
	state    State
	swarm    bool
	session  *Session
	logger   logging.Logger
	observer TransitionObserver
}

// Option configures a Machine.
type Option func(*Machine)

func WithLogger(logger logging.Logger) Option {
	return func(m *Machine) {
		m.logger = logging.OrNop(logger)
	}
}

func WithObserver(observer TransitionObserver) Option {
	return func(m *Machine) {
		m.observer = observer
	}
}

// NewMachine creates an idle machine bound to session. A nil session gets a
// private one.
func NewMachine(session *Session, opts ...Option) *Machine {
	if session == nil {
		session = NewSession()
	}
	m := &Machine{state: StateIdle, session: session, logger: logging.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SwarmMode reports the mode recorded by the latest Begin.
func (m *Machine) SwarmMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.swarm
}

// Session returns the session the machine records handoffs into.
func (m *Machine) Session() *Session {
	return m.session
}

// Begin starts a new analysis. Any pending handoff is discarded.
func (m *Machine) Begin(swarm bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if discarded := m.session.Clear(); discarded != nil {
		m.logger.Info("new analysis discards pending handoff %s", *discarded)
	}
	m.swarm = swarm
	m.transition(StateProcessing)
}

// Apply evaluates an envelope and moves to Completed or AwaitingHumanInput.
// A handoff request with nothing to show is silently treated as completed.
func (m *Machine) Apply(env remediation.ResultEnvelope) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !env.HasStatus(remediation.StatusAwaitingHumanInput) {
		m.transition(StateCompleted)
		return Outcome{State: StateCompleted, Envelope: env}
	}

	if !hasContent(env) {
		m.logger.Info("handoff requested without displayable content, treating as completed")
		if m.observer != nil {
			m.observer.ObserveOverride()
		}
		m.transition(StateCompleted)
		return Outcome{
			State:      StateCompleted,
			Envelope:   env.WithStatus(remediation.Completed()),
			Overridden: true,
		}
	}

	prompt := DefaultHumanPrompt
	if env.HumanPrompt != nil && *env.HumanPrompt != "" {
		prompt = *env.HumanPrompt
	}
	m.session.Activate(env.ConversationID, prompt)
	m.transition(StateAwaitingHumanInput)

	convID := ""
	if env.ConversationID != nil {
		convID = *env.ConversationID
	}
	logging.WithConversation(m.logger, convID).Info("awaiting human input")

	return Outcome{
		State:          StateAwaitingHumanInput,
		Envelope:       env,
		HumanPrompt:    prompt,
		ConversationID: env.ConversationID,
	}
}

// Submit turns a decision into the follow-up request. The decision is
// validated first; the session is cleared before the request is sent.
func (m *Machine) Submit(input string) (remediation.InvocationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAwaitingHumanInput {
		return remediation.InvocationRequest{}, vaerrors.NewStateError("submit", "No human handoff is pending")
	}
	decision, err := ParseDecision(input)
	if err != nil {
		return remediation.InvocationRequest{}, err
	}

	convID := m.session.Clear()
	m.transition(StateProcessing)

	tagged := ""
	if convID != nil {
		tagged = *convID
	}
	logging.WithConversation(m.logger, tagged).Info("human decision submitted: %s", decision)

	return remediation.InvocationRequest{
		Prompt:         decision.Directive(),
		SwarmMode:      m.swarm,
		HumanResponse:  string(decision),
		ConversationID: convID,
	}, nil
}

// Cancel abandons the pending handoff locally. Nothing upstream is aborted.
func (m *Machine) Cancel() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAwaitingHumanInput {
		return "", vaerrors.NewStateError("cancel", "No human handoff is pending")
	}
	m.session.Clear()
	m.transition(StateCancelled)
	return CancelMessage, nil
}

// Fail records a transport or semantic failure; the caller must start over.
func (m *Machine) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.Warn("conversation failed: %v", err)
	m.transition(StateIdle)
}

func (m *Machine) transition(to State) {
	from := m.state
	m.state = to
	if from == to {
		return
	}
	m.logger.Debug("handoff state %s -> %s", from, to)
	if m.observer != nil {
		m.observer.ObserveTransition(from, to)
	}
}

// hasContent reports whether any phase or agent produced displayable text.
func hasContent(env remediation.ResultEnvelope) bool {
	if _, ok := resolver.FirstText(env.GatherPhase); ok {
		return true
	}
	for _, name := range remediation.KnownAgents {
		if _, ok := resolver.FirstText(env.Agent(name)); ok {
			return true
		}
	}
	return false
}
