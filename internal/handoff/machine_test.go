package handoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnagent/internal/domain/remediation"
	vaerrors "vulnagent/internal/errors"
	"vulnagent/internal/wireformat"
)

func strPtr(s string) *string { return &s }

func awaitingEnvelope() remediation.ResultEnvelope {
	env := remediation.NewResultEnvelope()
	status := remediation.AwaitingHumanInput()
	env.Status = &status
	env.ConversationID = strPtr("conv-7")
	env.HumanPrompt = strPtr("Approve the patch window?")
	env.AgentResults[remediation.AgentRemediator] = remediation.AgentResult(
		remediation.ContentList(remediation.TextItem("Upgrade openssl")),
	)
	return env
}

type recordingObserver struct {
	transitions [][2]State
	overrides   int
}

func (r *recordingObserver) ObserveTransition(from, to State) {
	r.transitions = append(r.transitions, [2]State{from, to})
}

func (r *recordingObserver) ObserveOverride() { r.overrides++ }

func TestApplyCompleted(t *testing.T) {
	m := NewMachine(nil)
	m.Begin(true)

	out := m.Apply(wireformat.Extract(`{'status': 'completed', 'gather_phase': {'content': [{'text': 'Found 3 CVEs'}]}}`))

	assert.Equal(t, StateCompleted, out.State)
	assert.False(t, out.AwaitingInput())
	assert.False(t, out.Overridden)
	assert.Equal(t, StateCompleted, m.State())
}

func TestApplyAwaitingWithContent(t *testing.T) {
	session := NewSession()
	m := NewMachine(session)
	m.Begin(true)

	out := m.Apply(awaitingEnvelope())

	require.True(t, out.AwaitingInput())
	assert.Equal(t, "Approve the patch window?", out.HumanPrompt)
	require.NotNil(t, out.ConversationID)
	assert.Equal(t, "conv-7", *out.ConversationID)

	id, ok := session.ConversationID()
	require.True(t, ok)
	assert.Equal(t, "conv-7", id)
	assert.Equal(t, "Approve the patch window?", session.Prompt())
}

func TestApplyAwaitingDefaultsPrompt(t *testing.T) {
	env := awaitingEnvelope()
	env.HumanPrompt = nil
	m := NewMachine(nil)
	m.Begin(false)

	out := m.Apply(env)

	assert.Equal(t, DefaultHumanPrompt, out.HumanPrompt)
	assert.Equal(t, DefaultHumanPrompt, m.Session().Prompt())
}

func TestApplyOverridesEmptyHandoff(t *testing.T) {
	raw := `{'status': 'awaiting_human_input', 'conversation_id': 'conv-9', ` +
		`'gather_phase': {'content': []}, ` +
		`'vuln_remediator': {'result': {'message': {'role': 'assistant', 'content': []}}}, ` +
		`'vuln_keeper': {'result': {'message': {'role': 'assistant', 'content': []}}}}`
	observer := &recordingObserver{}
	session := NewSession()
	m := NewMachine(session, WithObserver(observer))
	m.Begin(true)

	out := m.Apply(wireformat.Extract(raw))

	assert.Equal(t, StateCompleted, out.State)
	assert.True(t, out.Overridden)
	require.NotNil(t, out.Envelope.Status)
	assert.Equal(t, remediation.StatusCompleted, out.Envelope.Status.Kind)
	assert.Equal(t, 1, observer.overrides)
	_, active := session.ConversationID()
	assert.False(t, active, "no prompt must be recorded for an overridden handoff")
}

func TestApplyOverrideDoesNotMutateInput(t *testing.T) {
	env := remediation.NewResultEnvelope()
	status := remediation.AwaitingHumanInput()
	env.Status = &status

	m := NewMachine(nil)
	m.Begin(true)
	out := m.Apply(env)

	assert.True(t, out.Overridden)
	assert.Equal(t, remediation.StatusAwaitingHumanInput, env.Status.Kind)
}

func TestApplyCriticContentCounts(t *testing.T) {
	env := remediation.NewResultEnvelope()
	status := remediation.AwaitingHumanInput()
	env.Status = &status
	env.AgentResults[remediation.AgentCritic] = remediation.AgentResult(
		remediation.ContentList(remediation.TextItem("Effort justified")),
	)

	m := NewMachine(nil)
	m.Begin(true)

	assert.True(t, m.Apply(env).AwaitingInput())
}

func TestSubmitBuildsFollowUp(t *testing.T) {
	session := NewSession()
	m := NewMachine(session)
	m.Begin(true)
	m.Apply(awaitingEnvelope())

	req, err := m.Submit("approve")
	require.NoError(t, err)

	assert.Equal(t, "Human has chosen to approve the remediation plan", req.Prompt)
	assert.Equal(t, "approve", req.HumanResponse)
	assert.True(t, req.SwarmMode)
	require.NotNil(t, req.ConversationID)
	assert.Equal(t, "conv-7", *req.ConversationID)

	_, active := session.ConversationID()
	assert.False(t, active, "session must be cleared on submission")
	assert.Equal(t, StateProcessing, m.State())
}

func TestSubmitRejectsMissingDecision(t *testing.T) {
	m := NewMachine(nil)
	m.Begin(true)
	m.Apply(awaitingEnvelope())

	for _, input := range []string{"", "maybe", "approve_all"} {
		_, err := m.Submit(input)
		require.Error(t, err, input)
		assert.True(t, vaerrors.IsState(err), input)
	}

	assert.Equal(t, StateAwaitingHumanInput, m.State(), "invalid decision must leave the handoff pending")
	_, active := m.Session().ConversationID()
	assert.True(t, active)

	req, err := m.Submit("  Reject ")
	require.NoError(t, err)
	assert.Contains(t, req.Prompt, "reject")
}

func TestSubmitWithoutHandoff(t *testing.T) {
	m := NewMachine(nil)
	_, err := m.Submit("approve")
	require.Error(t, err)
	assert.True(t, vaerrors.IsState(err))
}

func TestCancel(t *testing.T) {
	session := NewSession()
	m := NewMachine(session)
	m.Begin(false)
	m.Apply(awaitingEnvelope())

	msg, err := m.Cancel()
	require.NoError(t, err)
	assert.Equal(t, CancelMessage, msg)
	assert.Equal(t, StateCancelled, m.State())
	_, active := session.ConversationID()
	assert.False(t, active)

	_, err = m.Cancel()
	assert.True(t, vaerrors.IsState(err))
}

func TestBeginDiscardsPendingHandoff(t *testing.T) {
	session := NewSession()
	m := NewMachine(session)
	m.Begin(true)
	m.Apply(awaitingEnvelope())

	m.Begin(true)

	_, active := session.ConversationID()
	assert.False(t, active)
	assert.Equal(t, StateProcessing, m.State())
	assert.True(t, m.SwarmMode())
}

func TestSwarmModeFollowsLatestBegin(t *testing.T) {
	m := NewMachine(nil)
	assert.False(t, m.SwarmMode())

	m.Begin(true)
	assert.True(t, m.SwarmMode())

	m.Begin(false)
	assert.False(t, m.SwarmMode())
}

func TestFailReturnsToIdle(t *testing.T) {
	observer := &recordingObserver{}
	m := NewMachine(nil, WithObserver(observer))
	m.Begin(false)
	m.Fail(vaerrors.NewTransportError(nil, 500, ""))

	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, [][2]State{
		{StateIdle, StateProcessing},
		{StateProcessing, StateIdle},
	}, observer.transitions)
}

func TestParseDecision(t *testing.T) {
	cases := []struct {
		input string
		want  Decision
		ok    bool
	}{
		{input: "approve", want: DecisionApprove, ok: true},
		{input: "REJECT", want: DecisionReject, ok: true},
		{input: "yes"},
		{input: ""},
	}
	for _, tc := range cases {
		got, err := ParseDecision(tc.input)
		if tc.ok != (err == nil) {
			t.Fatalf("%q: expected ok=%v, got err=%v", tc.input, tc.ok, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.input, tc.want, got)
		}
	}
}
