// Package presentation turns handoff outcomes into titled sections and renders
// them as terminal text, JSON or YAML.
package presentation

import (
	"strings"

	"vulnagent/internal/domain/remediation"
	vaerrors "vulnagent/internal/errors"
	"vulnagent/internal/handoff"
	"vulnagent/internal/resolver"
)

// Section titles.
const (
	TitleRemediationResults = "Remediation Results"
	TitleRemediationPlan    = "Remediation Plan"
	TitleHumanReview        = "Human Review Required"
	TitleSingleAgent        = "Vulnerability Analysis"
)

// HumanReviewNotice is shown under TitleHumanReview.
const HumanReviewNotice = "The swarm has completed its analysis. Please review the findings and provide your feedback or approval to proceed."

// Mode of a view.
type Mode string

const (
	ModeSwarm  Mode = "swarm"
	ModeSingle Mode = "single"
	ModeBanner Mode = "banner"
)

// Section is one titled block of display text.
type Section struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// View is everything a presenter needs for one response.
type View struct {
	Mode           Mode      `json:"mode" yaml:"mode"`
	State          string    `json:"state,omitempty" yaml:"state,omitempty"`
	Status         string    `json:"status,omitempty" yaml:"status,omitempty"`
	Overridden     bool      `json:"overridden,omitempty" yaml:"overridden,omitempty"`
	Sections       []Section `json:"sections,omitempty" yaml:"sections,omitempty"`
	Error          string    `json:"error,omitempty" yaml:"error,omitempty"`
	AwaitingInput  bool      `json:"awaiting_input,omitempty" yaml:"awaiting_input,omitempty"`
	HumanPrompt    string    `json:"human_prompt,omitempty" yaml:"human_prompt,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty" yaml:"conversation_id,omitempty"`
}

// BuildView lays out an outcome. Swarm layout is used when swarm was
// requested and the envelope carries a gather phase or agent results.
func BuildView(outcome handoff.Outcome, swarm bool) View {
	env := outcome.Envelope
	view := View{
		State:      string(outcome.State),
		Overridden: outcome.Overridden,
	}
	if env.Status != nil {
		view.Status = env.Status.String()
	}
	if outcome.AwaitingInput() {
		view.AwaitingInput = true
		view.HumanPrompt = outcome.HumanPrompt
		if outcome.ConversationID != nil {
			view.ConversationID = *outcome.ConversationID
		}
	}

	if swarm && (env.GatherPhase != nil || len(env.AgentResults) > 0) {
		view.Mode = ModeSwarm
		view.Sections = swarmSections(env)
		return view
	}

	view.Mode = ModeSingle
	view.Sections = []Section{{
		Title:   TitleSingleAgent,
		Content: resolver.ResolveText(env.Node()),
	}}
	return view
}

func swarmSections(env remediation.ResultEnvelope) []Section {
	var sections []Section

	if env.GatherPhase != nil {
		title := TitleRemediationPlan
		if env.HasStatus(remediation.StatusCompleted) {
			title = TitleRemediationResults
		}
		sections = append(sections, Section{
			Title:   title,
			Content: resolver.ResolveOutput(*env.GatherPhase),
		})
	}

	for _, name := range remediation.KnownAgents {
		output := env.Agent(name)
		if output == nil || !hasItems(*output) {
			continue
		}
		sections = append(sections, Section{
			Title:   AgentTitle(name),
			Content: resolver.ResolveOutput(*output),
		})
	}

	if env.HasStatus(remediation.StatusAwaitingHumanInput) {
		sections = append(sections, Section{Title: TitleHumanReview, Content: HumanReviewNotice})
	}
	return sections
}

// hasItems reports whether an agent's message holds a non-empty content list.
func hasItems(output remediation.AgentOutput) bool {
	inner := output.Unwrap()
	switch inner.Kind {
	case remediation.OutputContentList:
		return len(inner.Items) > 0
	case remediation.OutputDirectText:
		return inner.Text != ""
	default:
		return false
	}
}

// AgentTitle upper-cases the first letter of the agent key: "Vuln_remediator Analysis".
func AgentTitle(name remediation.AgentName) string {
	raw := string(name)
	if raw == "" {
		return "Analysis"
	}
	return strings.ToUpper(raw[:1]) + raw[1:] + " Analysis"
}

// ErrorView is a single banner for a failure.
func ErrorView(err error) View {
	return View{Mode: ModeBanner, Error: vaerrors.DisplayMessage(err)}
}

// BannerView is a single banner with a fixed message, such as a cancellation.
func BannerView(message string, state handoff.State) View {
	return View{Mode: ModeBanner, State: string(state), Error: message}
}
