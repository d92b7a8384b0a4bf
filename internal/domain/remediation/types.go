// Package remediation holds the canonical decoded form of one workflow response
// from the vulnerability-remediation agent service.
package remediation

// AgentName identifies one contributor of the multi-agent workflow.
type AgentName string

const (
	AgentRemediator AgentName = "vuln_remediator"
	AgentKeeper     AgentName = "vuln_keeper"
	AgentCritic     AgentName = "vuln_critic"
)

// GatherPhaseKey is the upstream key of the gather phase output.
const GatherPhaseKey = "gather_phase"

// KnownAgents lists agent identifiers in display order.
var KnownAgents = []AgentName{AgentRemediator, AgentKeeper, AgentCritic}

// IsKnownAgent reports whether name is one of KnownAgents.
func IsKnownAgent(name AgentName) bool {
	for _, known := range KnownAgents {
		if known == name {
			return true
		}
	}
	return false
}

// OutputKind discriminates AgentOutput variants.
type OutputKind string

const (
	OutputDirectText     OutputKind = "direct_text"
	OutputContentList    OutputKind = "content_list"
	OutputMessageWrapped OutputKind = "message_wrapped"
	OutputResultWrapped  OutputKind = "result_wrapped"
	OutputEmpty          OutputKind = "empty"
)

// ContentItem is one element of a content list. Items without text keep the
// upstream value in Raw.
type ContentItem struct {
	Text    string
	HasText bool
	Raw     any
}

// TextItem builds a content item carrying text.
func TextItem(text string) ContentItem {
	return ContentItem{Text: text, HasText: true}
}

// AgentOutput is a closed variant over the shapes an agent or phase result takes.
// Only the fields of the active Kind are meaningful.
type AgentOutput struct {
	Kind  OutputKind
	Text  string
	Items []ContentItem
	Inner *AgentOutput
}

func DirectText(text string) AgentOutput {
	return AgentOutput{Kind: OutputDirectText, Text: text}
}

func ContentList(items ...ContentItem) AgentOutput {
	return AgentOutput{Kind: OutputContentList, Items: items}
}

func MessageWrapped(message AgentOutput) AgentOutput {
	return AgentOutput{Kind: OutputMessageWrapped, Inner: &message}
}

func ResultWrapped(result AgentOutput) AgentOutput {
	return AgentOutput{Kind: OutputResultWrapped, Inner: &result}
}

func Empty() AgentOutput {
	return AgentOutput{Kind: OutputEmpty}
}

// AgentResult wraps a message output the way named agents report it:
// {result: {message: <output>}}.
func AgentResult(message AgentOutput) AgentOutput {
	return ResultWrapped(MessageWrapped(message))
}

// Unwrap strips message/result wrappers and returns the innermost output.
func (o AgentOutput) Unwrap() AgentOutput {
	current := o
	for (current.Kind == OutputMessageWrapped || current.Kind == OutputResultWrapped) && current.Inner != nil {
		current = *current.Inner
	}
	return current
}

// Node renders the output in the upstream node shape consumed by shape-matching
// presenters: Empty is {content: []}, wrappers nest under "message"/"result".
func (o AgentOutput) Node() any {
	switch o.Kind {
	case OutputDirectText:
		return map[string]any{"text": o.Text}
	case OutputContentList:
		content := make([]any, 0, len(o.Items))
		for _, item := range o.Items {
			if item.HasText {
				content = append(content, map[string]any{"text": item.Text})
				continue
			}
			content = append(content, item.Raw)
		}
		return map[string]any{"content": content}
	case OutputMessageWrapped:
		return map[string]any{"message": innerNode(o.Inner)}
	case OutputResultWrapped:
		return map[string]any{"result": innerNode(o.Inner)}
	case OutputEmpty:
		return map[string]any{"content": []any{}}
	default:
		return nil
	}
}

func innerNode(inner *AgentOutput) any {
	if inner == nil {
		return nil
	}
	return inner.Node()
}

// StatusKind discriminates StatusCode values.
type StatusKind string

const (
	StatusCompleted          StatusKind = "completed"
	StatusAwaitingHumanInput StatusKind = "awaiting_human_input"
	StatusOther              StatusKind = "other"
)

// StatusCode is the workflow status reported upstream.
type StatusCode struct {
	Kind StatusKind
	Raw  string
}

// ParseStatus maps an upstream status string; unknown values become StatusOther.
func ParseStatus(raw string) StatusCode {
	switch raw {
	case string(StatusCompleted):
		return StatusCode{Kind: StatusCompleted, Raw: raw}
	case string(StatusAwaitingHumanInput):
		return StatusCode{Kind: StatusAwaitingHumanInput, Raw: raw}
	default:
		return StatusCode{Kind: StatusOther, Raw: raw}
	}
}

func Completed() StatusCode {
	return ParseStatus(string(StatusCompleted))
}

func AwaitingHumanInput() StatusCode {
	return ParseStatus(string(StatusAwaitingHumanInput))
}

func (s StatusCode) String() string {
	if s.Raw != "" {
		return s.Raw
	}
	return string(s.Kind)
}

// ResultEnvelope is the canonical decoded form of one workflow response.
// Absent upstream fields are nil pointers or missing map keys.
type ResultEnvelope struct {
	GatherPhase    *AgentOutput
	AgentResults   map[AgentName]AgentOutput
	Status         *StatusCode
	HumanPrompt    *string
	ConversationID *string
}

// NewResultEnvelope returns an envelope with an initialized agent map.
func NewResultEnvelope() ResultEnvelope {
	return ResultEnvelope{AgentResults: map[AgentName]AgentOutput{}}
}

// Agent returns the output of a named agent, or nil when absent.
func (e ResultEnvelope) Agent(name AgentName) *AgentOutput {
	output, ok := e.AgentResults[name]
	if !ok {
		return nil
	}
	return &output
}

// HasStatus reports whether the envelope status has the given kind.
func (e ResultEnvelope) HasStatus(kind StatusKind) bool {
	return e.Status != nil && e.Status.Kind == kind
}

// WithStatus returns a copy of the envelope carrying status.
func (e ResultEnvelope) WithStatus(status StatusCode) ResultEnvelope {
	clone := e
	clone.Status = &status
	clone.AgentResults = make(map[AgentName]AgentOutput, len(e.AgentResults))
	for name, output := range e.AgentResults {
		clone.AgentResults[name] = output
	}
	return clone
}

// Node renders the envelope in the result shape the browser UI pattern-matches on.
// Agent results appear both at the top level and under swarm_remediation.results.
func (e ResultEnvelope) Node() map[string]any {
	agents := map[string]any{}
	if e.GatherPhase != nil {
		agents[GatherPhaseKey] = e.GatherPhase.Node()
	}
	for _, name := range KnownAgents {
		if output, ok := e.AgentResults[name]; ok {
			agents[string(name)] = output.Node()
		}
	}

	var status any
	if e.Status != nil {
		status = e.Status.String()
	}

	node := make(map[string]any, len(agents)+4)
	for key, value := range agents {
		node[key] = value
	}
	node["swarm_remediation"] = map[string]any{
		"results": agents,
		"status":  status,
	}
	node["status"] = status
	if e.HumanPrompt != nil {
		node["human_prompt"] = *e.HumanPrompt
	}
	if e.ConversationID != nil {
		node["conversation_id"] = *e.ConversationID
	}
	return node
}
