package wireformat

import (
	"strings"

	"vulnagent/internal/domain/remediation"
	"vulnagent/internal/shared/logging"
)

// Field names recognised in the upstream literal rendering.
const (
	fieldContent        = "content"
	fieldText           = "text"
	fieldStatus         = "status"
	fieldConversationID = "conversation_id"
	fieldHumanPrompt    = "human_prompt"
)

// contentKeys are the blocks whose `content` list is reconstructed, in order.
var contentKeys = []string{
	remediation.GatherPhaseKey,
	string(remediation.AgentRemediator),
	string(remediation.AgentKeeper),
	string(remediation.AgentCritic),
}

// FieldOutcome reports what the extractor recovered for one field.
type FieldOutcome string

const (
	FieldPresent FieldOutcome = "present"
	FieldEmpty   FieldOutcome = "empty"
	FieldAbsent  FieldOutcome = "absent"
)

// FieldObserver receives one callback per extracted field.
type FieldObserver interface {
	ObserveField(field string, outcome FieldOutcome)
}

// Extractor recovers a ResultEnvelope from the service's object-literal text.
//
// Extraction is keyed and bounded: for each known block it looks for a
// `content` list reachable without crossing a closing brace, and only the first
// quoted `text` value of that list is kept. Anything it cannot locate is left
// absent; Extract never fails.
type Extractor struct {
	logger   logging.Logger
	observer FieldObserver
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger attaches a logger for per-response extraction summaries.
func WithLogger(logger logging.Logger) Option {
	return func(x *Extractor) {
		x.logger = logging.OrNop(logger)
	}
}

// WithObserver attaches a field observer, typically a metrics collector.
func WithObserver(observer FieldObserver) Option {
	return func(x *Extractor) {
		x.observer = observer
	}
}

// NewExtractor creates an extractor.
func NewExtractor(opts ...Option) *Extractor {
	x := &Extractor{logger: logging.Nop()}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract runs a default extractor over raw.
func Extract(raw string) remediation.ResultEnvelope {
	return NewExtractor().Extract(raw)
}

// Extract reconstructs the canonical envelope from raw response text.
func (x *Extractor) Extract(raw string) remediation.ResultEnvelope {
	env := remediation.NewResultEnvelope()

	for _, key := range contentKeys {
		match, ok := extractContent(raw, key)
		if !ok {
			x.observe(key, FieldAbsent)
			continue
		}

		var output remediation.AgentOutput
		if match.empty {
			output = remediation.Empty()
			x.observe(key, FieldEmpty)
		} else {
			output = remediation.ContentList(remediation.TextItem(match.text))
			x.observe(key, FieldPresent)
		}

		if key == remediation.GatherPhaseKey {
			env.GatherPhase = &output
			continue
		}
		env.AgentResults[remediation.AgentName(key)] = remediation.AgentResult(output)
	}

	if value, ok := scanScalar(raw, fieldStatus); ok {
		status := remediation.ParseStatus(value)
		env.Status = &status
		x.observe(fieldStatus, FieldPresent)
	} else {
		x.observe(fieldStatus, FieldAbsent)
	}
	if value, ok := scanScalar(raw, fieldConversationID); ok {
		env.ConversationID = &value
		x.observe(fieldConversationID, FieldPresent)
	} else {
		x.observe(fieldConversationID, FieldAbsent)
	}
	if value, ok := scanScalar(raw, fieldHumanPrompt); ok {
		env.HumanPrompt = &value
		x.observe(fieldHumanPrompt, FieldPresent)
	} else {
		x.observe(fieldHumanPrompt, FieldAbsent)
	}

	status := "<absent>"
	if env.Status != nil {
		status = env.Status.String()
	}
	x.logger.Debug("extracted envelope: bytes=%d gather=%t agents=%d status=%s",
		len(raw), env.GatherPhase != nil, len(env.AgentResults), status)
	return env
}

func (x *Extractor) observe(field string, outcome FieldOutcome) {
	if x.observer != nil {
		x.observer.ObserveField(field, outcome)
	}
}

type contentMatch struct {
	empty bool
	text  string
}

// extractContent tries each occurrence of key in order and returns the first
// one whose bounded span leads to a usable content list.
func extractContent(raw, key string) (contentMatch, bool) {
	offset := 0
	for {
		keyStart, spanStart, ok := findFieldMarker(raw, key, offset)
		if !ok {
			return contentMatch{}, false
		}
		offset = keyStart + 1

		contentStart, contentEnd, ok := findFieldMarker(raw, fieldContent, spanStart)
		if !ok {
			return contentMatch{}, false
		}
		if !isBoundedSpan(raw[spanStart:contentStart], key) {
			continue
		}

		listStart := skipSpace(raw, contentEnd)
		if listStart >= len(raw) || raw[listStart] != '[' {
			continue
		}
		closing := strings.IndexByte(raw[listStart:], ']')
		if closing < 0 {
			continue
		}
		listEnd := listStart + closing
		if strings.TrimSpace(raw[listStart+1:listEnd]) == "" {
			return contentMatch{empty: true}, true
		}

		// The text marker must sit inside the list; its value may run past a
		// `]` embedded in the string.
		textStart, valueStart, ok := findFieldMarker(raw, fieldText, listStart)
		if !ok || textStart >= listEnd {
			continue
		}
		value, ok := scanQuotedAt(raw, valueStart)
		if !ok {
			continue
		}
		return contentMatch{text: value.Value}, true
	}
}

// isBoundedSpan reports whether the text between a key and its content marker
// stays inside the key's own block: no closing brace and no other known key.
func isBoundedSpan(span, key string) bool {
	if strings.IndexByte(span, '}') >= 0 {
		return false
	}
	for _, other := range contentKeys {
		if other == key {
			continue
		}
		if _, _, ok := findFieldMarker(span, other, 0); ok {
			return false
		}
	}
	return true
}

func scanScalar(raw, field string) (string, bool) {
	value, ok := ScanQuoted(raw, field)
	if !ok || value.Value == "" {
		return "", false
	}
	return value.Value, true
}
