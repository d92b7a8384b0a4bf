package wireformat

import (
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	jsonx "vulnagent/internal/shared/json"
)

// Payload is a response body after the optional string envelope was removed.
type Payload struct {
	Text    string
	Wrapped bool
}

// DecodePayload unwraps a JSON-encoded string body. Bodies that are not a valid
// JSON string literal are used as raw text.
func DecodePayload(body string) Payload {
	trimmed := strings.TrimSpace(body)
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		if text, ok := jsonx.UnquoteString(trimmed); ok {
			return Payload{Text: text, Wrapped: true}
		}
	}
	return Payload{Text: body}
}

// ProbeSemanticError reports the top-level `error` field of a payload, if any.
//
// The service emits errors either as JSON or as the same object-literal
// rendering it uses for results, so single-quoted payloads are normalized with
// jsonrepair before decoding. Only the top-level key counts; nested `error`
// fields inside agent output are ignored.
func ProbeSemanticError(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return "", false
	}
	if _, _, ok := findFieldMarker(trimmed, "error", 0); !ok {
		return "", false
	}

	var top map[string]any
	if err := jsonx.Unmarshal([]byte(trimmed), &top); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(trimmed)
		if repairErr != nil {
			return "", false
		}
		if err := jsonx.Unmarshal([]byte(repaired), &top); err != nil {
			return "", false
		}
	}

	value, ok := top["error"]
	if !ok || value == nil {
		return "", false
	}
	message, isString := value.(string)
	if !isString {
		message = fmt.Sprint(value)
	}
	if strings.TrimSpace(message) == "" {
		return "", false
	}
	return message, true
}
