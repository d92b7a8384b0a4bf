// Package resolver turns any agent or phase node into one display string.
package resolver

import (
	"fmt"
	"reflect"
	"strings"

	"vulnagent/internal/domain/remediation"
	jsonx "vulnagent/internal/shared/json"
)

// Sentinels returned when no genuine content exists.
const (
	NoContentAvailable = "No content available"
	NoAgentContent     = "No content provided by this agent"
)

// ResolveText returns the best human-readable string for node. It is total:
// every input yields a string. Typed AgentOutput values are matched
// exhaustively; untyped nodes go through the ordered fallback chain below.
func ResolveText(node any) string {
	switch v := node.(type) {
	case string:
		return v
	case nil:
		return NoContentAvailable
	case remediation.AgentOutput:
		return ResolveOutput(v)
	case *remediation.AgentOutput:
		if v == nil {
			return NoContentAvailable
		}
		return ResolveOutput(*v)
	}
	if isNilValue(node) {
		return NoContentAvailable
	}

	obj, isObject := node.(map[string]any)
	if isObject {
		if text, ok := nonEmptyString(obj["text"]); ok {
			return text
		}

		// role/content is checked before the generic content branch, so an
		// assistant message with no content gets the agent-specific sentinel.
		if role, _ := obj["role"].(string); role == "assistant" {
			if content, ok := obj["content"].([]any); ok {
				if len(content) == 0 {
					return NoAgentContent
				}
				if text, ok := firstItemText(content); ok {
					return text
				}
			}
		}

		if text, ok := pathText(obj, "result", "message"); ok {
			return text
		}
		if text, ok := pathText(obj, "message"); ok {
			return text
		}
		if text, ok := pathText(obj); ok {
			return text
		}

		if content, ok := obj["content"].([]any); ok {
			if len(content) == 0 {
				return NoContentAvailable
			}
			return joinContent(content)
		}
	}

	if isStructured(node) {
		if rendered, err := jsonx.MarshalIndent(node, "", "  "); err == nil {
			return string(rendered)
		}
	}
	return fmt.Sprint(node)
}

// ResolveOutput resolves a typed agent output.
func ResolveOutput(output remediation.AgentOutput) string {
	switch output.Kind {
	case remediation.OutputDirectText:
		if output.Text == "" {
			return NoContentAvailable
		}
		return output.Text
	case remediation.OutputContentList:
		if len(output.Items) == 0 {
			return NoContentAvailable
		}
		if first := output.Items[0]; first.HasText && first.Text != "" {
			return first.Text
		}
		parts := make([]string, 0, len(output.Items))
		for _, item := range output.Items {
			if item.HasText && item.Text != "" {
				parts = append(parts, item.Text)
				continue
			}
			parts = append(parts, stringify(item.Raw))
		}
		return strings.Join(parts, "\n")
	case remediation.OutputMessageWrapped, remediation.OutputResultWrapped:
		if output.Inner == nil {
			return NoContentAvailable
		}
		return ResolveOutput(*output.Inner)
	case remediation.OutputEmpty:
		return NoContentAvailable
	default:
		return ResolveText(output.Node())
	}
}

// FirstText returns the first content item's text after unwrapping, and
// whether it is non-empty. Absent and Empty outputs report false.
func FirstText(output *remediation.AgentOutput) (string, bool) {
	if output == nil {
		return "", false
	}
	inner := output.Unwrap()
	switch inner.Kind {
	case remediation.OutputDirectText:
		return inner.Text, inner.Text != ""
	case remediation.OutputContentList:
		if len(inner.Items) == 0 || !inner.Items[0].HasText {
			return "", false
		}
		return inner.Items[0].Text, inner.Items[0].Text != ""
	default:
		return "", false
	}
}

// pathText walks the given object keys and returns content[0].text of the
// object it lands on.
func pathText(obj map[string]any, keys ...string) (string, bool) {
	current := obj
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return "", false
		}
		current = next
	}
	content, ok := current["content"].([]any)
	if !ok {
		return "", false
	}
	return firstItemText(content)
}

func firstItemText(content []any) (string, bool) {
	if len(content) == 0 {
		return "", false
	}
	item, ok := content[0].(map[string]any)
	if !ok {
		return "", false
	}
	return nonEmptyString(item["text"])
}

func joinContent(content []any) string {
	parts := make([]string, 0, len(content))
	for _, item := range content {
		if obj, ok := item.(map[string]any); ok {
			if text, ok := nonEmptyString(obj["text"]); ok {
				parts = append(parts, text)
				continue
			}
		}
		parts = append(parts, stringify(item))
	}
	return strings.Join(parts, "\n")
}

// stringify renders a content element that has no text field.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	}
	if isStructured(value) {
		if rendered, err := jsonx.Marshal(value); err == nil {
			return string(rendered)
		}
	}
	return fmt.Sprint(value)
}

func nonEmptyString(value any) (string, bool) {
	text, ok := value.(string)
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

func isNilValue(value any) bool {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func isStructured(value any) bool {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	default:
		return false
	}
}
