package jsonx

import "github.com/goccy/go-json"

// Thin wrapper so hot paths can swap JSON implementations in one place.
var (
	Marshal       = json.Marshal
	MarshalIndent = json.MarshalIndent
	Unmarshal     = json.Unmarshal
	NewDecoder    = json.NewDecoder
	NewEncoder    = json.NewEncoder
	Valid         = json.Valid
)

type RawMessage = json.RawMessage
type Number = json.Number

// UnquoteString decodes data when it is a JSON string literal.
func UnquoteString(data string) (string, bool) {
	var out string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return "", false
	}
	return out, true
}
