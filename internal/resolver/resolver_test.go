package resolver

import (
	"strings"
	"testing"

	"vulnagent/internal/domain/remediation"
)

type finding struct {
	CVE      string
	Severity string
}

func TestResolveTextFallbackChain(t *testing.T) {
	cases := []struct {
		name string
		node any
		want string
	}{
		{name: "plain string", node: "Found 3 CVEs", want: "Found 3 CVEs"},
		{name: "empty string is still a string", node: "", want: ""},
		{name: "nil", node: nil, want: NoContentAvailable},
		{name: "nil map", node: map[string]any(nil), want: NoContentAvailable},
		{name: "direct text", node: map[string]any{"text": "direct"}, want: "direct"},
		{
			name: "assistant with empty content",
			node: map[string]any{"role": "assistant", "content": []any{}},
			want: NoAgentContent,
		},
		{
			name: "assistant with first text",
			node: map[string]any{"role": "assistant", "content": []any{map[string]any{"text": "plan"}}},
			want: "plan",
		},
		{
			name: "result message content",
			node: map[string]any{"result": map[string]any{"message": map[string]any{
				"content": []any{map[string]any{"text": "deep"}},
			}}},
			want: "deep",
		},
		{
			name: "message content",
			node: map[string]any{"message": map[string]any{"content": []any{map[string]any{"text": "mid"}}}},
			want: "mid",
		},
		{
			name: "content first text",
			node: map[string]any{"content": []any{map[string]any{"text": "first"}, map[string]any{"text": "second"}}},
			want: "first",
		},
		{
			name: "generic empty content",
			node: map[string]any{"content": []any{}},
			want: NoContentAvailable,
		},
		{
			name: "generic content join",
			node: map[string]any{"content": []any{"raw line", map[string]any{"text": "second"}}},
			want: "raw line\nsecond",
		},
		{
			name: "generic content join renders objects",
			node: map[string]any{"content": []any{map[string]any{"image": "x"}, map[string]any{"text": "caption"}}},
			want: "{\"image\":\"x\"}\ncaption",
		},
		{
			name: "unknown object",
			node: map[string]any{"b": 2, "a": 1},
			want: "{\n  \"a\": 1,\n  \"b\": 2\n}",
		},
		{
			name: "struct",
			node: finding{CVE: "CVE-2024-3094", Severity: "critical"},
			want: "{\n  \"CVE\": \"CVE-2024-3094\",\n  \"Severity\": \"critical\"\n}",
		},
		{name: "number", node: 42, want: "42"},
		{name: "bool", node: false, want: "false"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveText(tc.node); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestResolveTextPrecedence(t *testing.T) {
	t.Run("text wins over content", func(t *testing.T) {
		node := map[string]any{
			"text":    "direct",
			"content": []any{map[string]any{"text": "listed"}},
		}
		if got := ResolveText(node); got != "direct" {
			t.Fatalf("expected text branch, got %q", got)
		}
	})

	t.Run("empty text falls through", func(t *testing.T) {
		node := map[string]any{"text": "", "content": []any{}}
		if got := ResolveText(node); got != NoContentAvailable {
			t.Fatalf("expected generic sentinel, got %q", got)
		}
	})

	t.Run("role content sentinel wins over generic sentinel", func(t *testing.T) {
		node := map[string]any{"role": "assistant", "content": []any{}}
		if got := ResolveText(node); got != NoAgentContent {
			t.Fatalf("expected agent sentinel, got %q", got)
		}
	})

	t.Run("non assistant role uses generic branch", func(t *testing.T) {
		node := map[string]any{"role": "user", "content": []any{}}
		if got := ResolveText(node); got != NoContentAvailable {
			t.Fatalf("expected generic sentinel, got %q", got)
		}
	})

	t.Run("assistant without first text falls through to join", func(t *testing.T) {
		node := map[string]any{"role": "assistant", "content": []any{"bare", "items"}}
		if got := ResolveText(node); got != "bare\nitems" {
			t.Fatalf("expected joined content, got %q", got)
		}
	})

	t.Run("result path wins over message path", func(t *testing.T) {
		node := map[string]any{
			"result":  map[string]any{"message": map[string]any{"content": []any{map[string]any{"text": "result"}}}},
			"message": map[string]any{"content": []any{map[string]any{"text": "message"}}},
		}
		if got := ResolveText(node); got != "result" {
			t.Fatalf("expected result path, got %q", got)
		}
	})
}

func TestResolveOutput(t *testing.T) {
	cases := []struct {
		name   string
		output remediation.AgentOutput
		want   string
	}{
		{name: "direct text", output: remediation.DirectText("hello"), want: "hello"},
		{name: "empty direct text", output: remediation.DirectText(""), want: NoContentAvailable},
		{name: "content list", output: remediation.ContentList(remediation.TextItem("Found 3 CVEs")), want: "Found 3 CVEs"},
		{name: "empty content list", output: remediation.ContentList(), want: NoContentAvailable},
		{
			name:   "content list without first text",
			output: remediation.ContentList(remediation.ContentItem{Raw: "opaque"}, remediation.TextItem("tail")),
			want:   "opaque\ntail",
		},
		{
			name:   "agent result",
			output: remediation.AgentResult(remediation.ContentList(remediation.TextItem("patch it"))),
			want:   "patch it",
		},
		{name: "gather empty", output: remediation.Empty(), want: NoContentAvailable},
		{name: "agent empty", output: remediation.AgentResult(remediation.Empty()), want: NoContentAvailable},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveOutput(tc.output); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
			if got := ResolveText(tc.output); got != tc.want {
				t.Fatalf("ResolveText on typed output: expected %q, got %q", tc.want, got)
			}
		})
	}
}

// An extracted empty agent result carries no role, so its message node goes
// through the generic content branch.
func TestEmptyAgentNodeUsesGenericBranch(t *testing.T) {
	node := remediation.AgentResult(remediation.Empty()).Node().(map[string]any)
	message := node["result"].(map[string]any)["message"]
	if got := ResolveText(message); got != NoContentAvailable {
		t.Fatalf("expected generic sentinel, got %q", got)
	}
}

func TestResolveTextNilTypedOutput(t *testing.T) {
	var output *remediation.AgentOutput
	if got := ResolveText(output); got != NoContentAvailable {
		t.Fatalf("expected sentinel, got %q", got)
	}
}

func TestResolveTextEnvelopeRendersStructure(t *testing.T) {
	env := remediation.NewResultEnvelope()
	status := remediation.Completed()
	env.Status = &status
	got := ResolveText(env.Node())
	if !strings.Contains(got, "\"status\": \"completed\"") {
		t.Fatalf("expected structural rendering, got %q", got)
	}
}

func TestFirstText(t *testing.T) {
	populated := remediation.AgentResult(remediation.ContentList(remediation.TextItem("x")))
	empty := remediation.AgentResult(remediation.Empty())
	blank := remediation.ContentList(remediation.TextItem(""))

	if text, ok := FirstText(&populated); !ok || text != "x" {
		t.Fatalf("expected x, got %q %v", text, ok)
	}
	if _, ok := FirstText(&empty); ok {
		t.Fatal("empty output must not count as content")
	}
	if _, ok := FirstText(&blank); ok {
		t.Fatal("blank text must not count as content")
	}
	if _, ok := FirstText(nil); ok {
		t.Fatal("absent output must not count as content")
	}
}
