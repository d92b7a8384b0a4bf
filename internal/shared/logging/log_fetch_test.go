package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFetchConversationLogsMatchesTaggedLines(t *testing.T) {
	dir := t.TempDir()
	service := strings.Join([]string{
		"2026-01-01 10:00:00 [INFO] [SERVICE] [handoff] [conversation=conv-1] machine.go:10 - awaiting",
		"2026-01-01 10:00:01 [INFO] [SERVICE] [handoff] [conversation=conv-2] machine.go:10 - awaiting",
		"2026-01-01 10:00:02 [INFO] [SERVICE] [handoff] machine.go:12 - completed",
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "vulnagent-service.log"), []byte(service), 0o644); err != nil {
		t.Fatalf("write service log: %v", err)
	}

	bundle := FetchConversationLogs("conv-1", LogFetchOptions{Dir: dir})
	if len(bundle.Service.Entries) != 1 {
		t.Fatalf("expected 1 service entry, got %d: %v", len(bundle.Service.Entries), bundle.Service.Entries)
	}
	if !strings.Contains(bundle.Service.Entries[0], "conv-1") {
		t.Fatalf("unexpected entry %q", bundle.Service.Entries[0])
	}
	if bundle.Transport.Error != "not_found" {
		t.Fatalf("expected transport not_found, got %q", bundle.Transport.Error)
	}
}

func TestFetchConversationLogsTruncates(t *testing.T) {
	dir := t.TempDir()
	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, "[conversation=c] line")
	}
	if err := os.WriteFile(filepath.Join(dir, "vulnagent-transport.log"), []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write transport log: %v", err)
	}

	bundle := FetchConversationLogs("c", LogFetchOptions{Dir: dir, MaxEntries: 2})
	if len(bundle.Transport.Entries) != 2 || !bundle.Transport.Truncated {
		t.Fatalf("expected truncated 2 entries, got %+v", bundle.Transport)
	}
}

func TestFetchConversationLogsRequiresID(t *testing.T) {
	bundle := FetchConversationLogs("  ", LogFetchOptions{})
	if bundle.Service.Error == "" || bundle.Transport.Error == "" {
		t.Fatalf("expected errors for empty id, got %+v", bundle)
	}
}

func TestOrNopHandlesTypedNil(t *testing.T) {
	var rec *recordingLogger
	if _, ok := OrNop(rec).(nopLogger); !ok {
		t.Fatal("expected nop logger for a nil pointer receiver")
	}
	if _, ok := OrNop(nil).(nopLogger); !ok {
		t.Fatal("expected nop logger for nil")
	}
}

func TestWithConversationPassesThroughOtherLoggers(t *testing.T) {
	rec := &recordingLogger{}
	if got := WithConversation(rec, "conv-1"); got != rec {
		t.Fatalf("expected passthrough, got %T", got)
	}
	if _, ok := WithConversation(nil, "conv-1").(nopLogger); !ok {
		t.Fatal("expected nop logger for nil input")
	}
}

type recordingLogger struct{ lines []string }

func (r *recordingLogger) Debug(format string, args ...any) { r.lines = append(r.lines, format) }
func (r *recordingLogger) Info(format string, args ...any)  { r.lines = append(r.lines, format) }
func (r *recordingLogger) Warn(format string, args ...any)  { r.lines = append(r.lines, format) }
func (r *recordingLogger) Error(format string, args ...any) { r.lines = append(r.lines, format) }
