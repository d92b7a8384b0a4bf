package logging

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vulnagent/internal/shared/utils"
)

// LogFileSnippet captures matched log lines for a single file.
type LogFileSnippet struct {
	Path      string   `json:"path,omitempty"`
	Entries   []string `json:"entries,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// ConversationLogs aggregates log snippets across categories for one conversation.
type ConversationLogs struct {
	ConversationID string         `json:"conversation_id"`
	Service        LogFileSnippet `json:"service"`
	Transport      LogFileSnippet `json:"transport"`
}

// LogFetchOptions tunes how much log data is returned.
type LogFetchOptions struct {
	Dir          string
	MaxEntries   int
	MaxBytes     int
	MaxLineBytes int
}

// FetchConversationLogs returns the log lines tagged with conversationID.
func FetchConversationLogs(conversationID string, opts LogFetchOptions) ConversationLogs {
	conversationID = strings.TrimSpace(conversationID)
	bundle := ConversationLogs{ConversationID: conversationID}
	if conversationID == "" {
		bundle.Service.Error = "conversation_id is required"
		bundle.Transport.Error = bundle.Service.Error
		return bundle
	}

	opts = normalizeLogFetchOptions(opts)
	logDir := opts.Dir
	if logDir == "" {
		dir, err := utils.LogDirectory()
		if err != nil {
			bundle.Service.Error = err.Error()
			bundle.Transport.Error = err.Error()
			return bundle
		}
		logDir = dir
	}

	needle := fmt.Sprintf("[conversation=%s]", conversationID)
	bundle.Service = readLogMatches(filepath.Join(logDir, utils.LogFileName(utils.LogCategoryService)), needle, opts)
	bundle.Transport = readLogMatches(filepath.Join(logDir, utils.LogFileName(utils.LogCategoryTransport)), needle, opts)
	return bundle
}

func normalizeLogFetchOptions(opts LogFetchOptions) LogFetchOptions {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 200
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 1 << 20
	}
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = 1 << 20
	}
	return opts
}

func readLogMatches(path, needle string, opts LogFetchOptions) LogFileSnippet {
	snippet := LogFileSnippet{Path: path}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			snippet.Error = "not_found"
		} else {
			snippet.Error = err.Error()
		}
		return snippet
	}
	defer func() { _ = file.Close() }()

	reader := bufio.NewReaderSize(file, 64*1024)
	matchedBytes := 0
	for {
		line, err := readLineString(reader, opts.MaxLineBytes)
		if err != nil {
			break
		}
		if line == "" || !strings.Contains(line, needle) {
			continue
		}
		snippet.Entries = append(snippet.Entries, line)
		matchedBytes += len(line)
		if len(snippet.Entries) >= opts.MaxEntries || matchedBytes >= opts.MaxBytes {
			snippet.Truncated = true
			break
		}
	}

	return snippet
}

// readLineString reads a single newline-terminated line from reader.
// Lines longer than maxBytes are drained and skipped.
func readLineString(reader *bufio.Reader, maxBytes int) (string, error) {
	var buf []byte
	oversize := false
	for {
		segment, isPrefix, err := reader.ReadLine()
		if err != nil {
			if len(buf) > 0 && !oversize {
				return string(buf), nil
			}
			return "", err
		}
		if oversize {
			if !isPrefix {
				oversize = false
			}
			continue
		}
		buf = append(buf, segment...)
		if len(buf) > maxBytes {
			buf = nil
			if isPrefix {
				oversize = true
			}
			continue
		}
		if !isPrefix {
			return string(buf), nil
		}
	}
}
