package presentation

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	defaultWrapWidth = 80
	maxWrapWidth     = 120
)

// MarkdownRenderer renders section content that looks like markdown.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a glamour renderer. plainText selects the
// colourless "notty" style.
func NewMarkdownRenderer(width int, plainText bool) (*MarkdownRenderer, error) {
	if width <= 0 {
		width = defaultWrapWidth
	}
	if width > maxWrapWidth {
		width = maxWrapWidth
	}

	style := glamour.WithStandardStyle("dark")
	if plainText {
		style = glamour.WithStandardStyle("notty")
	}

	renderer, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &MarkdownRenderer{renderer: renderer}, nil
}

// RenderIfMarkdown renders content when it looks like markdown and returns it
// unchanged otherwise, or when rendering fails.
func (mr *MarkdownRenderer) RenderIfMarkdown(content string) string {
	if mr == nil || !ShouldRenderAsMarkdown(content) {
		return content
	}
	rendered, err := mr.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// ShouldRenderAsMarkdown skips short or single-phrase content.
func ShouldRenderAsMarkdown(content string) bool {
	if len(strings.TrimSpace(content)) < 10 {
		return false
	}
	if !strings.Contains(content, "\n") && len(strings.Fields(content)) < 3 {
		return false
	}
	return IsMarkdown(content)
}

var markdownIndicators = []string{
	"# ",
	"```",
	"- ",
	"* ",
	"1. ",
	"![",
	"|---|",
}

// IsMarkdown detects common markdown constructs.
func IsMarkdown(content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}
	for _, indicator := range markdownIndicators {
		if strings.Contains(content, indicator) {
			return true
		}
	}
	if strings.Contains(content, "[") && strings.Contains(content, "](") {
		return true
	}
	if strings.Count(content, "**") >= 2 || strings.Count(content, "`") >= 2 {
		return true
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "> ") {
			return true
		}
	}
	return false
}
