package presentation

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	jsonx "vulnagent/internal/shared/json"
)

// Format names accepted by NewRenderer.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Renderer writes a view.
type Renderer interface {
	Render(w io.Writer, view View) error
}

// TextOptions configures the terminal renderer.
type TextOptions struct {
	Color    bool
	Markdown bool
	Width    int
}

// NewRenderer returns the renderer for format. An empty format means text.
func NewRenderer(format string, opts TextOptions) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return NewTextRenderer(opts)
	case FormatJSON:
		return JSONRenderer{}, nil
	case FormatYAML, "yml":
		return YAMLRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want text, json or yaml)", format)
	}
}

// TextRenderer prints titled sections for a terminal.
type TextRenderer struct {
	title    *color.Color
	errColor *color.Color
	notice   *color.Color
	muted    *color.Color
	markdown *MarkdownRenderer
}

// NewTextRenderer creates a text renderer.
func NewTextRenderer(opts TextOptions) (*TextRenderer, error) {
	r := &TextRenderer{
		title:    color.New(color.FgCyan, color.Bold),
		errColor: color.New(color.FgRed),
		notice:   color.New(color.FgYellow),
		muted:    color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{r.title, r.errColor, r.notice, r.muted} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	if opts.Markdown {
		md, err := NewMarkdownRenderer(opts.Width, !opts.Color)
		if err != nil {
			return nil, err
		}
		r.markdown = md
	}
	return r, nil
}

// Render implements Renderer.
func (r *TextRenderer) Render(w io.Writer, view View) error {
	var b strings.Builder
	if view.Error != "" {
		b.WriteString(r.errColor.Sprintf("Error: %s", view.Error))
		b.WriteString("\n")
	}
	for i, section := range view.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.title.Sprint(section.Title))
		b.WriteString("\n")
		b.WriteString(r.markdown.RenderIfMarkdown(section.Content))
		b.WriteString("\n")
	}
	if view.Overridden {
		b.WriteString(r.muted.Sprint("(handoff requested without content; treated as completed)"))
		b.WriteString("\n")
	}
	if view.AwaitingInput {
		b.WriteString("\n")
		b.WriteString(r.notice.Sprint(view.HumanPrompt))
		b.WriteString("\n")
		if view.ConversationID != "" {
			b.WriteString(r.muted.Sprintf("conversation: %s", view.ConversationID))
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// JSONRenderer writes the view as indented JSON.
type JSONRenderer struct{}

// Render implements Renderer.
func (JSONRenderer) Render(w io.Writer, view View) error {
	data, err := jsonx.MarshalIndent(view, "", "  ")
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// YAMLRenderer writes the view as YAML.
type YAMLRenderer struct{}

// Render implements Renderer.
func (YAMLRenderer) Render(w io.Writer, view View) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	return enc.Close()
}
