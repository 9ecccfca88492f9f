// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/yawarquil/advance-ai-chatbot/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML document with
// embedded CSS and syntax-highlighted code blocks.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}
	if len(conv.Messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(conv.Title)))
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", conv.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(e.getCSS())
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(conv))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING
// =============================================================================

// renderHeader renders the header section with metadata.
func (e *HTMLExporter) renderHeader(conv *model.Conversation) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(conv.Title)))
	sb.WriteString("            <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(conv.Messages)))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

// renderMessage renders a single message.
func (e *HTMLExporter) renderMessage(msg *model.Message) string {
	var sb strings.Builder

	roleClass := strings.ToLower(msg.Role.String())
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s-message\">\n", roleClass))

	sb.WriteString("                <div class=\"message-header\">\n")
	label := msg.Role.DisplayName()
	if msg.Role == model.RoleAssistant && msg.Responder != "" {
		label = msg.Responder
	}
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", html.EscapeString(label)))
	if e.options.IncludeTimestamps {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp)))
	}
	sb.WriteString("                </div>\n")

	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(e.formatContent(msg.Text))
	sb.WriteString("\n                </div>\n")

	if len(msg.Attachments) > 0 {
		sb.WriteString("                <div class=\"attachments\">\n")
		for _, att := range msg.Attachments {
			sb.WriteString(fmt.Sprintf("                    <span class=\"attachment\">%s (%s)</span>\n",
				html.EscapeString(att.Name), html.EscapeString(att.MimeType)))
		}
		sb.WriteString("                </div>\n")
	}

	sb.WriteString("            </div>\n")
	return sb.String()
}

// =============================================================================
// CONTENT FORMATTING
// =============================================================================

var (
	codeBlockRegex  = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)```")
	inlineCodeRegex = regexp.MustCompile("`([^`]+)`")
)

// formatContent converts message text to HTML: fenced code blocks get
// syntax highlighting via chroma, inline code gets <code> tags, and plain
// text is escaped and broken into paragraphs.
func (e *HTMLExporter) formatContent(content string) string {
	var sb strings.Builder
	last := 0

	for _, loc := range codeBlockRegex.FindAllStringSubmatchIndex(content, -1) {
		sb.WriteString(e.formatPlain(content[last:loc[0]]))
		lang := content[loc[2]:loc[3]]
		code := content[loc[4]:loc[5]]
		sb.WriteString(e.highlightCode(strings.TrimRight(code, "\n"), lang))
		last = loc[1]
	}
	sb.WriteString(e.formatPlain(content[last:]))

	return sb.String()
}

// formatPlain escapes non-code text and converts it into paragraphs with
// inline code markup.
func (e *HTMLExporter) formatPlain(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	escaped := html.EscapeString(text)
	escaped = inlineCodeRegex.ReplaceAllString(escaped, "<code class=\"inline-code\">$1</code>")

	var sb strings.Builder
	for _, para := range strings.Split(escaped, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(strings.ReplaceAll(para, "\n", "<br>\n"))
		sb.WriteString("</p>\n")
	}
	return sb.String()
}

// highlightCode renders a fenced code block with chroma, with inline
// styles so the document stands alone. Falls back to an escaped <pre>
// block when highlighting fails.
func (e *HTMLExporter) highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if e.options.Theme == "light" {
		styleName = "github"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4))

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return fmt.Sprintf("<pre><code>%s</code></pre>\n", html.EscapeString(code))
	}

	var buf strings.Builder
	buf.WriteString("<div class=\"code-block\">")
	if language != "" {
		buf.WriteString(fmt.Sprintf("<div class=\"code-lang\">%s</div>", html.EscapeString(language)))
	}
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return fmt.Sprintf("<pre><code>%s</code></pre>\n", html.EscapeString(code))
	}
	buf.WriteString("</div>\n")
	return buf.String()
}

// =============================================================================
// STYLES
// =============================================================================

// getCSS returns the embedded stylesheet.
func (e *HTMLExporter) getCSS() string {
	return `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            line-height: 1.6;
        }
        body.dark-theme { background: #1a1b26; color: #c0caf5; }
        body.light-theme { background: #fafafa; color: #24292e; }
        .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
        .header { margin-bottom: 2rem; padding-bottom: 1rem; border-bottom: 1px solid rgba(128,128,128,0.3); }
        .header h1 { font-size: 1.5rem; margin-bottom: 0.5rem; }
        .metadata { display: flex; gap: 1.5rem; flex-wrap: wrap; font-size: 0.85rem; opacity: 0.8; }
        .message { margin-bottom: 1.5rem; padding: 1rem; border-radius: 8px; }
        .dark-theme .user-message { background: #24283b; }
        .dark-theme .assistant-message { background: #1f2335; }
        .light-theme .user-message { background: #e8eef7; }
        .light-theme .assistant-message { background: #f0f0f0; }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 0.5rem; }
        .role-label { font-weight: 600; }
        .timestamp { font-size: 0.8rem; opacity: 0.6; }
        .message-content p { margin-bottom: 0.75rem; }
        .inline-code {
            font-family: "SF Mono", Consolas, monospace;
            font-size: 0.9em;
            padding: 0.1em 0.35em;
            border-radius: 4px;
            background: rgba(128,128,128,0.2);
        }
        .code-block { margin: 0.75rem 0; border-radius: 8px; overflow: hidden; }
        .code-block pre { padding: 1rem; overflow-x: auto; font-size: 0.9rem; }
        .code-lang {
            font-size: 0.75rem;
            padding: 0.25rem 1rem;
            background: rgba(128,128,128,0.25);
            text-transform: uppercase;
            letter-spacing: 0.05em;
        }
        .attachments { margin-top: 0.5rem; font-size: 0.85rem; opacity: 0.7; }
        .attachment { margin-right: 1rem; }
        .footer { margin-top: 2rem; padding-top: 1rem; border-top: 1px solid rgba(128,128,128,0.3); font-size: 0.85rem; opacity: 0.7; }
    </style>
`
}
