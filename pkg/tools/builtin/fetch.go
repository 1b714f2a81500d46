package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"golang.org/x/net/html"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

// FetchTool fetches a URL and returns its content as plain text.
type FetchTool struct {
	client *http.Client
}

func NewFetchTool() *FetchTool {
	return &FetchTool{
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

func (t *FetchTool) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name: "fetch_url",
		Description: "Fetch a web page and return its content as readable plain text. " +
			"HTML is reduced to text; other content types are returned as-is. " +
			"Output is capped at 50 KB.",
		Parameters: tools.MustSchema(tools.SimpleSchema{
			Properties: map[string]tools.Property{
				"url": {Type: "string", Description: "The URL to fetch"},
			},
			Required: []string{"url"},
		}),
	}
}

func (t *FetchTool) Execute(ctx context.Context, _ string, params map[string]any) (tools.Result, error) {
	rawURL, _ := params["url"].(string)
	if rawURL == "" {
		return tools.ErrorResult(fmt.Errorf("url is required")), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return tools.ErrorResult(fmt.Errorf("fetch %s: %w", rawURL, err)), nil
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; agenttracks-fetch/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := t.client.Do(req)
	if err != nil {
		return tools.ErrorResult(fmt.Errorf("fetch %s: %w", rawURL, err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return tools.ErrorResult(fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)), nil
	}

	limited := io.LimitReader(resp.Body, int64(DefaultMaxBytes)+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return tools.ErrorResult(fmt.Errorf("fetch %s: read body: %w", rawURL, err)), nil
	}
	truncated := len(body) > DefaultMaxBytes
	if truncated {
		body = body[:DefaultMaxBytes]
	}

	ct := resp.Header.Get("Content-Type")
	var text string
	if strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml") {
		text = extractText(body)
	} else {
		text = string(body)
	}

	if truncated {
		text = strings.TrimRight(text, "\n") +
			fmt.Sprintf("\n\n[Content truncated at %s]", FormatSize(DefaultMaxBytes))
	}
	return tools.TextResult(text), nil
}

// extractText converts HTML bytes to readable plain text: scripts, styles and
// chrome are dropped, block elements become newlines, headings get a #
// prefix, and list items get bullets.
func extractText(data []byte) string {
	doc, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return dropMarkup(string(data))
	}
	var sb strings.Builder
	writeNode(&sb, doc)
	return tidyLines(sb.String())
}

// droppedTags are elements whose entire subtree is suppressed.
var droppedTags = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true,
	"svg": true, "iframe": true, "object": true, "embed": true,
	"nav": true, "footer": true, "form": true, "button": true,
}

// lineBreakTags emit a newline before and after their content.
var lineBreakTags = map[string]bool{
	"p": true, "div": true, "blockquote": true,
	"section": true, "article": true, "main": true, "aside": true,
	"li": true, "dt": true, "dd": true, "tr": true, "td": true, "th": true,
	"figure": true, "figcaption": true,
}

func writeNode(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	if n.Type != html.ElementNode && n.Type != html.DocumentNode {
		writeChildren(sb, n)
		return
	}

	tag := n.Data
	if droppedTags[tag] {
		return
	}

	switch {
	case tag == "br":
		sb.WriteByte('\n')

	case tag == "hr":
		sb.WriteString("\n---\n")

	case len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6':
		sb.WriteString("\n" + strings.Repeat("#", int(tag[1]-'0')) + " ")
		writeChildren(sb, n)
		sb.WriteString("\n\n")

	case tag == "ul" || tag == "ol":
		item := 0
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || c.Data != "li" {
				continue
			}
			item++
			if tag == "ol" {
				fmt.Fprintf(sb, "\n%d. ", item)
			} else {
				sb.WriteString("\n- ")
			}
			writeChildren(sb, c)
		}
		sb.WriteByte('\n')

	case tag == "pre":
		sb.WriteString("\n```\n")
		writeChildren(sb, n)
		sb.WriteString("\n```\n")

	case lineBreakTags[tag]:
		sb.WriteByte('\n')
		writeChildren(sb, n)
		sb.WriteByte('\n')

	default:
		writeChildren(sb, n)
	}
}

func writeChildren(sb *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(sb, c)
	}
}

// tidyLines trims every line and collapses runs of blank lines to one.
func tidyLines(s string) string {
	var out []string
	prevBlank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimFunc(line, unicode.IsSpace)
		if line == "" {
			if !prevBlank {
				out = append(out, "")
			}
			prevBlank = true
			continue
		}
		prevBlank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// dropMarkup is the fallback for unparseable HTML: everything between
// angle brackets is removed.
func dropMarkup(s string) string {
	var sb strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				sb.WriteRune(r)
			}
		}
	}
	return tidyLines(sb.String())
}
