package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"unicode"

	md "github.com/JohannesKaufmann/html-to-markdown"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/golovatskygroup/mcp-atlas/pkg/mcp"
)

type storageConvertInput struct {
	Storage string `json:"storage"`
}

func (h *Handler) confluenceStorageToText(_ context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input storageConvertInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	if strings.TrimSpace(input.Storage) == "" {
		return errorResult("storage is required"), nil
	}

	text, err := storageToText(input.Storage)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"text":  text,
		"chars": len([]rune(text)),
	}), nil
}

func (h *Handler) confluenceStorageToMarkdown(_ context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input storageConvertInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	if strings.TrimSpace(input.Storage) == "" {
		return errorResult("storage is required"), nil
	}

	// CDATA wrappers (code macros) confuse the HTML parser underneath the
	// converter; unwrap them first.
	conv := md.NewConverter("", true, &md.Options{
		EmDelimiter:     "*",
		StrongDelimiter: "**",
	})
	out, err := conv.ConvertString(stripCDATA(input.Storage))
	if err != nil {
		return errorResult("failed to convert storage format: " + err.Error()), nil
	}
	return jsonResult(map[string]any{
		"markdown": out,
		"chars":    len([]rune(out)),
	}), nil
}

// storageToText renders Confluence storage-format XHTML as plain text,
// resolving the ri: link targets that the storage format uses instead of
// hrefs.
func storageToText(input string) (string, error) {
	nodes, err := xhtml.ParseFragment(strings.NewReader(stripCDATA(input)),
		&xhtml.Node{Type: xhtml.ElementNode, DataAtom: atom.Div, Data: "div"})
	if err != nil {
		return "", fmt.Errorf("failed to parse storage format: %w", err)
	}

	r := &textRenderer{}
	for _, n := range nodes {
		r.walk(n, false)
	}
	return strings.TrimSpace(r.finalize()), nil
}

// stripCDATA unwraps <![CDATA[...]]> sections, which Confluence uses for
// code macro bodies.
func stripCDATA(s string) string {
	const open = "<![CDATA["
	const close = "]]>"
	for {
		i := strings.Index(s, open)
		if i < 0 {
			return s
		}
		j := strings.Index(s[i+len(open):], close)
		if j < 0 {
			return s
		}
		j = i + len(open) + j
		s = s[:i] + s[i+len(open):j] + s[j+len(close):]
	}
}

type textRenderer struct {
	sb         strings.Builder
	listDepth  int
	needSpace  bool
	lastNL     bool
	trailingNL int
}

func blockTag(tag string) bool {
	switch tag {
	case "p", "div", "section", "article",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"pre", "blockquote",
		"table", "thead", "tbody", "tr", "th", "td",
		"ac:structured-macro", "ac:rich-text-body", "ac:plain-text-body":
		return true
	default:
		return false
	}
}

func attrValue(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func (r *textRenderer) walk(n *xhtml.Node, inPre bool) {
	switch n.Type {
	case xhtml.TextNode:
		r.writeText(n.Data, inPre)
		return
	case xhtml.ElementNode:
		// The tokenizer keeps namespaced Confluence tags verbatim
		// (e.g. "ac:structured-macro", "ri:page").
		tag := strings.ToLower(strings.TrimSpace(n.Data))

		if tag == "br" {
			r.newline(1)
			return
		}

		block := blockTag(tag)
		if block {
			r.newline(1)
		}
		nextInPre := inPre || tag == "pre" || tag == "code" || strings.Contains(tag, "plain-text-body")

		switch tag {
		case "ul", "ol":
			r.listDepth++
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				r.walk(c, nextInPre)
			}
			r.listDepth--
			r.newline(1)
			return
		case "li":
			r.newline(1)
			if r.listDepth > 1 {
				r.sb.WriteString(strings.Repeat("  ", r.listDepth-1))
			}
			r.sb.WriteString("- ")
			r.needSpace = false
			r.lastNL = false
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				r.walk(c, nextInPre)
			}
			r.newline(1)
			return
		case "ri:url":
			if v := attrValue(n, "ri:value"); v != "" {
				r.writeText(v, inPre)
			}
		case "ri:page":
			if v := attrValue(n, "ri:content-title"); v != "" {
				r.writeText(v, inPre)
			}
		case "ri:attachment":
			if v := attrValue(n, "ri:filename"); v != "" {
				r.writeText(v, inPre)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.walk(c, nextInPre)
		}
		if block {
			r.newline(2)
		}
	}
}

func (r *textRenderer) writeText(s string, inPre bool) {
	if s == "" {
		return
	}
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")

	if inPre {
		if r.needSpace {
			r.sb.WriteByte(' ')
			r.trailingNL = 0
			r.lastNL = false
		}
		r.sb.WriteString(s)
		r.needSpace = false
		r.lastNL = strings.HasSuffix(s, "\n")
		r.trailingNL = countTrailingNewlines(s)
		return
	}

	for _, c := range s {
		if unicode.IsSpace(c) {
			r.needSpace = true
			continue
		}
		if r.needSpace && r.sb.Len() > 0 && !r.lastNL {
			r.sb.WriteByte(' ')
		}
		r.needSpace = false
		r.lastNL = false
		r.trailingNL = 0
		r.sb.WriteRune(c)
	}
}

func (r *textRenderer) newline(n int) {
	if n <= 0 {
		return
	}
	r.needSpace = false
	if r.trailingNL >= n {
		r.lastNL = true
		return
	}
	for i := r.trailingNL; i < n; i++ {
		r.sb.WriteByte('\n')
		r.trailingNL++
	}
	r.lastNL = true
}

func (r *textRenderer) finalize() string {
	lines := strings.Split(r.sb.String(), "\n")
	for i := range lines {
		lines[i] = strings.TrimRightFunc(lines[i], unicode.IsSpace)
	}
	// At most one blank line between blocks.
	var out []string
	blanks := 0
	for _, line := range lines {
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func countTrailingNewlines(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\n'; i-- {
		n++
	}
	return n
}
