// Package markup renders the small formatting subset allowed in task notes:
// **bold**, *italic*, `code`, "- " list items and line breaks.
package markup

import (
	"html"
	"regexp"
	"strings"
)

var (
	boldRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe = regexp.MustCompile(`\*([^*\n]+?)\*`)
	codeRe   = regexp.MustCompile("`([^`\n]+?)`")
)

type tags struct {
	bold, italic, code string
}

// inline styles one line. Code spans are rendered as-is and the text between
// them is styled piece by piece.
func (t tags) inline(line string) string {
	var b strings.Builder
	last := 0
	for _, m := range codeRe.FindAllStringSubmatchIndex(line, -1) {
		b.WriteString(t.style(line[last:m[0]]))
		b.WriteString("<" + t.code + ">" + line[m[2]:m[3]] + "</" + t.code + ">")
		last = m[1]
	}
	b.WriteString(t.style(line[last:]))
	return b.String()
}

func (t tags) style(text string) string {
	text = boldRe.ReplaceAllString(text, "<"+t.bold+">$1</"+t.bold+">")
	return italicRe.ReplaceAllString(text, "<"+t.italic+">$1</"+t.italic+">")
}

func listItem(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "- ") {
		return strings.TrimSpace(trimmed[2:]), true
	}
	return line, false
}

func normalize(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(html.EscapeString(s), "\n")
}

// HTML renders notes for a web page.
func HTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	style := tags{bold: "strong", italic: "em", code: "code"}

	var b strings.Builder
	for i, line := range normalize(s) {
		if item, ok := listItem(line); ok {
			b.WriteString("<li>" + style.inline(item) + "</li>")
			continue
		}
		if i > 0 {
			b.WriteString("<br>")
		}
		b.WriteString(style.inline(line))
	}
	return b.String()
}

// Telegram renders notes for a Telegram HTML message, which has no <br> or
// <li> tags.
func Telegram(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	style := tags{bold: "b", italic: "i", code: "code"}

	lines := normalize(s)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if item, ok := listItem(line); ok {
			out = append(out, "• "+style.inline(item))
			continue
		}
		out = append(out, style.inline(line))
	}
	return strings.Join(out, "\n")
}
