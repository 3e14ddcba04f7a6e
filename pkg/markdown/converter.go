// Package markdown renders reply texts authored in Markdown into the HTML
// subset Telegram accepts.
package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	paragraphRe = regexp.MustCompile(`<p>((?s).*?)</p>`)
	codeBlockRe = regexp.MustCompile(`<pre><code(?: class="[^"]*")?>((?s).*?)</code></pre>`)
	tagRe       = regexp.MustCompile(`</?([a-zA-Z]+)(?:\s[^>]*)?/?>`)
	newlinesRe  = regexp.MustCompile(`\n{3,}`)
)

// Telegram only understands a handful of inline tags; everything else must go.
var supportedTags = map[string]bool{
	"b": true, "i": true, "u": true, "s": true,
	"code": true, "pre": true, "a": true,
}

// ToTelegramHTML converts Markdown to Telegram-compatible HTML
func ToTelegramHTML(source string) string {
	if source == "" {
		return ""
	}

	html := string(blackfriday.Run([]byte(source), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	html = paragraphRe.ReplaceAllString(html, "$1\n")
	html = codeBlockRe.ReplaceAllString(html, "<pre>$1</pre>")

	html = strings.NewReplacer(
		"<strong>", "<b>", "</strong>", "</b>",
		"<em>", "<i>", "</em>", "</i>",
		"<ul>", "", "</ul>", "",
		"<ol>", "", "</ol>", "",
		"<li>", "• ", "</li>", "\n",
	).Replace(html)

	html = tagRe.ReplaceAllStringFunc(html, func(match string) string {
		name := strings.ToLower(strings.Trim(tagRe.FindStringSubmatch(match)[1], "/"))
		if supportedTags[name] {
			return match
		}
		if name == "br" {
			return "\n"
		}
		return ""
	})

	html = newlinesRe.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}
