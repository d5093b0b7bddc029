package enrich

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ingestly/ingestly/internal/pipeline"
)

// Ellipsis marks a truncated post.
const Ellipsis = "..."

// BuildPrompt asks for one informative, lightly funny post about records,
// at most maxChars long.
func BuildPrompt(records []pipeline.Record, maxChars int) string {
	var articles strings.Builder
	for i, r := range records {
		title := r.Title
		if title == "" {
			title = "No title"
		}
		desc := r.Body
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(&articles, "%d. %s\n   %s\n\n", i+1, title, desc)
	}

	return fmt.Sprintf(`Based on these top %d Indian news articles, create a single informational yet funny tweet (max %d characters).
The tweet should:
1. Be informative and capture key news points
2. Add a touch of humor without being insensitive
3. Be engaging for social media
4. Stay within Twitter's character limit
5. Use appropriate emojis if suitable

News Articles:
%s
Create just the tweet text, nothing else:
`, len(records), maxChars, articles.String())
}

// Truncate caps s at maxChars characters, counted as runes after NFC
// normalization. Longer text keeps its first maxChars-3 characters followed
// by Ellipsis; text at or under the cap is returned normalized but
// otherwise unchanged.
func Truncate(s string, maxChars int) string {
	s = norm.NFC.String(s)
	runes := []rune(s)
	if maxChars <= 0 || len(runes) <= maxChars {
		return s
	}
	if maxChars <= len(Ellipsis) {
		return string(runes[:maxChars])
	}
	return string(runes[:maxChars-len(Ellipsis)]) + Ellipsis
}
