package summarize

import (
	"regexp"
	"strings"
	"sync"

	"github.com/joseph-ayodele/meddocs/internal/utils"
)

// DefaultSectionLen caps extracted sections.
const DefaultSectionLen = 500

var anchorCache sync.Map // string -> *regexp.Regexp

func anchorRegexp(anchor string) *regexp.Regexp {
	key := strings.ToLower(strings.TrimSpace(anchor))
	if re, ok := anchorCache.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	parts := strings.Fields(key)
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	re := regexp.MustCompile(`(?i)\b` + strings.Join(parts, `\s+`) + `\b`)
	actual, _ := anchorCache.LoadOrStore(key, re)
	return actual.(*regexp.Regexp)
}

var keywordCache sync.Map // string -> *regexp.Regexp

// keywordRegexp matches kw at a word start, extended over inflections.
func keywordRegexp(kw string) *regexp.Regexp {
	key := strings.ToLower(strings.TrimSpace(kw))
	if re, ok := keywordCache.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	parts := strings.Fields(key)
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	re := regexp.MustCompile(`(?i)\b` + strings.Join(parts, `\s+`) + `\w*`)
	actual, _ := keywordCache.LoadOrStore(key, re)
	return actual.(*regexp.Regexp)
}

// ExtractSection returns the text after the first anchor (tried in order)
// found in text, up to the earliest following occurrence of any stop other
// than the matched anchor, or to the end of text. The result is trimmed and
// truncated to maxLen runes with "...". It returns "" when no anchor matches.
func ExtractSection(text string, anchors, stops []string, maxLen int) string {
	for _, anchor := range anchors {
		loc := anchorRegexp(anchor).FindStringIndex(text)
		if loc == nil {
			continue
		}
		start := loc[1]
		end := len(text)
		for _, stop := range stops {
			if strings.EqualFold(strings.TrimSpace(stop), strings.TrimSpace(anchor)) {
				continue
			}
			if s := anchorRegexp(stop).FindStringIndex(text[start:]); s != nil && start+s[0] < end {
				end = start + s[0]
			}
		}
		section := strings.TrimLeft(text[start:end], " \t:-")
		section = strings.TrimSpace(section)
		return utils.Truncate(section, maxLen)
	}
	return ""
}

// KeywordSentences returns up to max sentences that mention any keyword or
// an inflection of it.
func KeywordSentences(text string, keywords []string, max int) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, s := range utils.SplitSentences(text) {
		if len(out) >= max {
			break
		}
		for _, kw := range keywords {
			if keywordRegexp(kw).MatchString(s) {
				c := utils.CollapseWhitespace(s)
				if _, dup := seen[c]; !dup {
					seen[c] = struct{}{}
					out = append(out, c)
				}
				break
			}
		}
	}
	return out
}

// bullets renders lines as "• line", skipping blanks.
func bullets(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		l = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(l), "*•-"))
		if l == "" {
			continue
		}
		b.WriteString("• ")
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// sectionBullets splits a section into lines and bullets them.
func sectionBullets(section string) string {
	return bullets(strings.Split(section, "\n"))
}
