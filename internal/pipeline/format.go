package pipeline

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/meddocs/constants"
)

// FormatRendering renders one language slot for display. translatedFrom is
// the source language name, or "" when the text was not translated.
func FormatRendering(category constants.Category, language, translatedFrom, summary, fullText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DOCUMENT TYPE: %s\n", category)
	fmt.Fprintf(&b, "LANGUAGE: %s\n", language)
	if translatedFrom != "" {
		fmt.Fprintf(&b, "[TRANSLATED FROM %s TO %s]\n", strings.ToUpper(translatedFrom), strings.ToUpper(language))
	}
	b.WriteString("\nSUMMARY:\n")
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n\nFULL DOCUMENT CONTENT:\n")
	b.WriteString(strings.TrimSpace(fullText))
	b.WriteByte('\n')
	return b.String()
}
