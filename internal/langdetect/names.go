package langdetect

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var namer = display.Tags(language.English)

// Name returns the English display name for a language code, or
// "Unknown (<code>)" when the code cannot be resolved.
func Name(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown ()"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return fmt.Sprintf("Unknown (%s)", code)
	}
	if name := namer.Name(tag); name != "" {
		return name
	}
	return fmt.Sprintf("Unknown (%s)", code)
}

// BaseCode reduces a tag like "de-AT" to "de".
func BaseCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		return code[:i]
	}
	return code
}
