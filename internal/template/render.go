// Package template implements placeholder substitution for node text.
// Templates use {{name}} placeholders; unknown placeholders pass through
// unchanged, so rendering never fails.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRE = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Render substitutes {{name}} placeholders in tmpl with values from vars.
// Placeholder names are trimmed of surrounding whitespace. A placeholder with
// no matching variable is left verbatim in the output.
func Render(tmpl string, vars map[string]any) string {
	return placeholderRE.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		value, ok := vars[name]
		if !ok {
			return match
		}
		if s, isString := value.(string); isString {
			return s
		}
		return fmt.Sprintf("%v", value)
	})
}
