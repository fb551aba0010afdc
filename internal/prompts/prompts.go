// Package prompts holds the reasoning-service prompt templates and the
// {{variable}} renderer used to fill them.
package prompts

import (
	"regexp"

	"github.com/rs/zerolog/log"
)

// varPattern matches {{variable}} placeholders.
var varPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render substitutes {{variable}} placeholders with values from vars in a
// single pass over template. Substituted values are never re-expanded.
// Placeholders without a value are left in place and logged.
func Render(template string, vars map[string]string) string {
	var missing []string
	result := varPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[2 : len(m)-2]
		if val, ok := vars[name]; ok {
			return val
		}
		missing = append(missing, name)
		return m
	})
	if len(missing) > 0 {
		log.Debug().Strs("missing", missing).Msg("Prompt rendered with unfilled placeholders")
	}
	return result
}

// Variables returns the distinct placeholder names in template, in order of
// first appearance.
func Variables(template string) []string {
	matches := varPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool)
	var vars []string
	for _, m := range matches {
		if len(m) > 1 && !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}
	return vars
}
