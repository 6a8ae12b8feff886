// Package render substitutes {{field}} placeholders in subject and body
// templates with values from a recipient row.
package render

import "strings"

// Render replaces every literal {{header}} occurrence with the row's value
// for that header. Matching is case-sensitive. Placeholders with no
// matching header are left verbatim. Pure function of its inputs.
func Render(template string, row map[string]string) string {
	out := template
	for header, value := range row {
		out = strings.ReplaceAll(out, "{{"+header+"}}", value)
	}
	return out
}
