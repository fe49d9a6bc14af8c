package planner

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var promptFuncs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"join":  strings.Join,
}

func renderPrompt(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(promptFuncs).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// extractJSON strips surrounding whitespace and markdown code fences that some
// models add despite being asked for raw JSON.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
