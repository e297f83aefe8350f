package feedback

import (
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"join": func(items []string) string { return strings.Join(items, ", ") },
	"first": func(n int, items []string) []string {
		if n < len(items) {
			return items[:n]
		}
		return items
	},
}

const narrative = `
{{- if eq .Strength "Top Contender" -}}
This candidate is an exceptional match ({{ .Score }}%), demonstrating strong alignment with the role.
{{- if .HasRequirements }} The resume covers {{ .Matched }} of {{ .Required }} technical skills mentioned in the job description.{{ end }}
They appear to be a top-tier fit for this role.
{{- else if eq .Strength "Strong Potential" -}}
This candidate shows good potential ({{ .Score }}%) with a solid technical foundation.
{{- if .Missing }} While they match the general profile, consider verifying experience with: {{ join (first 3 .Missing) }}.{{ end }}
They are likely a strong learner who can adapt quickly.
{{- else -}}
The candidate's profile ({{ .Score }}%) has limited overlap with this role.
{{- if .Missing }} Key technologies from the job description appear to be missing: {{ join (first 3 .Missing) }}.{{ end }}
{{- end }}`

const concise = `
{{- .Strength }} ({{ .Score }}%).
{{- if .HasRequirements }} Matched {{ .Matched }}/{{ .Required }} required skills.
{{- if .Missing }} Missing: {{ join .Missing }}.{{ end }}
{{- else }} No specific skills detected in the job description.{{ end }}`

var builtin = map[Style]string{
	StyleNarrative: narrative,
	StyleConcise:   concise,
}
