package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv expands environment variables in YAML catalog content using Go
// templates with {{.VAR_NAME}} syntax. Plain $ characters pass through
// untouched, so regex patterns and literal shell snippets in catalog values
// are never mangled.
//
// Missing variables expand to empty string. On template parse or execution
// failure the original data is returned so the YAML parser surfaces the
// clearer error.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("catalog").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	envMap := make(map[string]string)
	for _, env := range os.Environ() {
		if idx := strings.IndexByte(env, '='); idx > 0 {
			envMap[env[:idx]] = env[idx+1:]
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, envMap); err != nil {
		return data
	}
	return buf.Bytes()
}
