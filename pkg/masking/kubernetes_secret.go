package masking

import (
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// redactedSecretData replaces every value under data/stringData of a
// Kubernetes Secret.
const redactedSecretData = "__REDACTED_SECRET_DATA__"

// Cheap pre-checks so the parsers only run on content that can contain a
// Secret manifest.
var (
	yamlSecretKind = regexp.MustCompile(`(?m)^kind:\s*Secret`)
	jsonSecretKind = regexp.MustCompile(`"kind"\s*:\s*"Secret`)
)

// SecretManifestMasker blanks data and stringData values in Kubernetes
// Secret manifests that surface in log tails and tool output (kubectl
// yaml/json dumps, last-applied annotations). ConfigMaps and other kinds
// pass through untouched.
type SecretManifestMasker struct{}

func (SecretManifestMasker) Name() string { return "kubernetes_secret" }

func (SecretManifestMasker) AppliesTo(content string) bool {
	if !strings.Contains(content, "Secret") {
		return false
	}
	return yamlSecretKind.MatchString(content) || jsonSecretKind.MatchString(content)
}

// Mask parses the content as JSON or YAML and blanks secret values. Any
// parse or re-encode failure returns the content unchanged; the regex
// sweep still runs afterwards.
func (SecretManifestMasker) Mask(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if masked := maskSecretJSON(content); masked != content {
			return masked
		}
	}
	return maskSecretYAML(content)
}

// maskSecretYAML handles multi-document YAML; only documents containing a
// Secret cause a re-encode.
func maskSecretYAML(content string) string {
	dec := yaml.NewDecoder(strings.NewReader(content))
	var docs []map[string]any
	changed := false
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return content
		}
		if doc == nil {
			continue
		}
		if blankSecretValues(doc) {
			changed = true
		}
		docs = append(docs, doc)
	}
	if !changed || len(docs) == 0 {
		return content
	}

	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return content
		}
	}
	if err := enc.Close(); err != nil {
		return content
	}
	out := strings.TrimRight(buf.String(), "\n")
	if strings.HasSuffix(content, "\n") {
		out += "\n"
	}
	return out
}

func maskSecretJSON(content string) string {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return content
	}
	if !blankSecretValues(obj) {
		return content
	}
	out, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return content
	}
	if strings.HasSuffix(content, "\n") {
		return string(out) + "\n"
	}
	return string(out)
}

// blankSecretValues walks one manifest, blanking secret values on Secret
// resources, SecretList items (which carry no kind of their own), generic
// List items, and secrets embedded in annotations. Reports whether
// anything changed.
func blankSecretValues(doc map[string]any) bool {
	kind, _ := doc["kind"].(string)
	switch {
	case kind == "Secret":
		blankDataMaps(doc)
		blankAnnotationSecrets(doc)
		return true
	case kind == "SecretList":
		changed := false
		for _, item := range listItems(doc) {
			blankDataMaps(item)
			changed = true
		}
		return changed
	case strings.HasSuffix(kind, "List"):
		changed := false
		for _, item := range listItems(doc) {
			if blankSecretValues(item) {
				changed = true
			}
		}
		return changed
	}
	return false
}

func listItems(doc map[string]any) []map[string]any {
	raw, _ := doc["items"].([]any)
	items := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

func blankDataMaps(secret map[string]any) {
	for _, field := range []string{"data", "stringData"} {
		values, ok := secret[field].(map[string]any)
		if !ok {
			continue
		}
		for key := range values {
			values[key] = redactedSecretData
		}
	}
}

// blankAnnotationSecrets covers the last-applied-configuration annotation,
// which carries a JSON copy of the Secret including its data.
func blankAnnotationSecrets(secret map[string]any) {
	metadata, _ := secret["metadata"].(map[string]any)
	annotations, _ := metadata["annotations"].(map[string]any)
	for key, val := range annotations {
		text, ok := val.(string)
		if !ok || !strings.Contains(text, "Secret") {
			continue
		}
		var embedded map[string]any
		if err := json.Unmarshal([]byte(text), &embedded); err != nil {
			continue
		}
		if embedded["kind"] != "Secret" {
			continue
		}
		blankDataMaps(embedded)
		if raw, err := json.Marshal(embedded); err == nil {
			annotations[key] = string(raw)
		}
	}
}
