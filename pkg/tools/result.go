package tools

import "encoding/json"

// Result size caps. Oversized results are replaced wholesale with a
// truncation marker carrying a preview, so a chat transport never chokes on
// a megabyte of CloudTrail.
const (
	maxResultBytes    = 16 * 1024
	truncationPreview = 2048
)

// ToolResult is the uniform dispatcher output.
type ToolResult struct {
	OK              bool            `json:"ok"`
	Result          any             `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
	UpdatedAnalysis json.RawMessage `json:"updated_analysis,omitempty"`
}

func ok(result any) ToolResult {
	return ToolResult{OK: true, Result: compact(result)}
}

func fail(code string) ToolResult {
	return ToolResult{OK: false, Error: code}
}

// compact enforces the size cap on one result value.
func compact(result any) any {
	raw, err := json.Marshal(result)
	if err != nil {
		return map[string]any{"truncated": true, "preview": "unserializable result"}
	}
	if len(raw) <= maxResultBytes {
		return result
	}
	preview := string(raw)
	if len(preview) > truncationPreview {
		preview = preview[:truncationPreview]
	}
	return map[string]any{"truncated": true, "preview": preview}
}
