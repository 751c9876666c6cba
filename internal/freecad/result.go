package freecad

import "encoding/json"

// Result is the outcome reported by a mutating remote call. The remote side
// returns an open field set; the well-known fields are lifted out and the
// rest stay available through Fields. A Result is decoded once per call and
// never mutated afterwards.
type Result struct {
	Success bool
	Error   string
	Message string

	// Fields holds the remaining named values, e.g. "document_name"
	// or "object_name".
	Fields map[string]interface{}
}

// UnmarshalJSON decodes the remote field set.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["success"].(bool); ok {
		r.Success = v
	}
	if v, ok := raw["error"].(string); ok {
		r.Error = v
	}
	if v, ok := raw["message"].(string); ok {
		r.Message = v
	}

	delete(raw, "success")
	delete(raw, "error")
	delete(raw, "message")
	r.Fields = raw
	return nil
}

// Str returns the named extra field as a string, or "" when absent or not
// a string.
func (r *Result) Str(key string) string {
	if r.Fields == nil {
		return ""
	}
	v, _ := r.Fields[key].(string)
	return v
}
