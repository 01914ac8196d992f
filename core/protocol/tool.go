package protocol

// Tool defines a function the reasoning engine may call.
// Parameters is a JSON Schema object describing the function's input.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Properties returns the schema's "properties" map, or nil.
func (t Tool) Properties() map[string]any {
	props, _ := t.Parameters["properties"].(map[string]any)
	return props
}

// Required returns the schema's "required" names. Both []string and
// []any encodings are accepted since schemas may come from JSON.
func (t Tool) Required() []string {
	switch req := t.Parameters["required"].(type) {
	case []string:
		return req
	case []any:
		names := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				names = append(names, s)
			}
		}
		return names
	default:
		return nil
	}
}
