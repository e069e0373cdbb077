package router

// ToolSpec describes a tool exposed by a connected backend. Specs are value
// types: the catalog is recomputed in full on every discovery pass and
// replaced as a unit, never patched in place.
type ToolSpec struct {
	ServerID    string                 `json:"server_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema,omitempty"`
	Sensitive   bool                   `json:"sensitive"`
}
