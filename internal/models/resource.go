package models

// MCPResourceCapabilities advertises resource support. The widget set is
// fixed after registration, so neither flag is set.
type MCPResourceCapabilities struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// MCPResource is a resources/list entry. Widget resources carry their
// rendering hints (description, CSP, border preference) in Meta.
type MCPResource struct {
	URI         string         `json:"uri"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	MimeType    string         `json:"mimeType,omitempty"`
	Meta        map[string]any `json:"_meta,omitempty"`
}

// MCPResourceContent is the body of a resource, returned by resources/read
// and embedded in tool results
type MCPResourceContent struct {
	URI      string         `json:"uri"`
	MimeType string         `json:"mimeType"`
	Text     string         `json:"text,omitempty"`
	Meta     map[string]any `json:"_meta,omitempty"`
}

// MCPResourcesListResult answers resources/list
type MCPResourcesListResult struct {
	Resources []MCPResource `json:"resources"`
}

// MCPResourcesReadParams names the resource to read
type MCPResourcesReadParams struct {
	URI string `json:"uri"`
}

// MCPResourcesReadResult answers resources/read
type MCPResourcesReadResult struct {
	Contents []MCPResourceContent `json:"contents"`
}
