package models

// RefTypePrompt is the only completion reference kind served
const RefTypePrompt = "ref/prompt"

// MCPCompletionCapabilities advertises completion/complete
type MCPCompletionCapabilities struct {
	ArgumentCompletions bool `json:"argumentCompletions"`
}

// MCPCompletionCompleteParams asks for values of one prompt argument
type MCPCompletionCompleteParams struct {
	Ref      MCPCompletionRef      `json:"ref"`
	Argument MCPCompletionArgument `json:"argument"`
}

// MCPCompletionRef points at the prompt being filled in
type MCPCompletionRef struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// MCPCompletionArgument carries the argument name and the partial value typed so far
type MCPCompletionArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MCPCompletionResult answers completion/complete
type MCPCompletionResult struct {
	Completion MCPCompletion `json:"completion"`
}

// MCPCompletion holds the matching values, at most 100 per response
type MCPCompletion struct {
	Values  []string `json:"values"`
	Total   int      `json:"total,omitempty"`
	HasMore bool     `json:"hasMore"`
}
