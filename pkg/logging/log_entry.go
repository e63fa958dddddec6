package logging

// LogEntry is one structured log record. Model identity and token usage are
// first-class because most interesting lines in a run involve a model call.
type LogEntry struct {
	Time     int64
	Severity Severity
	Message  string

	// Caller site.
	File     string
	Line     int
	Function string

	// Model call context, when the context carries it.
	ModelID   string
	TokenInfo *TokenInfo

	// Anything else, including the run id.
	Fields map[string]interface{}
}

// TokenInfo tracks token usage for a model call.
type TokenInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
