package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// Session titles are derived from the first user prompt, truncated.
	SessionTitleMaxRunes = 64
	SessionDefaultTitle  = "Unnamed session"

	// Ollama configuration defaults.
	OllamaDefaultBaseURL = "http://localhost:11434"
	OllamaDefaultModel   = "llama3.1:8b"
)
