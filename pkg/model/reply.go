package model

// Source tags where a reply came from, for logging and telemetry
type Source string

const (
	SourceMemory Source = "memory"
	SourceWeb    Source = "web"
	SourceRAG    Source = "rag"
	SourceLLM    Source = "llm"
)

// Reply is the router output for a single query
type Reply struct {
	Intent Intent
	Source Source
	Text   string
}

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is a generation request message
type Message struct {
	Role    MessageRole
	Content string
}

// SystemMessage creates a system message
func SystemMessage(content string) Message {
	return Message{Role: MessageRoleSystem, Content: content}
}

// UserMessage creates a user message
func UserMessage(content string) Message {
	return Message{Role: MessageRoleUser, Content: content}
}

// Location is the coarse location of the user
type Location struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}
