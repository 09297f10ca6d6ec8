package model

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Ctime  int64  `json:"ctime"`
	Mtime  int64  `json:"mtime"`
}

// ConversationSummary is a conversation plus its message cardinality,
// produced for listing endpoints.
type ConversationSummary struct {
	Conversation
	MessageCount int64 `json:"message_count"`
}

// Turn is one entry of the bounded context window handed to the
// context-analysis stages, oldest first.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessageMetadata is persisted with assistant turns only, after a turn
// completed successfully.
type MessageMetadata struct {
	Summary         string   `json:"summary,omitempty"`
	KeyPoint        string   `json:"key_point,omitempty"`
	NextSteps       string   `json:"next_steps,omitempty"`
	Sources         []Source `json:"sources,omitempty"`
	ContextUsed     bool     `json:"context_used"`
	IsNonLegal      bool     `json:"is_non_legal"`
	OriginalQuery   string   `json:"original_query,omitempty"`
	SummarizedQuery string   `json:"summarized_query,omitempty"`
}

type Message struct {
	ID             int64            `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Role           string           `json:"role"`
	Content        string           `json:"content"`
	Metadata       *MessageMetadata `json:"metadata,omitempty"`
	Ctime          int64            `json:"ctime"`
}
