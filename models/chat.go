package models

// Roles in a chat transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one question and its answer.
type ChatTurn struct {
	Question string `json:"question" binding:"required"`
	Answer   string `json:"answer"`
}

// ChatMessage is a transcript entry as rendered by a client.
type ChatMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest accepts either a preformatted history string or structured turns.
type ChatRequest struct {
	Question    string     `json:"question" binding:"required,min=1,max=2000"`
	ChatHistory string     `json:"chatHistory,omitempty"`
	History     []ChatTurn `json:"history,omitempty" binding:"omitempty,max=50,dive"`
}

// TokenEvent is the payload of a streamed answer fragment.
type TokenEvent struct {
	Text string `json:"text"`
}

// SourcesEvent is the terminal metadata record of an answer stream.
type SourcesEvent struct {
	Sources []string `json:"sources"`
}

// IngestRequest optionally overrides the configured document path.
type IngestRequest struct {
	Path  string `json:"path,omitempty"`
	Reset bool   `json:"reset,omitempty"`
}

// IngestResponse is returned when an ingestion job has been queued.
type IngestResponse struct {
	TaskID  string `json:"task_id"`
	Queue   string `json:"queue"`
	Path    string `json:"path"`
	Message string `json:"message"`
}
