package agents

import "context"

// CompletionRequest is everything a model needs to produce one reply for an agent
type CompletionRequest struct {
	Agent        string
	Instructions string
	History      []Message
	Tools        []Tool
}

// Completion is a model reply: text, tool calls, or both
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatModel is the chat-completion backend shared by all agents of a team
type ChatModel interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
