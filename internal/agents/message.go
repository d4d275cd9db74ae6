package agents

import (
	"encoding/base64"
	"fmt"
)

// MessageType tags what a Message carries
type MessageType string

const (
	// TypeText is an agent's final reply for a turn
	TypeText MessageType = "TextMessage"
	// TypeMultiModal is a text-plus-images message, used for the task
	TypeMultiModal MessageType = "MultiModalMessage"
	// TypeToolCallRequest is emitted when an agent asks for tool execution
	TypeToolCallRequest MessageType = "ToolCallRequestEvent"
	// TypeToolCallExecution carries the results of the requested tools
	TypeToolCallExecution MessageType = "ToolCallExecutionEvent"
	// TypeToolCallSummary is the turn's reply when the agent does not reflect on tool results
	TypeToolCallSummary MessageType = "ToolCallSummaryMessage"
	// TypeStop closes a run and carries the stop reason
	TypeStop MessageType = "StopMessage"
)

// Image is raw encoded image data with its MIME type
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL encodes the image as a base64 data URL
func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, base64.StdEncoding.EncodeToString(i.Data))
}

// ToolCall is a model request to run one tool
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult is the outcome of one ToolCall
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

// Message is one item of a team run: the task, an inner event, a turn reply or the stop marker
type Message struct {
	Type        MessageType
	Source      string
	Content     string
	Images      []Image
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// NewTextMessage creates a plain text message
func NewTextMessage(source, content string) Message {
	return Message{Type: TypeText, Source: source, Content: content}
}

// NewMultiModalMessage creates a text message with attached images
func NewMultiModalMessage(source, content string, images ...Image) Message {
	return Message{Type: TypeMultiModal, Source: source, Content: content, Images: images}
}
