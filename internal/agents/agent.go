package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/yegors/maintlog/internal/metrics"
)

// unknownToolLabel is the metrics label for calls naming a tool the agent lacks
const unknownToolLabel = "unknown"

// Agent is a role-specialized participant: instructions, the tools it
// may call, and whether it reflects on tool results before replying
type Agent struct {
	Name             string
	Instructions     string
	Tools            []Tool
	ReflectOnToolUse bool
}

func (a *Agent) tool(name string) (Tool, bool) {
	for _, t := range a.Tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// respond runs one turn. inner holds the tool events in the order they
// happened; reply is the turn's chat message.
func (a *Agent) respond(ctx context.Context, model ChatModel, history []Message) (inner []Message, reply Message, err error) {
	req := CompletionRequest{
		Agent:        a.Name,
		Instructions: a.Instructions,
		History:      history,
		Tools:        a.Tools,
	}

	completion, err := model.Complete(ctx, req)
	if err != nil {
		return nil, Message{}, err
	}

	if len(completion.ToolCalls) == 0 {
		return nil, NewTextMessage(a.Name, completion.Content), nil
	}

	request := Message{
		Type:      TypeToolCallRequest,
		Source:    a.Name,
		Content:   completion.Content,
		ToolCalls: completion.ToolCalls,
	}
	execution := Message{
		Type:        TypeToolCallExecution,
		Source:      a.Name,
		ToolResults: a.execute(ctx, completion.ToolCalls),
	}
	inner = []Message{request, execution}

	if !a.ReflectOnToolUse {
		parts := make([]string, 0, len(execution.ToolResults))
		for _, r := range execution.ToolResults {
			parts = append(parts, r.Content)
		}
		return inner, Message{
			Type:    TypeToolCallSummary,
			Source:  a.Name,
			Content: strings.Join(parts, "\n"),
		}, nil
	}

	// Reflection pass: the model sees its own calls and their results, no further tools
	req.History = append(append(append([]Message{}, history...), request), execution)
	req.Tools = nil

	reflection, err := model.Complete(ctx, req)
	if err != nil {
		return inner, Message{}, fmt.Errorf("reflection on tool results failed: %w", err)
	}
	return inner, NewTextMessage(a.Name, reflection.Content), nil
}

// execute runs calls in order. Failures become error results so the
// model can read them; they never abort the turn. Every requested call
// is counted, including ones rejected before the tool runs.
func (a *Agent) execute(ctx context.Context, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, 0, len(calls))
	for _, call := range calls {
		result := ToolResult{CallID: call.ID, Name: call.Name}

		tool, ok := a.tool(call.Name)
		if !ok {
			result.Content = fmt.Sprintf("Error: %v: %s", ErrUnknownTool, call.Name)
			result.IsError = true
			results = append(results, result)
			metrics.RecordToolCall(unknownToolLabel, true)
			continue
		}

		out, err := tool.Call(ctx, call.Arguments)
		if err != nil {
			result.Content = fmt.Sprintf("Error: %v", err)
			result.IsError = true
		} else {
			result.Content = out
		}
		results = append(results, result)
		metrics.RecordToolCall(call.Name, result.IsError)
	}
	return results
}
