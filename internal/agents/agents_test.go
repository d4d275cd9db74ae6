package agents

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/maintlog/internal/metrics"
	"github.com/yegors/maintlog/pkg/logger"
)

// scriptedModel replays completions per agent, in order
type scriptedModel struct {
	replies  map[string][]*Completion
	failFor  string
	requests []CompletionRequest
}

func (m *scriptedModel) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	m.requests = append(m.requests, req)
	if req.Agent == m.failFor {
		return nil, errors.New("model unavailable")
	}
	queue := m.replies[req.Agent]
	if len(queue) == 0 {
		return &Completion{Content: fmt.Sprintf("%s default reply", req.Agent)}, nil
	}
	m.replies[req.Agent] = queue[1:]
	return queue[0], nil
}

type echoArgs struct {
	Text string `json:"text"`
}

type echoResult struct {
	Echo string `json:"echo"`
}

func newEchoTool(t *testing.T) Tool {
	t.Helper()
	tool, err := NewFunctionTool("echo", "Echoes text", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}, func(ctx context.Context, in echoArgs) (echoResult, error) {
		if in.Text == "boom" {
			return echoResult{}, errors.New("exploded")
		}
		return echoResult{Echo: in.Text}, nil
	})
	require.NoError(t, err)
	return tool
}

func collect(t *testing.T, team *Team, task Message) ([]Message, error) {
	t.Helper()
	var out []Message
	for msg, err := range team.RunStream(context.Background(), task) {
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func chatSources(msgs []Message) []string {
	var sources []string
	for _, m := range msgs {
		if m.Type == TypeText {
			sources = append(sources, m.Source)
		}
	}
	return sources
}

func TestFunctionToolValidatesArguments(t *testing.T) {
	tool := newEchoTool(t)

	out, err := tool.Call(context.Background(), `{"text":"hello"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo":"hello"}`, out)

	_, err = tool.Call(context.Background(), `{}`)
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = tool.Call(context.Background(), `{"text": 42}`)
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = tool.Call(context.Background(), `not json`)
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = tool.Call(context.Background(), `{"text":"boom"}`)
	assert.EqualError(t, err, "exploded")
}

func TestNewRoundRobinTeamValidation(t *testing.T) {
	model := &scriptedModel{replies: map[string][]*Completion{}}
	log := logger.NewNop()

	_, err := NewRoundRobinTeam(nil, model, log)
	assert.Error(t, err)

	_, err = NewRoundRobinTeam([]*Agent{{Name: "A"}, {Name: "A"}}, model, log)
	assert.Error(t, err)

	_, err = NewRoundRobinTeam([]*Agent{{Name: "A"}}, nil, log)
	assert.Error(t, err)

	_, err = NewRoundRobinTeam([]*Agent{{Name: "A"}}, model, log, WithMaxTurns(0))
	assert.Error(t, err)
}

func TestRoundRobinOrderAndTurnBudget(t *testing.T) {
	model := &scriptedModel{replies: map[string][]*Completion{}}
	team, err := NewRoundRobinTeam([]*Agent{{Name: "A"}, {Name: "B"}, {Name: "C"}}, model, logger.NewNop(), WithMaxTurns(5))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, team.Participants())

	msgs, err := collect(t, team, NewMultiModalMessage("user", "task"))
	require.NoError(t, err)

	assert.Equal(t, TypeMultiModal, msgs[0].Type)
	assert.Equal(t, []string{"A", "B", "C", "A", "B"}, chatSources(msgs))

	last := msgs[len(msgs)-1]
	assert.Equal(t, TypeStop, last.Type)
	assert.Contains(t, last.Content, "Maximum number of turns 5 reached")

	// each speaker sees the task plus every earlier reply
	require.Len(t, model.requests, 5)
	for i, req := range model.requests {
		assert.Len(t, req.History, i+1)
	}
}

func TestTextMentionStopsAfterFirstTurn(t *testing.T) {
	model := &scriptedModel{replies: map[string][]*Completion{
		"A": {{Content: "### *Please provide the flight log chart for the analysis.*"}},
	}}
	team, err := NewRoundRobinTeam([]*Agent{{Name: "A"}, {Name: "B"}}, model, logger.NewNop(),
		WithMaxTurns(5),
		WithTermination(TextMention{Text: "Please provide the flight log chart for the analysis."}))
	require.NoError(t, err)

	msgs, err := collect(t, team, NewMultiModalMessage("user", "task"))
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, chatSources(msgs))
	assert.Equal(t, TypeStop, msgs[len(msgs)-1].Type)
	assert.Contains(t, msgs[len(msgs)-1].Content, "mentioned")
	assert.Len(t, model.requests, 1)
}

func TestToolTurnWithReflection(t *testing.T) {
	model := &scriptedModel{replies: map[string][]*Completion{
		"A": {
			{ToolCalls: []ToolCall{
				{ID: "call_1", Name: "echo", Arguments: `{"text":"hi"}`},
				{ID: "call_2", Name: "missing", Arguments: `{}`},
				{ID: "call_3", Name: "echo", Arguments: `{"text":"boom"}`},
			}},
			{Content: "reflected answer"},
		},
	}}
	agent := &Agent{Name: "A", Tools: []Tool{newEchoTool(t)}, ReflectOnToolUse: true}
	team, err := NewRoundRobinTeam([]*Agent{agent}, model, logger.NewNop(), WithMaxTurns(1))
	require.NoError(t, err)

	msgs, err := collect(t, team, NewMultiModalMessage("user", "task"))
	require.NoError(t, err)
	require.Len(t, msgs, 5)

	assert.Equal(t, TypeToolCallRequest, msgs[1].Type)
	require.Equal(t, TypeToolCallExecution, msgs[2].Type)
	results := msgs[2].ToolResults
	require.Len(t, results, 3)
	assert.False(t, results[0].IsError)
	assert.JSONEq(t, `{"echo":"hi"}`, results[0].Content)
	assert.True(t, results[1].IsError)
	assert.Contains(t, results[1].Content, "unknown tool")
	assert.True(t, results[2].IsError)
	assert.Contains(t, results[2].Content, "exploded")

	assert.Equal(t, NewTextMessage("A", "reflected answer"), msgs[3])

	// reflection request carries the tool exchange and offers no tools
	require.Len(t, model.requests, 2)
	reflect := model.requests[1]
	assert.Nil(t, reflect.Tools)
	require.Len(t, reflect.History, 3)
	assert.Equal(t, TypeToolCallExecution, reflect.History[2].Type)
}

func TestExecuteCountsEveryRequestedCall(t *testing.T) {
	calls := func(tool, status string) float64 {
		return testutil.ToFloat64(metrics.ToolCallsTotal.WithLabelValues(tool, status))
	}
	echoOK, echoFailed := calls("echo", "success"), calls("echo", "error")
	unknownFailed := calls(unknownToolLabel, "error")

	agent := &Agent{Name: "A", Tools: []Tool{newEchoTool(t)}}
	results := agent.execute(context.Background(), []ToolCall{
		{ID: "1", Name: "echo", Arguments: `{"text":"hi"}`},
		{ID: "2", Name: "echo", Arguments: `{}`},
		{ID: "3", Name: "echo", Arguments: `{"text":"boom"}`},
		{ID: "4", Name: "made_up", Arguments: `{}`},
	})
	require.Len(t, results, 4)

	assert.Equal(t, echoOK+1, calls("echo", "success"))
	assert.Equal(t, echoFailed+2, calls("echo", "error"), "schema rejection and handler failure")
	assert.Equal(t, unknownFailed+1, calls(unknownToolLabel, "error"))
}

func TestToolTurnWithoutReflectionSummarizes(t *testing.T) {
	model := &scriptedModel{replies: map[string][]*Completion{
		"A": {{ToolCalls: []ToolCall{{ID: "c", Name: "echo", Arguments: `{"text":"x"}`}}}},
	}}
	agent := &Agent{Name: "A", Tools: []Tool{newEchoTool(t)}}
	team, err := NewRoundRobinTeam([]*Agent{agent}, model, logger.NewNop())
	require.NoError(t, err)

	msgs, err := collect(t, team, NewMultiModalMessage("user", "task"))
	require.NoError(t, err)

	assert.Equal(t, TypeToolCallSummary, msgs[3].Type)
	assert.JSONEq(t, `{"echo":"x"}`, msgs[3].Content)
	assert.Empty(t, chatSources(msgs))
}

func TestModelErrorEndsRun(t *testing.T) {
	model := &scriptedModel{replies: map[string][]*Completion{}, failFor: "B"}
	team, err := NewRoundRobinTeam([]*Agent{{Name: "A"}, {Name: "B"}, {Name: "C"}}, model, logger.NewNop())
	require.NoError(t, err)

	msgs, err := collect(t, team, NewMultiModalMessage("user", "task"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent B failed on turn 2")
	assert.Equal(t, []string{"A"}, chatSources(msgs), "earlier replies were already delivered")
}

func TestBreakingOutStopsFurtherTurns(t *testing.T) {
	model := &scriptedModel{replies: map[string][]*Completion{}}
	team, err := NewRoundRobinTeam([]*Agent{{Name: "A"}, {Name: "B"}}, model, logger.NewNop(), WithMaxTurns(10))
	require.NoError(t, err)

	for msg, err := range team.RunStream(context.Background(), NewMultiModalMessage("user", "task")) {
		require.NoError(t, err)
		if msg.Type == TypeText {
			break
		}
	}
	assert.Len(t, model.requests, 1)
}

func TestCancelledContextStopsRun(t *testing.T) {
	model := &scriptedModel{replies: map[string][]*Completion{}}
	team, err := NewRoundRobinTeam([]*Agent{{Name: "A"}}, model, logger.NewNop(), WithMaxTurns(3))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range team.RunStream(ctx, NewMultiModalMessage("user", "task")) {
		if err != nil {
			gotErr = err
		}
	}
	assert.ErrorIs(t, gotErr, context.Canceled)
	assert.Empty(t, model.requests)
}

func TestImageDataURL(t *testing.T) {
	img := Image{MIMEType: "image/png", Data: []byte("abc")}
	assert.Equal(t, "data:image/png;base64,YWJj", img.DataURL())
}
