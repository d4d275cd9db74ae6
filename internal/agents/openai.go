package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yegors/maintlog/internal/config"
	"github.com/yegors/maintlog/pkg/logger"
)

// OpenAIModel is a ChatModel backed by any OpenAI-compatible chat completions endpoint
type OpenAIModel struct {
	client      openai.Client
	model       string
	temperature float64
	logger      *logger.Logger
}

// NewOpenAIModel creates a model client from configuration. Extra
// options are applied after the configured ones.
func NewOpenAIModel(cfg config.LLMConfig, logger *logger.Logger, extra ...option.RequestOption) *OpenAIModel {
	if cfg.APIKey == "" {
		logger.Warn("LLM API key is empty - analyses will fail until one is configured")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	opts = append(opts, extra...)

	return &OpenAIModel{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger.Named("openai-model"),
	}
}

// Complete implements ChatModel
func (m *OpenAIModel) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(m.model),
		Messages:    buildMessages(req),
		Temperature: openai.Float(m.temperature),
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	start := time.Now()
	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	msg := completion.Choices[0].Message
	out := &Completion{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	m.logger.Debug("Chat completion received",
		logger.String("agent", req.Agent),
		logger.Int("history", len(req.History)),
		logger.Int("tool_calls", len(out.ToolCalls)),
		logger.Int64("total_tokens", completion.Usage.TotalTokens),
		logger.Duration("latency", time.Since(start)))

	return out, nil
}

// buildMessages maps the shared history onto chat roles from the point
// of view of req.Agent: its own replies are assistant turns, everyone
// else's are user turns prefixed with the speaker's name
func buildMessages(req CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	msgs := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(req.Instructions)}

	for _, m := range req.History {
		switch m.Type {
		case TypeMultiModal:
			parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(m.Content)}
			for _, img := range m.Images {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: img.DataURL(),
				}))
			}
			msgs = append(msgs, openai.UserMessage(parts))

		case TypeToolCallRequest:
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			msgs = append(msgs, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		case TypeToolCallExecution:
			for _, r := range m.ToolResults {
				msgs = append(msgs, openai.ToolMessage(r.Content, r.CallID))
			}

		case TypeStop:
			// not part of the conversation

		default:
			if m.Source == req.Agent {
				msgs = append(msgs, openai.AssistantMessage(m.Content))
			} else {
				msgs = append(msgs, openai.UserMessage(fmt.Sprintf("%s:\n%s", m.Source, m.Content)))
			}
		}
	}
	return msgs
}

func buildTools(tools []Tool) []openai.ChatCompletionToolParam {
	params := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		params = append(params, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name(),
				Description: openai.String(t.Description()),
				Parameters:  openai.FunctionParameters(t.Parameters()),
			},
		})
	}
	return params
}
