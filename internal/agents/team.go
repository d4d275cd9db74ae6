package agents

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/yegors/maintlog/pkg/logger"
)

// TeamSource is the Source of the StopMessage that ends every run
const TeamSource = "team"

// Termination decides, after each turn, whether the run should stop
type Termination interface {
	ShouldStop(reply Message) (reason string, stop bool)
}

// TextMention stops the run when a turn reply contains Text
type TextMention struct {
	Text string
}

// ShouldStop implements Termination
func (t TextMention) ShouldStop(reply Message) (string, bool) {
	if t.Text == "" || reply.Type == TypeMultiModal {
		return "", false
	}
	if strings.Contains(reply.Content, t.Text) {
		return fmt.Sprintf("Text '%s' mentioned", t.Text), true
	}
	return "", false
}

// Team runs its participants in a fixed round-robin order over a shared history
type Team struct {
	participants []*Agent
	model        ChatModel
	maxTurns     int
	termination  Termination
	logger       *logger.Logger
}

// Option configures a Team
type Option func(*Team)

// WithMaxTurns bounds the number of turns in a run
func WithMaxTurns(n int) Option {
	return func(t *Team) { t.maxTurns = n }
}

// WithTermination sets the phrase-style stop condition
func WithTermination(cond Termination) Option {
	return func(t *Team) { t.termination = cond }
}

// NewRoundRobinTeam creates a team; without WithMaxTurns each participant speaks once
func NewRoundRobinTeam(participants []*Agent, model ChatModel, logger *logger.Logger, opts ...Option) (*Team, error) {
	if len(participants) == 0 {
		return nil, errors.New("team needs at least one participant")
	}
	if model == nil {
		return nil, errors.New("team needs a chat model")
	}

	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p == nil || p.Name == "" {
			return nil, errors.New("participant without a name")
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate participant name: %s", p.Name)
		}
		seen[p.Name] = true
	}

	team := &Team{
		participants: participants,
		model:        model,
		maxTurns:     len(participants),
		logger:       logger.Named("agents-team"),
	}
	for _, opt := range opts {
		opt(team)
	}
	if team.maxTurns <= 0 {
		return nil, fmt.Errorf("max turns must be positive, got %d", team.maxTurns)
	}
	return team, nil
}

// Participants returns the agent names in speaking order
func (t *Team) Participants() []string {
	names := make([]string, len(t.participants))
	for i, p := range t.participants {
		names[i] = p.Name
	}
	return names
}

// RunStream runs the team on task. The sequence yields the task, each
// turn's tool events and reply, then a StopMessage. Turns execute only
// as the caller pulls: breaking out of the loop or cancelling ctx ends
// the run. An error is yielded at most once and is always last.
func (t *Team) RunStream(ctx context.Context, task Message) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		history := []Message{task}
		if !yield(task, nil) {
			return
		}

		for turn := 0; turn < t.maxTurns; turn++ {
			if err := ctx.Err(); err != nil {
				yield(Message{}, err)
				return
			}

			speaker := t.participants[turn%len(t.participants)]
			log := t.logger.WithAgent(speaker.Name)
			log.Debug("Agent turn started", logger.Int("turn", turn+1))

			inner, reply, err := speaker.respond(ctx, t.model, history)
			for _, event := range inner {
				if !yield(event, nil) {
					return
				}
			}
			if err != nil {
				yield(Message{}, fmt.Errorf("agent %s failed on turn %d: %w", speaker.Name, turn+1, err))
				return
			}
			if !yield(reply, nil) {
				return
			}
			history = append(history, reply)

			if t.termination != nil {
				if reason, stop := t.termination.ShouldStop(reply); stop {
					log.Debug("Termination condition met", logger.String("reason", reason))
					yield(Message{Type: TypeStop, Source: TeamSource, Content: reason}, nil)
					return
				}
			}
		}

		yield(Message{
			Type:    TypeStop,
			Source:  TeamSource,
			Content: fmt.Sprintf("Maximum number of turns %d reached.", t.maxTurns),
		}, nil)
	}
}
