// Package pipeline declares the five maintenance agents, binds the
// maintenance and notification tools to them and composes them into a
// round-robin team.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/yegors/maintlog/internal/agents"
	"github.com/yegors/maintlog/internal/config"
	"github.com/yegors/maintlog/internal/maintenance"
	"github.com/yegors/maintlog/pkg/logger"
)

// Dependencies are the collaborators the tools and agents call into
type Dependencies struct {
	Model   agents.ChatModel
	Emailer EmailSender
	Audit   *maintenance.AuditLogger
	Records RecordSink // optional
}

// Build assembles the team: analyzer, risk assessor (priority + audit
// log tools), report generator (schedule tool), communicator (email
// tool) and QA, bounded by cfg.MaxTurns and stopped early by the
// termination phrase
func Build(cfg config.PipelineConfig, deps Dependencies, log *logger.Logger) (*agents.Team, error) {
	if deps.Model == nil || deps.Emailer == nil || deps.Audit == nil {
		return nil, errors.New("pipeline needs a model, an email sender and an audit logger")
	}
	log = log.Named("pipeline")

	priorityTool, err := newPriorityTool()
	if err != nil {
		return nil, err
	}
	logTool, err := newLogTool(deps.Audit, deps.Records, log)
	if err != nil {
		return nil, err
	}
	scheduleTool, err := newScheduleTool()
	if err != nil {
		return nil, err
	}
	emailTool, err := newEmailTool(deps.Emailer)
	if err != nil {
		return nil, err
	}

	participants := []*agents.Agent{
		{
			Name:         AircraftAnalyzer,
			Instructions: analyzerInstructions(cfg.TerminationPhrase),
		},
		{
			Name:             RiskAssessor,
			Instructions:     riskInstructions,
			Tools:            []agents.Tool{priorityTool, logTool},
			ReflectOnToolUse: true,
		},
		{
			Name:             ReportGenerator,
			Instructions:     reportInstructions,
			Tools:            []agents.Tool{scheduleTool},
			ReflectOnToolUse: true,
		},
		{
			Name:             Communicator,
			Instructions:     communicatorInstructions,
			Tools:            []agents.Tool{emailTool},
			ReflectOnToolUse: true,
		},
		{
			Name:         QualityAssurance,
			Instructions: qualityInstructions,
		},
	}

	team, err := agents.NewRoundRobinTeam(participants, deps.Model, log,
		agents.WithMaxTurns(cfg.MaxTurns),
		agents.WithTermination(agents.TextMention{Text: cfg.TerminationPhrase}))
	if err != nil {
		return nil, fmt.Errorf("failed to build agent team: %w", err)
	}

	log.Info("Agent pipeline ready",
		logger.Strings("agents", team.Participants()),
		logger.Int("max_turns", cfg.MaxTurns))

	return team, nil
}
