package templating

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/yegors/maintlog/pkg/logger"
)

// Placeholders used when the request leaves a parameter out
const (
	AircraftIDPlaceholder       = "To be determined from log"
	PriorityOverridePlaceholder = "None - determine from analysis"
)

// DefaultTaskTemplate is the instructions block sent with every log image
const DefaultTaskTemplate = `AIRCRAFT MAINTENANCE LOG ANALYSIS REQUEST

Analyze the attached aircraft journey/maintenance log image and perform a complete assessment.

WORKFLOW STEPS:
{{- range $i, $step := .Steps}}
{{inc $i}}. {{$step}}
{{- end}}

Parameters:
- Aircraft ID: {{.AircraftID}}
- Analysis Date: {{.AnalysisDate.Format "2006-01-02 15:04:05"}}
- Priority Override: {{.PriorityOverride}}

Each agent must read the previous agent's complete output before proceeding.
Focus on safety-critical items and give specific, actionable recommendations.`

// DefaultSteps describes what each agent does, in speaking order
var DefaultSteps = []string{
	"AIRCRAFT_ANALYZER: Extract and analyze all maintenance data from the image",
	"RISK_ASSESSOR: Assess risks and assign priorities using tools",
	"REPORT_GENERATOR: Generate a maintenance report with scheduling",
	"COMMUNICATOR: Write and send the maintenance notification",
	"QUALITY_ASSURANCE: Review the entire process for compliance",
}

// TaskContext is the data available to the task template
type TaskContext struct {
	AircraftID       string
	AnalysisDate     time.Time
	PriorityOverride string
	Steps            []string
}

// TaskRenderer renders the task instructions for one analysis run
type TaskRenderer struct {
	tmpl   *template.Template
	now    func() time.Time
	logger *logger.Logger
}

// NewTaskRenderer parses text, or DefaultTaskTemplate when text is empty
func NewTaskRenderer(text string, logger *logger.Logger) (*TaskRenderer, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultTaskTemplate
	}

	tmpl, err := template.New("task").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse task template: %w", err)
	}

	return &TaskRenderer{
		tmpl:   tmpl,
		now:    time.Now,
		logger: logger.Named("task-renderer"),
	}, nil
}

// Context fills in placeholders for missing request parameters
func (r *TaskRenderer) Context(aircraftID, priorityOverride string) TaskContext {
	ctx := TaskContext{
		AircraftID:       strings.TrimSpace(aircraftID),
		AnalysisDate:     r.now(),
		PriorityOverride: strings.TrimSpace(priorityOverride),
		Steps:            DefaultSteps,
	}
	if ctx.AircraftID == "" {
		ctx.AircraftID = AircraftIDPlaceholder
	}
	if ctx.PriorityOverride == "" {
		ctx.PriorityOverride = PriorityOverridePlaceholder
	}
	return ctx
}

// Render executes the template against ctx
func (r *TaskRenderer) Render(ctx TaskContext) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("failed to render task template: %w", err)
	}

	r.logger.Debug("Task instructions rendered",
		logger.String("aircraft_id", ctx.AircraftID),
		logger.String("priority_override", ctx.PriorityOverride),
		logger.Int("length", buf.Len()))

	return strings.TrimSpace(buf.String()), nil
}

// RenderTask is Context followed by Render
func (r *TaskRenderer) RenderTask(aircraftID, priorityOverride string) (string, error) {
	return r.Render(r.Context(aircraftID, priorityOverride))
}
