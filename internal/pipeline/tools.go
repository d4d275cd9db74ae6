package pipeline

import (
	"context"
	"strings"

	"github.com/yegors/maintlog/internal/agents"
	"github.com/yegors/maintlog/internal/maintenance"
	"github.com/yegors/maintlog/internal/notify"
	"github.com/yegors/maintlog/pkg/logger"
)

// Tool names as the model sees them
const (
	ToolPriority = "maintenance_priority"
	ToolSchedule = "maintenance_schedule"
	ToolLog      = "log_aircraft_analysis"
	ToolEmail    = "send_email"
)

// EmailSender delivers one notification and reports the outcome
type EmailSender interface {
	Send(ctx context.Context, email notify.Email) notify.Result
}

// RecordSink keeps maintenance records beyond the log
type RecordSink interface {
	StoreRecord(ctx context.Context, record *maintenance.MaintenanceRecord) (int64, error)
}

type priorityArgs struct {
	Findings string `json:"findings"`
}

type scheduleArgs struct {
	Priority string `json:"priority"`
	Findings string `json:"findings"`
}

type logArgs struct {
	AircraftID string `json:"aircraft_id"`
	Findings   string `json:"findings"`
	Priority   string `json:"priority"`
}

type emailArgs struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Sender   string `json:"sender,omitempty"`
	Receiver string `json:"receiver,omitempty"`
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func objectSchema(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func newPriorityTool() (agents.Tool, error) {
	return agents.NewFunctionTool(ToolPriority,
		"Analyzes maintenance findings and assigns a priority level (CRITICAL/HIGH/MEDIUM/LOW)",
		objectSchema([]string{"findings"}, map[string]any{
			"findings": stringProp("Maintenance findings text"),
		}),
		func(ctx context.Context, in priorityArgs) (maintenance.Assessment, error) {
			return maintenance.Classify(in.Findings), nil
		})
}

func newScheduleTool() (agents.Tool, error) {
	return agents.NewFunctionTool(ToolSchedule,
		"Generates a maintenance schedule from a priority level and the findings",
		objectSchema([]string{"priority", "findings"}, map[string]any{
			"priority": stringProp("Priority level: CRITICAL, HIGH, MEDIUM or LOW"),
			"findings": stringProp("Maintenance findings text"),
		}),
		func(ctx context.Context, in scheduleArgs) (maintenance.ScheduleInfo, error) {
			priority, err := maintenance.ParsePriority(in.Priority)
			if err != nil {
				return maintenance.ScheduleInfo{}, err
			}
			return maintenance.GenerateSchedule(priority, in.Findings), nil
		})
}

func newLogTool(audit *maintenance.AuditLogger, sink RecordSink, log *logger.Logger) (agents.Tool, error) {
	return agents.NewFunctionTool(ToolLog,
		"Creates an audit trail entry for the maintenance findings and assessed priority",
		objectSchema([]string{"aircraft_id", "findings", "priority"}, map[string]any{
			"aircraft_id": stringProp("Aircraft identifier from the log, or \"unknown\""),
			"findings":    stringProp("Maintenance findings text"),
			"priority":    stringProp("Priority level: CRITICAL, HIGH, MEDIUM or LOW"),
		}),
		func(ctx context.Context, in logArgs) (maintenance.MaintenanceRecord, error) {
			priority, err := maintenance.ParsePriority(in.Priority)
			if err != nil {
				return maintenance.MaintenanceRecord{}, err
			}

			aircraftID := strings.TrimSpace(in.AircraftID)
			if aircraftID == "" {
				aircraftID = "unknown"
			}
			record := audit.LogAnalysis(aircraftID, in.Findings, priority)

			if sink != nil {
				if _, err := sink.StoreRecord(ctx, &record); err != nil {
					log.Warn("Failed to store maintenance record",
						logger.String("aircraft_id", aircraftID),
						logger.Error(err))
				}
			}
			return record, nil
		})
}

func newEmailTool(sender EmailSender) (agents.Tool, error) {
	return agents.NewFunctionTool(ToolEmail,
		"Sends the maintenance report email with the required actions to the maintenance team",
		objectSchema([]string{"subject", "message"}, map[string]any{
			"subject":  stringProp("Email subject line including the priority indicator"),
			"message":  stringProp("Plain-text email body"),
			"sender":   stringProp("Sender address; empty uses the configured default"),
			"receiver": stringProp("Receiver address; empty uses the configured default"),
		}),
		func(ctx context.Context, in emailArgs) (notify.Result, error) {
			return sender.Send(ctx, notify.Email{
				Sender:   in.Sender,
				Receiver: in.Receiver,
				Subject:  in.Subject,
				Body:     in.Message,
			}), nil
		})
}
