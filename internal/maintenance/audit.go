package maintenance

import (
	"time"

	"github.com/yegors/maintlog/pkg/logger"
)

// StatusPendingReview is the status every new record starts in
const StatusPendingReview = "pending_review"

// MaintenanceRecord is the audit entry for one analysis
type MaintenanceRecord struct {
	AircraftID string    `json:"aircraft_id"`
	Timestamp  time.Time `json:"timestamp"`
	Findings   string    `json:"findings"`
	Priority   Priority  `json:"priority"`
	Analyst    string    `json:"analyst"`
	Status     string    `json:"status"`
}

// AuditLogger builds maintenance records and writes them to the log.
// It does not persist anything; callers that want durable storage keep
// the returned record themselves.
type AuditLogger struct {
	analyst string
	now     func() time.Time
	logger  *logger.Logger
}

// NewAuditLogger creates an audit logger that tags records with analyst
func NewAuditLogger(analyst string, logger *logger.Logger) *AuditLogger {
	return &AuditLogger{
		analyst: analyst,
		now:     time.Now,
		logger:  logger.Named("audit"),
	}
}

// LogAnalysis records an analysis event
func (a *AuditLogger) LogAnalysis(aircraftID, findings string, priority Priority) MaintenanceRecord {
	record := MaintenanceRecord{
		AircraftID: aircraftID,
		Timestamp:  a.now().UTC(),
		Findings:   findings,
		Priority:   priority,
		Analyst:    a.analyst,
		Status:     StatusPendingReview,
	}

	a.logger.Info("Maintenance record logged",
		logger.String("aircraft_id", aircraftID),
		logger.String("priority", priority.String()),
		logger.String("analyst", a.analyst),
		logger.String("status", record.Status))

	return record
}
