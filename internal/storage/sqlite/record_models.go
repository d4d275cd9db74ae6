package sqlite

import (
	"time"

	"github.com/yegors/maintlog/internal/maintenance"
)

// RecordRow is a stored maintenance record
type RecordRow struct {
	ID int64 `json:"id"`
	maintenance.MaintenanceRecord
	CreatedAt time.Time `json:"created_at"`
}

// Record statuses after review
const (
	StatusReviewed = "reviewed"
	StatusClosed   = "closed"
)
