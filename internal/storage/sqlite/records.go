package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yegors/maintlog/internal/maintenance"
	"github.com/yegors/maintlog/pkg/logger"
)

// ErrRecordNotFound is returned when an update targets a missing row
var ErrRecordNotFound = errors.New("maintenance record not found")

const recordColumns = `id, aircraft_id, timestamp, findings, priority, analyst, status, created_at`

// storedTimeLayout has a fixed-width fraction so stored text sorts chronologically
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

// RecordStorage handles storage of maintenance records
type RecordStorage struct {
	db     *sql.DB
	now    func() time.Time
	logger *logger.Logger
}

// NewRecordStorage creates the record table if needed and returns the storage
func NewRecordStorage(db *sql.DB, log *logger.Logger) (*RecordStorage, error) {
	storage := &RecordStorage{
		db:     db,
		now:    time.Now,
		logger: log.Named("sqlite-records"),
	}

	if err := storage.initDB(); err != nil {
		return nil, err
	}
	return storage, nil
}

func (s *RecordStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS maintenance_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			aircraft_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			findings TEXT NOT NULL,
			priority TEXT NOT NULL,
			analyst TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending_review',
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create maintenance_records table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_records_aircraft_id ON maintenance_records(aircraft_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_timestamp ON maintenance_records(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_records_priority ON maintenance_records(priority)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create record index: %w", err)
		}
	}

	return nil
}

// StoreRecord inserts a record and returns its ID
func (s *RecordStorage) StoreRecord(ctx context.Context, record *maintenance.MaintenanceRecord) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO maintenance_records
		(aircraft_id, timestamp, findings, priority, analyst, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.AircraftID,
		record.Timestamp.UTC().Format(storedTimeLayout),
		record.Findings,
		string(record.Priority),
		record.Analyst,
		record.Status,
		s.now().UTC().Format(storedTimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert maintenance record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	s.logger.Debug("Stored maintenance record",
		logger.Int64("id", id),
		logger.String("aircraft_id", record.AircraftID),
		logger.String("priority", record.Priority.String()))

	return id, nil
}

// GetRecordsByAircraft returns the newest records for one aircraft
func (s *RecordStorage) GetRecordsByAircraft(ctx context.Context, aircraftID string, limit int) ([]*RecordRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+`
		FROM maintenance_records
		WHERE aircraft_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		aircraftID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query records by aircraft: %w", err)
	}
	defer rows.Close()

	return scanRecordRows(rows)
}

// GetRecordsByPriority returns the newest records of one priority tier
func (s *RecordStorage) GetRecordsByPriority(ctx context.Context, priority maintenance.Priority, limit int) ([]*RecordRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+`
		FROM maintenance_records
		WHERE priority = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		string(priority), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query records by priority: %w", err)
	}
	defer rows.Close()

	return scanRecordRows(rows)
}

// GetRecentRecords returns the newest records across all aircraft
func (s *RecordStorage) GetRecentRecords(ctx context.Context, limit int) ([]*RecordRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+`
		FROM maintenance_records
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent records: %w", err)
	}
	defer rows.Close()

	return scanRecordRows(rows)
}

// UpdateRecordStatus moves a record to a new review status
func (s *RecordStorage) UpdateRecordStatus(ctx context.Context, id int64, status string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE maintenance_records SET status = ? WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update record status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRecordNotFound, id)
	}
	return nil
}

func scanRecordRows(rows *sql.Rows) ([]*RecordRow, error) {
	records := []*RecordRow{}
	for rows.Next() {
		var record RecordRow
		var timestamp, createdAt, priority string

		if err := rows.Scan(
			&record.ID,
			&record.AircraftID,
			&timestamp,
			&record.Findings,
			&priority,
			&record.Analyst,
			&record.Status,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan maintenance record: %w", err)
		}

		var err error
		record.Timestamp, err = time.Parse(storedTimeLayout, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		record.CreatedAt, err = time.Parse(storedTimeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		record.Priority = maintenance.Priority(priority)

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate maintenance records: %w", err)
	}
	return records, nil
}
