package cli

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/yegors/maintlog/internal/agents"
	"github.com/yegors/maintlog/internal/config"
	"github.com/yegors/maintlog/internal/maintenance"
	"github.com/yegors/maintlog/internal/notify"
	"github.com/yegors/maintlog/internal/pipeline"
	"github.com/yegors/maintlog/internal/storage/sqlite"
	"github.com/yegors/maintlog/internal/templating"
	"github.com/yegors/maintlog/internal/workflow"
	"github.com/yegors/maintlog/pkg/logger"
)

// app holds the wired components shared by the commands
type app struct {
	config  *config.Config
	logger  *logger.Logger
	db      *sql.DB
	records *sqlite.RecordStorage // nil when storage is disabled
	runner  *workflow.Runner
}

// loadConfig loads the config and builds the root logger writing to logOut.
// Only the implicit default path may be absent.
func loadConfig(logOut io.Writer) (*config.Config, *logger.Logger, error) {
	load := config.LoadOptional
	if rootCmd.PersistentFlags().Changed("config") {
		load = config.Load
	}
	cfg, err := load(configPath)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: logOut,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// openRecords opens the record database when storage is enabled
func openRecords(cfg *config.Config, log *logger.Logger) (*sql.DB, *sqlite.RecordStorage, error) {
	if !cfg.Storage.Enabled {
		return nil, nil, nil
	}

	db, err := sqlite.Open(cfg.Storage.Path, log)
	if err != nil {
		return nil, nil, err
	}
	records, err := sqlite.NewRecordStorage(db, log)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, records, nil
}

// newApp wires model, tools, pipeline and runner from the config
func newApp(logOut io.Writer) (*app, error) {
	cfg, log, err := loadConfig(logOut)
	if err != nil {
		return nil, err
	}

	db, records, err := openRecords(cfg, log)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Dependencies{
		Model:   agents.NewOpenAIModel(cfg.LLM, log),
		Emailer: notify.NewNotifier(cfg.Mail, log),
		Audit:   maintenance.NewAuditLogger(cfg.Pipeline.AnalystTag, log),
	}
	if records != nil {
		deps.Records = records
	}

	team, err := pipeline.Build(cfg.Pipeline, deps, log)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	renderer, err := templating.NewTaskRenderer("", log)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	return &app{
		config:  cfg,
		logger:  log,
		db:      db,
		records: records,
		runner:  workflow.NewRunner(team, renderer, log).WithMaxImagePixels(cfg.Server.MaxImagePixels),
	}, nil
}

func (a *app) Close() {
	closeDB(a.db)
	a.logger.Sync()
}

func closeDB(db *sql.DB) {
	if db != nil {
		db.Close()
	}
}
