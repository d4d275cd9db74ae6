package api

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/yegors/maintlog/internal/config"
	"github.com/yegors/maintlog/internal/maintenance"
	"github.com/yegors/maintlog/internal/storage/sqlite"
	"github.com/yegors/maintlog/internal/workflow"
	"github.com/yegors/maintlog/pkg/logger"
)

const (
	defaultRecordLimit = 50
	maxRecordLimit     = 500
)

// AnalysisRunner runs one analysis; *workflow.Runner implements it
type AnalysisRunner interface {
	Run(ctx context.Context, req workflow.Request) iter.Seq2[workflow.TranscriptLine, error]
}

// RecordQuerier reads stored maintenance records; *sqlite.RecordStorage implements it
type RecordQuerier interface {
	GetRecordsByAircraft(ctx context.Context, aircraftID string, limit int) ([]*sqlite.RecordRow, error)
	GetRecordsByPriority(ctx context.Context, priority maintenance.Priority, limit int) ([]*sqlite.RecordRow, error)
	GetRecentRecords(ctx context.Context, limit int) ([]*sqlite.RecordRow, error)
}

// Handler handles API requests
type Handler struct {
	runner     AnalysisRunner
	records    RecordQuerier
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(runner AnalysisRunner, records RecordQuerier, mw *Middleware, config *config.Config, logger *logger.Logger) *Handler {
	return &Handler{
		runner:     runner,
		records:    records,
		middleware: mw,
		config:     config,
		logger:     logger.Named("api-handler"),
	}
}

// Frame types of an analysis stream
const (
	FrameStart    = "start"
	FrameLine     = "line"
	FrameComplete = "complete"
	FrameError    = "error"
)

// Frame is one NDJSON line (or websocket message) of an analysis stream
type Frame struct {
	Type      string     `json:"type"`
	RunID     string     `json:"run_id,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
	Time      *time.Time `json:"time,omitempty"`
	Agent     string     `json:"agent,omitempty"`
	Message   string     `json:"message,omitempty"`
	Lines     *int       `json:"lines,omitempty"`
	Error     string     `json:"error,omitempty"`
}

func lineFrame(line workflow.TranscriptLine) Frame {
	t := line.Time
	return Frame{
		Type:      FrameLine,
		Timestamp: line.Timestamp(),
		Time:      &t,
		Agent:     line.Agent,
		Message:   line.Message,
	}
}

// failureMessage is the text shown to the user for a failed run
func failureMessage(err error) string {
	var analysisErr *workflow.AnalysisError
	if errors.As(err, &analysisErr) {
		err = analysisErr.Err
	}
	return "Analysis failed: " + err.Error()
}

// runFrames drives one analysis and hands every frame to emit. It
// stops early when emit fails, which means the client went away.
func (h *Handler) runFrames(ctx context.Context, req workflow.Request, emit func(Frame) error) {
	log := h.logger.WithRunID(req.RunID)

	if err := emit(Frame{Type: FrameStart, RunID: req.RunID}); err != nil {
		log.Warn("Client gone before analysis start", logger.Error(err))
		return
	}

	lines := 0
	for line, err := range h.runner.Run(ctx, req) {
		if err != nil {
			if emitErr := emit(Frame{Type: FrameError, RunID: req.RunID, Error: failureMessage(err)}); emitErr != nil {
				log.Warn("Failed to send error frame", logger.Error(emitErr))
			}
			return
		}
		lines++
		if err := emit(lineFrame(line)); err != nil {
			log.Warn("Client gone during analysis", logger.Error(err), logger.Int("lines", lines))
			return
		}
	}

	if err := emit(Frame{Type: FrameComplete, RunID: req.RunID, Lines: &lines}); err != nil {
		log.Warn("Failed to send completion frame", logger.Error(err))
	}
}

// StreamAnalysis accepts a multipart upload and streams the transcript as NDJSON
func (h *Handler) StreamAnalysis(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.config.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := readAllLimited(file, maxBytes)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if _, err := workflow.DecodeImage(data, h.config.Server.MaxImagePixels); err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}

	req := workflow.Request{
		Image:            data,
		AircraftID:       r.FormValue("aircraft_id"),
		PriorityOverride: r.FormValue("priority_override"),
		RunID:            uuid.NewString(),
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	h.runFrames(r.Context(), req, func(f Frame) error {
		if err := enc.Encode(f); err != nil {
			return err
		}
		return rc.Flush()
	})
}

// GetRecords returns stored maintenance records, newest first
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		writeError(w, http.StatusNotFound, "record storage is disabled")
		return
	}

	query := r.URL.Query()
	limit := defaultRecordLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecordLimit)
	}

	aircraftID, rawPriority := query.Get("aircraft_id"), query.Get("priority")
	if aircraftID != "" && rawPriority != "" {
		writeError(w, http.StatusBadRequest, "filter by aircraft_id or priority, not both")
		return
	}

	var (
		rows []*sqlite.RecordRow
		err  error
	)
	switch {
	case aircraftID != "":
		rows, err = h.records.GetRecordsByAircraft(r.Context(), aircraftID, limit)
	case rawPriority != "":
		priority, perr := maintenance.ParsePriority(rawPriority)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		rows, err = h.records.GetRecordsByPriority(r.Context(), priority, limit)
	default:
		rows, err = h.records.GetRecentRecords(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("Failed to query maintenance records", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query records")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": rows,
		"count":   len(rows),
	})
}

// GetHealth reports liveness and which optional parts are enabled
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"storage": h.records != nil,
		"model":   h.config.LLM.Model,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
