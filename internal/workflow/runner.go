// Package workflow turns an uploaded maintenance log image into a
// stream of transcript lines by driving the agent pipeline.
package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/yegors/maintlog/internal/agents"
	"github.com/yegors/maintlog/internal/metrics"
	"github.com/yegors/maintlog/internal/templating"
	"github.com/yegors/maintlog/pkg/logger"
)

// TaskSource is the sender recorded on the task message
const TaskSource = "maintenance_system"

// DefaultMaxImagePixels bounds the declared width times height of an upload
const DefaultMaxImagePixels = 40_000_000

// Run outcomes as recorded in metrics
const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Request is one analysis submission
type Request struct {
	Image            []byte
	AircraftID       string
	PriorityOverride string
	RunID            string // generated when empty
}

// Streamer runs a team against a task; *agents.Team implements it
type Streamer interface {
	RunStream(ctx context.Context, task agents.Message) iter.Seq2[agents.Message, error]
}

// Runner executes analysis requests
type Runner struct {
	team      Streamer
	renderer  *templating.TaskRenderer
	maxPixels int
	now       func() time.Time
	logger    *logger.Logger
}

// NewRunner creates a runner over team
func NewRunner(team Streamer, renderer *templating.TaskRenderer, logger *logger.Logger) *Runner {
	return &Runner{
		team:      team,
		renderer:  renderer,
		maxPixels: DefaultMaxImagePixels,
		now:       time.Now,
		logger:    logger.Named("workflow"),
	}
}

// WithMaxImagePixels replaces the pixel limit applied to uploads
func (r *Runner) WithMaxImagePixels(n int) *Runner {
	r.maxPixels = n
	return r
}

// DecodeImage checks that data is a PNG or JPEG image of at most
// maxPixels pixels and returns it tagged with its MIME type. Only the
// header is parsed, so the pixel buffer is never allocated here.
func DecodeImage(data []byte, maxPixels int) (agents.Image, error) {
	if len(data) == 0 {
		return agents.Image{}, ErrEmptyImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return agents.Image{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); maxPixels > 0 && pixels > int64(maxPixels) {
		return agents.Image{}, fmt.Errorf("%w: %dx%d exceeds %d pixels",
			ErrUnsupportedImage, cfg.Width, cfg.Height, maxPixels)
	}

	var mimeType string
	switch format {
	case "png":
		mimeType = "image/png"
	case "jpeg":
		mimeType = "image/jpeg"
	default:
		return agents.Image{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}
	return agents.Image{MIMEType: mimeType, Data: data}, nil
}

// Run analyzes req. Each reply-bearing turn yields one TranscriptLine
// as soon as it is produced; a failure yields one *AnalysisError and
// ends the sequence. Stopping iteration early stops the pipeline
// before its next turn.
func (r *Runner) Run(ctx context.Context, req Request) iter.Seq2[TranscriptLine, error] {
	return func(yield func(TranscriptLine, error) bool) {
		runID := req.RunID
		if runID == "" {
			runID = uuid.NewString()
		}
		log := r.logger.WithRunID(runID)
		started := r.now()

		fail := func(stage Stage, err error) {
			log.Error("Analysis failed", logger.String("stage", string(stage)), logger.Error(err))
			metrics.RecordAnalysis(StatusError, r.now().Sub(started))
			yield(TranscriptLine{}, &AnalysisError{Stage: stage, RunID: runID, Err: err})
		}

		img, err := DecodeImage(req.Image, r.maxPixels)
		if err != nil {
			fail(StageDecode, err)
			return
		}

		instructions, err := r.renderer.RenderTask(req.AircraftID, req.PriorityOverride)
		if err != nil {
			fail(StageRender, err)
			return
		}

		log.Info("Starting maintenance analysis",
			logger.String("aircraft_id", req.AircraftID),
			logger.String("mime_type", img.MIMEType),
			logger.Int("image_bytes", len(img.Data)))

		task := agents.NewMultiModalMessage(TaskSource, instructions, img)
		lines := 0
		for msg, err := range r.team.RunStream(ctx, task) {
			if err != nil {
				if errors.Is(err, context.Canceled) {
					log.Info("Analysis cancelled", logger.Int("lines", lines))
					metrics.RecordAnalysis(StatusCancelled, r.now().Sub(started))
					yield(TranscriptLine{}, &AnalysisError{Stage: StagePipeline, RunID: runID, Err: err})
					return
				}
				fail(StagePipeline, err)
				return
			}
			if msg.Type != agents.TypeText {
				continue
			}

			lines++
			metrics.RecordAgentTurn(msg.Source)
			log.Info("Agent completed", logger.String("agent", msg.Source))

			line := TranscriptLine{Time: r.now(), Agent: msg.Source, Message: msg.Content}
			if !yield(line, nil) {
				log.Info("Analysis abandoned by consumer", logger.Int("lines", lines))
				metrics.RecordAnalysis(StatusCancelled, r.now().Sub(started))
				return
			}
		}

		duration := r.now().Sub(started)
		metrics.RecordAnalysis(StatusSuccess, duration)
		log.Info("Maintenance analysis completed",
			logger.Int("lines", lines),
			logger.Duration("duration", duration))
	}
}
