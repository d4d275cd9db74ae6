package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyImage is returned when the request carries no image bytes
	ErrEmptyImage = errors.New("image is empty")
	// ErrUnsupportedImage is returned for data that is not a PNG or JPEG image
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// Stage names the part of a run that failed
type Stage string

const (
	StageDecode   Stage = "decode"
	StageRender   Stage = "render"
	StagePipeline Stage = "pipeline"
)

// AnalysisError is the single error type a run reports. Lines yielded
// before it remain valid.
type AnalysisError struct {
	Stage Stage
	RunID string
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis %s failed at %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
