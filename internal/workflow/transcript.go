package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClockLayout is the wall-clock format shown next to each line
const ClockLayout = "15:04:05"

// ErrMalformedLine is returned by ParseLegacy for lines it cannot split
var ErrMalformedLine = errors.New("malformed transcript line")

// TranscriptLine is one agent reply, stamped when the runner saw it
type TranscriptLine struct {
	Time    time.Time
	Agent   string
	Message string
}

type transcriptJSON struct {
	Timestamp string    `json:"timestamp"`
	Time      time.Time `json:"time"`
	Agent     string    `json:"agent"`
	Message   string    `json:"message"`
}

// Timestamp returns the HH:MM:SS clock of the line
func (l TranscriptLine) Timestamp() string {
	return l.Time.Format(ClockLayout)
}

// MarshalJSON implements json.Marshaler
func (l TranscriptLine) MarshalJSON() ([]byte, error) {
	return json.Marshal(transcriptJSON{
		Timestamp: l.Timestamp(),
		Time:      l.Time,
		Agent:     l.Agent,
		Message:   l.Message,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (l *TranscriptLine) UnmarshalJSON(data []byte) error {
	var raw transcriptJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = TranscriptLine{Time: raw.Time, Agent: raw.Agent, Message: raw.Message}
	return nil
}

// Legacy renders the line as "[HH:MM:SS] AGENT: message"
func (l TranscriptLine) Legacy() string {
	return fmt.Sprintf("[%s] %s: %s", l.Timestamp(), l.Agent, l.Message)
}

// ParseLegacy splits a line rendered by Legacy back into its parts.
// Splits happen on the first "] " and then the first ": ", so message
// text may contain either separator; an agent name containing ": "
// cannot be recovered.
func ParseLegacy(line string) (timestamp, agent, message string, err error) {
	head, rest, ok := strings.Cut(line, "] ")
	if !ok || !strings.HasPrefix(head, "[") {
		return "", "", "", fmt.Errorf("%w: missing timestamp", ErrMalformedLine)
	}
	agent, message, ok = strings.Cut(rest, ": ")
	if !ok {
		return "", "", "", fmt.Errorf("%w: missing agent separator", ErrMalformedLine)
	}
	return strings.TrimPrefix(head, "["), agent, message, nil
}
