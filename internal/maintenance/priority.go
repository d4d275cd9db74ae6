package maintenance

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Priority is one of the four fixed maintenance tiers
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// ErrUnknownPriority is returned when a string does not name a tier
var ErrUnknownPriority = errors.New("unknown priority")

// PriorityDetails are the display attributes of a tier
type PriorityDetails struct {
	Urgency      string `json:"urgency"`
	Color        string `json:"color"`
	ResponseTime string `json:"response_time"`
}

// PriorityLevels is the static descriptor table, one entry per tier
var PriorityLevels = map[Priority]PriorityDetails{
	PriorityCritical: {Urgency: "IMMEDIATE", Color: "🔴", ResponseTime: "0-2 hours"},
	PriorityHigh:     {Urgency: "URGENT", Color: "🟠", ResponseTime: "2-8 hours"},
	PriorityMedium:   {Urgency: "SCHEDULED", Color: "🟡", ResponseTime: "24-48 hours"},
	PriorityLow:      {Urgency: "ROUTINE", Color: "🟢", ResponseTime: "1-2 weeks"},
}

// keywordTiers is evaluated in order; the first tier with a matching keyword wins
var keywordTiers = []struct {
	priority Priority
	keywords []string
}{
	{PriorityCritical, []string{"crack", "leak", "failure", "emergency", "broken", "damaged"}},
	{PriorityHigh, []string{"worn", "excessive", "abnormal", "warning", "alert"}},
	{PriorityMedium, []string{"routine", "schedule", "preventive", "inspection"}},
}

// Assessment is the classifier result
type Assessment struct {
	Priority       Priority        `json:"priority"`
	Details        PriorityDetails `json:"details"`
	AssessmentTime string          `json:"assessment_time"`
}

// ParsePriority maps a case-insensitive tier name to a Priority
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := PriorityLevels[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPriority, s)
	}
	return p, nil
}

// Details returns the descriptor table entry for p
func (p Priority) Details() PriorityDetails {
	return PriorityLevels[p]
}

// String implements fmt.Stringer
func (p Priority) String() string {
	return string(p)
}

// ClassifyPriority returns the tier for the findings text without a timestamp
func ClassifyPriority(findings string) Priority {
	lower := strings.ToLower(findings)
	for _, tier := range keywordTiers {
		for _, keyword := range tier.keywords {
			if strings.Contains(lower, keyword) {
				return tier.priority
			}
		}
	}
	return PriorityLow
}

// Classify assigns a priority tier to free-text findings
func Classify(findings string) Assessment {
	return ClassifyAt(findings, time.Now())
}

// ClassifyAt is Classify with an explicit assessment time
func ClassifyAt(findings string, now time.Time) Assessment {
	priority := ClassifyPriority(findings)
	return Assessment{
		Priority:       priority,
		Details:        priority.Details(),
		AssessmentTime: now.Format(time.RFC3339),
	}
}
