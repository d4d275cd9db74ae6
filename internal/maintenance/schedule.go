package maintenance

import (
	"encoding/json"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// ScheduleInfo is the maintenance plan derived from a tier
type ScheduleInfo struct {
	NextAction        time.Time
	FollowUp          time.Time
	EstimatedDuration string
	RequiredPersonnel int
}

// MarshalJSON renders the schedule the way agents read it: minutes for
// the next action, a calendar date for the follow-up
func (s ScheduleInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		NextMaintenance   string `json:"next_maintenance"`
		FollowUpDate      string `json:"follow_up_date"`
		EstimatedDuration string `json:"estimated_duration"`
		RequiredPersonnel int    `json:"required_personnel"`
	}{
		NextMaintenance:   s.NextAction.Format("2006-01-02 15:04"),
		FollowUpDate:      s.FollowUp.Format("2006-01-02"),
		EstimatedDuration: s.EstimatedDuration,
		RequiredPersonnel: s.RequiredPersonnel,
	})
}

// GenerateSchedule builds the schedule for priority. findings is a
// passthrough so the tool signature mirrors the classifier; it does not
// affect the result.
func GenerateSchedule(priority Priority, findings string) ScheduleInfo {
	return GenerateScheduleAt(priority, findings, time.Now())
}

// GenerateScheduleAt is GenerateSchedule with an explicit current time
func GenerateScheduleAt(priority Priority, _ string, now time.Time) ScheduleInfo {
	var nextAction, followUp time.Duration
	switch priority {
	case PriorityCritical:
		nextAction, followUp = 2*time.Hour, day
	case PriorityHigh:
		nextAction, followUp = 8*time.Hour, 3*day
	case PriorityMedium:
		nextAction, followUp = 2*day, week
	default:
		nextAction, followUp = week, 4*week
	}

	info := ScheduleInfo{
		NextAction:        now.Add(nextAction),
		FollowUp:          now.Add(followUp),
		EstimatedDuration: "1-2 hours",
		RequiredPersonnel: 1,
	}
	if priority == PriorityCritical || priority == PriorityHigh {
		info.EstimatedDuration = "2-5 hours"
		info.RequiredPersonnel = 2
	}
	return info
}
