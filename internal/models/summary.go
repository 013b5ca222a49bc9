package models

import "fmt"

// SummaryType selects the summarization prompt.
type SummaryType string

const (
	SummaryBrief      SummaryType = "brief"
	SummaryDetailed   SummaryType = "detailed"
	SummaryActionable SummaryType = "actionable"
	SummaryTodo       SummaryType = "todo"
	SummaryKeypoints  SummaryType = "keypoints"
)

// SummaryTypes lists every supported summary type.
var SummaryTypes = []SummaryType{SummaryBrief, SummaryDetailed, SummaryActionable, SummaryTodo, SummaryKeypoints}

// ParseSummaryType validates s. An empty string yields SummaryBrief.
func ParseSummaryType(s string) (SummaryType, error) {
	if s == "" {
		return SummaryBrief, nil
	}
	for _, t := range SummaryTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown summary type %q", s)
}

// Summary is the result of summarizing one or more notes.
type Summary struct {
	Summary string      `json:"summary"`
	Type    SummaryType `json:"type"`
}

// Insights is the result of an insights request.
type Insights struct {
	Insights string `json:"insights"`
}

// Priority of an action item. Empty means unknown.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ActionItem is one line of an actionable summary.
type ActionItem struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Completed bool     `json:"completed"`
	Priority  Priority `json:"priority,omitempty"`
	DueDate   string   `json:"due_date,omitempty"`
	Category  string   `json:"category,omitempty"`
	Source    string   `json:"source,omitempty"`
}
