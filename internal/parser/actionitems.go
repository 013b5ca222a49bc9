// Package parser turns free-form actionable summaries into structured
// action items using line-level heuristics.
package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/starford/resummarize/internal/models"
)

const (
	weekdays   = `monday|tuesday|wednesday|thursday|friday|saturday|sunday`
	months     = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`
	datePhrase = `today|tonight|tomorrow` +
		`|(?:next|this)\s+(?:` + weekdays + `|week|weekend|month)` +
		`|end\s+of\s+(?:the\s+)?(?:day|week|month)` +
		`|` + weekdays +
		`|\d{1,2}/\d{1,2}(?:/\d{2,4})?` +
		`|(?:` + months + `)\.?\s+\d{1,2}(?:st|nd|rd|th)?`
)

var (
	listMarkerRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•]|\[[ xX]\])\s*`)
	sourceRe     = regexp.MustCompile(`(?i)\s*(?:\((?:from|source|note)\s*:\s*([^)]+)\)|\[(?:from|source|note)\s*:\s*([^\]]+)\])`)
	dueRe        = regexp.MustCompile(`(?i)\b(?:(?:by|before|on|due)\s+)?(` + datePhrase + `)\b`)

	priorityRules = []struct {
		priority models.Priority
		re       *regexp.Regexp
	}{
		{models.PriorityHigh, regexp.MustCompile(`(?i)\b(?:urgent\w*|asap|immediately|critical|important|high\s+priority)\b`)},
		{models.PriorityMedium, regexp.MustCompile(`(?i)\b(?:soon|this\s+week|should|medium\s+priority)\b`)},
		{models.PriorityLow, regexp.MustCompile(`(?i)\b(?:eventually|when\s+possible|someday|optional|low\s+priority)\b`)},
	}

	// Calling is deliberately absent: "call" covers both meetings and errands.
	categoryRules = []struct {
		category string
		re       *regexp.Regexp
	}{
		{"Meeting", regexp.MustCompile(`(?i)\b(?:meet|meeting|meetings|appointment|schedule|standup)\b`)},
		{"Communication", regexp.MustCompile(`(?i)\b(?:email|e-mail|message|reply|respond|contact|send|write\s+to|follow[\s-]up)\b`)},
		{"Review", regexp.MustCompile(`(?i)\b(?:review|check|verify|proofread|go\s+over|evaluate)\b`)},
		{"Creation", regexp.MustCompile(`(?i)\b(?:create|write|draft|build|design)\b`)},
		{"Research", regexp.MustCompile(`(?i)\b(?:research|investigate|look\s+into|explore|learn|study|read)\b`)},
		{"Purchase", regexp.MustCompile(`(?i)\b(?:buy|purchase|order|pay|shop)\b`)},
		{"Planning", regexp.MustCompile(`(?i)\b(?:plan|organize|prepare|decide|arrange)\b`)},
	}
)

// ParseActionItems splits text into one action item per non-empty line.
// List markers are stripped; priority, due date, category and source are
// detected independently per line.
func ParseActionItems(text string) []models.ActionItem {
	var items []models.ActionItem
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(listMarkerRe.ReplaceAllString(raw, ""))
		if line == "" {
			continue
		}

		item := models.ActionItem{ID: fmt.Sprintf("action-%d", len(items))}

		if m := sourceRe.FindStringSubmatch(line); m != nil {
			item.Source = strings.TrimSpace(m[1] + m[2])
			line = strings.TrimSpace(sourceRe.ReplaceAllString(line, ""))
		}
		item.Text = line
		item.Priority = detectPriority(line)
		item.DueDate = detectDueDate(line)
		item.Category = detectCategory(line)

		items = append(items, item)
	}
	return items
}

func detectPriority(line string) models.Priority {
	for _, r := range priorityRules {
		if r.re.MatchString(line) {
			return r.priority
		}
	}
	return ""
}

func detectDueDate(line string) string {
	m := dueRe.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return strings.Join(strings.Fields(m[1]), " ")
}

func detectCategory(line string) string {
	for _, r := range categoryRules {
		if r.re.MatchString(line) {
			return r.category
		}
	}
	return ""
}

// SortOption orders action items for display.
type SortOption string

const (
	SortDefault  SortOption = "default"
	SortPriority SortOption = "priority"
	SortDate     SortOption = "date"
)

// ParseSortOption validates s. An empty string yields SortDefault.
func ParseSortOption(s string) (SortOption, error) {
	switch SortOption(s) {
	case "", SortDefault:
		return SortDefault, nil
	case SortPriority, SortDate:
		return SortOption(s), nil
	}
	return "", fmt.Errorf("unknown sort option %q", s)
}

// SortActionItems returns a sorted copy of items. The sort is stable so
// equal items keep their summary order.
func SortActionItems(items []models.ActionItem, by SortOption) []models.ActionItem {
	out := append([]models.ActionItem(nil), items...)
	switch by {
	case SortPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return priorityRank(out[i].Priority) < priorityRank(out[j].Priority)
		})
	case SortDate:
		sort.SliceStable(out, func(i, j int) bool {
			return dateRank(out[i].DueDate) < dateRank(out[j].DueDate)
		})
	}
	return out
}

func priorityRank(p models.Priority) int {
	switch p {
	case models.PriorityHigh:
		return 0
	case models.PriorityMedium:
		return 1
	case models.PriorityLow:
		return 2
	}
	return 3
}

var weekdayRe = regexp.MustCompile(`(?i)^(?:this\s+)?(?:` + weekdays + `)$`)

func dateRank(due string) int {
	d := strings.ToLower(due)
	switch {
	case d == "":
		return 7
	case d == "today" || d == "tonight" || d == "end of day" || d == "end of the day":
		return 0
	case d == "tomorrow":
		return 1
	case weekdayRe.MatchString(d), d == "this week", d == "this weekend", strings.HasPrefix(d, "end of") && strings.HasSuffix(d, "week"):
		return 2
	case strings.HasPrefix(d, "next ") && d != "next month":
		return 3
	case strings.HasSuffix(d, "month"):
		return 4
	}
	return 5
}
