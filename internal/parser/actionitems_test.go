package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/resummarize/internal/models"
)

func TestParseUrgentBankCall(t *testing.T) {
	items := ParseActionItems("1. Call the bank urgently by tomorrow")
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, "action-0", it.ID)
	assert.Equal(t, "Call the bank urgently by tomorrow", it.Text)
	assert.Equal(t, models.PriorityHigh, it.Priority)
	assert.Equal(t, "tomorrow", it.DueDate)
	assert.Empty(t, it.Category)
	assert.Empty(t, it.Source)
	assert.False(t, it.Completed)
}

func TestParseSkipsBlankLinesAndStripsMarkers(t *testing.T) {
	text := "\n1. Email Dana about the lease\n\n- Review the budget soon\n* [ ] Buy groceries eventually\n2) Plan the trip next week\n   \n"
	items := ParseActionItems(text)
	require.Len(t, items, 4)

	assert.Equal(t, "Email Dana about the lease", items[0].Text)
	assert.Equal(t, "Communication", items[0].Category)

	assert.Equal(t, "Review the budget soon", items[1].Text)
	assert.Equal(t, "Review", items[1].Category)
	assert.Equal(t, models.PriorityMedium, items[1].Priority)

	assert.Equal(t, "[ ] Buy groceries eventually", items[2].Text, "only the leading marker is stripped")
	assert.Equal(t, "Purchase", items[2].Category)
	assert.Equal(t, models.PriorityLow, items[2].Priority)

	assert.Equal(t, "Plan the trip next week", items[3].Text)
	assert.Equal(t, "Planning", items[3].Category)
	assert.Equal(t, "next week", items[3].DueDate)

	for i, it := range items {
		assert.Equal(t, "action-"+string(rune('0'+i)), it.ID)
	}
}

func TestParseDueDates(t *testing.T) {
	cases := []struct{ line, want string }{
		{"Finish the report by Friday", "Friday"},
		{"Submit taxes before 4/15", "4/15"},
		{"Renew passport on March 3rd", "March 3rd"},
		{"Clean the garage this weekend", "this weekend"},
		{"Wrap up by end of the month", "end of the month"},
		{"Water the plants tonight", "tonight"},
		{"Think about the garden", ""},
	}
	for _, tc := range cases {
		items := ParseActionItems(tc.line)
		require.Len(t, items, 1, tc.line)
		assert.Equal(t, tc.want, items[0].DueDate, tc.line)
	}
}

func TestParseSource(t *testing.T) {
	items := ParseActionItems("3. Schedule the dentist appointment (from: Health Notes)\nRead chapter 4 [Note: Book Club]")
	require.Len(t, items, 2)

	assert.Equal(t, "Schedule the dentist appointment", items[0].Text)
	assert.Equal(t, "Health Notes", items[0].Source)
	assert.Equal(t, "Meeting", items[0].Category)

	assert.Equal(t, "Read chapter 4", items[1].Text)
	assert.Equal(t, "Book Club", items[1].Source)
	assert.Equal(t, "Research", items[1].Category)
}

func TestParseEmpty(t *testing.T) {
	assert.Empty(t, ParseActionItems(""))
	assert.Empty(t, ParseActionItems("\n  \n"))
}

func TestSortActionItems(t *testing.T) {
	items := ParseActionItems("Water plants someday\nPay rent today urgently\nCall mom tomorrow\nBuy stamps soon")

	byPriority := SortActionItems(items, SortPriority)
	assert.Equal(t, "Pay rent today urgently", byPriority[0].Text)
	assert.Equal(t, "Buy stamps soon", byPriority[1].Text)
	assert.Equal(t, "Water plants someday", byPriority[2].Text)
	assert.Equal(t, "Call mom tomorrow", byPriority[3].Text)

	byDate := SortActionItems(items, SortDate)
	assert.Equal(t, "Pay rent today urgently", byDate[0].Text)
	assert.Equal(t, "Call mom tomorrow", byDate[1].Text)

	assert.Equal(t, items, SortActionItems(items, SortDefault))
	assert.Equal(t, "Water plants someday", items[0].Text, "input is not reordered")
}

func TestParseSortOption(t *testing.T) {
	opt, err := ParseSortOption("")
	require.NoError(t, err)
	assert.Equal(t, SortDefault, opt)
	_, err = ParseSortOption("alpha")
	assert.Error(t, err)
}
