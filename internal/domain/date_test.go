package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateDaysUntil(t *testing.T) {
	today := NewDate(2024, time.January, 10)

	assert.Equal(t, 0, today.DaysUntil(NewDate(2024, time.January, 10)))
	assert.Equal(t, 1, today.DaysUntil(NewDate(2024, time.January, 11)))
	assert.Equal(t, 2, today.DaysUntil(NewDate(2024, time.January, 12)))
	assert.Equal(t, -9, today.DaysUntil(NewDate(2024, time.January, 1)))
	assert.Equal(t, 22, today.DaysUntil(NewDate(2024, time.February, 1)))
}

func TestDateOfIgnoresTimeOfDay(t *testing.T) {
	tehran := time.FixedZone("IRST", 3*3600+1800)
	late := time.Date(2024, time.March, 5, 23, 59, 0, 0, tehran)

	assert.Equal(t, NewDate(2024, time.March, 5), DateOf(late))
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, time.January, 32)
	assert.Equal(t, "2024-02-01", d.String())

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-02-01"`, string(raw))

	var decoded Date
	require.NoError(t, json.Unmarshal([]byte(`"2023-12-31"`), &decoded))
	assert.Equal(t, NewDate(2023, time.December, 31), decoded)
	assert.Equal(t, NewDate(2024, time.January, 1), decoded.AddDays(1))

	assert.Error(t, json.Unmarshal([]byte(`"31/12/2023"`), &decoded))
}

func TestMenuSelectionDeduplicatesSides(t *testing.T) {
	sel := NewMenuSelection(1, 3, 2, 3, 2, 4)

	assert.True(t, sel.HasMain())
	assert.Equal(t, []int64{3, 2, 4}, sel.SideItemIDs)
	assert.False(t, NewMenuSelection(0).HasMain())
}

func TestScheduleCovers(t *testing.T) {
	s := Schedule{StartDate: NewDate(2024, time.January, 1), EndDate: NewDate(2024, time.January, 31)}

	assert.True(t, s.Covers(NewDate(2024, time.January, 1)))
	assert.True(t, s.Covers(NewDate(2024, time.January, 31)))
	assert.False(t, s.Covers(NewDate(2024, time.February, 1)))
}
