package rbac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-01 was a Monday.
var (
	wednesdayNoon = time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	saturdayNoon  = time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC)
)

func TestTimeConstraint_NilSatisfied(t *testing.T) {
	var c *TimeConstraint
	assert.True(t, c.Satisfied(time.Now()))
}

func TestTimeConstraint_EmptySatisfied(t *testing.T) {
	c := &TimeConstraint{}
	assert.True(t, c.Satisfied(wednesdayNoon))
}

func TestTimeConstraint_AbsoluteBounds(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	c := &TimeConstraint{StartsAt: &start, EndsAt: &end}

	assert.True(t, c.Satisfied(wednesdayNoon))
	assert.False(t, c.Satisfied(start.Add(-time.Hour)))
	assert.False(t, c.Satisfied(end.Add(time.Hour)))
}

func TestTimeConstraint_Weekends(t *testing.T) {
	// 1=Sunday, 7=Saturday.
	c := &TimeConstraint{Weekdays: []int{1, 7}}

	assert.True(t, c.Satisfied(saturdayNoon))
	assert.True(t, c.Satisfied(time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC))) // Sunday
	assert.False(t, c.Satisfied(wednesdayNoon))
}

func TestTimeConstraint_SameDayWindow(t *testing.T) {
	c := &TimeConstraint{DailyStart: "09:00", DailyEnd: "17:00"}

	assert.True(t, c.Satisfied(time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)))
	assert.True(t, c.Satisfied(wednesdayNoon))
	assert.True(t, c.Satisfied(time.Date(2024, 1, 3, 17, 0, 0, 0, time.UTC)))
	assert.False(t, c.Satisfied(time.Date(2024, 1, 3, 8, 59, 0, 0, time.UTC)))
	assert.False(t, c.Satisfied(time.Date(2024, 1, 3, 17, 1, 0, 0, time.UTC)))
}

func TestTimeConstraint_OvernightWindow(t *testing.T) {
	// Start after end spans midnight.
	c := &TimeConstraint{DailyStart: "22:00", DailyEnd: "06:00"}

	assert.True(t, c.Satisfied(time.Date(2024, 1, 3, 23, 30, 0, 0, time.UTC)))
	assert.True(t, c.Satisfied(time.Date(2024, 1, 3, 2, 0, 0, 0, time.UTC)))
	assert.False(t, c.Satisfied(wednesdayNoon))
}

func TestTimeConstraint_AllRulesMustPass(t *testing.T) {
	c := &TimeConstraint{
		Weekdays:   []int{7},
		DailyStart: "22:00",
		DailyEnd:   "06:00",
	}

	assert.True(t, c.Satisfied(time.Date(2024, 1, 6, 23, 0, 0, 0, time.UTC)))
	// Right weekday, wrong clock time.
	assert.False(t, c.Satisfied(saturdayNoon))
	// Right clock time, wrong weekday.
	assert.False(t, c.Satisfied(time.Date(2024, 1, 3, 23, 0, 0, 0, time.UTC)))
}

func TestTimeConstraint_Validate(t *testing.T) {
	require.NoError(t, (&TimeConstraint{DailyStart: "22:00", DailyEnd: "06:00"}).Validate())

	assert.Error(t, (&TimeConstraint{Weekdays: []int{0}}).Validate())
	assert.Error(t, (&TimeConstraint{Weekdays: []int{8}}).Validate())
	assert.Error(t, (&TimeConstraint{DailyStart: "22:00"}).Validate())
	assert.Error(t, (&TimeConstraint{DailyStart: "25:00", DailyEnd: "06:00"}).Validate())

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	assert.Error(t, (&TimeConstraint{StartsAt: &start, EndsAt: &end}).Validate())
}
