package restartslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minuteSet(values ...int) map[int]struct{} {
	set := make(map[int]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func TestParseMinuteFieldWildcard(t *testing.T) {
	minutes, err := ParseMinuteField("*")
	require.NoError(t, err)
	assert.Len(t, minutes, 60)
}

func TestParseMinuteFieldList(t *testing.T) {
	minutes, err := ParseMinuteField("0,15,30")
	require.NoError(t, err)
	assert.Equal(t, minuteSet(0, 15, 30), minutes)
}

func TestParseMinuteFieldRange(t *testing.T) {
	minutes, err := ParseMinuteField("0-4")
	require.NoError(t, err)
	assert.Equal(t, minuteSet(0, 1, 2, 3, 4), minutes)
}

func TestParseMinuteFieldStep(t *testing.T) {
	minutes, err := ParseMinuteField("*/15")
	require.NoError(t, err)
	assert.Equal(t, minuteSet(0, 15, 30, 45), minutes)
}

func TestParseMinuteFieldRangeStep(t *testing.T) {
	minutes, err := ParseMinuteField("0-30/10")
	require.NoError(t, err)
	assert.Equal(t, minuteSet(0, 10, 20, 30), minutes)
}

func TestParseMinuteFieldSingle(t *testing.T) {
	minutes, err := ParseMinuteField("37")
	require.NoError(t, err)
	assert.Equal(t, minuteSet(37), minutes)
}

func TestFindNextAvailableRoundsDownAndSkipsConflicts(t *testing.T) {
	backup := minuteSet(0, 5, 10)
	hour, minute := FindNextAvailable(6, 3, backup)
	assert.Equal(t, 6, hour)
	assert.Equal(t, 15, minute)
}

func TestFindNextAvailableFallsBackWhenAllSlotsTaken(t *testing.T) {
	backup := make(map[int]struct{})
	for m := 0; m < 60; m += 5 {
		backup[m] = struct{}{}
	}
	hour, minute := FindNextAvailable(23, 0, backup)
	assert.Equal(t, 23, hour)
	assert.Equal(t, 0, minute) // fallback: no slot found anywhere
}

func TestGenerateRestartCron(t *testing.T) {
	backup := minuteSet(0)
	cron := GenerateRestartCron(6, 0, backup, "*", "*", "*")
	assert.Equal(t, "5 6 * * *", cron)
}

func TestSummarizeConflicts(t *testing.T) {
	backup := minuteSet(0, 30)
	restart := minuteSet(30, 45)
	summary := Summarize(backup, restart)
	assert.Equal(t, []int{30}, summary.Conflicts)
	assert.Contains(t, summary.Available5Min, 5)
	assert.NotContains(t, summary.Available5Min, 0)
}
