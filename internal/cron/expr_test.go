package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseField_Wildcard(t *testing.T) {
	var out [60]bool
	any, ok := parseField("*", 0, 59, out[:], false)
	require.True(t, ok)
	require.True(t, any)
	for _, b := range out {
		require.True(t, b)
	}
}

func TestParseField_RangeAndStep(t *testing.T) {
	var out [60]bool
	_, ok := parseField("0-10/5", 0, 59, out[:], false)
	require.True(t, ok)
	require.True(t, out[0])
	require.True(t, out[5])
	require.True(t, out[10])
	require.False(t, out[1])
	require.False(t, out[11])
}

func TestParseField_CommaList(t *testing.T) {
	var out [24]bool
	_, ok := parseField("1,3,5", 0, 23, out[:], false)
	require.True(t, ok)
	require.True(t, out[1])
	require.True(t, out[3])
	require.True(t, out[5])
	require.False(t, out[2])
}

func TestParseField_Weekday7MapsToSundayBothSlots(t *testing.T) {
	var out [8]bool
	_, ok := parseField("7", 0, 7, out[:], true)
	require.True(t, ok)
	require.True(t, out[0])
	require.True(t, out[7])
}

func TestParseField_RejectsOutOfRange(t *testing.T) {
	var out [24]bool
	_, ok := parseField("25", 0, 23, out[:], false)
	require.False(t, ok)
}

func TestParseExpr_WrongFieldCountInvalid(t *testing.T) {
	require.False(t, parseExpr("* * *").valid)
}

func TestCronMatch_BothRestrictedIsOr(t *testing.T) {
	// "0 0 1 * 1": day-of-month=1 OR day-of-week=Monday.
	s := parseExpr("0 0 1 * 1")
	require.True(t, s.valid)

	mondayNotFirst := time.Date(2026, 8, 10, 0, 0, 0, 0, time.Local) // a Monday, not day 1
	require.True(t, s.match(mondayNotFirst))

	firstNotMonday := time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local) // day 1, Tuesday
	require.True(t, s.match(firstNotMonday))

	neitherMatches := time.Date(2026, 8, 11, 0, 0, 0, 0, time.Local) // Tuesday, day 11
	require.False(t, s.match(neitherMatches))
}

func TestCronMatch_BothAnyAlwaysMatchesMinuteHourMonth(t *testing.T) {
	s := parseExpr("30 14 * * *")
	require.True(t, s.match(time.Date(2026, 3, 5, 14, 30, 0, 0, time.Local)))
	require.False(t, s.match(time.Date(2026, 3, 5, 14, 31, 0, 0, time.Local)))
}

func TestComputeNextCronRunMs_AfterGivenTime(t *testing.T) {
	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.Local)
	next := computeNextCronRunMs("0 12 * * *", now.UnixMilli())
	require.Greater(t, next, now.UnixMilli())

	fireTime := time.UnixMilli(next)
	require.Equal(t, 12, fireTime.Hour())
	require.Equal(t, 0, fireTime.Minute())
}

func TestValidateExprSyntax(t *testing.T) {
	require.True(t, ValidateExprSyntax("*/5 * * * *"))
	require.False(t, ValidateExprSyntax("not a cron expr"))
}
