package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractdomain "github.com/wyfcoding/commoditytrading/internal/contract/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func TestResolveQPWindowMonthOfBL(t *testing.T) {
	w, err := ResolveQPWindow(contractdomain.QPMonthOfBL, day(2025, time.January, 15), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.January, 1), w.Start)
	assert.Equal(t, day(2025, time.January, 31), w.End)
}

func TestResolveQPWindowMonthPriorBLYearRollover(t *testing.T) {
	w, err := ResolveQPWindow(contractdomain.QPMonthPriorBL, day(2025, time.January, 15), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.December, 1), w.Start)
	assert.Equal(t, day(2024, time.December, 31), w.End)
}

func TestResolveQPWindowMonthAfterBLYearRollover(t *testing.T) {
	w, err := ResolveQPWindow(contractdomain.QPMonthAfterBL, day(2025, time.December, 10), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, day(2026, time.January, 1), w.Start)
	assert.Equal(t, day(2026, time.January, 31), w.End)
}

func TestResolveQPWindowLeapFebruary(t *testing.T) {
	w, err := ResolveQPWindow(contractdomain.QPMonthOfBL, day(2024, time.February, 5), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.February, 1), w.Start)
	assert.Equal(t, day(2024, time.February, 29), w.End)
}

func TestResolveQPWindowCustom(t *testing.T) {
	w, err := ResolveQPWindow(contractdomain.QPCustom, day(2025, time.June, 10), intPtr(-10), intPtr(5))
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.May, 31), w.Start)
	assert.Equal(t, day(2025, time.June, 15), w.End)
}

func TestResolveQPWindowCustomMissingOffsets(t *testing.T) {
	_, err := ResolveQPWindow(contractdomain.QPCustom, day(2025, time.June, 10), intPtr(-10), nil)
	assert.Error(t, err)

	_, err = ResolveQPWindow(contractdomain.QPCustom, day(2025, time.June, 10), nil, intPtr(5))
	assert.Error(t, err)
}

func TestResolveQPWindowUnknownConvention(t *testing.T) {
	_, err := ResolveQPWindow(contractdomain.QPConvention("BOGUS"), day(2025, time.June, 10), nil, nil)
	assert.Error(t, err)
}
