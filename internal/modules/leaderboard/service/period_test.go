package service

import (
	"testing"
	"time"

	"anoa.com/coinexchange/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodKeys(t *testing.T) {
	tests := []struct {
		at      time.Time
		weekly  string
		monthly string
	}{
		{time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), "weekly:2026-W01", "monthly:2026-01"},
		{time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC), "weekly:2026-W53", "monthly:2027-01"},
		{time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC), "weekly:2026-W42", "monthly:2026-10"},
	}

	for _, tt := range tests {
		t.Run(tt.at.Format(time.DateOnly), func(t *testing.T) {
			assert.Equal(t, []string{tt.weekly, tt.monthly}, PeriodKeys(tt.at, time.UTC))
		})
	}
}

func TestPeriodKeysUseLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	at := time.Date(2026, 5, 31, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "monthly:2026-05", MonthlyKey(at, time.UTC))
	assert.Equal(t, "monthly:2026-06", MonthlyKey(at, jakarta))
}

func TestPreviousPeriodKeys(t *testing.T) {
	at := time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC)
	assert.Equal(t, []string{"weekly:2026-W09", "monthly:2026-02"}, PreviousPeriodKeys(at, time.UTC))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("weekly:2026-W01", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, PeriodWeekly, p.Kind)
	assert.Equal(t, time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), p.End)

	p, err = ParsePeriod("monthly:2026-02", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), p.End)

	for _, key := range []string{"", "weekly", "daily:2026-01", "weekly:2025-W53", "weekly:2026-W7", "monthly:2026-13", "monthly:2026-02x"} {
		_, err := ParsePeriod(key, time.UTC)
		assert.ErrorIs(t, err, apperror.ErrInvalidPeriod, key)
	}
}
