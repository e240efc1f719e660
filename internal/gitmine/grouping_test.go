// SPDX-License-Identifier: MIT

package gitmine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrouping(t *testing.T) {
	tests := []struct {
		in      string
		want    Grouping
		wantErr bool
	}{
		{"none", GroupNone, false},
		{"daily", GroupDaily, false},
		{"weekly", GroupWeekly, false},
		{"monthly", GroupMonthly, false},
		{"hourly", GroupNone, true},
		{"", GroupNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGrouping(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestGroupingBin(t *testing.T) {
	// Wednesday, 2023-06-14 15:04:05 UTC
	ts := time.Date(2023, 6, 14, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		g    Grouping
		want time.Time
	}{
		{"none", GroupNone, ts},
		{"daily", GroupDaily, time.Date(2023, 6, 14, 0, 0, 0, 0, time.UTC)},
		{"weekly", GroupWeekly, time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC)}, // Monday
		{"monthly", GroupMonthly, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.g.Bin(ts))
		})
	}
}

func TestGroupingBinWeekStartsMonday(t *testing.T) {
	sunday := time.Date(2023, 6, 18, 10, 0, 0, 0, time.UTC)
	monday := time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, GroupWeekly.Bin(sunday))

	assert.Equal(t, monday, GroupWeekly.Bin(monday))
}

func TestGroupingBinNormalisesZone(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2023, 6, 14, 1, 0, 0, 0, zone) // 2023-06-13 23:00 UTC

	assert.Equal(t, time.Date(2023, 6, 13, 0, 0, 0, 0, time.UTC), GroupDaily.Bin(local))
}
