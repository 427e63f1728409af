package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		wantOK bool
		isNil  bool
		hour   int
	}{
		{"nil", nil, true, true, 0},
		{"blank", "   ", true, true, 0},
		{"null literal", "null", true, true, 0},
		{"rfc3339 with offset", "2025-03-01T23:30:00Z", true, false, 5},
		{"naive local", "2025-03-01 14:05:00", true, false, 14},
		{"millis", "2025-03-01T14:05:00.123", true, false, 14},
		{"date only", "2025-03-01", true, false, 0},
		{"garbage", "yesterday", false, true, 0},
		{"number", 42, false, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, ok := ParseTimestamp(tt.raw, ist)
			assert.Equal(t, tt.wantOK, ok)
			if tt.isNil {
				assert.Nil(t, ts)
				return
			}
			require.NotNil(t, ts)
			assert.Equal(t, tt.hour, ts.In(ist).Hour())
		})
	}
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", d.String())
	assert.Equal(t, Date{2025, time.February, 28}, d.AddDays(-1))
	assert.Equal(t, Date{2025, time.March, 2}, d.AddDays(1))

	_, err = ParseDate("01/03/2025")
	assert.Error(t, err)

	start := d.Start(ist)
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, ist, start.Location())

	// 23:30 UTC on Feb 28 is already March 1 in IST.
	utc := time.Date(2025, time.February, 28, 23, 30, 0, 0, time.UTC)
	assert.True(t, OnDate(&utc, d, ist))
	assert.False(t, OnDate(&utc, d, time.UTC))
	assert.False(t, OnDate(nil, d, ist))
}
