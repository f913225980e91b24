package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday morning.
var now = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func TestParseDueLayouts(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-11-02", time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)},
		{"2026-11-02 18:45", time.Date(2026, 11, 2, 18, 45, 0, 0, time.UTC)},
		{"2026-11-02T18:45", time.Date(2026, 11, 2, 18, 45, 0, 0, time.UTC)},
		{"2026-11-02T18:45:00+09:00", time.Date(2026, 11, 2, 9, 45, 0, 0, time.UTC)},
		{"  2026-11-02  ", time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDue(tt.in, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestParseDuePhrases(t *testing.T) {
	got, err := ParseDue("tomorrow", now)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Day())

	got, err = ParseDue("next friday", now)
	require.NoError(t, err)
	assert.Equal(t, time.Friday, got.Weekday())
	assert.True(t, got.After(now))
}

func TestParseDueRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "purple elephant"} {
		_, err := ParseDue(in, now)
		assert.Error(t, err, "%q", in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(nil))

	midnight := time.Date(2026, 11, 2, 0, 0, 0, 0, time.Local)
	assert.Equal(t, "2026-11-02", Format(&midnight))

	evening := time.Date(2026, 11, 2, 18, 45, 0, 0, time.Local)
	assert.Equal(t, "2026-11-02 18:45", Format(&evening))
}

func TestOverdue(t *testing.T) {
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, Overdue(nil, now))
	assert.True(t, Overdue(&past, now))
	assert.False(t, Overdue(&future, now))
}
