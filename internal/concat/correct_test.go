package concat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"councilvod/internal/models"
)

func tcs(times ...string) []*models.TimeCode {
	out := make([]*models.TimeCode, len(times))
	for i, tm := range times {
		out[i] = &models.TimeCode{Time: tm, Title: "item"}
	}
	return out
}

// One 2-second gap 90 seconds in: the bookmark before it is untouched, the
// one after it moves back by one interval.
func TestAdjustForMissingSegments(t *testing.T) {
	start := time.Date(2016, 7, 12, 8, 0, 0, 0, time.UTC)
	missing := []time.Time{start.Add(90 * time.Second)}
	timecodes := tcs("00:01:00", "00:02:00")

	missingSeconds, err := AdjustForMissingSegments(start, missing, timecodes, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, missingSeconds)

	assert.Equal(t, "00:01:00", timecodes[0].Time)
	assert.Equal(t, "00:01:00", timecodes[0].OldTime)
	assert.Equal(t, "00:01:58", timecodes[1].Time)
	assert.Equal(t, "00:02:00", timecodes[1].OldTime)
}

// Gaps compound: a bookmark positioned after all of them accumulates every
// interval.
func TestAdjustForMissingSegmentsCompounds(t *testing.T) {
	start := time.Date(2016, 7, 12, 8, 0, 0, 0, time.UTC)
	missing := []time.Time{
		start.Add(10 * time.Second),
		start.Add(30 * time.Second),
		start.Add(50 * time.Second),
	}
	timecodes := tcs("00:00:20", "00:10:00")

	missingSeconds, err := AdjustForMissingSegments(start, missing, timecodes, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, missingSeconds)
	assert.Equal(t, "00:00:18", timecodes[0].Time)
	assert.Equal(t, "00:09:54", timecodes[1].Time)
}

func TestAdjustForMissingSegmentsNoGaps(t *testing.T) {
	start := time.Date(2016, 7, 12, 8, 0, 0, 0, time.UTC)
	timecodes := tcs("00:01:00")

	missingSeconds, err := AdjustForMissingSegments(start, nil, timecodes, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, missingSeconds)
	assert.Equal(t, "00:01:00", timecodes[0].Time)
}

func TestAdjustForMissingSegmentsBadTimecode(t *testing.T) {
	start := time.Date(2016, 7, 12, 8, 0, 0, 0, time.UTC)
	_, err := AdjustForMissingSegments(start, nil, tcs("nope"), 2)
	assert.Error(t, err)
}

// Equal claimed and measured durations make rescaling the identity.
func TestRescaleIdentity(t *testing.T) {
	timecodes := tcs("00:01:00", "01:30:45", "02:00:00")

	factor, err := Rescale(timecodes, 7200, 7200)
	require.NoError(t, err)
	assert.Equal(t, 1.0, factor)
	assert.Equal(t, "00:01:00", timecodes[0].Time)
	assert.Equal(t, "01:30:45", timecodes[1].Time)
	assert.Equal(t, "02:00:00", timecodes[2].Time)
}

func TestRescaleStretch(t *testing.T) {
	timecodes := tcs("00:10:00", "01:00:00")

	// Output measured 1% longer than claimed.
	factor, err := Rescale(timecodes, 3600, 3636)
	require.NoError(t, err)
	assert.InDelta(t, 1.01, factor, 1e-9)
	assert.Equal(t, "00:10:06", timecodes[0].Time)
	assert.Equal(t, "01:00:36", timecodes[1].Time)
	assert.Equal(t, "00:10:00", timecodes[0].OldTime)
}

func TestRescaleKeepsEarliestAudit(t *testing.T) {
	timecodes := []*models.TimeCode{{Time: "00:01:58", OldTime: "00:02:00", Title: "item"}}

	_, err := Rescale(timecodes, 1000, 500)
	require.NoError(t, err)
	assert.Equal(t, "00:00:59", timecodes[0].Time)
	// Discrete correction already recorded the original offset.
	assert.Equal(t, "00:02:00", timecodes[0].OldTime)
}

func TestRescaleRejectsZeroClaimed(t *testing.T) {
	_, err := Rescale(tcs("00:01:00"), 0, 100)
	assert.Error(t, err)
}
