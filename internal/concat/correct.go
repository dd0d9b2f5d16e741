package concat

import (
	"fmt"
	"math"
	"time"

	"councilvod/internal/models"
	"councilvod/internal/timecode"
)

// AdjustForMissingSegments shifts timecodes to account for segments that
// came back empty. Each missing timestamp removes exactly one interval
// from the final timeline, so every timecode at or after its position
// relative to start moves back by intervalSeconds. Multiple gaps compound.
// Pre-correction values are kept in OldTime. Returns the total number of
// seconds missing.
func AdjustForMissingSegments(start time.Time, missing []time.Time, timecodes []*models.TimeCode, intervalSeconds int) (int, error) {
	secs := make([]int, len(timecodes))
	for i, tc := range timecodes {
		s, err := timecode.ToSeconds(tc.Time)
		if err != nil {
			return 0, fmt.Errorf("invalid timecode %q: %w", tc.Time, err)
		}
		secs[i] = s
	}

	for _, missingTS := range missing {
		delta := int(missingTS.Sub(start).Seconds())
		for i := range secs {
			if secs[i] >= delta {
				secs[i] -= intervalSeconds
			}
		}
	}

	for i, tc := range timecodes {
		tc.OldTime = tc.Time
		tc.Time = timecode.FromSeconds(secs[i])
	}
	return len(missing) * intervalSeconds, nil
}

// Rescale applies proportional drift correction: when the measured
// duration of the joined output differs from the claimed source duration,
// every timecode is rescaled by measured/claimed, rounded to the nearest
// second. This compensates for the cumulative error the joiner introduces
// when per-segment durations were not declared explicitly. A factor of 1.0
// leaves every timecode unchanged. Pre-correction values are retained in
// OldTime unless an earlier correction already recorded one.
func Rescale(timecodes []*models.TimeCode, claimedSeconds, measuredSeconds int) (float64, error) {
	if claimedSeconds <= 0 {
		return 0, fmt.Errorf("claimed duration must be positive, got %d", claimedSeconds)
	}
	factor := float64(measuredSeconds) / float64(claimedSeconds)
	for _, tc := range timecodes {
		old, err := timecode.ToSeconds(tc.Time)
		if err != nil {
			return 0, fmt.Errorf("invalid timecode %q: %w", tc.Time, err)
		}
		if tc.OldTime == "" {
			tc.OldTime = tc.Time
		}
		tc.Time = timecode.FromSeconds(int(math.Round(float64(old) * factor)))
	}
	return factor, nil
}
