// Package timecode converts between HH:MM:SS timecodes and integer
// seconds. All correction math in this repository happens at one-second
// granularity, so these conversions are exact.
package timecode

import (
	"fmt"
	"strconv"
	"strings"
)

// ToSeconds converts an HH:MM:SS timecode to integer seconds.
func ToSeconds(tc string) (int, error) {
	parts := strings.Split(tc, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timecode %q", tc)
	}
	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("invalid timecode %q: %w", tc, err)
		}
		vals[i] = v
	}
	return vals[0]*3600 + vals[1]*60 + vals[2], nil
}

// FromSeconds formats a second count as an HH:MM:SS timecode.
// Negative values clamp to 00:00:00.
func FromSeconds(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// Adjust shifts a timecode by the given number of seconds, clamping at
// 00:00:00.
func Adjust(tc string, seconds int) (string, error) {
	secs, err := ToSeconds(tc)
	if err != nil {
		return "", err
	}
	return FromSeconds(secs + seconds), nil
}
