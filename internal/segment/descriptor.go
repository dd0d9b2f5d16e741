// Package segment derives per-interval segment URLs from a compact stream
// descriptor and downloads them with a bounded worker pool.
package segment

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"councilvod/internal/models"
)

const (
	// segmentTimeFormat is the timestamp layout embedded in segment URLs,
	// one path element per date, hour and minute-second pair.
	segmentTimeFormat = "20060102/15/0405"
	// filenameTimeFormat names segments on disk so that lexical order
	// equals chronological order.
	filenameTimeFormat = "20060102150405"

	qualityPlaceholder = "pc_"
)

// Descriptor identifies a contiguous run of fixed-interval segments.
// BaseURL is the URL prefix up to and including the quality tier.
type Descriptor struct {
	BaseURL  string
	Start    time.Time
	End      time.Time
	Interval time.Duration
	Ext      string
}

// ParseAdaptiveURL builds a Descriptor from the compact encoding used by
// adaptive stream URLs: `.../<name>_pc_<YYYYMMDDHHMMSS>_<HHMMSS>.mp4`,
// where the first timestamp is the UTC start and the second the duration.
// The `pc_` quality placeholder and everything after it are replaced with
// the given tier marker.
func ParseAdaptiveURL(adaptiveURL, tier string, interval time.Duration) (Descriptor, error) {
	parsed, err := url.Parse(adaptiveURL)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to parse adaptive URL %q: %w", adaptiveURL, err)
	}

	idx := strings.Index(parsed.Path, qualityPlaceholder)
	if idx < 0 {
		return Descriptor{}, fmt.Errorf("adaptive URL %q has no %q quality placeholder", adaptiveURL, qualityPlaceholder)
	}

	filename := path.Base(parsed.Path)
	ext := path.Ext(filename)
	filename = strings.TrimSuffix(filename, ext)
	tsPart := filename[strings.Index(filename, qualityPlaceholder)+len(qualityPlaceholder):]
	startStr, durStr, ok := strings.Cut(tsPart, "_")
	if !ok {
		return Descriptor{}, fmt.Errorf("adaptive URL %q has no start/duration pair", adaptiveURL)
	}

	start, err := time.ParseInLocation(filenameTimeFormat, startStr, time.UTC)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to parse start timestamp in %q: %w", adaptiveURL, err)
	}
	duration, err := parseCompactDuration(durStr)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to parse duration in %q: %w", adaptiveURL, err)
	}

	return Descriptor{
		BaseURL:  "http://" + parsed.Host + parsed.Path[:idx] + tier,
		Start:    start,
		End:      start.Add(duration),
		Interval: interval,
		Ext:      ext,
	}, nil
}

// parseCompactDuration interprets an HHMMSS string as a duration.
func parseCompactDuration(val string) (time.Duration, error) {
	if len(val) != 6 {
		return 0, fmt.Errorf("invalid compact duration %q", val)
	}
	var h, m, s int
	if _, err := fmt.Sscanf(val, "%02d%02d%02d", &h, &m, &s); err != nil {
		return 0, fmt.Errorf("invalid compact duration %q: %w", val, err)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second, nil
}

// NormalizedStart returns the start timestamp aligned to an even second
// boundary. Segment boundaries always fall on even seconds, so an odd
// start is pulled back by one second.
func (d Descriptor) NormalizedStart() time.Time {
	if d.Start.Second()%2 == 1 {
		return d.Start.Add(-time.Second)
	}
	return d.Start
}

// Segments returns one segment per interval tick from the normalized start
// up to but excluding the end timestamp. The same descriptor always yields
// the same sequence, which is what makes interrupted fetches resumable.
// An empty range yields an empty slice.
func (d Descriptor) Segments() []models.Segment {
	ext := d.Ext
	if ext == "" {
		ext = ".mp4"
	}
	var segments []models.Segment
	for current := d.NormalizedStart(); current.Before(d.End); current = current.Add(d.Interval) {
		segments = append(segments, models.Segment{
			URL:       fmt.Sprintf("%s/%s%s", d.BaseURL, current.Format(segmentTimeFormat), ext),
			Timestamp: current,
			Filename:  current.Format(filenameTimeFormat) + ext,
		})
	}
	return segments
}

// TimestampFromFilename recovers the UTC timestamp a segment was named
// after when it was stored on disk.
func TimestampFromFilename(filename string) (time.Time, error) {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	ts, err := time.ParseInLocation(filenameTimeFormat, base, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("segment file %q has no parseable timestamp: %w", filename, err)
	}
	return ts, nil
}

// TimestampFromURL recovers the UTC timestamp encoded in a segment URL's
// last three path elements. It is the inverse of the URL construction in
// Segments and is used to interpret the missing-segment manifest.
func TimestampFromURL(segmentURL string) (time.Time, error) {
	parts := strings.Split(segmentURL, "/")
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("segment URL %q has no timestamp path", segmentURL)
	}
	joined := strings.Join(parts[len(parts)-3:], "")
	joined = strings.TrimSuffix(joined, path.Ext(joined))
	ts, err := time.ParseInLocation(filenameTimeFormat, joined, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("segment URL %q has no parseable timestamp: %w", segmentURL, err)
	}
	return ts, nil
}
