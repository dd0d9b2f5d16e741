package models

import "time"

// Segment represents one fixed-interval slice of a recording, independently
// fetchable at a timestamp-derived URL. This struct is shared between the
// URL generator, the fetcher and the capture layout.
type Segment struct {
	// URL is the fully-qualified URL to fetch the segment from.
	URL string
	// Timestamp is the UTC start time of the segment's interval.
	Timestamp time.Time
	// Filename is the deterministic local name the segment is stored
	// under. Deriving it from Timestamp makes re-runs idempotent.
	Filename string
}
