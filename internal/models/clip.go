package models

import "fmt"

// ClipRecord is a raw listing entry as discovered on a provider site.
// Start and End are wall-clock HH:MM:SS timecodes. Records are immutable
// once created; corrections operate on TimeCodes, never on these.
type ClipRecord struct {
	ID       string
	Title    string
	Category string
	Start    string
	End      string
	// SourceURL is the stream the clip belongs to. For adaptive streams
	// this is the compact descriptor URL that encodes the time range.
	SourceURL string
}

func (c ClipRecord) String() string {
	return fmt.Sprintf("%s: '%s' (%s at %s)", c.Category, c.Title, c.SourceURL, c.Start)
}

// TimeCode is a chapter marker inside a timeline. Time is an HH:MM:SS
// offset relative to the timeline start. After any correction OldTime
// carries the pre-correction offset for auditing.
type TimeCode struct {
	Time    string `yaml:"time"`
	Title   string `yaml:"title"`
	End     string `yaml:"end,omitempty"`
	OldTime string `yaml:"old_time,omitempty"`
}

// Metadata is the per-capture record written next to the downloaded
// segments and consumed by the concatenation and upload stages.
type Metadata struct {
	ConfigID     string      `yaml:"config_id"`
	RecordedDate string      `yaml:"recorded_date"`
	Start        string      `yaml:"start"`
	End          string      `yaml:"end"`
	Duration     string      `yaml:"duration,omitempty"`
	Title        string      `yaml:"title"`
	VideoURL     string      `yaml:"video_url"`
	ProjectID    string      `yaml:"project_id,omitempty"`
	ProjectName  string      `yaml:"project_name,omitempty"`
	ID           string      `yaml:"id"`
	TimeCodes    []*TimeCode `yaml:"timecodes"`

	// Correction results. MissingSeconds is the total removed by missing
	// segments; ConcatDuration is the measured duration of the joined
	// output; NewDuration is set when timecodes were rescaled against it.
	MissingSeconds int    `yaml:"missing_seconds,omitempty"`
	ConcatDuration string `yaml:"concat_duration,omitempty"`
	NewDuration    string `yaml:"new_duration,omitempty"`
}
