package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const surreyAdaptiveURL = "adaptive://nlds2.insinc.neulion.com/nlds/cacivic/cityofsurrey1/as/live/cityofsurrey1_hd_pc_20160712020109_020148.mp4"

func TestParseAdaptiveURL(t *testing.T) {
	desc, err := ParseAdaptiveURL(surreyAdaptiveURL, "1600", 2*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "http://nlds2.insinc.neulion.com/nlds/cacivic/cityofsurrey1/as/live/cityofsurrey1_hd_1600", desc.BaseURL)
	assert.Equal(t, time.Date(2016, 7, 12, 2, 1, 9, 0, time.UTC), desc.Start)
	// End is raw start plus the encoded 02:01:48 duration.
	assert.Equal(t, time.Date(2016, 7, 12, 4, 2, 57, 0, time.UTC), desc.End)
	assert.Equal(t, ".mp4", desc.Ext)
}

func TestParseAdaptiveURLErrors(t *testing.T) {
	_, err := ParseAdaptiveURL("http://example.com/no/placeholder.mp4", "1600", 2*time.Second)
	assert.Error(t, err)

	_, err = ParseAdaptiveURL("adaptive://h/x_pc_20160712020109.mp4", "1600", 2*time.Second)
	assert.Error(t, err)
}

func TestNormalizedStart(t *testing.T) {
	odd := Descriptor{Start: time.Date(2016, 7, 12, 2, 1, 9, 0, time.UTC)}
	assert.Equal(t, time.Date(2016, 7, 12, 2, 1, 8, 0, time.UTC), odd.NormalizedStart())

	even := Descriptor{Start: time.Date(2016, 7, 12, 2, 1, 8, 0, time.UTC)}
	assert.Equal(t, even.Start, even.NormalizedStart())
}

// TestSegmentsSurreySample pins the canonical Surrey clip: an odd start
// second is normalized down, and the generated list brackets the range at
// a 2-second cadence.
func TestSegmentsSurreySample(t *testing.T) {
	desc, err := ParseAdaptiveURL(surreyAdaptiveURL, "1600", 2*time.Second)
	require.NoError(t, err)

	segments := desc.Segments()
	require.Len(t, segments, 3655)

	first, last := segments[0], segments[len(segments)-1]
	assert.True(t, len(first.URL) > 0)
	assert.Equal(t, desc.BaseURL+"/20160712/02/0108.mp4", first.URL)
	assert.Equal(t, desc.BaseURL+"/20160712/04/0256.mp4", last.URL)
	assert.Equal(t, "20160712020108.mp4", first.Filename)

	for i := 1; i < len(segments); i++ {
		assert.Equal(t, 2*time.Second, segments[i].Timestamp.Sub(segments[i-1].Timestamp))
	}
}

func TestSegmentsEmptyRange(t *testing.T) {
	start := time.Date(2016, 7, 12, 2, 0, 0, 0, time.UTC)
	desc := Descriptor{
		BaseURL:  "http://example.com/stream_hd_1600",
		Start:    start,
		End:      start,
		Interval: 2 * time.Second,
	}
	assert.Empty(t, desc.Segments())

	desc.End = start.Add(-time.Minute)
	assert.Empty(t, desc.Segments())
}

func TestTimestampFromURL(t *testing.T) {
	ts, err := TimestampFromURL("http://example.com/stream_hd_1600/20160712/02/0108.mp4")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2016, 7, 12, 2, 1, 8, 0, time.UTC), ts)

	_, err = TimestampFromURL("http://example.com/not-a-timestamp.mp4")
	assert.Error(t, err)
}

// Round-trip: every generated URL decodes back to its own timestamp.
func TestTimestampFromURLRoundTrip(t *testing.T) {
	start := time.Date(2016, 7, 12, 23, 59, 56, 0, time.UTC)
	desc := Descriptor{
		BaseURL:  "http://example.com/stream_hd_1600",
		Start:    start,
		End:      start.Add(10 * time.Second),
		Interval: 2 * time.Second,
	}
	segments := desc.Segments()
	require.Len(t, segments, 5)
	for _, seg := range segments {
		ts, err := TimestampFromURL(seg.URL)
		require.NoError(t, err)
		assert.Equal(t, seg.Timestamp, ts, "URL %s", seg.URL)
	}
}
