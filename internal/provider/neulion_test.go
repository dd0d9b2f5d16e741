package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerMockLogger struct{}

func (m *providerMockLogger) Debugf(format string, v ...interface{}) {}
func (m *providerMockLogger) Infof(format string, v ...interface{})  {}
func (m *providerMockLogger) Warnf(format string, v ...interface{})  {}
func (m *providerMockLogger) Errorf(format string, v ...interface{}) {}

const neulionSiteHTML = `<html><head><script>
var SEARCH_VARS = {};
SEARCH_VARS.allowedDates = ["2016-07-05", "2016-07-12", "2016-08-02"];
</script></head><body>
<select id="projectsSelector">
<option value="2197">All Meetings</option>
<option value="2198">Regular Council</option>
</select>
</body></html>`

const neulionClipsHTML = `<table>
<tr><td>
<a onclick="playClip('adaptive://nlds2.example.com/nlds/cacivic/cityofsurrey1/as/live/cityofsurrey1_hd_pc_20160712020109_020148.mp4')">Entire Council Meeting</a>
<input name="clip_id" value="38,1"/>
<input name="clip_project" value="2198"/>
<input name="clip_descr" value=""/>
<input name="clip_start_utc" value="2016-07-12 02:00:00"/>
</td></tr>
<tr><td>
<a onclick="playClip('adaptive://nlds2.example.com/nlds/cacivic/cityofsurrey1/as/live/cityofsurrey1_hd_pc_20160712021000_000500.mp4')">adaptive://nlds2.example.com/broken.mp4</a>
<input name="clip_id" value="38,2"/>
<input name="clip_project" value="2198"/>
<input name="clip_descr" value="Delegations"/>
<input name="clip_start_utc" value="2016-07-12 02:00:00"/>
</td></tr>
</table>`

func newTestNeulion(t *testing.T) (*Neulion, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/site", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, neulionSiteHTML)
	})
	mux.HandleFunc("/clips", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "getClips", r.URL.Query().Get("f"))
		assert.Equal(t, "2197", r.URL.Query().Get("prid"))
		fmt.Fprint(w, neulionClipsHTML)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	n := NewNeulion(Options{
		SiteURL:         server.URL + "/site",
		QualityTier:     "1600",
		IntervalSeconds: 2,
		Workers:         2,
	}, time.UTC, server.Client(), &providerMockLogger{})
	n.clipsURL = server.URL + "/clips"
	return n, server
}

func TestNeulionAvailableDates(t *testing.T) {
	n, _ := newTestNeulion(t)

	dates, err := n.AvailableDates(context.Background(),
		time.Date(2016, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2016, 7, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, time.Date(2016, 7, 5, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2016, 7, 12, 0, 0, 0, 0, time.UTC), dates[1])
}

func TestNeulionProjects(t *testing.T) {
	n, _ := newTestNeulion(t)

	projects, err := n.Projects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, Project{ID: "2197", Name: "All Meetings"}, projects[0])
	assert.Equal(t, Project{ID: "2198", Name: "Regular Council"}, projects[1])
}

func TestNeulionListClips(t *testing.T) {
	n, _ := newTestNeulion(t)

	clips, err := n.ListClips(context.Background(), time.Date(2016, 7, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, clips, 2)

	root := clips[0]
	assert.Equal(t, "38,1", root.ID)
	assert.Equal(t, "Entire Council Meeting", root.Title)
	assert.Equal(t, "Regular Council", root.Category)
	assert.Equal(t, "02:01:09", root.Start)
	assert.Equal(t, "04:02:57", root.End)

	// The glitched URL-as-title row falls back to the description.
	sub := clips[1]
	assert.Equal(t, "Delegations", sub.Title)
	assert.Equal(t, "02:10:00", sub.Start)
	assert.Equal(t, "02:15:00", sub.End)
}

func TestNeulionSegmentSeconds(t *testing.T) {
	n, _ := newTestNeulion(t)
	assert.Equal(t, 2, n.SegmentSeconds())
}
