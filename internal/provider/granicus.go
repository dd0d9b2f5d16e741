package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"councilvod/internal/logger"
	"councilvod/internal/models"
	"councilvod/internal/segment"
)

var (
	clipIDPattern = regexp.MustCompile(`clipId:\s*'([\w\-]+)',`)
	// Listing titles carry a redundant date suffix like " (Jul. 12, 2016)".
	titleDateSuffix = regexp.MustCompile(`(?i) \(\w+\.? \d+, \d+\)`)
)

// granicusVideo is one row of the archived-meetings listing table.
type granicusVideo struct {
	Title    string
	Date     time.Time
	VideoURL string
}

// Granicus discovers clips on Granicus archive sites. Media is a single
// HLS stream resolved to variable-length transport-stream pieces; there is
// no fixed per-segment duration.
type Granicus struct {
	siteURL    string
	userAgent  string
	httpClient *http.Client
	fetcher    *segment.Fetcher
	logger     logger.Logger
}

// NewGranicus creates a Granicus provider.
func NewGranicus(opts Options, client *http.Client, log logger.Logger) *Granicus {
	return &Granicus{
		siteURL:    opts.SiteURL,
		userAgent:  opts.UserAgent,
		httpClient: client,
		fetcher:    segment.NewFetcher(client, log, opts.UserAgent, opts.Workers),
		logger:     log,
	}
}

// SegmentSeconds is zero: HLS pieces have variable length, so the joiner
// manifest must not declare durations.
func (g *Granicus) SegmentSeconds() int {
	return 0
}

func (g *Granicus) getBody(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received status %d from %s", resp.StatusCode, rawURL)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body from %s: %w", rawURL, err)
	}
	return string(body), nil
}

// videos parses the archived-meetings listing. The second listing table on
// the page is the one with past meetings.
func (g *Granicus) videos(ctx context.Context) ([]granicusVideo, error) {
	body, err := g.getBody(ctx, g.siteURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing HTML: %w", err)
	}

	tables := doc.Find("table.listingTable")
	if tables.Length() < 2 {
		return nil, fmt.Errorf("no archive table found on %s", g.siteURL)
	}

	var videos []granicusVideo
	var rowErr error
	tables.Eq(1).Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return true
		}

		dateText := strings.Join(strings.Fields(cells.Eq(1).Text()), " ")
		dateText = strings.ReplaceAll(dateText, ".", "")
		day, err := time.Parse("Jan 2, 2006", dateText)
		if err != nil {
			rowErr = fmt.Errorf("unparseable listing date %q: %w", dateText, err)
			return false
		}

		onclick, _ := cells.Eq(4).Find("a").Attr("onclick")
		videoURL := urlFromOnclick(onclick)
		if videoURL == "" {
			return true
		}

		videos = append(videos, granicusVideo{
			Title:    firstTextLine(cells.Eq(0)),
			Date:     day,
			VideoURL: videoURL,
		})
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return videos, nil
}

// urlFromOnclick extracts the player URL from a window.open handler.
func urlFromOnclick(onclick string) string {
	const startVal = "open('"
	startIdx := strings.Index(onclick, startVal)
	if startIdx < 0 {
		return ""
	}
	endIdx := strings.LastIndex(onclick, "','player'")
	if endIdx < 0 {
		return ""
	}
	return onclick[startIdx+len(startVal) : endIdx]
}

// firstTextLine returns the first non-empty text line of a cell, skipping
// nested markup.
func firstTextLine(cell *goquery.Selection) string {
	for _, line := range strings.Split(cell.Text(), "\n") {
		if trimmed := strings.Join(strings.Fields(line), " "); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// AvailableDates lists the distinct meeting dates in [start, end].
func (g *Granicus) AvailableDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	videos, err := g.videos(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, video := range videos {
		if video.Date.Before(start) || video.Date.After(end) {
			continue
		}
		if _, ok := seen[video.Date]; ok {
			continue
		}
		seen[video.Date] = struct{}{}
		dates = append(dates, video.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// ListClips returns one record per archived meeting on the given date. The
// clip id is resolved from the player page so it can key the capture
// directory.
func (g *Granicus) ListClips(ctx context.Context, day time.Time) ([]models.ClipRecord, error) {
	videos, err := g.videos(ctx)
	if err != nil {
		return nil, err
	}
	var clips []models.ClipRecord
	for _, video := range videos {
		if !sameDate(video.Date, day) {
			continue
		}
		clipID, err := g.clipID(ctx, video.VideoURL)
		if err != nil {
			return nil, err
		}
		clips = append(clips, models.ClipRecord{
			ID:        clipID,
			Title:     strings.TrimSpace(titleDateSuffix.ReplaceAllString(video.Title, "")),
			Start:     "00:00:00",
			SourceURL: video.VideoURL,
		})
	}
	return clips, nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// clipID scrapes the player page for its clip identifier.
func (g *Granicus) clipID(ctx context.Context, videoURL string) (string, error) {
	body, err := g.getBody(ctx, videoURL)
	if err != nil {
		return "", err
	}
	match := clipIDPattern.FindStringSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("no clip id found on %s", videoURL)
	}
	return match[1], nil
}

// streams resolves a clip id to its RTMP and HLS stream URLs.
func (g *Granicus) streams(ctx context.Context, clipID string) (rtmpURL, m3u8URL string, err error) {
	site, err := url.Parse(g.siteURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid site URL %q: %w", g.siteURL, err)
	}
	streamsURL := fmt.Sprintf("%s://%s/player/GetStreams.php?clip_id=%s", site.Scheme, site.Host, url.QueryEscape(clipID))
	body, err := g.getBody(ctx, streamsURL)
	if err != nil {
		return "", "", err
	}

	var entries []string
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return "", "", fmt.Errorf("unparseable streams response from %s: %w", streamsURL, err)
	}
	if len(entries) < 2 {
		return "", "", fmt.Errorf("streams response from %s has %d entries, want 2", streamsURL, len(entries))
	}
	return entries[0], entries[1], nil
}

// pieceURLs resolves the two-level HLS playlist into the list of
// transport-stream piece URLs.
func (g *Granicus) pieceURLs(ctx context.Context, m3u8URL string) ([]string, error) {
	baseURL := m3u8URL[:strings.LastIndex(m3u8URL, "/")]

	body, err := g.getBody(ctx, m3u8URL)
	if err != nil {
		return nil, err
	}
	variant := firstUncommentedLine(body)
	if variant == "" {
		return nil, fmt.Errorf("playlist %s has no variant entry", m3u8URL)
	}

	body, err = g.getBody(ctx, baseURL+"/"+variant)
	if err != nil {
		return nil, err
	}
	var pieces []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") || !strings.HasSuffix(line, ".ts") {
			continue
		}
		pieces = append(pieces, baseURL+"/"+line)
	}
	return pieces, nil
}

func firstUncommentedLine(playlist string) string {
	for _, line := range strings.Split(playlist, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}

// Fetch resolves the player URL to its HLS pieces and downloads them.
// Piece URLs carry no timestamps, so filenames fall back to the padded
// sequence index; lexical order still equals chronological order.
func (g *Granicus) Fetch(ctx context.Context, sourceURL, destDir string) (segment.Report, error) {
	clipID, err := g.clipID(ctx, sourceURL)
	if err != nil {
		return segment.Report{}, err
	}
	_, m3u8URL, err := g.streams(ctx, clipID)
	if err != nil {
		return segment.Report{}, err
	}
	pieces, err := g.pieceURLs(ctx, m3u8URL)
	if err != nil {
		return segment.Report{}, err
	}

	segments := make([]models.Segment, len(pieces))
	for i, pieceURL := range pieces {
		segments[i] = models.Segment{
			URL:      pieceURL,
			Filename: fmt.Sprintf("%05d%s", i, path.Ext(pieceURL)),
		}
	}
	g.logger.Infof("Resolved %d stream pieces for clip %s", len(segments), clipID)
	return g.fetcher.FetchBatch(ctx, segments, destDir)
}
