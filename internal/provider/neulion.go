package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"councilvod/internal/logger"
	"councilvod/internal/models"
	"councilvod/internal/segment"
)

const defaultClipManagerURL = "http://civic.neulion.com/api/clipmanager.php"

// allowedDatesMarker precedes the date array embedded in the site's
// calendar script.
const allowedDatesMarker = "SEARCH_VARS.allowedDates = ["

// Project is a meeting category on a Neulion site. The first project in a
// listing is a special entry covering all categories.
type Project struct {
	ID   string
	Name string
}

// Neulion discovers clips on Neulion civic streaming sites. Streams are
// adaptive: a compact URL encodes the time range, and media is fetched as
// fixed-interval segments.
type Neulion struct {
	siteURL    string
	clipsURL   string
	tier       string
	interval   time.Duration
	tz         *time.Location
	userAgent  string
	httpClient *http.Client
	fetcher    *segment.Fetcher
	logger     logger.Logger

	projects []Project
}

// NewNeulion creates a Neulion provider.
func NewNeulion(opts Options, tz *time.Location, client *http.Client, log logger.Logger) *Neulion {
	return &Neulion{
		siteURL:    opts.SiteURL,
		clipsURL:   defaultClipManagerURL,
		tier:       opts.QualityTier,
		interval:   time.Duration(opts.IntervalSeconds) * time.Second,
		tz:         tz,
		userAgent:  opts.UserAgent,
		httpClient: client,
		fetcher:    segment.NewFetcher(client, log, opts.UserAgent, opts.Workers),
		logger:     log,
	}
}

// SegmentSeconds reports the fixed per-segment duration.
func (n *Neulion) SegmentSeconds() int {
	return int(n.interval / time.Second)
}

func (n *Neulion) get(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status %d from %s", resp.StatusCode, rawURL)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", rawURL, err)
	}
	return doc, nil
}

// AvailableDates parses the dates the site's video browser calendar
// allows, i.e. the dates that have videos available.
func (n *Neulion) AvailableDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	doc, err := n.get(ctx, n.siteURL)
	if err != nil {
		return nil, err
	}

	var dates []time.Time
	var parseErr error
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		body := s.Text()
		startIdx := strings.Index(body, allowedDatesMarker)
		if startIdx < 0 {
			return true
		}
		endIdx := strings.Index(body[startIdx:], "]")
		if endIdx < 0 {
			return true
		}
		for _, element := range strings.Split(body[startIdx+len(allowedDatesMarker):startIdx+endIdx], ",") {
			element = strings.TrimSpace(strings.ReplaceAll(element, `"`, ""))
			if element == "" {
				continue
			}
			day, err := time.ParseInLocation("2006-01-02", element, n.tz)
			if err != nil {
				parseErr = fmt.Errorf("unparseable calendar date %q: %w", element, err)
				return false
			}
			if !day.Before(start) && !day.After(end) {
				dates = append(dates, day)
			}
		}
		return false
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return dates, nil
}

// Projects returns the meeting categories. Results are cached for the
// provider's lifetime.
func (n *Neulion) Projects(ctx context.Context) ([]Project, error) {
	if n.projects != nil {
		return n.projects, nil
	}
	doc, err := n.get(ctx, n.siteURL)
	if err != nil {
		return nil, err
	}
	var projects []Project
	doc.Find("#projectsSelector option").Each(func(_ int, opt *goquery.Selection) {
		id, _ := opt.Attr("value")
		projects = append(projects, Project{ID: id, Name: strings.TrimSpace(opt.Text())})
	})
	if len(projects) == 0 {
		return nil, fmt.Errorf("no projects found on %s", n.siteURL)
	}
	n.projects = projects
	return projects, nil
}

// ListClips queries the clip manager for all clips on the given local
// date, across all projects, ordered by start time.
func (n *Neulion) ListClips(ctx context.Context, day time.Time) ([]models.ClipRecord, error) {
	projects, err := n.Projects(ctx)
	if err != nil {
		return nil, err
	}
	projectNames := make(map[string]string, len(projects))
	for _, p := range projects {
		projectNames[p.ID] = p.Name
	}

	query := url.Values{
		"f":         {"getClips"},
		"device":    {"desktop"},
		"prid":      {projects[0].ID},
		"proj_from": {day.Format("2006-01-02")},
		"tz":        {n.tz.String()},
	}
	doc, err := n.get(ctx, n.clipsURL+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var clips []models.ClipRecord
	var rowErr error
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		link := row.Find("a").First()
		onclick, ok := link.Attr("onclick")
		if !ok {
			return true
		}
		urlStart := strings.Index(onclick, "adaptive://")
		urlEnd := strings.Index(onclick, ".mp4")
		if urlStart < 0 || urlEnd < 0 {
			return true
		}
		adaptiveURL := onclick[urlStart : urlEnd+len(".mp4")]

		hidden := make(map[string]string)
		row.Find("input").Each(func(_ int, input *goquery.Selection) {
			name, _ := input.Attr("name")
			value, _ := input.Attr("value")
			hidden[name] = value
		})

		// Some listings carry a glitched title equal to the stream URL;
		// the description usually holds the real one.
		title := strings.Join(strings.Fields(link.Text()), " ")
		if strings.HasPrefix(title, "adaptive://") && hidden["clip_descr"] != "" {
			title = hidden["clip_descr"]
		}

		desc, err := segment.ParseAdaptiveURL(adaptiveURL, n.tier, n.interval)
		if err != nil {
			rowErr = err
			return false
		}

		clips = append(clips, models.ClipRecord{
			ID:        hidden["clip_id"],
			Title:     title,
			Category:  projectNames[hidden["clip_project"]],
			Start:     desc.Start.Format("15:04:05"),
			End:       desc.End.Format("15:04:05"),
			SourceURL: adaptiveURL,
		})
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	sort.SliceStable(clips, func(i, j int) bool { return clips[i].Start < clips[j].Start })
	n.logger.Debugf("Found %d clips on %s", len(clips), day.Format("2006-01-02"))
	return clips, nil
}

// Fetch downloads all fixed-interval segments of an adaptive stream URL.
func (n *Neulion) Fetch(ctx context.Context, sourceURL, destDir string) (segment.Report, error) {
	desc, err := segment.ParseAdaptiveURL(sourceURL, n.tier, n.interval)
	if err != nil {
		return segment.Report{}, err
	}
	return n.fetcher.FetchBatch(ctx, desc.Segments(), destDir)
}
