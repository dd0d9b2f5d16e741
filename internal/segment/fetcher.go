package segment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"councilvod/internal/logger"
	"councilvod/internal/models"
)

// Outcome classifies what happened to a single segment during a batch.
type Outcome int

const (
	// OutcomePresent means the segment already existed on disk with a
	// non-zero size and was skipped.
	OutcomePresent Outcome = iota
	// OutcomeFetched means the segment was downloaded and renamed into
	// place.
	OutcomeFetched
	// OutcomeMissing means the server returned an empty body. The gap is
	// recorded in the missing-segment manifest, not treated as an error.
	OutcomeMissing
)

// MissingManifest is the newline-delimited list of remote URLs whose
// fetch produced an empty body. It drives discrete timeline correction.
const MissingManifest = "_missing_segments.txt"

const tmpSuffix = ".tmp"

// Report summarizes a completed (or aborted) batch.
type Report struct {
	Skipped    int
	Fetched    int
	Missing    int
	TotalBytes int64
}

// Total is the number of segments accounted for.
func (r Report) Total() int {
	return r.Skipped + r.Fetched + r.Missing
}

// Fetcher downloads segments with a bounded worker pool. A zero-byte
// response is a recorded gap; any other failure aborts the batch, since it
// usually indicates a systemic problem rather than a one-off content hole.
type Fetcher struct {
	httpClient *http.Client
	logger     logger.Logger
	userAgent  string
	workers    int

	// RequestTimeout bounds each individual request attempt.
	RequestTimeout time.Duration
	// MaxRetries bounds attempts per segment for transport-level errors.
	MaxRetries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// DefaultWorkers is the worker count used when none is given.
const DefaultWorkers = 8

// NewFetcher creates a Fetcher with the given pool size.
func NewFetcher(client *http.Client, log logger.Logger, userAgent string, workers int) *Fetcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Fetcher{
		httpClient:     client,
		logger:         log,
		userAgent:      userAgent,
		workers:        workers,
		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
		RetryDelay:     100 * time.Millisecond,
	}
}

type fetchResult struct {
	segment models.Segment
	outcome Outcome
	err     error
}

// FetchBatch downloads all segments into dir. Re-running over a partially
// complete directory skips everything already present, so an interrupted
// batch can be resumed without redundant network I/O. Missing-segment URLs
// are appended to the manifest as the batch proceeds; the first transport
// failure cancels the remaining work and is returned.
func (f *Fetcher) FetchBatch(ctx context.Context, segments []models.Segment, dir string) (Report, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Report{}, fmt.Errorf("destination %q must be a directory", dir)
	}

	if err := f.removeIncomplete(dir); err != nil {
		return Report{}, err
	}

	var report Report
	var pending []models.Segment
	for _, seg := range segments {
		if fi, err := os.Stat(filepath.Join(dir, seg.Filename)); err == nil && fi.Size() > 0 {
			report.Skipped++
			continue
		}
		pending = append(pending, seg)
	}
	f.logger.Infof("%d segments were previously downloaded, %d to fetch", report.Skipped, len(pending))

	missing, err := os.OpenFile(filepath.Join(dir, MissingManifest), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return report, fmt.Errorf("failed to open missing-segment manifest: %w", err)
	}
	defer missing.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan models.Segment)
	results := make(chan fetchResult)

	var wg sync.WaitGroup
	for i := 0; i < f.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range tasks {
				res := f.fetchSegment(ctx, seg, dir)
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for _, seg := range pending {
			select {
			case tasks <- seg:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// The missing manifest has a single writer: this loop. Workers only
	// report outcomes.
	var batchErr error
	for res := range results {
		switch {
		case res.err != nil:
			if batchErr == nil {
				batchErr = res.err
				cancel()
			}
		case res.outcome == OutcomeMissing:
			report.Missing++
			if _, err := fmt.Fprintln(missing, res.segment.URL); err != nil && batchErr == nil {
				batchErr = fmt.Errorf("failed to record missing segment: %w", err)
				cancel()
			}
		default:
			report.Fetched++
		}
		done := report.Fetched + report.Missing
		if done%500 == 0 {
			f.logger.Infof("Fetched %d/%d segments", done, len(pending))
		}
	}

	report.TotalBytes = dirSize(dir)
	if batchErr != nil {
		return report, fmt.Errorf("segment batch aborted: %w", batchErr)
	}
	if report.Missing > 0 {
		f.logger.Warnf("%d segments were empty and omitted", report.Missing)
	}
	f.logger.Infof("Batch complete: %d skipped, %d fetched, %d missing, %.1f MB on disk",
		report.Skipped, report.Fetched, report.Missing, float64(report.TotalBytes)/1024/1024)
	return report, nil
}

// removeIncomplete deletes temp files left behind by an interrupted run.
func (f *Fetcher) removeIncomplete(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list destination %q: %w", dir, err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), tmpSuffix) {
			f.logger.Infof("Deleting incomplete segment %s", entry.Name())
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				return fmt.Errorf("failed to delete incomplete segment: %w", err)
			}
		}
	}
	return nil
}

// fetchSegment downloads one segment to a temp path and renames it into
// place once the full body is on disk. An empty body yields OutcomeMissing.
func (f *Fetcher) fetchSegment(ctx context.Context, seg models.Segment, dir string) fetchResult {
	dest := filepath.Join(dir, seg.Filename)
	tmpDest := dest + tmpSuffix

	var lastErr error
	for attempt := 1; attempt <= f.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fetchResult{segment: seg, err: ctx.Err()}
		}

		size, err := f.downloadOnce(ctx, seg.URL, tmpDest)
		if err != nil {
			lastErr = fmt.Errorf("attempt %d for segment %s: %w", attempt, seg.Filename, err)
			f.logger.Warnf("%v", lastErr)
			time.Sleep(f.RetryDelay)
			continue
		}

		if size == 0 {
			os.Remove(tmpDest)
			f.logger.Debugf("Segment %s came back empty", seg.URL)
			return fetchResult{segment: seg, outcome: OutcomeMissing}
		}
		if err := os.Rename(tmpDest, dest); err != nil {
			return fetchResult{segment: seg, err: fmt.Errorf("failed to move segment %s into place: %w", seg.Filename, err)}
		}
		return fetchResult{segment: seg, outcome: OutcomeFetched}
	}

	os.Remove(tmpDest)
	return fetchResult{segment: seg, err: fmt.Errorf("failed to download segment after %d attempts: %w", f.MaxRetries, lastErr)}
}

// downloadOnce performs a single streaming GET into tmpDest and reports
// the number of bytes written.
func (f *Fetcher) downloadOnce(ctx context.Context, segmentURL, tmpDest string) (int64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, segmentURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request for %s: %w", segmentURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("received status %d from %s", resp.StatusCode, segmentURL)
	}

	out, err := os.Create(tmpDest)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	size, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpDest)
		return 0, fmt.Errorf("failed to write segment body: %w", err)
	}
	return size, nil
}

func dirSize(dir string) int64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	var total int64
	for _, entry := range entries {
		if info, err := entry.Info(); err == nil && info.Mode().IsRegular() {
			total += info.Size()
		}
	}
	return total
}
