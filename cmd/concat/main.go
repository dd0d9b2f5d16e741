// Command concat scans the capture directories left by the download
// command, joins each completed batch into a single video, and writes a
// corrected metadata record next to the output.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"councilvod/internal/capture"
	"councilvod/internal/concat"
	"councilvod/internal/config"
	"councilvod/internal/ffmpeg"
	"councilvod/internal/logger"
	"councilvod/internal/models"
	"councilvod/internal/provider"
	"councilvod/internal/segment"
	"councilvod/internal/timecode"
)

const monitorInterval = 10 * time.Second

func main() {
	configPath := flag.String("c", "config.yaml", "Path to the site config file")
	segmentsRoot := flag.String("s", "segments", "Directory holding the capture directories")
	videosDir := flag.String("o", "videos", "Directory to write joined videos into")
	nameContains := flag.String("n", "", "Only join captures whose directory name contains this")
	monitor := flag.Bool("m", false, "Keep scanning for new completed captures")
	keepInputs := flag.Bool("k", false, "Keep the segment directory after a successful join")
	ffmpegLoglevel := flag.String("F", "error", "Loglevel passed through to ffmpeg")
	logLevel := flag.String("L", "info", "Log level (error, warn, info, debug)")
	flag.Parse()

	log := logger.NewLogger(*logLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(*videosDir, 0o755); err != nil {
		log.Errorf("Failed to create videos directory: %v", err)
		os.Exit(1)
	}

	for {
		if err := scanOnce(ctx, log, *configPath, *segmentsRoot, *videosDir, *nameContains, *keepInputs, *ffmpegLoglevel); err != nil {
			log.Errorf("Scan failed: %v", err)
			os.Exit(1)
		}
		if !*monitor {
			break
		}
		select {
		case <-ctx.Done():
			log.Infof("Shutting down")
			return
		case <-time.After(monitorInterval):
		}
	}
}

func scanOnce(ctx context.Context, log logger.Logger, configPath, segmentsRoot, videosDir, nameContains string, keepInputs bool, ffmpegLoglevel string) error {
	entries, err := os.ReadDir(segmentsRoot)
	if err != nil {
		return fmt.Errorf("failed to list segments root %q: %w", segmentsRoot, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if nameContains != "" && !strings.Contains(name, nameContains) {
			continue
		}
		dir := filepath.Join(segmentsRoot, name)
		if !capture.IsDone(dir) {
			log.Debugf("Skipping %s, batch not yet complete", name)
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := joinCapture(ctx, log, configPath, dir, videosDir, keepInputs, ffmpegLoglevel); err != nil {
			// A failed join is visible but does not block the remaining
			// captures; its inputs stay on disk for a retry.
			log.Errorf("Failed to join %s: %v", name, err)
		}
	}
	return nil
}

func joinCapture(ctx context.Context, log logger.Logger, configPath, dir, videosDir string, keepInputs bool, ffmpegLoglevel string) error {
	md, err := capture.ReadMetadata(dir)
	if err != nil {
		return err
	}
	site, err := config.LoadSite(configPath, md.ConfigID)
	if err != nil {
		return err
	}
	prov, err := provider.New(site.Provider, provider.Options{
		SiteURL:     site.URL,
		UserAgent:   site.UserAgent,
		QualityTier: site.QualityTier,
		Timezone:    site.Timezone,
	}, log)
	if err != nil {
		return err
	}

	files, err := concat.SegmentFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Warnf("Capture %s has no segments, skipping", filepath.Base(dir))
		return nil
	}

	segmentSeconds := prov.SegmentSeconds()
	if segmentSeconds > 0 {
		if err := correctForGaps(log, dir, files[0], md, segmentSeconds); err != nil {
			return err
		}
	}

	manifest, err := concat.WriteConcatFile(dir, segmentSeconds)
	if err != nil {
		return err
	}

	name := filepath.Base(dir)
	videoOut := filepath.Join(videosDir, name+".mp4")
	if err := ffmpeg.Concat(ctx, log, manifest, videoOut, site.AudioMono, ffmpegLoglevel); err != nil {
		return err
	}

	measured, err := ffmpeg.Duration(ctx, videoOut)
	if err != nil {
		return err
	}
	measuredSeconds := int(math.Round(measured))
	md.ConcatDuration = timecode.FromSeconds(measuredSeconds)
	if md.Duration != "" {
		if err := correctForDrift(log, md, measuredSeconds); err != nil {
			return err
		}
	}

	if err := capture.WriteMetadataTo(filepath.Join(videosDir, name+".yaml"), md); err != nil {
		return err
	}

	if !keepInputs {
		log.Infof("Deleting segment directory %s", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to delete segment directory: %w", err)
		}
	}
	log.Infof("Finished %s", videoOut)
	return nil
}

// correctForGaps shifts the capture's timecodes back by one interval per
// missing segment, anchored on the timestamp of the first segment that
// actually made it to disk.
func correctForGaps(log logger.Logger, dir, firstFile string, md *models.Metadata, segmentSeconds int) error {
	missing, err := capture.MissingTimestamps(dir)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	start, err := segment.TimestampFromFilename(firstFile)
	if err != nil {
		return err
	}
	missingSeconds, err := concat.AdjustForMissingSegments(start, missing, md.TimeCodes, segmentSeconds)
	if err != nil {
		return err
	}
	md.MissingSeconds = missingSeconds
	log.Infof("Shifted timecodes for %d missing segments (%ds)", len(missing), missingSeconds)
	return nil
}

// correctForDrift rescales the timecodes when the joined output's measured
// duration differs from the duration the source claimed.
func correctForDrift(log logger.Logger, md *models.Metadata, measuredSeconds int) error {
	claimedSeconds, err := timecode.ToSeconds(md.Duration)
	if err != nil {
		return fmt.Errorf("capture has a bad claimed duration %q: %w", md.Duration, err)
	}
	// Gaps already accounted for shorten the expectation too.
	claimedSeconds -= md.MissingSeconds
	if measuredSeconds == claimedSeconds {
		return nil
	}
	factor, err := concat.Rescale(md.TimeCodes, claimedSeconds, measuredSeconds)
	if err != nil {
		return err
	}
	md.NewDuration = md.ConcatDuration
	log.Infof("Rescaled timecodes by %.4f (claimed %ds, measured %ds)", factor, claimedSeconds, measuredSeconds)
	return nil
}
