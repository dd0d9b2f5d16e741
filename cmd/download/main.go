// Command download discovers the clips for the given dates, groups them
// into root timelines, and downloads their segments into per-capture
// directories ready for joining.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"councilvod/internal/capture"
	"councilvod/internal/config"
	"councilvod/internal/logger"
	"councilvod/internal/models"
	"councilvod/internal/provider"
	"councilvod/internal/segment"
	"councilvod/internal/timecode"
)

func main() {
	configPath := flag.String("c", "config.yaml", "Path to the site config file")
	siteID := flag.String("s", "", "ID of the site config to use")
	dates := flag.String("d", "", "Comma-separated capture dates (YYYY-MM-DD) in local time")
	titleContains := flag.String("t", "", "Only download clips whose title contains this")
	workers := flag.Int("w", segment.DefaultWorkers, "Max number of concurrent segment downloads")
	logLevel := flag.String("L", "info", "Log level (error, warn, info, debug)")
	flag.Parse()

	log := logger.NewLogger(*logLevel)
	if *siteID == "" || *dates == "" {
		log.Errorf("Both -s and -d are required")
		os.Exit(2)
	}

	site, err := config.LoadSite(*configPath, *siteID)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	prov, err := provider.New(site.Provider, provider.Options{
		SiteURL:     site.URL,
		UserAgent:   site.UserAgent,
		Workers:     *workers,
		QualityTier: site.QualityTier,
		Timezone:    site.Timezone,
	}, log)
	if err != nil {
		log.Errorf("Failed to initialize provider: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, dateStr := range strings.Split(*dates, ",") {
		day, err := time.Parse("2006-01-02", strings.TrimSpace(dateStr))
		if err != nil {
			log.Errorf("Invalid date %q: %v", dateStr, err)
			os.Exit(2)
		}
		if err := downloadDate(ctx, log, prov, site, day, *titleContains); err != nil {
			log.Errorf("Failed on %s: %v", day.Format("2006-01-02"), err)
			os.Exit(1)
		}
	}
}

func downloadDate(ctx context.Context, log logger.Logger, prov provider.Provider, site config.Site, day time.Time, titleContains string) error {
	log.Infof("Looking for clips on %s", day.Format("2006-01-02"))
	clips, err := prov.ListClips(ctx, day)
	if err != nil {
		return err
	}
	if len(clips) == 0 {
		log.Infof("No available videos for %s", day.Format("2006-01-02"))
		return nil
	}

	groups, err := provider.GroupRootAndSubclips(clips)
	if err != nil {
		return err
	}

	for _, group := range groups {
		root := group.Root
		if titleContains != "" && !strings.Contains(root.Title, titleContains) {
			continue
		}
		log.Infof("Working on '%s' for %s", root.Title, day.Format("2006-01-02"))
		for _, sub := range group.Subclips {
			log.Debugf("Subclip: %s", sub.Title)
		}

		outdir := filepath.Join("segments", capture.DirName(site.ID, day, root.ID))
		if err := os.MkdirAll(outdir, 0o755); err != nil {
			return fmt.Errorf("failed to create segments directory: %w", err)
		}

		md, err := buildMetadata(site.ID, day, group)
		if err != nil {
			return err
		}
		if err := capture.WriteMetadata(outdir, md); err != nil {
			return err
		}

		report, err := prov.Fetch(ctx, root.SourceURL, outdir)
		if err != nil {
			return err
		}
		log.Infof("Capture %s: %d skipped, %d fetched, %d missing",
			filepath.Base(outdir), report.Skipped, report.Fetched, report.Missing)

		if err := capture.MarkDone(outdir); err != nil {
			return err
		}
	}
	return nil
}

// buildMetadata assembles the capture record: the root clip's identity
// plus its subclips as timecodes relative to the root start. A root
// without subclips gets itself as its only chapter marker.
func buildMetadata(configID string, day time.Time, group provider.Group) (*models.Metadata, error) {
	root := group.Root
	rootStart, err := timecode.ToSeconds(root.Start)
	if err != nil {
		return nil, fmt.Errorf("root clip %s has no start timecode: %w", root, err)
	}

	var timecodes []*models.TimeCode
	for _, sub := range group.Subclips {
		tc, err := relativeTimeCode(sub, rootStart)
		if err != nil {
			return nil, err
		}
		timecodes = append(timecodes, tc)
	}
	if len(timecodes) == 0 {
		timecodes = append(timecodes, &models.TimeCode{Time: "00:00:00", Title: root.Title})
	}

	md := &models.Metadata{
		ConfigID:     configID,
		RecordedDate: day.Format(time.RFC3339),
		Start:        absoluteTimestamp(day, rootStart),
		Title:        root.Title,
		VideoURL:     root.SourceURL,
		ProjectName:  root.Category,
		ID:           root.ID,
		TimeCodes:    timecodes,
	}
	if root.End != "" {
		rootEnd, err := timecode.ToSeconds(root.End)
		if err != nil {
			return nil, fmt.Errorf("root clip %s has a bad end timecode: %w", root, err)
		}
		md.End = absoluteTimestamp(day, rootEnd)
		md.Duration = timecode.FromSeconds(rootEnd - rootStart)
	}
	return md, nil
}

// relativeTimeCode rebases a subclip's wall-clock offsets onto the root
// start. Some subclips start marginally before their root; they clamp to
// the root start.
func relativeTimeCode(sub models.ClipRecord, rootStart int) (*models.TimeCode, error) {
	start, err := timecode.ToSeconds(sub.Start)
	if err != nil {
		return nil, fmt.Errorf("subclip %s has no start timecode: %w", sub, err)
	}
	tc := &models.TimeCode{
		Time:  timecode.FromSeconds(start - rootStart),
		Title: sub.Title,
	}
	if sub.End != "" {
		end, err := timecode.ToSeconds(sub.End)
		if err != nil {
			return nil, fmt.Errorf("subclip %s has a bad end timecode: %w", sub, err)
		}
		tc.End = timecode.FromSeconds(end - rootStart)
	}
	return tc, nil
}

func absoluteTimestamp(day time.Time, secondsIntoDay int) string {
	return day.Add(time.Duration(secondsIntoDay) * time.Second).UTC().Format(time.RFC3339)
}
