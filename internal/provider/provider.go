package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"councilvod/internal/logger"
	"councilvod/internal/models"
	"councilvod/internal/segment"
)

// Provider is the capability interface every streaming site variant
// implements. Callers hold only this type.
type Provider interface {
	// AvailableDates returns the dates with recordings in [start, end].
	AvailableDates(ctx context.Context, start, end time.Time) ([]time.Time, error)
	// ListClips returns the raw clip records for one capture date, in
	// chronological order.
	ListClips(ctx context.Context, day time.Time) ([]models.ClipRecord, error)
	// Fetch downloads the media for one source URL into destDir.
	Fetch(ctx context.Context, sourceURL, destDir string) (segment.Report, error)
	// SegmentSeconds is the fixed per-segment duration, or zero when the
	// source has variable-length segments.
	SegmentSeconds() int
}

// Options carries the knobs shared by all provider variants. Defaults are
// supplied here rather than baked into the variants.
type Options struct {
	SiteURL         string
	UserAgent       string
	Workers         int
	QualityTier     string
	IntervalSeconds int
	Timezone        string
}

// New builds the provider variant named by kind.
func New(kind string, opts Options, log logger.Logger) (Provider, error) {
	if opts.Workers <= 0 {
		opts.Workers = segment.DefaultWorkers
	}
	if opts.QualityTier == "" {
		opts.QualityTier = "1600"
	}
	if opts.IntervalSeconds <= 0 {
		opts.IntervalSeconds = 2
	}
	if opts.Timezone == "" {
		opts.Timezone = "America/Vancouver"
	}
	tz, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", opts.Timezone, err)
	}

	client := &http.Client{Transport: &http.Transport{
		ResponseHeaderTimeout: 10 * time.Second,
	}}

	switch kind {
	case "neulion":
		return NewNeulion(opts, tz, client, log), nil
	case "granicus":
		return NewGranicus(opts, client, log), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", kind)
	}
}
