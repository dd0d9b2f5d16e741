// Package concat plans the ordered reassembly of downloaded segments and
// corrects bookmark timelines for the joined output.
package concat

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ConcatManifest is the text file consumed by the external joiner.
const ConcatManifest = "_concat.txt"

// internalPrefix marks bookkeeping files that are not media segments.
const internalPrefix = "_"

// SegmentFiles lists the media segments in dir in filename-sort order.
// Filenames are derived from segment timestamps, so lexical order equals
// chronological order regardless of the order fetches completed in.
func SegmentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments directory %q: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), internalPrefix) {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

// WriteConcatFile writes the joiner manifest for dir: one `file` line per
// segment in chronological order. When segmentDuration is non-zero each
// entry also declares its duration explicitly; letting the joiner infer
// durations accumulates error and lengthens the output over time. For
// variable-length sources segmentDuration must be zero.
//
// The manifest is written to a temp path and renamed into place so a
// joiner never sees a partial write.
func WriteConcatFile(dir string, segmentDuration int) (string, error) {
	files, err := SegmentFiles(dir)
	if err != nil {
		return "", err
	}

	manifestPath := filepath.Join(dir, ConcatManifest)
	tmpPath := manifestPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create concat manifest: %w", err)
	}

	for _, filename := range files {
		// Paths are relative to the manifest, which lives in dir.
		if _, err := fmt.Fprintf(out, "file '%s'\n", filename); err != nil {
			out.Close()
			os.Remove(tmpPath)
			return "", fmt.Errorf("failed to write concat manifest: %w", err)
		}
		if segmentDuration > 0 {
			if _, err := fmt.Fprintf(out, "duration %d\n", segmentDuration); err != nil {
				out.Close()
				os.Remove(tmpPath)
				return "", fmt.Errorf("failed to write concat manifest: %w", err)
			}
		}
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close concat manifest: %w", err)
	}

	if err := os.Remove(manifestPath); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to replace concat manifest: %w", err)
	}
	if err := os.Rename(tmpPath, manifestPath); err != nil {
		return "", fmt.Errorf("failed to move concat manifest into place: %w", err)
	}
	return manifestPath, nil
}
