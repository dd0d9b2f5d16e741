// Package capture defines the on-disk layout of one capture: a directory
// of raw segments plus the bookkeeping files that describe them. All
// bookkeeping files share an underscore prefix so the assembly planner can
// tell them apart from media.
package capture

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"councilvod/internal/models"
	"councilvod/internal/segment"
)

const (
	// MetadataFile holds the capture's metadata record.
	MetadataFile = "_metadata.yaml"
	// DoneFile is the sentinel marking a batch complete and ready for
	// joining.
	DoneFile = "_done.txt"
)

// DirName derives the capture directory key from the configuration id,
// the capture date and the clip identifier. Commas appear in some
// provider clip ids and are unsafe in paths.
func DirName(configID string, day time.Time, clipID string) string {
	return fmt.Sprintf("%s_%s_%s", configID, day.Format("20060102"), strings.ReplaceAll(clipID, ",", "."))
}

// WriteMetadata stores the metadata record inside the capture directory.
func WriteMetadata(dir string, md *models.Metadata) error {
	return WriteMetadataTo(filepath.Join(dir, MetadataFile), md)
}

// WriteMetadataTo stores a metadata record at an explicit path.
func WriteMetadataTo(path string, md *models.Metadata) error {
	data, err := yaml.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata to %s: %w", path, err)
	}
	return nil
}

// ReadMetadata loads the metadata record from the capture directory.
func ReadMetadata(dir string) (*models.Metadata, error) {
	path := filepath.Join(dir, MetadataFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata at %s: %w", path, err)
	}
	var md models.Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata at %s: %w", path, err)
	}
	return &md, nil
}

// MarkDone writes the completion sentinel.
func MarkDone(dir string) error {
	if err := os.WriteFile(filepath.Join(dir, DoneFile), []byte("yes\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write done marker: %w", err)
	}
	return nil
}

// IsDone reports whether the capture's batch completed.
func IsDone(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, DoneFile))
	return err == nil
}

// MissingTimestamps reads the missing-segment manifest back as UTC
// timestamps. A capture without a manifest simply has no gaps.
func MissingTimestamps(dir string) ([]time.Time, error) {
	f, err := os.Open(filepath.Join(dir, segment.MissingManifest))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read missing-segment manifest: %w", err)
	}
	defer f.Close()

	var timestamps []time.Time
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ts, err := segment.TimestampFromURL(line)
		if err != nil {
			return nil, err
		}
		timestamps = append(timestamps, ts)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan missing-segment manifest: %w", err)
	}
	return timestamps, nil
}
