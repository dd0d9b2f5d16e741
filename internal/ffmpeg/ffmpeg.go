// Package ffmpeg drives the external joiner. Media is never re-encoded
// here; streams are copied, with an optional mono audio downmix.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"councilvod/internal/logger"
)

// tempPath inserts a .tmp marker before the file extension, so a crashed
// join never leaves a partial file at the final name.
func tempPath(originalPath string) string {
	dir, filename := filepath.Split(originalPath)
	ext := filepath.Ext(filename)
	return filepath.Join(dir, strings.TrimSuffix(filename, ext)+".tmp"+ext)
}

// Concat joins the segments listed in concatFile into videoOut without
// re-encoding. The output is written under a temp name and renamed only
// when ffmpeg exits cleanly; on failure no partial output is left at the
// final location and ffmpeg's stderr is attached to the error.
func Concat(ctx context.Context, log logger.Logger, concatFile, videoOut string, mono bool, loglevel string) error {
	if loglevel == "" {
		loglevel = "error"
	}
	tmpOut := tempPath(videoOut)
	for _, existing := range []string{tmpOut, videoOut} {
		if _, err := os.Stat(existing); err == nil {
			log.Infof("Deleting existing output %s", existing)
			if err := os.Remove(existing); err != nil {
				return fmt.Errorf("failed to delete existing output: %w", err)
			}
		}
	}

	args := []string{"-loglevel", loglevel, "-safe", "0", "-f", "concat", "-i", concatFile}
	if mono {
		// Without an explicit AAC encoder the mono downmix is silent in
		// some players.
		args = append(args, "-c:a", "aac", "-af", "pan=mono|c0=c0", "-c:v", "copy", "-strict", "-2")
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, tmpOut)

	log.Infof("Concatenating segments listed in %s to %s", concatFile, videoOut)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(tmpOut)
		return fmt.Errorf("ffmpeg concat failed: %w: %s", err, lastLines(stderr.String(), 5))
	}

	if err := os.Rename(tmpOut, videoOut); err != nil {
		return fmt.Errorf("failed to move joined output into place: %w", err)
	}
	return nil
}

// Duration measures a video's duration in seconds using ffprobe.
func Duration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-show_entries", "format=duration", videoPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w: %s", videoPath, err, lastLines(stderr.String(), 5))
	}
	return parseProbeDuration(string(out))
}

// parseProbeDuration extracts the duration value from ffprobe's FORMAT
// block.
func parseProbeDuration(probeOutput string) (float64, error) {
	start := strings.Index(probeOutput, "[FORMAT]")
	end := strings.Index(probeOutput, "[/FORMAT]")
	if start < 0 || end < 0 || end < start {
		return 0, fmt.Errorf("no FORMAT block in ffprobe output")
	}
	block := probeOutput[start:end]
	_, value, ok := strings.Cut(block, "=")
	if !ok {
		return 0, fmt.Errorf("no duration entry in ffprobe output")
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable duration in ffprobe output: %w", err)
	}
	return duration, nil
}

func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
