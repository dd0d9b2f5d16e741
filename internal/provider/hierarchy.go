// Package provider discovers clip listings on streaming sites and groups
// them into root timelines with nested chapter markers.
package provider

import (
	"fmt"
	"strings"

	"councilvod/internal/models"
)

// Literal titles that always denote a whole session.
var rootTitles = map[string]struct{}{
	"webcast unavailable":       {},
	"archive unavailable":       {},
	"inaugural council meeting": {},
	"public hearing":            {},
}

// This list often needs tweaking to handle creative variants of root clip
// names observed in the wild.
var rootKeywords = []string{
	"regular council - ", "regular council ",
	"complete council ", "entire council ", "inaugural council ",
	"edited entire", "whole ", "entire ", "full ", "special council ",
}

// IsRootClip reports whether a title denotes an entire meeting rather
// than an agenda item within one. alsoAllowPrefix admits an extra
// caller-specific prefix. The "minutes" exclusion keeps an audio-less
// recording of minutes approval from being mistaken for a root session.
func IsRootClip(title, alsoAllowPrefix string) bool {
	title = strings.ToLower(title)
	if alsoAllowPrefix != "" && strings.HasPrefix(title, alsoAllowPrefix) {
		return true
	}
	if _, ok := rootTitles[title]; ok {
		return true
	}
	for _, keyword := range rootKeywords {
		if strings.HasPrefix(title, keyword) || strings.Contains(title, keyword+"meeting") {
			if strings.Contains(title, "minutes") &&
				!strings.Contains(title, "audio") && !strings.Contains(title, "sound") {
				return false
			}
			return true
		}
	}
	return false
}

// Group pairs a root clip with its subclips, in listing order.
type Group struct {
	Root     models.ClipRecord
	Subclips []models.ClipRecord
}

// IntegrityError reports a clip that arrived before any root was open and
// matched no recovery heuristic. This is provider data we must not guess
// about; the offending record is attached for the operator.
type IntegrityError struct {
	Clip models.ClipRecord
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("clip %s has no root clip to attach to", e.Clip)
}

// GroupRootAndSubclips partitions a chronologically ordered clip list into
// root clips and their subclips. A root-like title opens a new group and
// subsequent non-root clips join it. An orphan arriving before any root is
// recovered only when it looks like the continuation of an existing
// session, in which case an artificial root is synthesized from the clip
// itself and the clip becomes its own first subclip.
func GroupRootAndSubclips(clips []models.ClipRecord) ([]Group, error) {
	var groups []Group
	current := -1
	for _, clip := range clips {
		switch {
		case IsRootClip(clip.Title, ""):
			groups = append(groups, Group{Root: clip})
			current = len(groups) - 1
		case current >= 0:
			groups[current].Subclips = append(groups[current].Subclips, clip)
		case isSessionContinuation(clip, len(clips)):
			groups = append(groups, Group{Root: clip, Subclips: []models.ClipRecord{clip}})
			current = len(groups) - 1
		default:
			return nil, &IntegrityError{Clip: clip}
		}
	}
	return groups, nil
}

// isSessionContinuation holds the recovery clauses accumulated from
// observed provider data. These are heuristics matched against real
// listings, not general rules.
func isSessionContinuation(clip models.ClipRecord, totalClips int) bool {
	if strings.HasSuffix(clip.Title, "session)") {
		return true
	}
	if totalClips == 1 && (clip.Category == "Other" || clip.Title == "committee") {
		return true
	}
	return strings.HasPrefix(clip.Title, "Opening Remarks") || strings.Contains(clip.Title, "Call to Order")
}
