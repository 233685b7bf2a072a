// Package marker manages per-item skip marker records: where the theme,
// recap and credits live inside a media file, plus any human corrections.
package marker

import (
	"time"
)

// Kind distinguishes episodes from movies.
type Kind string

const (
	KindEpisode Kind = "episode"
	KindMovie   Kind = "movie"
)

// NotFound is the sentinel stored when a detector searched and found
// nothing. A nil field means the detector never ran.
const NotFound int64 = -1

// Record holds everything we know about one media item's skippable
// segments. Offsets are seconds from the start of the file.
type Record struct {
	ItemID        int64
	Kind          Kind
	Title         string
	ShowTitle     string
	ParentID      *int64 // season, nil for movies
	GrandparentID *int64 // show, nil for movies

	ThemeStart   *int64
	ThemeEnd     *int64
	HeuristicEnd *int64
	CreditsStart *int64
	CreditsEnd   *int64
	HasRecap     *bool

	// Corrections set by a human. Once present they take precedence and
	// Upsert never overwrites them.
	CorrectThemeStart   *int64
	CorrectThemeEnd     *int64
	CorrectHeuristicEnd *int64
	CorrectCreditsStart *int64
	CorrectCreditsEnd   *int64

	DurationMS int64
	Location   string
	UpdatedAt  time.Time
}

// known reports whether a field was searched and produced a real offset.
func known(v *int64) bool {
	return v != nil && *v != NotFound
}

// BestTime returns the reconciled "safe to resume playback" offset in
// seconds, preferring human corrections over detected values and the
// theme fingerprint over the black-frame heuristic. Returns NotFound when
// nothing usable is known.
func (r *Record) BestTime() int64 {
	if r.Kind == KindEpisode && known(r.CorrectThemeEnd) {
		return *r.CorrectThemeEnd
	}
	if known(r.CorrectHeuristicEnd) {
		return *r.CorrectHeuristicEnd
	}
	if r.Kind == KindEpisode && known(r.ThemeEnd) {
		return *r.ThemeEnd
	}
	if known(r.HeuristicEnd) {
		return *r.HeuristicEnd
	}
	return NotFound
}

// ThemeWindow returns the theme time range used by the skip-only-theme
// policy, corrected pair preferred. ok is false when no usable pair
// exists.
func (r *Record) ThemeWindow() (start, end int64, ok bool) {
	if r.Kind != KindEpisode {
		return 0, 0, false
	}
	if known(r.CorrectThemeStart) && known(r.CorrectThemeEnd) {
		return *r.CorrectThemeStart, *r.CorrectThemeEnd, true
	}
	if known(r.ThemeStart) && known(r.ThemeEnd) {
		return *r.ThemeStart, *r.ThemeEnd, true
	}
	return 0, 0, false
}

// CreditsWindow returns the credits start/end, corrected values preferred
// field by field. ok is false when the start is unknown.
func (r *Record) CreditsWindow() (start, end int64, ok bool) {
	switch {
	case known(r.CorrectCreditsStart):
		start = *r.CorrectCreditsStart
	case known(r.CreditsStart):
		start = *r.CreditsStart
	default:
		return 0, 0, false
	}
	switch {
	case known(r.CorrectCreditsEnd):
		end = *r.CorrectCreditsEnd
	case known(r.CreditsEnd):
		end = *r.CreditsEnd
	default:
		end = NotFound
	}
	return start, end, true
}

// DurationSec returns the item duration in whole seconds.
func (r *Record) DurationSec() int64 {
	return r.DurationMS / 1000
}
