package detect

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vmunix/skipd/internal/mediaserver"
)

// SubtitleSource extracts the leading subtitle lines of a media file.
// Returns nil lines with a nil error when the file has no subtitle
// stream.
type SubtitleSource interface {
	Lines(ctx context.Context, path string, windowSec int64) ([]string, error)
}

// SubtitleRecapDetector decides whether an episode opens with a recap by
// looking for telltale phrases ("previously on", localized variants) in
// the first minutes of subtitles.
type SubtitleRecapDetector struct {
	source    SubtitleSource
	phrases   []string
	threshold float64
	windowSec int64
	logger    *slog.Logger
}

// NewSubtitleRecapDetector builds a detector over the given phrase list.
// Phrases are normalized once up front; threshold is the Jaro-Winkler
// similarity needed for a fuzzy hit when no exact substring matches.
func NewSubtitleRecapDetector(source SubtitleSource, phrases []string, threshold float64, windowSec int64, logger *slog.Logger) *SubtitleRecapDetector {
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := normalizeText(p); n != "" {
			normalized = append(normalized, n)
		}
	}
	return &SubtitleRecapDetector{
		source:    source,
		phrases:   normalized,
		threshold: threshold,
		windowSec: windowSec,
		logger:    logger.With("component", "recap"),
	}
}

// Check scans the opening subtitles for a recap phrase. Movies never
// have recaps. A missing subtitle stream yields a nil result: unknown,
// not false.
func (d *SubtitleRecapDetector) Check(ctx context.Context, item *mediaserver.MediaItem, path string) (*bool, error) {
	if item.Kind != "episode" {
		no := false
		return &no, nil
	}

	lines, err := d.source.Lines(ctx, path, d.windowSec)
	if err != nil {
		return nil, fmt.Errorf("extracting subtitles from %s: %w", path, err)
	}
	if lines == nil {
		return nil, nil
	}

	found := false
	for _, line := range lines {
		if d.matchLine(normalizeText(line)) {
			found = true
			break
		}
	}
	d.logger.Debug("recap check", "item_id", item.ID, "lines", len(lines), "recap", found)
	return &found, nil
}

func (d *SubtitleRecapDetector) matchLine(line string) bool {
	if line == "" {
		return false
	}
	for _, phrase := range d.phrases {
		if strings.Contains(line, phrase) {
			return true
		}
		sim := edlib.JaroWinklerSimilarity(line, phrase)
		if float64(sim) >= d.threshold {
			return true
		}
	}
	return false
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lowercases, strips diacritics and collapses whitespace
// so phrase matching survives subtitle formatting quirks.
func normalizeText(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// FFmpegSubtitleSource dumps the first subtitle stream to SRT with
// ffmpeg and returns its text lines.
type FFmpegSubtitleSource struct {
	ffmpegPath string
}

// NewFFmpegSubtitleSource creates a source using the given ffmpeg binary.
func NewFFmpegSubtitleSource(ffmpegPath string) *FFmpegSubtitleSource {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegSubtitleSource{ffmpegPath: ffmpegPath}
}

func (s *FFmpegSubtitleSource) Lines(ctx context.Context, path string, windowSec int64) ([]string, error) {
	cmd := commandContext(ctx, s.ffmpegPath,
		"-hide_banner", "-nostats",
		"-t", strconv.FormatInt(windowSec, 10),
		"-i", path,
		"-map", "0:s:0",
		"-f", "srt", "-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		// No subtitle stream is a normal condition, not a failure.
		if strings.Contains(stderr.String(), "does not contain any stream") ||
			strings.Contains(stderr.String(), "matches no streams") {
			return nil, nil
		}
		return nil, fmt.Errorf("running ffmpeg on %s: %w", path, err)
	}
	return parseSRT(&stdout), nil
}

// parseSRT returns the text lines of an SRT document, skipping cue
// numbers and timestamps.
func parseSRT(r *bytes.Buffer) []string {
	lines := []string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.Contains(line, "-->") {
			continue
		}
		if _, err := strconv.Atoi(line); err == nil {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
