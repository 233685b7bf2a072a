package detect

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// FFmpegHeuristic estimates the end of an intro from black frames that
// coincide with silence, the usual cut between a cold open or title
// sequence and the episode proper.
type FFmpegHeuristic struct {
	ffmpegPath string
	logger     *slog.Logger
}

// NewFFmpegHeuristic creates a detector using the given ffmpeg binary.
func NewFFmpegHeuristic(ffmpegPath string, logger *slog.Logger) *FFmpegHeuristic {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegHeuristic{ffmpegPath: ffmpegPath, logger: logger.With("component", "heuristic")}
}

// Find scans the leading windowSec seconds for the last point where a
// black interval overlaps a silent one and returns that overlap.
func (h *FFmpegHeuristic) Find(ctx context.Context, path string, windowSec int64) (int64, int64, bool, error) {
	cmd := commandContext(ctx, h.ffmpegPath,
		"-hide_banner", "-nostats",
		"-t", strconv.FormatInt(windowSec, 10),
		"-i", path,
		"-vf", "blackdetect=d=0.5:pix_th=0.10",
		"-af", "silencedetect=n=-50dB:d=0.5",
		"-f", "null", "-",
	)
	// ffmpeg reports filter output on stderr.
	out, err := cmd.CombinedOutput()
	if err != nil {
		return -1, -1, false, fmt.Errorf("running ffmpeg on %s: %w", path, err)
	}

	black := parseBlackdetect(string(out))
	silence := parseSilencedetect(string(out))
	start, end, ok := lastOverlap(black, silence)
	h.logger.Debug("heuristic scan", "path", path, "black", len(black), "silence", len(silence), "found", ok)
	if !ok {
		return -1, -1, false, nil
	}
	return int64(start), int64(end + 0.5), true, nil
}

type interval struct {
	start, end float64
}

var (
	blackRe        = regexp.MustCompile(`black_start:([\d.]+)\s+black_end:([\d.]+)`)
	silenceStartRe = regexp.MustCompile(`silence_start:\s*([\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([\d.]+)`)
)

// parseBlackdetect pulls black intervals out of ffmpeg stderr.
func parseBlackdetect(out string) []interval {
	var ivs []interval
	for _, m := range blackRe.FindAllStringSubmatch(out, -1) {
		s, err1 := strconv.ParseFloat(m[1], 64)
		e, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil || e < s {
			continue
		}
		ivs = append(ivs, interval{s, e})
	}
	return ivs
}

// parseSilencedetect pairs silence_start/silence_end lines into
// intervals. A trailing unmatched silence_start extends to the end of
// the scanned window and is dropped.
func parseSilencedetect(out string) []interval {
	var ivs []interval
	var pending *float64
	for _, line := range strings.Split(out, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			if s, err := strconv.ParseFloat(m[1], 64); err == nil {
				pending = &s
			}
			continue
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && pending != nil {
			if e, err := strconv.ParseFloat(m[1], 64); err == nil && e >= *pending {
				ivs = append(ivs, interval{*pending, e})
			}
			pending = nil
		}
	}
	return ivs
}

// lastOverlap returns the latest interval where black and silence
// co-occur.
func lastOverlap(black, silence []interval) (start, end float64, ok bool) {
	for _, b := range black {
		for _, s := range silence {
			lo := max(b.start, s.start)
			hi := min(b.end, s.end)
			if hi <= lo {
				continue
			}
			if !ok || lo > start {
				start, end, ok = lo, hi, true
			}
		}
	}
	return start, end, ok
}
