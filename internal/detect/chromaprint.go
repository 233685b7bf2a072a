package detect

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/vmunix/skipd/internal/fingerprint"
)

// ChromaprintMatcher locates theme songs by cross-correlating the
// fpcalc raw fingerprint of a leading clip against the show's stored
// theme fingerprint.
type ChromaprintMatcher struct {
	fpcalcPath string
	index      *fingerprint.Index
	threshold  float64
	logger     *slog.Logger
}

// NewChromaprintMatcher creates a matcher backed by the given index.
// threshold is the minimum correlation score (0..1) to accept a match;
// 0.85 works well for clean theme audio.
func NewChromaprintMatcher(fpcalcPath string, index *fingerprint.Index, threshold float64, logger *slog.Logger) *ChromaprintMatcher {
	if fpcalcPath == "" {
		fpcalcPath = "fpcalc"
	}
	return &ChromaprintMatcher{
		fpcalcPath: fpcalcPath,
		index:      index,
		threshold:  threshold,
		logger:     logger.With("component", "chromaprint"),
	}
}

// Match fingerprints the clip and looks for the show's theme in it.
func (m *ChromaprintMatcher) Match(ctx context.Context, clipPath string, showID int64) (int64, int64, bool, error) {
	theme, stored := m.index.Get(showID)
	if !stored {
		return -1, -1, false, nil
	}

	clip, err := m.fingerprintFile(ctx, clipPath)
	if err != nil {
		return -1, -1, false, err
	}

	offset, score := correlate(clip, theme)
	m.logger.Debug("theme correlation", "show_id", showID, "offset", offset, "score", score)
	if score < m.threshold {
		return -1, -1, false, nil
	}

	start := int64(offset / fingerprintRate)
	end := start + int64(len(theme)/fingerprintRate)
	return start, end, true, nil
}

// Learn fingerprints a theme audio file and stores it for the show,
// replacing any previous fingerprint.
func (m *ChromaprintMatcher) Learn(ctx context.Context, themePath string, showID int64) error {
	fp, err := m.fingerprintFile(ctx, themePath)
	if err != nil {
		return err
	}
	m.index.Put(showID, fp)
	m.logger.Info("learned theme fingerprint", "show_id", showID, "length", len(fp))
	return nil
}

func (m *ChromaprintMatcher) fingerprintFile(ctx context.Context, path string) ([]int32, error) {
	out, err := commandContext(ctx, m.fpcalcPath, "-raw", path).Output()
	if err != nil {
		return nil, fmt.Errorf("running fpcalc on %s: %w", path, err)
	}
	fp, err := parseFpcalcOutput(string(out))
	if err != nil {
		return nil, fmt.Errorf("parsing fpcalc output for %s: %w", path, err)
	}
	return fp, nil
}

// parseFpcalcOutput extracts the raw fingerprint from `fpcalc -raw`
// output, which is KEY=VALUE lines with the fingerprint as a
// comma-separated integer list.
func parseFpcalcOutput(out string) ([]int32, error) {
	for _, line := range strings.Split(out, "\n") {
		val, ok := strings.CutPrefix(strings.TrimSpace(line), "FINGERPRINT=")
		if !ok {
			continue
		}
		fields := strings.Split(val, ",")
		fp := make([]int32, 0, len(fields))
		for _, f := range fields {
			n, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad fingerprint value %q: %w", f, err)
			}
			fp = append(fp, int32(uint32(n)))
		}
		if len(fp) == 0 {
			return nil, fmt.Errorf("empty fingerprint")
		}
		return fp, nil
	}
	return nil, fmt.Errorf("no FINGERPRINT line in fpcalc output")
}
