// Package detect locates theme, recap and credits boundaries in media
// files. Matchers wrap external tools (ffmpeg, fpcalc); the parsing and
// correlation logic is pure.
package detect

import (
	"context"
	"os/exec"

	"github.com/vmunix/skipd/internal/mediaserver"
)

var commandContext = exec.CommandContext

// AudioFingerprintMatcher locates a show's theme song inside a clip by
// acoustic fingerprint. ok is false when no match clears the confidence
// threshold or no fingerprint is stored for the show.
type AudioFingerprintMatcher interface {
	Match(ctx context.Context, clipPath string, showID int64) (startSec, endSec int64, ok bool, err error)
}

// OffsetHeuristicDetector estimates where the intro ends from audiovisual
// cues alone, without a known theme. Returns ok=false when the leading
// window holds no usable boundary.
type OffsetHeuristicDetector interface {
	Find(ctx context.Context, path string, windowSec int64) (startSec, endSec int64, ok bool, err error)
}

// CreditsTextDetector finds where end credits text begins and ends.
// Implementations sample frames from offsetSec onward, at most maxSamples
// of them. ok is false when no credits are found.
type CreditsTextDetector interface {
	Scan(ctx context.Context, path string, offsetSec int64, maxSamples int) (startSec, endSec int64, ok bool, err error)
}

// RecapDetector reports whether an episode opens with a recap. The
// result is tri-state: nil means the check could not run, for example
// when the episode has no subtitle stream.
type RecapDetector interface {
	Check(ctx context.Context, item *mediaserver.MediaItem, path string) (*bool, error)
}
