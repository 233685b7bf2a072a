package detect

import (
	"bytes"
	"testing"
)

func TestParseFpcalcOutput(t *testing.T) {
	out := "DURATION=180\nFINGERPRINT=1234,5678,-42\n"
	fp, err := parseFpcalcOutput(out)
	if err != nil {
		t.Fatalf("parseFpcalcOutput: %v", err)
	}
	if len(fp) != 3 || fp[0] != 1234 || fp[2] != -42 {
		t.Errorf("fp = %v", fp)
	}
}

func TestParseFpcalcOutput_Errors(t *testing.T) {
	for _, out := range []string{"", "DURATION=180\n", "FINGERPRINT=\n", "FINGERPRINT=1,x,3\n"} {
		if _, err := parseFpcalcOutput(out); err == nil {
			t.Errorf("parseFpcalcOutput(%q) should fail", out)
		}
	}
}

const ffmpegStderr = `
[silencedetect @ 0x55] silence_start: 4.1
[silencedetect @ 0x55] silence_end: 6.0 | silence_duration: 1.9
[blackdetect @ 0x56] black_start:4.5 black_end:5.8 black_duration:1.3
[silencedetect @ 0x55] silence_start: 88.2
[silencedetect @ 0x55] silence_end: 90.5 | silence_duration: 2.3
[blackdetect @ 0x56] black_start:88.9 black_end:89.6 black_duration:0.7
[blackdetect @ 0x56] black_start:200.0 black_end:201.0 black_duration:1.0
`

func TestParseBlackdetect(t *testing.T) {
	ivs := parseBlackdetect(ffmpegStderr)
	if len(ivs) != 3 {
		t.Fatalf("got %d intervals, want 3", len(ivs))
	}
	if ivs[1].start != 88.9 || ivs[1].end != 89.6 {
		t.Errorf("ivs[1] = %+v", ivs[1])
	}
}

func TestParseSilencedetect(t *testing.T) {
	ivs := parseSilencedetect(ffmpegStderr)
	if len(ivs) != 2 {
		t.Fatalf("got %d intervals, want 2", len(ivs))
	}
	if ivs[0].start != 4.1 || ivs[0].end != 6.0 {
		t.Errorf("ivs[0] = %+v", ivs[0])
	}
}

func TestParseSilencedetect_UnterminatedStartDropped(t *testing.T) {
	ivs := parseSilencedetect("silence_start: 10.0\n")
	if len(ivs) != 0 {
		t.Errorf("got %d intervals, want 0", len(ivs))
	}
}

func TestLastOverlap(t *testing.T) {
	black := parseBlackdetect(ffmpegStderr)
	silence := parseSilencedetect(ffmpegStderr)

	// The 200s black frame has no matching silence; the 88s pair wins.
	start, end, ok := lastOverlap(black, silence)
	if !ok {
		t.Fatal("expected an overlap")
	}
	if start != 88.9 || end != 89.6 {
		t.Errorf("overlap = (%f, %f), want (88.9, 89.6)", start, end)
	}
}

func TestLastOverlap_None(t *testing.T) {
	black := []interval{{10, 11}}
	silence := []interval{{50, 52}}
	if _, _, ok := lastOverlap(black, silence); ok {
		t.Error("disjoint intervals must not overlap")
	}
}

func TestParseSRT(t *testing.T) {
	doc := `1
00:00:01,000 --> 00:00:03,000
Previously on Dexter...

2
00:00:04,000 --> 00:00:06,000
I have a secret.
A dark one.
`
	lines := parseSRT(bytes.NewBufferString(doc))
	want := []string{"Previously on Dexter...", "I have a secret.", "A dark one."}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}
