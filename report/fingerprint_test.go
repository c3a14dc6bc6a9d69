package report

import (
	"testing"
)

func TestFingerprintStability(t *testing.T) {
	a := Fingerprint("status 503 at 2026-02-14T10:00:00Z request abc12345")
	b := Fingerprint("status 429 at 2026-02-14T15:30:00Z request def67890")
	if a != b {
		t.Errorf("fingerprints differ:\n  %q\n  %q", a, b)
	}
}

func TestFingerprintReplacements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"uuid",
			"run 550e8400-e29b-41d4-a716-446655440000 failed",
			"run <uuid> failed",
		},
		{
			"timestamp",
			"at 2026-02-14T10:00:00.123+09:00 it broke",
			"at <time> it broke",
		},
		{
			"hex run",
			"trace deadbeefcafe not found",
			"trace <hex> not found",
		},
		{
			"digits",
			"retry 3 of 10 failed with 503",
			"retry <num> of <num> failed with <num>",
		},
		{
			"digits inside timestamp are not double-collapsed",
			"2026-02-14T10:00:00Z",
			"<time>",
		},
		{
			"no dynamic values",
			"sheet fetch failed: permission denied",
			"sheet fetch failed: permission denied",
		},
	}

	for _, tt := range tests {
		if got := Fingerprint(tt.input); got != tt.want {
			t.Errorf("%s: Fingerprint(%q) = %q, want %q", tt.name, tt.input, got, tt.want)
		}
	}
}

func TestFingerprintDistinguishesDifferentShapes(t *testing.T) {
	a := Fingerprint("sheet fetch failed: 503")
	b := Fingerprint("model stream timed out after 90000 ms")
	if a == b {
		t.Error("distinct error shapes must not collide")
	}
}
