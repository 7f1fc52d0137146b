package attachment

import (
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/modmail/internal/domain"
)

func TestClassifyBoundaries(t *testing.T) {
	limits := DefaultLimits()
	atts := []domain.Attachment{
		{Filename: "exact.png", Size: limits.Limit},
		{Filename: "small.png", Size: 10},
	}
	r := Classify(atts, limits)
	if r.HasErrors() {
		t.Fatalf("size == limit must be accepted, got errors %v", r.Errors)
	}
	if len(r.Warnings) != 1 || !strings.Contains(r.Warnings[0], "exact.png") {
		t.Fatalf("expected one warning for exact.png, got %v", r.Warnings)
	}

	r = Classify([]domain.Attachment{{Filename: "big.bin", Size: limits.Limit + 1}, {Filename: "ok.txt", Size: 1}}, limits)
	if !r.HasErrors() {
		t.Fatal("size == limit+1 must be rejected")
	}
	if !errors.Is(r.Err(), ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", r.Err())
	}
}

func TestClassifyWarningBand(t *testing.T) {
	limits := Limits{Limit: 1000, Margin: 100, Slack: 50}
	cases := []struct {
		size     int64
		warnings int
		errs     int
	}{
		{900, 0, 0},
		{901, 1, 0},
		{1000, 1, 0},
		{1001, 0, 1},
	}
	for _, tc := range cases {
		r := Classify([]domain.Attachment{{Filename: "f", Size: tc.size}}, limits)
		if len(r.Warnings) != tc.warnings || len(r.Errors) != tc.errs {
			t.Errorf("size %d: got %d warnings, %d errors", tc.size, len(r.Warnings), len(r.Errors))
		}
	}
}

func TestReportTextAggregates(t *testing.T) {
	limits := DefaultLimits()
	r := Classify([]domain.Attachment{
		{Filename: "a_b.zip", Size: limits.Limit + 10},
		{Filename: "c.zip", Size: limits.Limit + 20},
	}, limits)

	text := r.ErrorText()
	lines := strings.Split(text, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 2 error lines plus limit lines, got %q", text)
	}
	if !strings.Contains(lines[0], `a\_b.zip`) {
		t.Fatalf("expected escaped filename, got %q", lines[0])
	}
	if lines[2] != "Limit: 8388608 bytes (8.0 MiB)" {
		t.Fatalf("unexpected limit line %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "Recommended Maximum: 8386560 bytes") {
		t.Fatalf("unexpected recommended line %q", lines[3])
	}
	if r.WarningText() != "" {
		t.Fatalf("expected no warning text, got %q", r.WarningText())
	}
}

func TestLinkList(t *testing.T) {
	got := LinkList([]domain.Attachment{
		{Filename: "a.png", URL: "https://cdn/a.png", Size: 3},
		{Filename: "b.png", URL: "https://cdn/b.png", Size: 4},
	})
	want := "• [a.png](https://cdn/a.png) (3 bytes)\n• [b.png](https://cdn/b.png) (4 bytes)"
	if got != want {
		t.Fatalf("LinkList = %q, want %q", got, want)
	}
}
