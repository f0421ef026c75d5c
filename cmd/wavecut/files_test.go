package main

import (
	"strings"
	"testing"
)

func TestWriteFileListing(t *testing.T) {
	rows := []fileRow{
		{Path: "a.wav", Size: 16044, Modified: 1700000000000, Segments: 2},
		{Path: "takes/day1.WAV", Size: 8044, Modified: 1700000060000, Segments: 0},
	}

	var out strings.Builder
	if err := writeFileListing(&out, rows); err != nil {
		t.Fatalf("writeFileListing: %v", err)
	}

	body := out.String()

	if !strings.Contains(body, "PATH") || !strings.Contains(body, "SEGMENTS") {
		t.Errorf("missing header columns:\n%s", body)
	}

	if !strings.Contains(body, "a.wav") || !strings.Contains(body, "takes/day1.WAV") {
		t.Errorf("missing file rows:\n%s", body)
	}

	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) != 3 {
		t.Fatalf("want header + 2 rows, got %d lines:\n%s", len(lines), body)
	}

	// Annotated files show their count, unannotated ones a dash.
	if !strings.Contains(lines[1], "2") {
		t.Errorf("annotated row should show the segment count: %q", lines[1])
	}

	if !strings.HasSuffix(strings.TrimRight(lines[2], " "), "-") {
		t.Errorf("unannotated row should end with a dash: %q", lines[2])
	}
}

func TestWriteFileListing_Empty(t *testing.T) {
	var out strings.Builder
	if err := writeFileListing(&out, nil); err != nil {
		t.Fatalf("writeFileListing: %v", err)
	}

	if !strings.Contains(out.String(), "no WAV files found") {
		t.Errorf("unexpected empty output: %q", out.String())
	}
}
