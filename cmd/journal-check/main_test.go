package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	memjournal "trackcore/internal/infra/journal/memory"
	"trackcore/pkg/track"
)

func withJournal(t *testing.T, entries []track.JournalEntry) {
	t.Helper()
	orig := openJournal
	openJournal = func() (track.Journal, error) {
		journal := memjournal.NewJournal()
		if len(entries) > 0 {
			if err := journal.Append(context.Background(), entries); err != nil {
				t.Fatalf("seed journal: %v", err)
			}
		}
		return journal, nil
	}
	t.Cleanup(func() { openJournal = orig })
}

func TestRunPassesCleanJournal(t *testing.T) {
	now := time.Now().UTC()
	withJournal(t, []track.JournalEntry{
		{ID: "a", Seq: 1, EntityKey: "x", Action: "create", RecordedAt: now},
		{ID: "b", Seq: 2, EntityKey: "y", Action: "create|update", RecordedAt: now},
	})
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "journal check passed: 2 entries") {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestRunVerbosePrintsEntries(t *testing.T) {
	withJournal(t, []track.JournalEntry{
		{ID: "a", Seq: 1, EntityKey: "x", Action: "delete", RecordedAt: time.Now().UTC()},
	})
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-v"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "a\tx\tdelete") {
		t.Fatalf("verbose line missing from %q", stdout.String())
	}
}

func TestRunFlagsBrokenEntries(t *testing.T) {
	now := time.Now().UTC()
	withJournal(t, []track.JournalEntry{
		{ID: "a", Seq: 3, EntityKey: "x", Action: "create", RecordedAt: now},
		{ID: "b", Seq: 2, EntityKey: "y", Action: "teleport", RecordedAt: now},
		{ID: "c", Seq: 0, EntityKey: "z", Action: "update", RecordedAt: now},
	})
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	out := stderr.String()
	for _, want := range []string{"seq 2 goes backwards from 3", "non-positive seq 0", "journal check failed: 3 problem(s)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stderr missing %q:\n%s", want, out)
		}
	}
}

func TestRunOpenFailure(t *testing.T) {
	orig := openJournal
	openJournal = func() (track.Journal, error) { return nil, errors.New("no backend") }
	t.Cleanup(func() { openJournal = orig })
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "open journal: no backend") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestRunBadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-nope"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}
