// Command journal-check opens the configured journal backend, reads every
// entry and validates the recorded stream: sequence numbers must be positive
// and non-decreasing and every action must parse back into a known flag set.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"trackcore/internal/core"
	"trackcore/pkg/track"
)

var openJournal = core.OpenJournal

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("journal-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "print every entry while checking")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	journal, err := openJournal()
	if err != nil {
		fmt.Fprintf(stderr, "open journal: %v\n", err)
		return 1
	}
	defer func() { _ = journal.Close() }()

	entries, err := journal.Entries(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "read journal: %v\n", err)
		return 1
	}

	problems := 0
	var lastSeq int64
	for i, entry := range entries {
		if *verbose {
			fmt.Fprintf(stdout, "%d\t%s\t%s\t%s\n", entry.Seq, entry.ID, entry.EntityKey, entry.Action)
		}
		if entry.Seq <= 0 {
			fmt.Fprintf(stderr, "entry %d (%s): non-positive seq %d\n", i, entry.ID, entry.Seq)
			problems++
		}
		if entry.Seq < lastSeq {
			fmt.Fprintf(stderr, "entry %d (%s): seq %d goes backwards from %d\n", i, entry.ID, entry.Seq, lastSeq)
			problems++
		}
		lastSeq = entry.Seq
		if _, err := track.ParseProposedAction(entry.Action); err != nil {
			fmt.Fprintf(stderr, "entry %d (%s): %v\n", i, entry.ID, err)
			problems++
		}
	}

	if problems > 0 {
		fmt.Fprintf(stderr, "journal check failed: %d problem(s) in %d entries\n", problems, len(entries))
		return 1
	}
	fmt.Fprintf(stdout, "journal check passed: %d entries\n", len(entries))
	return 0
}
