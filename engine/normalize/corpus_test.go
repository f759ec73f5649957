package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/vivekavani/gita-engine/engine/corpus"
)

func TestChapterEntriesAssignsGlobalIndexes(t *testing.T) {
	entries := []corpus.RawEntry{
		{VerseTitle: "Verse 1", Translation: []string{"t1"}},
		{VerseTitle: "Verse 2-3", Translation: []string{"t2"}},
	}

	verses, next := ChapterEntries(entries, 1, nil, 1)
	if len(verses) != 3 {
		t.Fatalf("expected 3 verses, got %d", len(verses))
	}
	if next != 4 {
		t.Fatalf("expected next index 4, got %d", next)
	}
	for i, v := range verses {
		if v.GlobalIndex != i+1 {
			t.Fatalf("verse %d: global index %d, want %d", i, v.GlobalIndex, i+1)
		}
	}
}

func TestChapterEntriesThreadsAccumulator(t *testing.T) {
	entries := []corpus.RawEntry{{VerseTitle: "Verse 1", Translation: []string{"t"}}}

	_, next := ChapterEntries(entries, 1, nil, 1)
	verses, next := ChapterEntries(entries, 2, nil, next)
	if verses[0].GlobalIndex != 2 {
		t.Fatalf("second chapter should continue at 2, got %d", verses[0].GlobalIndex)
	}
	if next != 3 {
		t.Fatalf("expected next 3, got %d", next)
	}
}

func writeRawChapter(t *testing.T, dir string, chapter int, entries []corpus.RawEntry) {
	t.Helper()
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatal(err)
	}
	name := filepath.Join(dir, fmt.Sprintf("%d.json", chapter))
	if err := os.WriteFile(name, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunNumericChapterOrder(t *testing.T) {
	rawDir := t.TempDir()
	outDir := t.TempDir()

	// Chapters 2, 10, 9: lexicographic order would put 10 before 9.
	writeRawChapter(t, rawDir, 2, []corpus.RawEntry{{VerseNumber: 1, VerseTitle: "Verse 1"}})
	writeRawChapter(t, rawDir, 9, []corpus.RawEntry{{VerseNumber: 1, VerseTitle: "Verse 1"}})
	writeRawChapter(t, rawDir, 10, []corpus.RawEntry{{VerseNumber: 1, VerseTitle: "Verse 1"}})

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	total, err := Run(rawDir, outDir, nil, log)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 verses, got %d", total)
	}

	ch9, err := corpus.ReadChapter(filepath.Join(outDir, "9.json"))
	if err != nil {
		t.Fatal(err)
	}
	ch10, err := corpus.ReadChapter(filepath.Join(outDir, "10.json"))
	if err != nil {
		t.Fatal(err)
	}
	if ch9[0].GlobalIndex != 2 {
		t.Fatalf("chapter 9 should index before 10, got %d", ch9[0].GlobalIndex)
	}
	if ch10[0].GlobalIndex != 3 {
		t.Fatalf("chapter 10 should index last, got %d", ch10[0].GlobalIndex)
	}
}
