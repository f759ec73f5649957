package normalize

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vivekavani/gita-engine/engine/corpus"
)

// ChapterEntries splits every raw entry of one chapter and assigns global
// indexes starting at next. It returns the normalized verses and the next
// unused index, so the accumulator threads explicitly through the corpus
// pass instead of living in package state.
func ChapterEntries(entries []corpus.RawEntry, chapterNum int, chapters corpus.ChapterTable, next int) ([]corpus.VerseEntry, int) {
	var out []corpus.VerseEntry
	for _, entry := range entries {
		for _, verse := range Split(entry, chapterNum, chapters) {
			verse.GlobalIndex = next
			next++
			out = append(out, verse)
		}
	}
	return out, next
}

// Run normalizes every raw chapter file in rawDir into outDir. Files are
// processed in ascending numeric chapter order so global indexes are strictly
// increasing across the whole corpus. Returns the total number of verses
// written.
func Run(rawDir, outDir string, chapters corpus.ChapterTable, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.Default()
	}

	files, err := corpus.ListChapterFiles(rawDir)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("normalize: create %s: %w", outDir, err)
	}

	next := 1
	total := 0
	for _, f := range files {
		entries, err := corpus.ReadRawChapter(f.Path)
		if err != nil {
			return total, err
		}

		var verses []corpus.VerseEntry
		verses, next = ChapterEntries(entries, f.ChapterNumber, chapters, next)

		outPath := filepath.Join(outDir, filepath.Base(f.Path))
		if err := corpus.WriteChapter(outPath, verses); err != nil {
			return total, err
		}

		total += len(verses)
		log.Info("normalize: chapter done",
			"chapter", f.ChapterNumber,
			"raw_entries", len(entries),
			"verses", len(verses),
		)
	}
	return total, nil
}
