package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var chapterFileRe = regexp.MustCompile(`^(\d+)\.json$`)

// ChapterFile is one raw or normalized chapter file on disk.
type ChapterFile struct {
	ChapterNumber int
	Path          string
}

// ListChapterFiles returns the `<n>.json` files in dir sorted by chapter
// number parsed as an integer, not lexicographically. Chapter 10 sorts after
// chapter 9; consumers rely on this for global index assignment.
func ListChapterFiles(dir string) ([]ChapterFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("corpus: read dir %s: %w", dir, err)
	}

	var files []ChapterFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := chapterFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		files = append(files, ChapterFile{ChapterNumber: n, Path: filepath.Join(dir, e.Name())})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ChapterNumber < files[j].ChapterNumber
	})
	return files, nil
}

// ReadRawChapter loads one raw chapter file (a JSON array of scraped entries).
func ReadRawChapter(path string) ([]RawEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %s: %w", path, err)
	}
	var entries []RawEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corpus: decode %s: %w", path, err)
	}
	return entries, nil
}

// ReadChapter loads one normalized chapter file.
func ReadChapter(path string) ([]VerseEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %s: %w", path, err)
	}
	var verses []VerseEntry
	if err := json.Unmarshal(data, &verses); err != nil {
		return nil, fmt.Errorf("corpus: decode %s: %w", path, err)
	}
	return verses, nil
}

// WriteChapter writes a normalized chapter file as an indented JSON array.
func WriteChapter(path string, verses []VerseEntry) error {
	data, err := json.MarshalIndent(verses, "", "  ")
	if err != nil {
		return fmt.Errorf("corpus: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("corpus: write %s: %w", path, err)
	}
	return nil
}

// LoadChapterTable reads the chapter metadata JSON array and indexes it by
// chapter number.
func LoadChapterTable(path string) (ChapterTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read chapter metadata %s: %w", path, err)
	}
	var chapters []Chapter
	if err := json.Unmarshal(data, &chapters); err != nil {
		return nil, fmt.Errorf("corpus: decode chapter metadata %s: %w", path, err)
	}
	table := make(ChapterTable, len(chapters))
	for _, c := range chapters {
		table[c.ChapterNumber] = c
	}
	return table, nil
}
