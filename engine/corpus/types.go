// Package corpus defines the domain types for the Bhagavad Gita verse corpus:
// the raw scraped entries, the normalized per-verse records that form the
// corpus-of-record, and the chapter metadata table. It also owns the JSON
// file layout the pipeline reads and writes.
package corpus

import "fmt"

// RawEntry is a scraped record as it appears in the raw chapter files.
// A single entry may describe a range of verses ("Verse 4-6") whose
// sanskrit and transliteration were scraped as one combined blob.
type RawEntry struct {
	ChapterNumber     int      `json:"chapter_number,omitempty"`
	VerseNumber       int      `json:"verse_number"`
	VerseTitle        string   `json:"verse_title"`
	Sanskrit          string   `json:"sanskrit"`
	Transliteration   string   `json:"transliteration"`
	WordByWordMeaning string   `json:"word_by_word_meaning"`
	Translation       []string `json:"translation"`
	Commentary        []string `json:"commentary"`
	Audio             string   `json:"audio,omitempty"`
	Source            string   `json:"source"`
}

// VerseEntry is one normalized verse, the atomic addressable unit of the
// corpus. Created once by the range splitter and immutable afterwards.
type VerseEntry struct {
	ChapterNumber       int      `json:"chapter_number"`
	ChapterTitle        string   `json:"chapter_title"`
	VerseNumber         int      `json:"verse_number"`
	RelativeVerseNumber int      `json:"relative_verse_number"`
	VerseTitle          string   `json:"verse_title"`
	Sanskrit            string   `json:"sanskrit"`
	Transliteration     string   `json:"transliteration"`
	WordByWordMeaning   string   `json:"word_by_word_meaning"`
	Translation         []string `json:"translation"`
	Commentary          []string `json:"commentary"`
	Audio               string   `json:"audio,omitempty"`
	Source              string   `json:"source"`
	GlobalIndex         int      `json:"_global_index"`
}

// ID returns the stable record identity for this verse. Re-ingestion of the
// same verse overwrites by this id rather than duplicating it.
func (v VerseEntry) ID() string {
	return VerseID(v.ChapterNumber, v.VerseNumber)
}

// VerseID builds the canonical record id for a (chapter, verse) pair.
func VerseID(chapter, verse int) string {
	return fmt.Sprintf("b%dv%d", chapter, verse)
}

// Chapter is one row of the chapter metadata table.
type Chapter struct {
	ChapterNumber int      `json:"chapter_number"`
	ChapterTitle  string   `json:"chapter_title"`
	Overview      []string `json:"overview"`
	VerseStart    int      `json:"verse_start"`
	VerseEnd      int      `json:"verse_end"`
	Summary       []string `json:"summary"`
}

// ChapterTable is the chapter metadata lookup keyed by chapter number.
type ChapterTable map[int]Chapter

// TitleFor returns the chapter title, or "" for an unknown chapter.
// Missing metadata degrades to an empty title, it never fails a verse.
func (t ChapterTable) TitleFor(chapter int) string {
	return t[chapter].ChapterTitle
}
