// Package normalize turns raw scraped chapter entries into the normalized
// per-verse corpus. Its core is the range splitter: a scraped entry whose
// title names a verse range ("Verse 4-6") is split into one record per verse,
// re-segmenting the sanskrit and transliteration blobs that were scraped as
// one combined string.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vivekavani/gita-engine/engine/corpus"
)

var (
	verseRangeRe     = regexp.MustCompile(`Verse\s+(\d+)(?:\s*-\s*(\d+))?`)
	sanskritMarkerRe = regexp.MustCompile(`\|\|\s*\d+\s*\|\|`)
	digitRunRe       = regexp.MustCompile(`\d+`)
)

// ParseVerseRange extracts the [start, end] interval from a scraped verse
// title. A title without a range ("Verse 7") yields start == end. A title
// with no parsable verse number degrades to the fallback verse number; a
// fallback of zero is treated as verse 1.
func ParseVerseRange(title string, fallback int) (start, end int) {
	if m := verseRangeRe.FindStringSubmatch(title); m != nil {
		start = atoi(m[1])
		end = start
		if m[2] != "" {
			end = atoi(m[2])
		}
		return start, end
	}
	if fallback <= 0 {
		fallback = 1
	}
	return fallback, fallback
}

// Split expands one raw entry into its per-verse records. A single-verse
// entry still passes through so its title and chapter fields are always
// regenerated. Under-segmented sanskrit or transliteration falls back to
// duplicating the full blob across every verse; splitting never drops data
// and never fails.
func Split(entry corpus.RawEntry, chapterNum int, chapters corpus.ChapterTable) []corpus.VerseEntry {
	start, end := ParseVerseRange(entry.VerseTitle, entry.VerseNumber)
	count := end - start + 1

	sanskritSegs := splitSanskrit(entry.Sanskrit)
	translitToks := splitTransliteration(entry.Transliteration)

	out := make([]corpus.VerseEntry, 0, count)
	for i := 0; i < count; i++ {
		v := start + i

		verse := corpus.VerseEntry{
			ChapterNumber:       chapterNum,
			ChapterTitle:        chapters.TitleFor(chapterNum),
			VerseNumber:         v,
			RelativeVerseNumber: v,
			VerseTitle:          fmt.Sprintf("Bhagavad Gita: Chapter %d, Verse %d", chapterNum, v),
			Sanskrit:            entry.Sanskrit,
			Transliteration:     entry.Transliteration,
			WordByWordMeaning:   entry.WordByWordMeaning,
			Translation:         append([]string(nil), entry.Translation...),
			Commentary:          append([]string(nil), entry.Commentary...),
			Audio:               entry.Audio,
			Source:              entry.Source,
		}

		if entry.Sanskrit != "" && len(sanskritSegs) >= count {
			verse.Sanskrit = sanskritSegs[i]
		}
		if entry.Transliteration != "" && len(translitToks) >= count {
			verse.Transliteration = translitToks[i]
		}

		out = append(out, verse)
	}
	return out
}

// splitSanskrit segments a combined sanskrit blob on the `|| N ||` verse
// delimiters, pairing each preceding text with its trailing marker. The tail
// after the last marker is kept as a final segment even when empty, so a
// blob ending in a marker yields one segment per marker plus an empty tail.
func splitSanskrit(s string) []string {
	if s == "" {
		return nil
	}
	locs := sanskritMarkerRe.FindAllStringIndex(s, -1)
	if locs == nil {
		return []string{strings.TrimSpace(s)}
	}

	var segs []string
	prev := 0
	for _, loc := range locs {
		text := strings.TrimSpace(s[prev:loc[0]])
		marker := strings.TrimSpace(s[loc[0]:loc[1]])
		segs = append(segs, strings.TrimSpace(text+" "+marker))
		prev = loc[1]
	}
	segs = append(segs, strings.TrimSpace(s[prev:]))
	return segs
}

// splitTransliteration tokenizes a transliteration blob on runs of digits
// (inline verse markers), keeping both the text pieces and the digit runs as
// tokens, with empties dropped. Best effort only; callers fall back to the
// whole blob when there are fewer tokens than verses.
func splitTransliteration(s string) []string {
	if s == "" {
		return nil
	}
	locs := digitRunRe.FindAllStringIndex(s, -1)

	var toks []string
	appendTok := func(t string) {
		if t = strings.TrimSpace(t); t != "" {
			toks = append(toks, t)
		}
	}
	prev := 0
	for _, loc := range locs {
		appendTok(s[prev:loc[0]])
		appendTok(s[loc[0]:loc[1]])
		prev = loc[1]
	}
	appendTok(s[prev:])
	return toks
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
