// Package versenlp extracts explicit chapter/verse references from
// unstructured question text using regex patterns.
package versenlp

import (
	"regexp"
	"strconv"

	"github.com/vivekavani/gita-engine/pkg/fn"
)

// MaxChapter is the number of chapters in the Bhagavad Gita.
const MaxChapter = 18

// Ref represents an extracted scripture reference.
type Ref struct {
	Chapter int    // 1-18
	Verse   int    // 0 if the reference names only a chapter
	Span    string // the matched text fragment
}

// Reference shapes, most explicit first:
//   "chapter 2, verse 47"  "chapter 2 verse 47"
//   "BG 2.47"  "Gita 2:47"
//   "2.47"  "2:47"
//   "chapter 2"
var (
	chapterVerseRe = regexp.MustCompile(`(?i)chapter\s+(\d{1,2})\s*,?\s*verses?\s+(\d{1,3})`)
	prefixedRe     = regexp.MustCompile(`(?i)\b(?:bg|gita)\s+(\d{1,2})[.:](\d{1,3})\b`)
	bareRe         = regexp.MustCompile(`\b(\d{1,2})[.:](\d{1,3})\b`)
	chapterOnlyRe  = regexp.MustCompile(`(?i)chapter\s+(\d{1,2})\b`)
)

// Extract returns every plausible reference in the text, most explicit
// forms first. Out-of-range chapter numbers are discarded.
func Extract(text string) []Ref {
	var refs []Ref

	add := func(span string, chapter, verse int) {
		if chapter < 1 || chapter > MaxChapter {
			return
		}
		refs = append(refs, Ref{Chapter: chapter, Verse: verse, Span: span})
	}

	for _, re := range []*regexp.Regexp{chapterVerseRe, prefixedRe, bareRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			add(m[0], atoi(m[1]), atoi(m[2]))
		}
	}
	for _, m := range chapterOnlyRe.FindAllStringSubmatch(text, -1) {
		add(m[0], atoi(m[1]), 0)
	}

	// A chapter/verse pair mentioned twice keeps only its most explicit form.
	return fn.UniqueBy(refs, func(r Ref) [2]int {
		return [2]int{r.Chapter, r.Verse}
	})
}

// ExtractBest returns the most explicit reference, or nil if the text
// contains none.
func ExtractBest(text string) *Ref {
	refs := Extract(text)
	if len(refs) == 0 {
		return nil
	}
	return &refs[0]
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
