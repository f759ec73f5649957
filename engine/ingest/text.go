package ingest

import (
	"fmt"
	"strings"

	"github.com/vivekavani/gita-engine/engine/corpus"
)

// BuildEmbeddableText assembles the canonical text embedded for a verse:
// each translation labeled "Translation i", each commentary labeled
// "Commentary i", then the word-by-word meaning, separated by blank lines.
// The ordering is fixed; it is also the cache key and the stored document, so
// changing it invalidates every cached embedding.
func BuildEmbeddableText(v corpus.VerseEntry) string {
	var sections []string

	for i, t := range v.Translation {
		sections = append(sections, fmt.Sprintf("Translation %d:\n%s", i+1, t))
	}
	for i, c := range v.Commentary {
		sections = append(sections, fmt.Sprintf("Commentary %d:\n%s", i+1, c))
	}
	if v.WordByWordMeaning != "" {
		sections = append(sections, fmt.Sprintf("Word by Word Meaning:\n%s", v.WordByWordMeaning))
	}

	return strings.Join(sections, "\n\n")
}
