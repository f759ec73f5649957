package ingest

import "github.com/vivekavani/gita-engine/engine/corpus"

// EmbeddableVerse is a normalized verse paired with its canonical embeddable
// text.
type EmbeddableVerse struct {
	Verse corpus.VerseEntry
	Text  string
}

// EmbeddedVerse is an embeddable verse with its vector, from the cache or a
// fresh embedding call.
type EmbeddedVerse struct {
	EmbeddableVerse
	Embedding []float32
}
