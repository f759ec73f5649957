package semantic

// VerseRecord is one verse document to upsert: the canonical record id
// ("b{chapter}v{verse}"), its embedding, the embeddable text, and the
// flattened verse metadata.
type VerseRecord struct {
	ID        string
	Embedding []float32
	Text      string
	Payload   map[string]any
}

// SearchResult is a single similarity hit, ranked by score descending.
type SearchResult struct {
	ID            string            `json:"id"`
	Score         float32           `json:"score"`
	Content       string            `json:"content"`
	ChapterNumber int               `json:"chapter_number"`
	VerseNumber   int               `json:"verse_number"`
	VerseTitle    string            `json:"verse_title"`
	Source        string            `json:"source"`
	Meta          map[string]string `json:"meta"`
}
