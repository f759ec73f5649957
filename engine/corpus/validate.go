package corpus

import "strconv"

// ValidateVerseEntry checks a normalized verse before it enters the indexing
// pipeline. Optional fields (audio, word-by-word meaning, transliteration)
// are allowed to be empty; a verse with nothing to embed is rejected because
// it would produce an empty document in the index.
func ValidateVerseEntry(v VerseEntry) error {
	if v.ChapterNumber <= 0 {
		return NewValidationError("chapter_number", strconv.Itoa(v.ChapterNumber), ErrBadChapter)
	}
	if v.VerseNumber <= 0 {
		return NewValidationError("verse_number", strconv.Itoa(v.VerseNumber), ErrNoVerseNumber)
	}
	if len(v.Translation) == 0 && len(v.Commentary) == 0 && v.WordByWordMeaning == "" {
		return NewValidationError("translation", "", ErrNoContent)
	}
	return nil
}
