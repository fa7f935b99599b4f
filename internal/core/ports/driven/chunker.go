package driven

// Chunker splits text into overlapping chunks.
type Chunker interface {
	// Split returns the chunks of text for the given size and overlap,
	// both measured in characters. An empty text yields no chunks.
	// Returns domain.ErrInvalidConfiguration for bad parameters.
	Split(text string, size, overlap int) ([]string, error)
}
