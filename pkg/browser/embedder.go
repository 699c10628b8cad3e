package browser

import "context"

// Embedder converts text to vector embeddings for the vector store (C2).
// Optional: a client with no embedder configured can still browse and
// learn API patterns, but semantic search and fetch indexing are disabled.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
