package domain

// VectorConfig holds internal vectorization settings, not exposed to callers.
type VectorConfig struct {
	Model               string
	Dimensions          int
	ContextWindowTokens int
	DistanceMetric      string
	Algorithm           string
	DocumentInstruction string
	QueryInstruction    string
	MaxContentSizeKB    int
}

// DefaultVectorConfig returns the default configuration tuned for the
// bge-small-class sentence embedding models fetchcascade ships with.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:               "bge-small-en-v1.5",
		Dimensions:          384,
		ContextWindowTokens: 512,
		DistanceMetric:      "cosine",
		Algorithm:           "hnsw",
		DocumentInstruction: "Represent this web content for semantic retrieval",
		QueryInstruction:    "Represent this query for retrieving similar web content",
		MaxContentSizeKB:    256,
	}
}
