package embedding

import "context"

// Provider generates fixed-dimension embeddings for batches of text. The
// returned slice is always the same length and order as the input.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}
