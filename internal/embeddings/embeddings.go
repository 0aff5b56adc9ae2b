package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// Vector is a simple float32 slice wrapper.
type Vector []float32

var (
	// ErrEmptyEmbedding is returned when a backend answers without a vector.
	ErrEmptyEmbedding = errors.New("empty embedding")
	// ErrModelNotFound is returned by Load when the backend does not have the model.
	ErrModelNotFound = errors.New("embedding model not found")
)

// Embedder turns one input string into one vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Model() string
}

// Loader is implemented by embedders that must verify or fetch their model before serving.
type Loader interface {
	Load(ctx context.Context) error
}

// ComposeInput prefixes text with a bracketed instruction tag when one is given.
func ComposeInput(text, instruction string) string {
	if instruction == "" {
		return text
	}
	return "[" + instruction + "] " + text
}

// single unwraps the batch a backend returns for a single input.
func single[T float32 | float64](batch [][]T) (Vector, error) {
	if len(batch) == 0 || len(batch[0]) == 0 {
		return nil, ErrEmptyEmbedding
	}
	if len(batch) != 1 {
		return nil, fmt.Errorf("expected 1 vector for 1 input, got %d", len(batch))
	}
	vec := make(Vector, len(batch[0]))
	for i, v := range batch[0] {
		vec[i] = float32(v)
	}
	return vec, nil
}
