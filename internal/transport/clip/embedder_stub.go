//go:build !cgo
// +build !cgo

// Package clip embeds images with a local CLIP visual encoder via ONNX
// Runtime. This stub is compiled without CGO (see embedder.go for the real
// implementation).
package clip

import (
	"context"
	"errors"

	"github.com/amiralserge/homevec/internal/domain"
)

// Embedder stub type when built without CGO.
type Embedder struct{}

// Config holds the visual encoder settings.
type Config struct {
	ModelPath  string
	ModelName  string
	Dimensions int
}

// NewEmbedder returns an error when built without CGO (ONNX not available).
func NewEmbedder(_ *Config) (*Embedder, error) {
	return nil, errors.New("CLIP embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// Model returns the model identifier.
func (e *Embedder) Model() string { return "" }

// EmbedImage is unavailable without CGO.
func (e *Embedder) EmbedImage(context.Context, []byte) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New("CLIP embedder requires CGO")
}

// Close is a no-op in the stub.
func (e *Embedder) Close() {}
