//go:build cgo
// +build cgo

// Package clip embeds images with a local CLIP visual encoder via ONNX
// Runtime (requires CGO and the onnxruntime shared library).
package clip

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/amiralserge/homevec/internal/domain"
)

// Embedder runs the CLIP visual encoder over preprocessed pixel tensors.
type Embedder struct {
	session      *ort.AdvancedSession
	model        string
	dimensions   int
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	// The session reuses pre-allocated tensors; Run is serialized.
	mu sync.Mutex
}

// Config holds the visual encoder settings.
type Config struct {
	ModelPath  string // path to the exported visual-encoder .onnx file
	ModelName  string // model identifier, used as the cache namespace
	Dimensions int
}

// NewEmbedder creates a CLIP image embedder. InitializeEnvironment is
// called if not already done.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("image embedder dimensions must be positive")
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	inputData := make([]float32, 3*inputSize*inputSize)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, inputSize, inputSize), inputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}

	outputData := make([]float32, cfg.Dimensions)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(cfg.Dimensions)), outputData)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Embedder{
		session:      session,
		model:        cfg.ModelName,
		dimensions:   cfg.Dimensions,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Model returns the model identifier, used as the cache namespace.
func (e *Embedder) Model() string { return e.model }

// EmbedImage implements domain.ImageEmbedder. The returned vector is
// L2-normalized so cosine distance behaves over the index.
func (e *Embedder) EmbedImage(ctx context.Context, img []byte) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err
	}

	pixels, err := preprocess(img)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %v", domain.ErrEmbeddingProviderError, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.inputTensor.GetData(), pixels)

	if err := e.session.Run(); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("inference failed: %w", err)
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.outputTensor.GetData()[:e.dimensions])
	normalizeL2(embedding)

	return domain.EmbeddingResult{Embedding: embedding}, nil
}

// Close releases the ONNX session and tensors.
func (e *Embedder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Destroy()
	e.inputTensor.Destroy()
	e.outputTensor.Destroy()
}
