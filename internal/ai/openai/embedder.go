// Package openai provides an ai.Embedder backed by the official OpenAI Go SDK.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/ai"
	"github.com/spigell/internship-recommender/internal/logger"
)

const (
	Provider = "openai"

	defaultDimensions = 32
	// The API caps a single request at 2048 inputs.
	maxBatchSize = 2048
)

var (
	// ErrNoEmbeddingInResponse is returned when the response misses some of the requested inputs.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	errEmptyInput            = errors.New("openai: input text is empty")
)

type embeddingsCreator interface {
	New(ctx context.Context, body openaisdk.EmbeddingNewParams, opts ...option.RequestOption) (*openaisdk.CreateEmbeddingResponse, error)
}

// Embedder calls the OpenAI embeddings API.
type Embedder struct {
	embeddings embeddingsCreator
	model      string
	dimensions int
	batchSize  int
	logger     *zap.Logger
}

// NewEmbedder creates an OpenAI embedder. An empty model selects text-embedding-3-small.
func NewEmbedder(apiKey, model string, dimensions int, log *zap.Logger) (*Embedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	client := openaisdk.NewClient(option.WithAPIKey(apiKey))
	return newEmbedder(&client.Embeddings, model, dimensions, log), nil
}

func newEmbedder(embeddings embeddingsCreator, model string, dimensions int, log *zap.Logger) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = string(openaisdk.EmbeddingModelTextEmbedding3Small)
	}
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}

	return &Embedder{
		embeddings: embeddings,
		model:      model,
		dimensions: dimensions,
		batchSize:  maxBatchSize,
		logger:     logger.WithCommonFields(log, Provider, model),
	}
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		batch, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	e.logger.Debug("embedded documents", zap.Int("count", len(vectors)))
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) Model() string {
	return e.model
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w (index %d)", errEmptyInput, i)
		}
	}

	resp, err := e.embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:      openaisdk.EmbeddingModel(e.model),
		Dimensions: param.NewOpt(int64(e.dimensions)),
	})
	if err != nil {
		return nil, ai.ProviderError(Provider, fmt.Errorf("create embeddings: %w", err))
	}

	if resp == nil || len(resp.Data) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Data)
		}
		return nil, ai.ProviderError(Provider, fmt.Errorf("%w: got %d, want %d", ErrNoEmbeddingInResponse, got, len(texts)))
	}

	// Data carries its own index; do not rely on response order.
	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(vectors) || vectors[idx] != nil {
			return nil, ai.ProviderError(Provider, fmt.Errorf("%w: unexpected index %d", ErrNoEmbeddingInResponse, item.Index))
		}

		out := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			out[i] = float32(v)
		}
		vectors[idx] = out
	}

	if err := ai.CheckDimensions(vectors, e.dimensions); err != nil {
		return nil, ai.ProviderError(Provider, err)
	}

	return vectors, nil
}
