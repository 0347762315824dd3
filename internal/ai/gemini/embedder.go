package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/internship-recommender/internal/ai"
	"github.com/spigell/internship-recommender/internal/logger"
)

const (
	Provider = "gemini"

	defaultModel      = "gemini-embedding-001"
	defaultDimensions = 32
	// batchEmbedContents accepts at most 100 contents per request.
	maxBatchSize = 100

	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

// ErrNoEmbeddingInResponse is returned when the API response contains fewer embeddings than requested.
var ErrNoEmbeddingInResponse = errors.New("gemini api returned no embedding")

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder calls the Gemini embeddings API through the Google GenAI client.
type Embedder struct {
	models     contentEmbedder
	model      string
	dimensions int
	batchSize  int
	logger     *zap.Logger
}

// NewEmbedder creates an Embedder configured for the Gemini API backend.
// A non-positive dimensions value keeps the default.
func NewEmbedder(ctx context.Context, apiKey, model string, dimensions int, log *zap.Logger) (*Embedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, model, dimensions, log), nil
}

func newEmbedder(models contentEmbedder, model string, dimensions int, log *zap.Logger) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if dimensions <= 0 || dimensions > math.MaxInt32 {
		dimensions = defaultDimensions
	}

	return &Embedder{
		models:     models,
		model:      model,
		dimensions: dimensions,
		batchSize:  maxBatchSize,
		logger:     logger.WithCommonFields(log, Provider, model),
	}
}

// EmbedDocuments embeds all texts, splitting them into API-sized batches.
// Any failed batch fails the whole call.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		batch, err := e.embed(ctx, texts[start:end], taskTypeDocument)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)

		e.logger.Debug("embedded document batch",
			zap.Int("from", start),
			zap.Int("to", end),
			zap.Int("total", len(texts)),
		)
	}

	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, taskTypeQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}

func (e *Embedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if e == nil || e.models == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	//nolint:gosec // dimensions is bounded by math.MaxInt32 in newEmbedder
	dims := int32(e.dimensions)
	resp, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, ai.ProviderError(Provider, fmt.Errorf("embed content: %w", err))
	}

	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, ai.ProviderError(Provider, fmt.Errorf("%w: got %d, want %d", ErrNoEmbeddingInResponse, got, len(texts)))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, ai.ProviderError(Provider, fmt.Errorf("%w: entry %d is empty", ErrNoEmbeddingInResponse, i))
		}
		vectors[i] = append([]float32(nil), emb.Values...)
	}

	if err := ai.CheckDimensions(vectors, e.dimensions); err != nil {
		return nil, ai.ProviderError(Provider, err)
	}

	return vectors, nil
}
