// Package semantic provides the embedding-based intent matcher. Intent
// phrases are embedded once at startup; each query is embedded and
// scored by cosine similarity against that corpus.
package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/b2bhub/quoteflow/internal/models"
)

// Embedder turns a batch of texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// OpenAIEmbedder is the production Embedder backed by the OpenAI
// embeddings endpoint.
type OpenAIEmbedder struct {
	client openai.Client
}

// NewOpenAIEmbedder initializes an embedder using the OPENAI_API_KEY
// environment variable.
func NewOpenAIEmbedder() (*OpenAIEmbedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	return &OpenAIEmbedder{client: openai.NewClient(option.WithAPIKey(apiKey))}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModelTextEmbedding3Small,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d, want %d", len(resp.Data), len(texts))
	}
	vectors := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Matcher performs cosine-similarity search over an embedded intent
// phrase corpus. It is safe for concurrent use after Initialize.
type Matcher struct {
	mu       sync.RWMutex
	embedder Embedder
	intents  []string // parallel to vectors: intent per corpus phrase
	vectors  [][]float64
	ready    bool
	skip     map[string]bool
}

// NewMatcher creates a matcher over the given embedder. Intents listed
// in skip never enter the corpus (structural intents decided by guards).
func NewMatcher(embedder Embedder, skip map[string]bool) *Matcher {
	return &Matcher{embedder: embedder, skip: skip}
}

// Initialize embeds the full intent phrase corpus. On failure the
// matcher stays not-ready and arbitration degrades to the fuzzy layer.
func (m *Matcher) Initialize(ctx context.Context, intentMap map[string][]string) error {
	names := make([]string, 0, len(intentMap))
	for intent := range intentMap {
		names = append(names, intent)
	}
	sort.Strings(names)

	var intents []string
	var phrases []string
	for _, intent := range names {
		if m.skip[intent] {
			continue
		}
		for _, phrase := range intentMap[intent] {
			intents = append(intents, intent)
			phrases = append(phrases, phrase)
		}
	}

	vectors, err := m.embedder.Embed(ctx, phrases)
	if err != nil {
		slog.Warn("Matcher.Initialize: embedding corpus failed, semantic matching disabled", "error", err)
		return fmt.Errorf("failed to embed intent corpus: %w", err)
	}

	m.mu.Lock()
	m.intents = intents
	m.vectors = vectors
	m.ready = true
	m.mu.Unlock()

	slog.Info("Matcher.Initialize: semantic corpus ready", "phrases", len(phrases))
	return nil
}

// Ready reports whether the corpus has been embedded.
func (m *Matcher) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// MatchIntent returns the best-scoring intent at or above threshold, or
// nil when nothing qualifies.
func (m *Matcher) MatchIntent(ctx context.Context, text string, threshold float64) (*models.IntentMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ready || text == "" {
		return nil, nil
	}

	vectors, err := m.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	query := vectors[0]

	bestIdx := -1
	bestScore := 0.0
	for i, v := range m.vectors {
		if score := cosine(query, v); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore < threshold {
		return nil, nil
	}
	return &models.IntentMatch{Intent: m.intents[bestIdx], Confidence: bestScore}, nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
