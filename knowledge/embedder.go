package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder turns texts into vectors. Name identifies the embedding space so
// an index is never queried with vectors from a different model.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

const defaultHashDimensions = 512

// stemLength truncates tokens so inflections share a feature
// ("anniversary", "anniversaries").
const stemLength = 6

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "good": true, "how": true,
	"i": true, "in": true, "is": true, "it": true, "of": true, "on": true,
	"or": true, "should": true, "that": true, "the": true, "this": true,
	"to": true, "what": true, "which": true, "with": true, "you": true,
	"my": true, "me": true, "do": true, "can": true, "some": true,
}

// HashEmbedder is an offline embedder using signed feature hashing of word
// stems and stem bigrams. Vectors are L2-normalized.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a HashEmbedder. dims <= 0 uses 512.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = defaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Name implements Embedder.
func (h *HashEmbedder) Name() string {
	return fmt.Sprintf("hash-%d", h.dims)
}

// Embed implements Embedder.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, h.dims)
		stems := terms(text)
		for j, stem := range stems {
			h.add(vec, stem, 1)
			if j > 0 {
				h.add(vec, stems[j-1]+" "+stem, 0.5)
			}
		}
		normalize(vec)
		out[i] = vec
	}
	return out, nil
}

func (h *HashEmbedder) add(vec []float32, feature string, weight float32) {
	sum := xxhash.Sum64String(feature)
	idx := sum % uint64(h.dims)
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if stopwords[w] {
			continue
		}
		if r := []rune(w); len(r) > stemLength {
			w = string(r[:stemLength])
		}
		out = append(out, w)
	}
	return out
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// EmbeddingsClient is the subset of the OpenAI embeddings service used by
// OpenAIEmbedder. *sdk.EmbeddingService satisfies it.
type EmbeddingsClient interface {
	New(ctx context.Context, body sdk.EmbeddingNewParams, opts ...option.RequestOption) (*sdk.CreateEmbeddingResponse, error)
}

// OpenAIEmbedder embeds texts through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client EmbeddingsClient
	model  string
}

// NewOpenAIEmbedder creates an embedder for model. An empty model uses
// text-embedding-3-small.
func NewOpenAIEmbedder(client EmbeddingsClient, model string) *OpenAIEmbedder {
	if model == "" {
		model = string(sdk.EmbeddingModelTextEmbedding3Small)
	}
	return &OpenAIEmbedder{client: client, model: model}
}

// Name implements Embedder.
func (e *OpenAIEmbedder) Name() string {
	return "openai:" + e.model
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.New(ctx, sdk.EmbeddingNewParams{
		Input: sdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: sdk.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	data := append([]sdk.Embedding(nil), resp.Data...)
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}
