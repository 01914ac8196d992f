package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder backends.
const (
	EmbedderHash   = "hash"
	EmbedderOpenAI = "openai"
)

// Config configures the knowledge index.
type Config struct {
	Path       string `json:"path,omitempty" mapstructure:"path"`               // SQLite index file; empty builds in memory.
	CorpusPath string `json:"corpus_path,omitempty" mapstructure:"corpus_path"` // Source text; empty uses the built-in corpus.
	Embedder   string `json:"embedder,omitempty" mapstructure:"embedder"`
	Model      string `json:"model,omitempty" mapstructure:"model"`
	Dimensions int    `json:"dimensions,omitempty" mapstructure:"dimensions"`
	APIKeyEnv  string `json:"api_key_env,omitempty" mapstructure:"api_key_env"`
	ChunkSize  int    `json:"chunk_size,omitempty" mapstructure:"chunk_size"`
	Overlap    int    `json:"overlap,omitempty" mapstructure:"overlap"`
}

// DefaultConfig returns an in-memory index over the built-in corpus with
// the offline hash embedder.
func DefaultConfig() Config {
	return Config{
		Embedder:  EmbedderHash,
		APIKeyEnv: "OPENAI_API_KEY",
		ChunkSize: DefaultChunkSize,
		Overlap:   DefaultOverlap,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.CorpusPath != "" {
		c.CorpusPath = source.CorpusPath
	}
	if source.Embedder != "" {
		c.Embedder = source.Embedder
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.Dimensions > 0 {
		c.Dimensions = source.Dimensions
	}
	if source.APIKeyEnv != "" {
		c.APIKeyEnv = source.APIKeyEnv
	}
	if source.ChunkSize > 0 {
		c.ChunkSize = source.ChunkSize
	}
	if source.Overlap > 0 {
		c.Overlap = source.Overlap
	}
}

// Splitter returns the splitter described by c.
func (c *Config) Splitter() Splitter {
	s := NewSplitter()
	if c.ChunkSize > 0 {
		s.ChunkSize = c.ChunkSize
	}
	if c.Overlap > 0 {
		s.Overlap = c.Overlap
	}
	return s
}

// NewEmbedder creates the configured embedder.
func NewEmbedder(cfg *Config) (Embedder, error) {
	switch cfg.Embedder {
	case EmbedderHash, "":
		return NewHashEmbedder(cfg.Dimensions), nil
	case EmbedderOpenAI:
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%w: %s is not set", ErrIndexUnavailable, cfg.APIKeyEnv)
		}
		client := sdk.NewClient(option.WithAPIKey(key))
		return NewOpenAIEmbedder(&client.Embeddings, cfg.Model), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", ErrIndexUnavailable, cfg.Embedder)
	}
}

// Corpus returns the configured source text.
func (c *Config) Corpus() (string, error) {
	if c.CorpusPath == "" {
		return DefaultCorpus(), nil
	}
	data, err := os.ReadFile(c.CorpusPath)
	if err != nil {
		return "", fmt.Errorf("read corpus: %w", err)
	}
	return string(data), nil
}

// Load returns the configured index: it opens the index at Path, builds
// it there when the file does not exist yet, and builds in memory when
// Path is empty.
func Load(ctx context.Context, cfg *Config) (*Index, error) {
	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Path != "" {
		idx, err := Open(ctx, cfg.Path, embedder)
		if err == nil {
			return idx, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	corpus, err := cfg.Corpus()
	if err != nil {
		return nil, err
	}
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	return Build(ctx, path, corpus, cfg.Splitter(), embedder)
}
