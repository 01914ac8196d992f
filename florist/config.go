package florist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config configures the florist directory.
type Config struct {
	Path           string `json:"path,omitempty" mapstructure:"path"` // YAML directory file; empty uses DefaultFlorists.
	FoldDiacritics bool   `json:"fold_diacritics,omitempty" mapstructure:"fold_diacritics"`
}

// DefaultConfig returns the built-in directory with case-insensitive
// matching.
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.FoldDiacritics {
		c.FoldDiacritics = true
	}
}

// New creates a StaticDirectory from configuration.
func New(cfg *Config) (*StaticDirectory, error) {
	florists := DefaultFlorists()
	if cfg.Path != "" {
		loaded, err := LoadFlorists(cfg.Path)
		if err != nil {
			return nil, err
		}
		florists = loaded
	}

	var opts []Option
	if cfg.FoldDiacritics {
		opts = append(opts, WithDiacriticFolding())
	}
	return NewStaticDirectory(florists, opts...)
}

type directoryFile struct {
	Florists []Florist `yaml:"florists"`
}

// LoadFlorists reads a YAML directory file:
//
//	florists:
//	  - id: FLR_123
//	    name: Kadıköy Flowers
//	    neighborhoods: [kadıköy, moda]
func LoadFlorists(path string) ([]Florist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read florist directory: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDirectory, err)
	}
	if len(file.Florists) == 0 {
		return nil, fmt.Errorf("%w: no florists in %s", ErrInvalidDirectory, path)
	}
	return file.Florists, nil
}
