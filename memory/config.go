package memory

import (
	"errors"
	"fmt"
)

// Fact store backends.
const (
	BackendMap  = "map"
	BackendFile = "file"
)

// Config selects where session facts are kept.
type Config struct {
	Backend string `json:"backend,omitempty" mapstructure:"backend"`
	Path    string `json:"path,omitempty" mapstructure:"path"` // FileStore root.
}

// DefaultConfig keeps facts in process.
func DefaultConfig() Config {
	return Config{Backend: BackendMap}
}

// Merge applies non-zero values from source into c. A Path without an
// explicit Backend selects the file backend.
func (c *Config) Merge(source *Config) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}
	if source.Path != "" {
		c.Path = source.Path
		if source.Backend == "" {
			c.Backend = BackendFile
		}
	}
}

// NewStore creates the Store described by cfg.
func NewStore(cfg *Config) (Store, error) {
	switch cfg.Backend {
	case BackendMap, "":
		return NewMapStore(), nil
	case BackendFile:
		if cfg.Path == "" {
			return nil, errors.New("memory: file backend requires a path")
		}
		return NewFileStore(cfg.Path), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
