package session

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
	BackendDynamoDB = "dynamodb"
)

// Config selects and parameterizes the session backend.
type Config struct {
	Backend    string        `json:"backend,omitempty" mapstructure:"backend"`
	Path       string        `json:"path,omitempty" mapstructure:"path"`             // file directory or sqlite database
	URL        string        `json:"url,omitempty" mapstructure:"url"`               // redis address or mongo URI
	Password   string        `json:"password,omitempty" mapstructure:"password"`     // redis
	Prefix     string        `json:"prefix,omitempty" mapstructure:"prefix"`         // redis key prefix
	TTL        time.Duration `json:"ttl,omitempty" mapstructure:"ttl"`               // redis expiry
	Database   string        `json:"database,omitempty" mapstructure:"database"`     // mongo
	Collection string        `json:"collection,omitempty" mapstructure:"collection"` // mongo
	Table      string        `json:"table,omitempty" mapstructure:"table"`           // dynamodb
	Region     string        `json:"region,omitempty" mapstructure:"region"`         // dynamodb
}

// DefaultConfig returns the in-process backend.
func DefaultConfig() Config {
	return Config{Backend: BackendMemory}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.URL != "" {
		c.URL = source.URL
	}
	if source.Password != "" {
		c.Password = source.Password
	}
	if source.Prefix != "" {
		c.Prefix = source.Prefix
	}
	if source.TTL > 0 {
		c.TTL = source.TTL
	}
	if source.Database != "" {
		c.Database = source.Database
	}
	if source.Collection != "" {
		c.Collection = source.Collection
	}
	if source.Table != "" {
		c.Table = source.Table
	}
	if source.Region != "" {
		c.Region = source.Region
	}
}

// New creates a Store from configuration. Stores holding connections
// implement io.Closer.
func New(cfg *Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: file backend requires path", ErrStoreFailed)
		}
		return NewFileStore(cfg.Path), nil
	case BackendSQLite:
		return OpenSQLiteStore(cfg.Path)
	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
		})
		return NewRedisStore(rdb, cfg.Prefix, cfg.TTL), nil
	case BackendMongo:
		return ConnectMongoStore(cfg.URL, cfg.Database, cfg.Collection)
	case BackendDynamoDB:
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: load aws config: %v", ErrStoreFailed, err)
		}
		return NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.Table), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}
