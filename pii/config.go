package pii

import "fmt"

// Detector backends.
const (
	DetectorPattern  = "pattern"
	DetectorPresidio = "presidio"
)

// Config selects and configures the PII detector.
type Config struct {
	Detector       string   `json:"detector,omitempty" mapstructure:"detector"`
	PresidioURL    string   `json:"presidio_url,omitempty" mapstructure:"presidio_url"`
	Language       string   `json:"language,omitempty" mapstructure:"language"`
	ScoreThreshold float64  `json:"score_threshold,omitempty" mapstructure:"score_threshold"`
	Places         []string `json:"places,omitempty" mapstructure:"places"`
}

// DefaultConfig returns the in-process pattern detector configuration.
func DefaultConfig() Config {
	return Config{Detector: DetectorPattern, Language: "en"}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Detector != "" {
		c.Detector = source.Detector
	}
	if source.PresidioURL != "" {
		c.PresidioURL = source.PresidioURL
	}
	if source.Language != "" {
		c.Language = source.Language
	}
	if source.ScoreThreshold > 0 {
		c.ScoreThreshold = source.ScoreThreshold
	}
	if len(source.Places) > 0 {
		c.Places = source.Places
	}
}

// New creates a Redactor from configuration.
func New(cfg *Config) (*Redactor, error) {
	switch cfg.Detector {
	case DetectorPattern, "":
		return NewRedactor(NewPatternDetector(cfg.Places...)), nil
	case DetectorPresidio:
		if cfg.PresidioURL == "" {
			return nil, fmt.Errorf("%w: presidio_url is required", ErrInvalidConfig)
		}
		d := NewPresidioDetector(cfg.PresidioURL,
			WithLanguage(cfg.Language),
			WithScoreThreshold(cfg.ScoreThreshold),
		)
		return NewRedactor(d), nil
	default:
		return nil, fmt.Errorf("%w: unknown detector %q", ErrInvalidConfig, cfg.Detector)
	}
}
