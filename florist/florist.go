// Package florist resolves a delivery address to a florist serving it.
package florist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrInvalidDirectory is returned for an unusable directory definition.
var ErrInvalidDirectory = errors.New("invalid florist directory")

// Florist is a shop and the neighborhoods it delivers to.
type Florist struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Neighborhoods []string `yaml:"neighborhoods" json:"neighborhoods"`
}

// Query is a florist lookup request.
type Query struct {
	Address    string `json:"address"`
	FlowerType string `json:"flower_type"`
	Quantity   int    `json:"quantity"`
}

// Result is the outcome of a lookup. It encodes as
// {"florist_id","name","specialty","status"} on success and
// {"status","message"} otherwise.
type Result struct {
	Status    string
	FloristID string
	Name      string
	Specialty string
	Message   string
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Status != StatusSuccess {
		return json.Marshal(struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}{r.Status, r.Message})
	}
	return json.Marshal(struct {
		FloristID string `json:"florist_id"`
		Name      string `json:"name"`
		Specialty string `json:"specialty"`
		Status    string `json:"status"`
	}{r.FloristID, r.Name, r.Specialty, r.Status})
}

// Directory finds the florist serving an address.
type Directory interface {
	Find(ctx context.Context, q Query) (Result, error)
}

// DefaultFlorists is the built-in coverage list.
func DefaultFlorists() []Florist {
	return []Florist{{
		ID:            "FLR_123",
		Name:          "Kadıköy Flowers",
		Neighborhoods: []string{"kadıköy"},
	}}
}

type coverage struct {
	key     string
	florist Florist
}

// StaticDirectory matches addresses against a fixed allow-list of
// neighborhoods. It is immutable and safe for concurrent use.
type StaticDirectory struct {
	entries []coverage
	fold    func(string) string
}

// Option configures a StaticDirectory.
type Option func(*StaticDirectory)

// WithDiacriticFolding makes matching ignore accents and the Turkish
// dotted/dotless i distinction, so "Kadikoy" matches "kadıköy".
func WithDiacriticFolding() Option {
	return func(d *StaticDirectory) { d.fold = foldDiacritics }
}

// NewStaticDirectory builds a directory. Neighborhoods are matched in the
// order the florists are given.
func NewStaticDirectory(florists []Florist, opts ...Option) (*StaticDirectory, error) {
	d := &StaticDirectory{fold: lower}
	for _, opt := range opts {
		opt(d)
	}

	seen := make(map[string]bool)
	for _, f := range florists {
		if f.ID == "" || f.Name == "" {
			return nil, fmt.Errorf("%w: florist needs id and name", ErrInvalidDirectory)
		}
		if seen[f.ID] {
			return nil, fmt.Errorf("%w: duplicate florist %s", ErrInvalidDirectory, f.ID)
		}
		seen[f.ID] = true

		for _, n := range f.Neighborhoods {
			key := d.fold(strings.TrimSpace(n))
			if key == "" {
				return nil, fmt.Errorf("%w: empty neighborhood for %s", ErrInvalidDirectory, f.ID)
			}
			d.entries = append(d.entries, coverage{key: key, florist: f})
		}
	}
	return d, nil
}

// Find implements Directory.
func (d *StaticDirectory) Find(ctx context.Context, q Query) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	address := d.fold(q.Address)
	for _, e := range d.entries {
		if strings.Contains(address, e.key) {
			return Result{
				Status:    StatusSuccess,
				FloristID: e.florist.ID,
				Name:      e.florist.Name,
				Specialty: q.FlowerType,
			}, nil
		}
	}
	return Result{
		Status:  StatusError,
		Message: fmt.Sprintf("Sorry, we do not have any florists in the %s area.", q.Address),
	}, nil
}

// Neighborhoods lists the covered neighborhoods in match order.
func (d *StaticDirectory) Neighborhoods() []string {
	out := make([]string, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.key
	}
	return out
}

var turkishLower = cases.Lower(language.Turkish)

// lower uses Turkish casing so "KADIKÖY" lowers to "kadıköy".
func lower(s string) string {
	return turkishLower.String(s)
}

func foldDiacritics(s string) string {
	s = strings.ReplaceAll(lower(s), "ı", "i")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
