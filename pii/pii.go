// Package pii detects personally identifiable information in free text,
// masks it, and extracts the address a user gave for delivery.
package pii

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// Entity types reported by detectors.
const (
	EntityPerson   = "PERSON"
	EntityLocation = "LOCATION"
	EntityEmail    = "EMAIL_ADDRESS"
	EntityPhone    = "PHONE_NUMBER"
)

// Tool outcomes returned to the reasoning engine.
const (
	NoAddressMessage     = "No valid address found in the text."
	addressMessagePrefix = "Address has been processed and saved securely. The address is: "
	extractedPrefix      = "Address has been processed. The address is: "
)

// Sentinel errors.
var (
	ErrDetectorFailed = errors.New("pii detector failed")
	ErrInvalidConfig  = errors.New("invalid pii config")
)

// Span is one detected PII entity. Start and End are byte offsets into the
// analyzed text.
type Span struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Detector finds PII spans in text. Spans are returned ordered by Start.
type Detector interface {
	Detect(ctx context.Context, text string) ([]Span, error)
}

// RedactionResult is the outcome of analyzing and anonymizing one text.
type RedactionResult struct {
	Original   string `json:"-"`
	Spans      []Span `json:"spans"`
	Anonymized string `json:"anonymized"`
}

// AddressMessage is the tool outcome reporting an extracted address that
// was saved to the session.
func AddressMessage(address string) string {
	return addressMessagePrefix + address
}

// ExtractedMessage reports an extracted address that was not saved
// anywhere, as when the tool runs outside a conversation.
func ExtractedMessage(address string) string {
	return extractedPrefix + address
}

// Redactor runs a Detector and anonymizes its findings.
type Redactor struct {
	detector Detector
}

// NewRedactor creates a Redactor. A nil detector uses PatternDetector.
func NewRedactor(d Detector) *Redactor {
	if d == nil {
		d = NewPatternDetector()
	}
	return &Redactor{detector: d}
}

// Redact detects PII in text and returns the spans with a masked copy.
func (r *Redactor) Redact(ctx context.Context, text string) (RedactionResult, error) {
	spans, err := r.detector.Detect(ctx, text)
	if err != nil {
		return RedactionResult{}, err
	}
	return RedactionResult{
		Original:   text,
		Spans:      spans,
		Anonymized: Anonymize(text, spans),
	}, nil
}

// ExtractAddress returns the text of the first LOCATION span.
func ExtractAddress(result RedactionResult) (string, bool) {
	for _, s := range result.Spans {
		if s.EntityType == EntityLocation && strings.TrimSpace(s.Text) != "" {
			return s.Text, true
		}
	}
	return "", false
}

// Anonymize replaces each span with a <ENTITY_TYPE> placeholder. When
// spans overlap, the earliest-starting one wins, and the longest among
// those starting together.
func Anonymize(text string, spans []Span) string {
	kept := resolveOverlaps(spans)
	if len(kept) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, s := range kept {
		if s.Start < pos || s.End > len(text) || s.Start > s.End {
			continue
		}
		b.WriteString(text[pos:s.Start])
		b.WriteString("<" + s.EntityType + ">")
		pos = s.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

func resolveOverlaps(spans []Span) []Span {
	sorted := append([]Span(nil), spans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})

	kept := sorted[:0]
	end := -1
	for _, s := range sorted {
		if s.Start < end {
			continue
		}
		kept = append(kept, s)
		end = s.End
	}
	return kept
}
