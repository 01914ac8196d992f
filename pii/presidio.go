package pii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultPresidioTimeout = 10 * time.Second

// PresidioDetector calls a Presidio analyzer service.
type PresidioDetector struct {
	url       string
	language  string
	threshold float64
	client    *http.Client
}

// PresidioOption configures a PresidioDetector.
type PresidioOption func(*PresidioDetector)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(c *http.Client) PresidioOption {
	return func(d *PresidioDetector) { d.client = c }
}

// WithLanguage sets the analysis language (default "en").
func WithLanguage(lang string) PresidioOption {
	return func(d *PresidioDetector) { d.language = lang }
}

// WithScoreThreshold drops spans scoring below threshold.
func WithScoreThreshold(threshold float64) PresidioOption {
	return func(d *PresidioDetector) { d.threshold = threshold }
}

// NewPresidioDetector creates a detector for the analyzer at baseURL.
func NewPresidioDetector(baseURL string, opts ...PresidioOption) *PresidioDetector {
	d := &PresidioDetector{
		url:      strings.TrimRight(baseURL, "/") + "/analyze",
		language: "en",
		client: &http.Client{
			Timeout:   defaultPresidioTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type analyzeRequest struct {
	Text           string  `json:"text"`
	Language       string  `json:"language"`
	ScoreThreshold float64 `json:"score_threshold,omitempty"`
}

type analyzeResult struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// Detect implements Detector. Presidio reports character offsets; they
// are converted to byte offsets into text.
func (d *PresidioDetector) Detect(ctx context.Context, text string) ([]Span, error) {
	body, err := json.Marshal(analyzeRequest{Text: text, Language: d.language, ScoreThreshold: d.threshold})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrDetectorFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectorFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectorFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrDetectorFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var results []analyzeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrDetectorFailed, err)
	}

	offsets := runeOffsets(text)
	spans := make([]Span, 0, len(results))
	for _, r := range results {
		if r.Start < 0 || r.End > len(offsets)-1 || r.Start >= r.End || r.Score < d.threshold {
			continue
		}
		start, end := offsets[r.Start], offsets[r.End]
		spans = append(spans, Span{
			EntityType: r.EntityType,
			Start:      start,
			End:        end,
			Text:       text[start:end],
			Score:      r.Score,
		})
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans, nil
}

// runeOffsets maps each character index (plus the end) to its byte offset.
func runeOffsets(text string) []int {
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}
