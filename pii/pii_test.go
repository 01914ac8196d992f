package pii_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/flora/pii"
)

func TestPatternDetector_Address(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "street with district and city",
			text: "5 roses to 123 Akasya Sokak, Kadıköy, İstanbul, note: Happy birthday",
			want: "123 Akasya Sokak, Kadıköy, İstanbul",
		},
		{
			name: "district only",
			text: "5 roses to Bakırköy",
			want: "Bakırköy",
		},
		{
			name: "english street",
			text: "Please deliver to 221B Baker Street, London tomorrow",
			want: "221B Baker Street, London",
		},
		{
			name: "street with trailing number",
			text: "Address: Moda Caddesi No: 12, Kadıköy",
			want: "Moda Caddesi No: 12, Kadıköy",
		},
		{
			name: "joined places",
			text: "somewhere in Moda, Kadıköy please",
			want: "Moda, Kadıköy",
		},
	}

	r := pii.NewRedactor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := r.Redact(context.Background(), tt.text)
			require.NoError(t, err)

			addr, ok := pii.ExtractAddress(result)
			require.True(t, ok, "no address in %q (spans %+v)", tt.text, result.Spans)
			assert.Equal(t, tt.want, addr)
		})
	}
}

func TestPatternDetector_NoAddress(t *testing.T) {
	r := pii.NewRedactor(pii.NewPatternDetector())
	for _, text := range []string{
		"What flowers for an anniversary?",
		"I would like some roses please",
		"",
	} {
		result, err := r.Redact(context.Background(), text)
		require.NoError(t, err)
		_, ok := pii.ExtractAddress(result)
		assert.False(t, ok, "unexpected address in %q: %+v", text, result.Spans)
	}
}

func TestPatternDetector_Entities(t *testing.T) {
	text := "Hi, my name is Ayşe Yılmaz, reach me at ayse@example.com or +90 532 123 45 67. Deliver to 45 Moda Caddesi, Kadıköy."
	result, err := pii.NewRedactor(nil).Redact(context.Background(), text)
	require.NoError(t, err)

	byType := map[string]string{}
	for _, s := range result.Spans {
		byType[s.EntityType] = s.Text
		assert.Equal(t, text[s.Start:s.End], s.Text)
	}
	assert.Equal(t, "Ayşe Yılmaz", byType[pii.EntityPerson])
	assert.Equal(t, "ayse@example.com", byType[pii.EntityEmail])
	assert.Equal(t, "+90 532 123 45 67", byType[pii.EntityPhone])
	assert.Equal(t, "45 Moda Caddesi, Kadıköy", byType[pii.EntityLocation])

	assert.Equal(t,
		"Hi, my name is <PERSON>, reach me at <EMAIL_ADDRESS> or <PHONE_NUMBER>. Deliver to <LOCATION>.",
		result.Anonymized)
}

func TestPatternDetector_PlaceIsNotPerson(t *testing.T) {
	result, err := pii.NewRedactor(nil).Redact(context.Background(), "an order from Kadıköy Flowers")
	require.NoError(t, err)
	for _, s := range result.Spans {
		assert.NotEqual(t, pii.EntityPerson, s.EntityType, "span %+v", s)
	}
}

func TestAnonymize_Overlaps(t *testing.T) {
	text := "abcdefghij"
	spans := []pii.Span{
		{EntityType: "B", Start: 2, End: 5},
		{EntityType: "A", Start: 2, End: 8},
		{EntityType: "C", Start: 6, End: 9},
	}
	assert.Equal(t, "ab<A>ij", pii.Anonymize(text, spans))
	assert.Equal(t, text, pii.Anonymize(text, nil))
}

func TestAddressMessage(t *testing.T) {
	assert.Equal(t,
		"Address has been processed and saved securely. The address is: 123 Akasya Sokak",
		pii.AddressMessage("123 Akasya Sokak"))
	assert.Equal(t,
		"Address has been processed. The address is: 123 Akasya Sokak",
		pii.ExtractedMessage("123 Akasya Sokak"))
	assert.Equal(t, "No valid address found in the text.", pii.NoAddressMessage)
}

func TestPresidioDetector(t *testing.T) {
	text := "Ayşe lives in Kadıköy"
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		// Character offsets: "Ayşe" is 0..4, "Kadıköy" is 14..21.
		_, _ = w.Write([]byte(`[
			{"entity_type":"LOCATION","start":14,"end":21,"score":0.85},
			{"entity_type":"PERSON","start":0,"end":4,"score":0.9},
			{"entity_type":"PERSON","start":0,"end":4,"score":0.1}
		]`))
	}))
	defer srv.Close()

	d := pii.NewPresidioDetector(srv.URL+"/", pii.WithHTTPClient(srv.Client()), pii.WithLanguage("tr"), pii.WithScoreThreshold(0.5))
	spans, err := d.Detect(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, "tr", got["language"])
	require.Len(t, spans, 2)
	assert.Equal(t, "Ayşe", spans[0].Text)
	assert.Equal(t, "Kadıköy", spans[1].Text)
}

func TestPresidioDetector_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "analyzer down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := pii.NewPresidioDetector(srv.URL).Detect(context.Background(), "text")
	assert.True(t, errors.Is(err, pii.ErrDetectorFailed), "error = %v", err)
}

func TestNew(t *testing.T) {
	cfg := pii.DefaultConfig()
	r, err := pii.New(&cfg)
	require.NoError(t, err)
	assert.NotNil(t, r)

	_, err = pii.New(&pii.Config{Detector: pii.DetectorPresidio})
	assert.ErrorIs(t, err, pii.ErrInvalidConfig)

	_, err = pii.New(&pii.Config{Detector: "spacy"})
	assert.ErrorIs(t, err, pii.ErrInvalidConfig)
}
