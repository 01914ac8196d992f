package pii

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	scoreEmail    = 1.0
	scoreStreet   = 0.85
	scorePhone    = 0.75
	scoreGazetted = 0.7
	scorePerson   = 0.6
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	phonePattern = regexp.MustCompile(`\+?\(?\d[\d\s().-]{7,}\d`)

	// An optional house number, up to four capitalized words and a street
	// suffix, an optional trailing number, then any comma-separated place
	// names that follow.
	streetPattern = regexp.MustCompile(
		`(?:\d+[A-Za-z]?\s+)?(?:\p{Lu}[\p{L}'.-]*\s+){1,4}` +
			`(?:Sokak|Sokağı|Sk\.|Caddesi|Cad\.|Cd\.|Bulvarı|Blv\.|Mahallesi|Mah\.|` +
			`Street|St\.|Avenue|Ave\.|Road|Rd\.|Boulevard|Blvd\.|Lane|Ln\.|Drive|Dr\.|Way|Place|Square)` +
			`(?:\s+(?:No[:.]?\s*)?\d+[A-Za-z]?(?:/\d+)?)?` +
			`(?:,\s*(?:No[:.]?\s*\d+[A-Za-z]?(?:/\d+)?|(?:\d{4,5}\s+)?\p{Lu}[\p{L}'-]*(?:\s+\p{Lu}[\p{L}'-]*)*))*`)

	personPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:Mr|Mrs|Ms|Miss|Dr|Bay|Bayan|Sayın)\.?\s+(\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)?)`),
		regexp.MustCompile(`(?:^|[^\p{L}])(?i:my name is|name is|i am|i'm|this is|addressed to|deliver to|send (?:them |it )?to|for|to|from)\s+(\p{Lu}\p{Ll}+\s+\p{Lu}\p{Ll}+)`),
	}

	placeJoin = regexp.MustCompile(`^[\s,/]+$`)
)

// DefaultGazetteer lists the place names recognized on their own.
var DefaultGazetteer = []string{
	"Kadıköy", "Bakırköy", "Beşiktaş", "Üsküdar", "Şişli", "Beyoğlu",
	"Sarıyer", "Ataşehir", "Maltepe", "Fatih", "Moda", "Fenerbahçe",
	"Bebek", "Nişantaşı", "Cihangir", "Etiler", "Levent",
	"İstanbul", "Istanbul", "Ankara", "İzmir", "Izmir", "Bursa", "Antalya",
	"Turkey", "Türkiye", "London", "Paris", "Berlin", "New York",
}

// PatternDetector is an in-process detector built from regular
// expressions and a gazetteer of place names.
type PatternDetector struct {
	places []string
}

// NewPatternDetector creates a detector. Extra place names are added to
// DefaultGazetteer.
func NewPatternDetector(places ...string) *PatternDetector {
	all := append(append([]string(nil), DefaultGazetteer...), places...)
	// Longest first so "New York" wins over a shorter entry at the same spot.
	sort.SliceStable(all, func(i, j int) bool { return len(all[i]) > len(all[j]) })
	return &PatternDetector{places: all}
}

// Detect implements Detector.
func (d *PatternDetector) Detect(ctx context.Context, text string) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var spans []Span
	add := func(entity string, start, end int, score float64) {
		spans = append(spans, Span{
			EntityType: entity,
			Start:      start,
			End:        end,
			Text:       text[start:end],
			Score:      score,
		})
	}

	for _, m := range emailPattern.FindAllStringIndex(text, -1) {
		add(EntityEmail, m[0], m[1], scoreEmail)
	}

	for _, m := range phonePattern.FindAllStringIndex(text, -1) {
		start, end := m[0], trimRightSpace(text, m[1])
		if n := countDigits(text[start:end]); n >= 10 && n <= 15 {
			add(EntityPhone, start, end, scorePhone)
		}
	}

	for _, m := range streetPattern.FindAllStringIndex(text, -1) {
		start := m[0]
		if start > 0 && isLetter(lastRune(text[:start])) {
			continue
		}
		add(EntityLocation, start, trimRightPunct(text, m[1]), scoreStreet)
	}

	for _, loc := range d.mergePlaces(text, d.findPlaces(text)) {
		add(EntityLocation, loc[0], loc[1], scoreGazetted)
	}

	for _, p := range personPatterns {
		for _, m := range p.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2], m[3]
			if d.isPlaceName(text[start:end]) || streetSuffix(text[start:end]) {
				continue
			}
			add(EntityPerson, start, end, scorePerson)
		}
	}

	return dropOverlaps(spans), nil
}

// findPlaces returns [start,end) offsets of gazetteer hits on word
// boundaries.
func (d *PatternDetector) findPlaces(text string) [][2]int {
	var hits [][2]int
	taken := make([]bool, len(text)+1)
	for _, place := range d.places {
		from := 0
		for {
			i := strings.Index(text[from:], place)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(place)
			from = end
			if taken[start] {
				continue
			}
			if start > 0 && isLetter(lastRune(text[:start])) {
				continue
			}
			if end < len(text) && isLetter(firstRune(text[end:])) {
				continue
			}
			for k := start; k < end; k++ {
				taken[k] = true
			}
			hits = append(hits, [2]int{start, end})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i][0] < hits[j][0] })
	return hits
}

// mergePlaces joins place names separated only by commas, slashes or
// spaces, so "Kadıköy, İstanbul" is one location.
func (d *PatternDetector) mergePlaces(text string, hits [][2]int) [][2]int {
	var merged [][2]int
	for _, h := range hits {
		if n := len(merged); n > 0 && placeJoin.MatchString(text[merged[n-1][1]:h[0]]) {
			merged[n-1][1] = h[1]
			continue
		}
		merged = append(merged, h)
	}
	return merged
}

func (d *PatternDetector) isPlaceName(s string) bool {
	for _, word := range strings.Fields(s) {
		for _, p := range d.places {
			if word == p {
				return true
			}
		}
	}
	return false
}

var streetSuffixes = []string{"Sokak", "Sokağı", "Caddesi", "Bulvarı", "Mahallesi", "Street", "Avenue", "Road", "Boulevard", "Lane", "Drive"}

func streetSuffix(s string) bool {
	for _, word := range strings.Fields(s) {
		for _, suffix := range streetSuffixes {
			if word == suffix {
				return true
			}
		}
	}
	return false
}

// dropOverlaps keeps the highest-scoring span of each overlapping group
// and returns the survivors ordered by position.
func dropOverlaps(spans []Span) []Span {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Score != spans[j].Score {
			return spans[i].Score > spans[j].Score
		}
		return spans[i].End-spans[i].Start > spans[j].End-spans[j].Start
	})

	var kept []Span
	for _, s := range spans {
		overlaps := false
		for _, k := range kept {
			if s.Start < k.End && k.Start < s.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, s)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func trimRightSpace(text string, end int) int {
	for end > 0 && (text[end-1] == ' ' || text[end-1] == '\t') {
		end--
	}
	return end
}

func trimRightPunct(text string, end int) int {
	for end > 0 && strings.ContainsRune(" \t,.", rune(text[end-1])) {
		// Keep the dot of abbreviations such as "Sk." and "St.".
		if text[end-1] == '.' && end >= 2 && unicode.IsLetter(rune(text[end-2])) {
			break
		}
		end--
	}
	return end
}

func isLetter(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
