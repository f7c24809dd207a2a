package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxPhotos caps how many photo URLs are kept per listing.
const MaxPhotos = 20

// placeholders that mean "price on request" rather than a number.
var pricePlaceholders = []string{
	"na dotaz",
	"cena dohodou",
	"dohodou",
	"on request",
	"v rk",
}

var (
	digitsPattern = regexp.MustCompile(`\d`)
	areaPattern   = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*m\s*[²2]`)
	roomsPattern  = regexp.MustCompile(`(\d)\s*\+\s*(?:kk|\d)`)
)

// ParsePrice turns a scraped price string into a numeric value.
// Returns nil when the text is empty, a placeholder ("Na dotaz"),
// or carries no digits at all. Ranges ("2 500 000 - 3 500 000 Kč")
// yield the lower bound. Currency symbols and thousands separators
// (spaces, NBSP, dots) are stripped before parsing.
func ParsePrice(text string) *float64 {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}

	lower := strings.ToLower(s)
	for _, p := range pricePlaceholders {
		if strings.Contains(lower, p) {
			return nil
		}
	}

	// a range: take the lower bound
	if i := strings.Index(s, "-"); i > 0 && digitsPattern.MatchString(s[:i]) {
		s = s[:i]
	}

	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return nil
	}

	v, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// ParseArea extracts a square-meter value from text. All unit spellings
// the source uses are accepted: "120m²", "120 m2", "120 m 2".
// Zero, negative or unit-less values yield nil.
func ParseArea(text string) *float64 {
	m := areaPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// ParseRooms extracts a room count from a layout marker like "3+1" or
// "4+kk" anywhere in the text. Returns nil when no marker is present.
func ParseRooms(text string) *int {
	m := roomsPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// NormalizePhotoURLs deduplicates exact URL repeats while preserving
// document order, and caps the result at MaxPhotos.
func NormalizePhotoURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) == MaxPhotos {
			break
		}
	}
	return out
}
