package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reID   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reSlug = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	reSort = regexp.MustCompile(`^(popular|newest|price-low|price-high|discount-high)$`)
	reMaj  = regexp.MustCompile(`^(AFFORDABLE|LUXURY|ALL)$`)
	reQ    = regexp.MustCompile(`^[A-Za-z0-9 _'&.\-]{1,50}$`)
)

// ID validates a simple resource identifier (product ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Q validates a search query: trims, caps the length at 50 and allows
// letters, digits, spaces and a few punctuation marks.
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 50 {
		s = strings.TrimSpace(s[:50])
	}
	return s, reQ.MatchString(s)
}

// Slug validates a shop or category slug.
func Slug(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 64 {
		return "", false
	}
	return s, reSlug.MatchString(s)
}

// Name validates a displayable name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 120 {
		return "", false
	}
	return s, true
}

// Text trims free text and enforces a max length. Empty is allowed.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	return s, len(s) <= max
}

// Price accepts finite non-negative amounts.
func Price(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Rating accepts a single review score from 1 to 5.
func Rating(v float64) bool {
	return !math.IsNaN(v) && v >= 1 && v <= 5
}

// Sort validates a listing order. Empty means the shop default.
func Sort(s string) (string, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	return s, s == "" || reSort.MatchString(s)
}

// MajorCategory normalises a major category filter. Empty is allowed.
func MajorCategory(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, s == "" || reMaj.MatchString(s)
}

// Page parses a 1-based page number; anything invalid is page 1.
func Page(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Limit parses a page size, falling back to def and clamping to max.
func Limit(s string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	} // clamp to avoid abuse
	return n
}

// OptFloat parses an optional non-negative number. Empty yields nil, true.
func OptFloat(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !Price(v) {
		return nil, false
	}
	return &v, true
}

// List splits a comma separated filter, dropping blanks.
func List(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
