package planner

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/productsearch/internal/domain"
)

// RE2's \w and \b are ASCII only, so word boundaries are spelled out with
// Unicode classes. Group 1 is the keyword with its value, group 2 the value.
var (
	underPattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(under\s+(\d+(?:\.\d+)?))(?:$|[^\p{L}\p{N}_])`)
	abovePattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(above\s+(\d+(?:\.\d+)?))(?:$|[^\p{L}\p{N}_])`)
	brandPattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(in\s+([\p{L}\p{N}_]+))`)
)

// Parse extracts price bounds and a brand from raw and returns the rest as
// free text. Each keyword is applied once, to its first occurrence, in the
// order under, above, in. Later occurrences stay in the free text.
func Parse(raw string) domain.ParsedQuery {
	var parsed domain.ParsedQuery
	text := raw

	if v, rest, ok := extract(underPattern, text); ok {
		if d, err := decimal.NewFromString(v); err == nil {
			parsed.MaxPrice = &d
			text = rest
		}
	}
	if v, rest, ok := extract(abovePattern, text); ok {
		if d, err := decimal.NewFromString(v); err == nil {
			parsed.MinPrice = &d
			text = rest
		}
	}
	if v, rest, ok := extract(brandPattern, text); ok {
		brand := domain.NormalizeBrand(v)
		parsed.Brand = &brand
		text = rest
	}

	parsed.FreeText = strings.Join(strings.Fields(text), " ")
	return parsed
}

// extract returns the value group of re's first match in s, and s with the
// keyword and its value cut out. Boundary characters around them are kept.
func extract(re *regexp.Regexp, s string) (string, string, bool) {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return "", s, false
	}
	return s[loc[4]:loc[5]], s[:loc[2]] + " " + s[loc[3]:], true
}
