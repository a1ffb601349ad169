package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength matches the products.slug column width.
const MaxLength = 255

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// Letters that do not decompose into base + combining mark under NFKD.
	special = strings.NewReplacer(
		"ı", "i", "ß", "ss", "ø", "o", "æ", "ae", "œ", "oe", "đ", "d", "ł", "l", "þ", "th",
	)
)

// Generate creates a URL-friendly slug from name: accents are stripped,
// runs of anything other than [a-z0-9] become a single hyphen, and the
// result is trimmed of hyphens.
//
//	"Çocuk Ürünleri"       -> "cocuk-urunleri"
//	"Samsung 65\" QLED TV" -> "samsung-65-qled-tv"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = special.Replace(s)

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	s = nonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}
