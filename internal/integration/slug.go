package integration

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent decomposes characters and strips the combining marks, so
// "SÃO LUIZ" becomes "SAO LUIZ".
var deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify reduces a station name or filename to a lowercase ASCII slug:
// accents removed, every run of non-alphanumerics collapsed to a single
// underscore. The portal is inconsistent about accents and spacing in
// its CSV filenames, so matching happens on slugs.
func Slugify(text string) string {
	ascii, _, err := transform.String(deaccent, text)
	if err != nil {
		ascii = text
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.Trim(b.String(), "_")
}

// NormalizeColumn uppercases a CSV header the same way Slugify works on
// names, yielding identifiers like PRECIPITACAO_TOTAL_HORARIO_MM.
func NormalizeColumn(name string) string {
	return strings.ToUpper(Slugify(name))
}
