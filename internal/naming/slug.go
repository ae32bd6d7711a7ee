// Package naming derives backend-safe identifiers from human-readable titles.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 100

// cyrillicToLatin carries the lowercase Russian transliteration table.
// Uppercase input is lowered before lookup.
var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "e", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "j", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "h", 'ц': "c", 'ч': "ch",
	'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "ju", 'я': "ja",
}

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts a title into a repository/path-safe identifier: Cyrillic is
// transliterated, diacritics folded, the result lowercased and hyphenated,
// anything outside [a-zA-Z0-9-_] dropped, and the output capped at 100 runes.
// The function is pure; the slug is computed once at creation time and the
// stored github_path is authoritative afterwards.
func Slugify(title string) string {
	var transliterated strings.Builder
	for _, r := range title {
		lower := unicode.ToLower(r)
		if latin, ok := cyrillicToLatin[lower]; ok {
			transliterated.WriteString(latin)
			continue
		}
		transliterated.WriteRune(lower)
	}

	folded, _, err := transform.String(diacriticFolder, transliterated.String())
	if err != nil {
		folded = transliterated.String()
	}

	hyphenated := strings.ReplaceAll(folded, " ", "-")

	var cleaned strings.Builder
	for _, r := range hyphenated {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_':
			cleaned.WriteRune(r)
		}
	}

	slug := cleaned.String()
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	return slug
}
