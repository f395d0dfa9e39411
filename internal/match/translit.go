package match

import (
	"strings"
	"unicode"
)

// cyrToLat maps each Cyrillic letter to its Latin rendering.
// Lowercase only; callers normalize case first.
var cyrToLat = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "yo", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
	'і': "i", 'ї': "yi", 'є': "ye", 'ґ': "g", // Ukrainian letters appear in Yandex metadata
}

// latToCyr maps Latin sequences back to Cyrillic letters. Entries are tried
// longest first so digraphs win over their prefixes.
var latToCyr = []struct {
	seq string
	out rune
}{
	{"shch", 'щ'},
	{"zh", 'ж'}, {"kh", 'х'}, {"ts", 'ц'}, {"ch", 'ч'},
	{"sh", 'ш'}, {"yo", 'ё'}, {"yu", 'ю'}, {"ya", 'я'},
	{"a", 'а'}, {"b", 'б'}, {"c", 'к'}, {"d", 'д'}, {"e", 'е'},
	{"f", 'ф'}, {"g", 'г'}, {"h", 'х'}, {"i", 'и'}, {"j", 'й'},
	{"k", 'к'}, {"l", 'л'}, {"m", 'м'}, {"n", 'н'}, {"o", 'о'},
	{"p", 'п'}, {"q", 'к'}, {"r", 'р'}, {"s", 'с'}, {"t", 'т'},
	{"u", 'у'}, {"v", 'в'}, {"w", 'в'}, {"x", 'х'}, {"y", 'ы'},
	{"z", 'з'},
}

// Transliterate maps between Cyrillic and Latin renderings of the same text
// using a fixed character table.
//
// Text containing any Cyrillic letter is romanized; otherwise Latin letters
// are converted to Cyrillic with digraphs matched longest-first. Characters
// outside both scripts pass through untouched. The function is total and
// performs no fuzzy correction.
func Transliterate(text string) string {
	if containsCyrillic(text) {
		return romanize(text)
	}
	return cyrillicize(text)
}

func containsCyrillic(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

func romanize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		lower := unicode.ToLower(r)
		if lat, ok := cyrToLat[lower]; ok {
			b.WriteString(lat)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func cyrillicize(text string) string {
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))

	i := 0
	for i < len(lower) {
		matched := false
		for _, entry := range latToCyr {
			if strings.HasPrefix(lower[i:], entry.seq) {
				b.WriteRune(entry.out)
				i += len(entry.seq)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(lower[i])
			i++
		}
	}
	return b.String()
}
