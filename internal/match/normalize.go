package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// "(feat. X)" / "[ft. X]" bracketed featuring clauses
	featBracketRe = regexp.MustCompile(`(?i)\s*[(\[](feat\.?|ft\.?|featuring)\s+[^)\]]*[)\]]`)
	// "feat. X" trailing inline featuring clause
	featInlineRe = regexp.MustCompile(`(?i)\s+(feat\.?|ft\.?|featuring)\s+.*$`)
	// remaining bracketed qualifiers: "(remastered)", "[live]", "- single version" style dashes excluded here
	bracketRe = regexp.MustCompile(`\s*[(\[][^)\]]*[)\]]`)
	// trailing dash qualifier: "- single version", "- remastered 2011"
	dashQualifierRe = regexp.MustCompile(`(?i)\s+-\s+(single|album|radio|mono|stereo|live|demo|extended|remaster(ed)?|re-?record(ed)?)\b.*$`)
)

// Normalize canonicalizes a track title or artist name for comparison.
//
// Steps: NFKD decomposition, lowercase, strip featuring clauses, strip
// bracketed and trailing-dash qualifiers, drop punctuation and combining
// marks, collapse whitespace. Deterministic and stateless: equal input
// always yields equal output.
func Normalize(text string) string {
	text = norm.NFKD.String(text)
	text = strings.ToLower(text)
	text = featBracketRe.ReplaceAllString(text, "")
	text = featInlineRe.ReplaceAllString(text, "")
	text = bracketRe.ReplaceAllString(text, "")
	text = dashQualifierRe.ReplaceAllString(text, "")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Key builds the canonical match key from an artist/title pair.
// The separator keeps "a b|||c" and "a|||b c" distinct.
func Key(artist, title string) string {
	return Normalize(artist) + "|||" + Normalize(title)
}
