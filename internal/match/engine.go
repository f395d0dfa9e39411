package match

import (
	"sort"
	"strings"
)

const (
	// DurationTolerance is the largest duration difference, in seconds,
	// a fuzzy match may bridge. Different recordings of the same title
	// rarely land this close together.
	DurationTolerance = 3

	// FuzzyMediumThreshold is the similarity ratio above which a fuzzy
	// match lands in the medium bucket.
	FuzzyMediumThreshold = 0.80

	// FuzzyFloor is the minimum similarity ratio for any fuzzy match.
	FuzzyFloor = 0.60

	highBandBase = 0.85
	highBandSpan = 0.10
)

// Tier identifies which matching stage accepted a candidate pair.
type Tier int

const (
	TierNone Tier = iota
	TierFuzzy
	TierTransliterated
	TierExact
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierTransliterated:
		return "transliterated"
	case TierFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Bucket is the user-facing confidence label derived from tier and score.
type Bucket string

const (
	BucketExact  Bucket = "exact"
	BucketHigh   Bucket = "high"
	BucketMedium Bucket = "medium"
	BucketLow    Bucket = "low"
	BucketNone   Bucket = "none"
)

// Candidate describes one track offered to the engine for comparison.
type Candidate struct {
	ID              string
	Artist          string
	Title           string
	DurationSeconds int // 0 means unknown
}

// Confidence is the tagged outcome of scoring a candidate pair. Downstream
// code reads the tier and bucket directly instead of re-deriving them from
// the numeric score.
type Confidence struct {
	Tier  Tier
	Score float64
}

// NoMatch is the zero confidence returned for rejected pairs.
var NoMatch = Confidence{Tier: TierNone, Score: 0}

// Matched reports whether the pair cleared the reject floor.
func (c Confidence) Matched() bool { return c.Tier != TierNone }

// Bucket maps the outcome to its confidence label.
func (c Confidence) Bucket() Bucket {
	switch c.Tier {
	case TierExact:
		return BucketExact
	case TierTransliterated:
		return BucketHigh
	case TierFuzzy:
		if c.Score >= FuzzyMediumThreshold {
			return BucketMedium
		}
		return BucketLow
	default:
		return BucketNone
	}
}

// Better reports whether c outranks other. Higher tiers always win; within
// a tier the score decides.
func (c Confidence) Better(other Confidence) bool {
	if c.Tier != other.Tier {
		return c.Tier > other.Tier
	}
	return c.Score > other.Score
}

// Score compares two candidates through the matching tiers, first success
// wins. Pure function, safe to call concurrently.
func Score(a, b Candidate) Confidence {
	keyA := Key(a.Artist, a.Title)
	keyB := Key(b.Artist, b.Title)

	// Tier 1: exact canonical-key equality.
	if keyA == keyB {
		return Confidence{Tier: TierExact, Score: 1.0}
	}

	// Tier 2: key equality after bridging Cyrillic/Latin renderings. Only
	// applies when one side actually needs transliterating. The phonetic
	// fold absorbs vowel spelling drift that a character table cannot
	// express ("дип" romanizes to "dip", not "deep").
	if containsCyrillic(keyA) != containsCyrillic(keyB) {
		if phoneticLatinKey(keyA) == phoneticLatinKey(keyB) {
			return Confidence{Tier: TierTransliterated, Score: highBandScore(keyA, keyB)}
		}
	}

	// Tier 3: fuzzy similarity, gated by duration.
	if a.DurationSeconds > 0 && b.DurationSeconds > 0 {
		diff := a.DurationSeconds - b.DurationSeconds
		if diff < 0 {
			diff = -diff
		}
		if diff > DurationTolerance {
			return NoMatch
		}
	}

	sim := similarity(keyA, keyB)
	if latA, latB := toLatin(keyA), toLatin(keyB); latA != keyA || latB != keyB {
		if s := similarity(latA, latB); s > sim {
			sim = s
		}
	}

	if sim < FuzzyFloor {
		return NoMatch
	}
	return Confidence{Tier: TierFuzzy, Score: sim}
}

// Best scores source against every candidate in pool and returns the winner.
//
// Ordering is total and reproducible: highest confidence first, ties broken
// by smallest absolute duration difference, then lexicographic candidate ID.
func Best(source Candidate, pool []Candidate) (Candidate, Confidence, bool) {
	var (
		winner Candidate
		best   = NoMatch
		found  bool
	)

	for _, cand := range pool {
		conf := Score(source, cand)
		if !conf.Matched() {
			continue
		}

		if !found || conf.Better(best) {
			winner, best, found = cand, conf, true
			continue
		}
		if best.Better(conf) {
			continue
		}

		// equal confidence: smallest duration difference, then lexicographic ID
		da, dw := durationDiff(source, cand), durationDiff(source, winner)
		if da < dw || (da == dw && cand.ID < winner.ID) {
			winner, best = cand, conf
		}
	}

	return winner, best, found
}

func durationDiff(source, c Candidate) int {
	d := source.DurationSeconds - c.DurationSeconds
	if d < 0 {
		d = -d
	}
	return d
}

// highBandScore places a transliterated match inside [0.85, 0.95] according
// to how similar the two key lengths are.
func highBandScore(keyA, keyB string) float64 {
	lenA, lenB := float64(len(keyA)), float64(len(keyB))
	if lenA == 0 || lenB == 0 {
		return highBandBase
	}
	ratio := lenA / lenB
	if ratio > 1 {
		ratio = 1 / ratio
	}
	return highBandBase + highBandSpan*ratio
}

// toLatin romanizes text when it contains Cyrillic, otherwise returns it as is.
func toLatin(text string) string {
	if containsCyrillic(text) {
		return Transliterate(text)
	}
	return text
}

// phoneticLatinKey folds a canonical key into a script-independent skeleton:
// romanize, then per token keep the leading rune and drop the remaining
// vowels, collapsing repeated letters.
func phoneticLatinKey(key string) string {
	parts := strings.Split(toLatin(key), "|||")
	for i, part := range parts {
		tokens := strings.Fields(part)
		for j, tok := range tokens {
			tokens[j] = phoneticFold(tok)
		}
		parts[i] = strings.Join(tokens, " ")
	}
	return strings.Join(parts, "|||")
}

func phoneticFold(token string) string {
	var b strings.Builder
	var prev rune = -1
	for i, r := range token {
		if i > 0 && isVowel(r) {
			continue
		}
		if r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

// similarity returns the maximum of the Ratcliff/Obershelp ratio over the
// raw strings and over their sorted unique token sets. The token-set pass
// forgives word-order differences ("the beatles" vs "beatles the").
func similarity(a, b string) float64 {
	s := ratio(a, b)
	if ts := ratio(tokenSet(a), tokenSet(b)); ts > s {
		s = ts
	}
	return s
}

func tokenSet(s string) string {
	fields := strings.Fields(strings.ReplaceAll(s, "|||", " "))
	seen := make(map[string]bool, len(fields))
	uniq := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			uniq = append(uniq, f)
		}
	}
	sort.Strings(uniq)
	return strings.Join(uniq, " ")
}

// ratio implements the Ratcliff/Obershelp similarity used by Python's
// difflib: twice the total length of matching blocks over the combined
// length.
func ratio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	matched := matchingBlocks([]rune(a), []rune(b))
	return 2.0 * float64(matched) / float64(len([]rune(a))+len([]rune(b)))
}

// matchingBlocks returns the total matched length found by recursively
// locating the longest common substring and descending into the unmatched
// pieces on either side.
func matchingBlocks(a, b []rune) int {
	startA, startB, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlocks(a[:startA], b[:startB])
	total += matchingBlocks(a[startA+size:], b[startB+size:])
	return total
}

func longestCommonSubstring(a, b []rune) (int, int, int) {
	bestA, bestB, bestSize := 0, 0, 0
	// lengths[j] holds the common-suffix length ending at a[i-1], b[j-1]
	lengths := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		prevDiag := 0
		for j := 1; j <= len(b); j++ {
			cur := lengths[j]
			if a[i-1] == b[j-1] {
				lengths[j] = prevDiag + 1
				if lengths[j] > bestSize {
					bestSize = lengths[j]
					bestA = i - bestSize
					bestB = j - bestSize
				}
			} else {
				lengths[j] = 0
			}
			prevDiag = cur
		}
	}
	return bestA, bestB, bestSize
}
