// Package match implements the three-tier track matching used to decide
// whether two liked tracks on different services are the same recording.
//
// # Tiers
//
// [Score] applies the tiers in order and stops at the first success:
//
//  1. Exact: canonical keys (see [Normalize]) are equal. Confidence 1.0.
//  2. Transliterated: keys are equal after [Transliterate] bridges
//     Cyrillic and Latin renderings and a phonetic fold absorbs vowel
//     spelling differences ("Дип Перпл" vs "Deep Purple").
//     Confidence in the high band, 0.85 to 0.95 by length similarity.
//  3. Fuzzy: Ratcliff/Obershelp similarity over canonical keys, gated by
//     track duration: candidates differing by more than [DurationTolerance]
//     are rejected outright regardless of text similarity.
//
// All functions are pure and safe for concurrent use; no state is shared
// between calls.
package match
