// Package similarity scores how close two short texts are.
//
// The score is the Jaccard index of the lower-cased word sets. It is used to
// compare an English source with the back-translation of a machine
// translation. It does not understand paraphrase (a correct translation that
// comes back with synonyms scores low) and it ignores word order (a scrambled
// sentence with the same words scores high).
package similarity

import "strings"

// Compute returns |A∩B| / |A∪B| for the word sets of a and b.
// Two empty inputs are identical (1.0); exactly one empty input scores 0.0.
func Compute(a, b string) float64 {
	setA := words(a)
	setB := words(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter

	return float64(inter) / float64(union)
}

func words(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
