package cliutil

import "github.com/agnivade/levenshtein"

// MaxSuggestDistance is the largest edit distance Suggest accepts.
const MaxSuggestDistance = 2

// Suggest returns the candidate closest to input by edit distance, or ""
// when none is within MaxSuggestDistance. Ties go to the earlier candidate.
func Suggest(input string, candidates []string) string {
	best, bestDist := "", MaxSuggestDistance+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(input, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
