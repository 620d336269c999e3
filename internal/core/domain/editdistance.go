package domain

// SpellcheckString returns the candidate nearest to text by edit distance,
// or "" when nothing is close enough to suggest.
func SpellcheckString(text string, candidates []string) string {
	best := maxSuggestionDistance + 1
	result := ""
	for _, candidate := range candidates {
		if d := editDistance(text, candidate, maxSuggestionDistance); d < best {
			best = d
			result = candidate
		}
	}
	return result
}

// editDistance computes the Levenshtein distance between s1 and s2, giving up
// once the distance is known to exceed maxDistance (in which case it returns
// maxDistance + 1). Used only for "did you mean" suggestions.
func editDistance(s1, s2 string, maxDistance int) int {
	m := len(s1)
	n := len(s2)

	row := make([]int, n+1)
	for i := range row {
		row[i] = i
	}

	for y := 1; y <= m; y++ {
		prev := row[0]
		row[0] = y
		best := row[0]
		for x := 1; x <= n; x++ {
			cost := 1
			if s1[y-1] == s2[x-1] {
				cost = 0
			}
			d := min(prev+cost, min(row[x]+1, row[x-1]+1))
			prev = row[x]
			row[x] = d
			if d < best {
				best = d
			}
		}
		if maxDistance > 0 && best > maxDistance {
			return maxDistance + 1
		}
	}

	return row[n]
}
