package memory

import (
	"math"
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’.,][\p{L}\p{N}]+)*`)

// lexicalScores ranks chunks by token overlap with the query (Ochiai
// coefficient). Used when no chunk has any vector similarity to the query,
// which happens with sparse embedders and out-of-vocabulary queries.
func lexicalScores(query string, texts []string) []float64 {
	q := tokenSet(query)
	scores := make([]float64, len(texts))
	if len(q) == 0 {
		return scores
	}
	for i, t := range texts {
		s := tokenSet(t)
		if len(s) == 0 {
			continue
		}
		inter := 0
		for tok := range s {
			if _, ok := q[tok]; ok {
				inter++
			}
		}
		scores[i] = float64(inter) / math.Sqrt(float64(len(q))*float64(len(s)))
	}
	return scores
}

func tokenSet(s string) map[string]struct{} {
	toks := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		m[t] = struct{}{}
	}
	return m
}

func allZero(scores []float64) bool {
	for _, s := range scores {
		if s > 1e-9 {
			return false
		}
	}
	return true
}
