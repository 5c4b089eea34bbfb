package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// FrequencySummarizer picks the sentences or statement lines whose terms
// recur most across the whole text.
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based extractive summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Summarize returns up to maxSentences units in their original order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	var units []string
	for _, u := range sentences(text) {
		if u = strings.TrimSpace(u); u != "" && len(s.tokens(u)) > 0 {
			units = append(units, u)
		}
	}
	if len(units) == 0 {
		return strings.TrimSpace(text), nil
	}

	freq := map[string]float64{}
	var maxF float64
	for _, u := range units {
		for _, tok := range s.tokens(u) {
			freq[tok]++
			maxF = math.Max(maxF, freq[tok])
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(units))
	for i, u := range units {
		toks := s.tokens(u)
		var sum float64
		for _, tok := range toks {
			sum += freq[tok] / maxF
		}
		ranked[i] = scored{i, sum / math.Sqrt(float64(len(toks)))}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	n := min(maxSentences, len(ranked))
	picked := make([]int, n)
	for i := range picked {
		picked[i] = ranked[i].idx
	}
	sort.Ints(picked)

	out := make([]string, n)
	for i, idx := range picked {
		out[i] = units[idx]
	}
	return strings.Join(out, " "), nil
}

// sentences splits at newlines and at terminal punctuation followed by
// whitespace, so amounts like 42.10 stay intact.
func sentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	for i, r := range runes {
		end := r == '\n'
		if !end && (r == '.' || r == '!' || r == '?') {
			end = i+1 == len(runes) || unicode.IsSpace(runes[i+1])
		}
		if end {
			out = append(out, string(runes[start:i+1]))
			start = i + 1
		}
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

// tokens lower-cases text and drops stopwords.
func (s *FrequencySummarizer) tokens(text string) []string {
	raw := s.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, ok := s.stopwords[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that", "these", "those", "from",
		"so", "into", "about", "your", "you", "our", "we", "please", "page",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
