// Package router decides whether a query also needs live web context.
package router

import (
	"strings"

	"statementqa/internal/domain"
)

// Keywords mark a query as generic. Matching is by substring of the
// lower-cased query, so "rate" also matches "interest rates" and "how"
// matches "show".
var Keywords = []string{"what", "who", "how", "define", "explain", "rate", "price", "news", "compare", "analysis", "trend"}

// ShouldSearchWeb is true when forced, in Detailed mode, or when the query
// contains any keyword.
func ShouldSearchWeb(query string, mode domain.Mode, force bool) bool {
	if force || mode == domain.ModeDetailed {
		return true
	}
	return IsGeneric(query)
}

// IsGeneric reports whether query contains one of Keywords.
func IsGeneric(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range Keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
