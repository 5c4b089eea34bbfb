package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"statementqa/internal/domain"
)

func TestShouldSearchWeb(t *testing.T) {
	tests := []struct {
		query string
		mode  domain.Mode
		force bool
		want  bool
	}{
		{"What is the interest rate?", domain.ModeConcise, false, true},
		{"Total spent on food", domain.ModeConcise, false, false},
		{"Total spent on food", domain.ModeConcise, true, true},
		{"Total spent on food", domain.ModeDetailed, false, true},
		{"SHOW me fees", domain.ModeConcise, false, true},
		{"list overdraft charges", domain.ModeConcise, false, false},
		{"", domain.ModeConcise, false, false},
		{"Latest NEWS on my bank", domain.ModeConcise, false, true},
		{"Exchange rates applied", domain.ModeConcise, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldSearchWeb(tt.query, tt.mode, tt.force))
		})
	}
}

func TestKeywordsUnchanged(t *testing.T) {
	assert.Equal(t, []string{"what", "who", "how", "define", "explain", "rate", "price", "news", "compare", "analysis", "trend"}, Keywords)
}
