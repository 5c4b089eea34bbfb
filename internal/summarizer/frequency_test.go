package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_PicksRecurringLines(t *testing.T) {
	text := strings.Join([]string{
		"Card statement for March",
		"Grocery purchase Grocer Market 42.10",
		"Grocery purchase Grocer Market 18.00",
		"Fuel 60.00",
		"Grocery refund Grocer Market -5.00",
		"Thank you for banking with us.",
	}, "\n")

	s := NewFrequencySummarizer()
	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Grocery purchase Grocer Market 42.10 Grocery purchase Grocer Market 18.00", out)
}

func TestSummarize_KeepsOriginalOrder(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize("Rent paid. Salary received. Rent increased. Rent due soon.", 2)
	require.NoError(t, err)
	assert.Equal(t, "Rent paid. Rent due soon.", out)
}

func TestSentences(t *testing.T) {
	assert.Equal(t, []string{"Paid 42.10 today.", " Next\n", "Done"}, sentences("Paid 42.10 today. Next\nDone"))
}

func TestSummarize_ShortInput(t *testing.T) {
	s := NewFrequencySummarizer()

	out, err := s.Summarize("Balance 100", 5)
	require.NoError(t, err)
	assert.Equal(t, "Balance 100", out)

	out, err = s.Summarize("  12.00  ", 3)
	require.NoError(t, err)
	assert.Equal(t, "12.00", out)
}
