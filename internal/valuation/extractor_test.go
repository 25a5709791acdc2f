package valuation_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/bounty-radar/internal/valuation"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "empty", input: "", want: 0},
		{name: "no currency", input: "Build a todo app", want: 0},
		{name: "plain dollars", input: "Reward $500", want: 500},
		{name: "thousands separator", input: "$1,500.00", want: 1500},
		{name: "k suffix", input: "$2k", want: 2000},
		{name: "fractional k", input: "$1.5k", want: 1500},
		{name: "usd suffix", input: "pays 300 USD", want: 300},
		{name: "dollars suffix", input: "250 dollars for a fix", want: 250},
		{name: "k usd", input: "1.5k USD", want: 1500},
		{name: "first rule wins", input: "$40 or 900 USD", want: 40},
		{name: "loose k anywhere", input: "$3 per task", want: 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, valuation.Extract(tt.input), 0.0001)
		})
	}
}

func TestExtractCustomRules(t *testing.T) {
	ex := valuation.New([]valuation.Rule{
		{Name: "euro", Pattern: regexp.MustCompile(`€(\d+)`), Scale: 1},
	})
	require.Equal(t, 120.0, ex.Extract("prize €120"))
	require.Equal(t, 0.0, ex.Extract("prize $120"))
}

func TestFindAll(t *testing.T) {
	got := valuation.FindAll("Fix login $200. Port API 50 USD. Rewrite 2K$")
	require.Equal(t, []float64{200, 50, 2000}, got)

	require.Nil(t, valuation.FindAll(""))
	require.Empty(t, valuation.FindAll("nothing to see"))
}
