package grading

import "github.com/shopspring/decimal"

// Summary is the aggregate of a scored attempt.
type Summary struct {
	Score      float64 `json:"score"`
	MaxScore   int     `json:"max_score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

var hundred = decimal.NewFromInt(100)

// Aggregate sums per-question scores (one point per question) and derives the
// percentage, rounded to two decimals, and the pass flag.
func Aggregate(scores []float64, passingPercent float64) Summary {
	total := decimal.Zero
	for _, s := range scores {
		total = total.Add(decimal.NewFromFloat(clamp01(s)))
	}
	total = total.Round(4)

	max := len(scores)
	pct := decimal.Zero
	if max > 0 {
		pct = total.Div(decimal.NewFromInt(int64(max))).Mul(hundred).Round(2)
	}
	return Summary{
		Score:      total.InexactFloat64(),
		MaxScore:   max,
		Percentage: pct.InexactFloat64(),
		Passed:     pct.GreaterThanOrEqual(decimal.NewFromFloat(passingPercent)),
	}
}
