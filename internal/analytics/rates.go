package analytics

import "math"

// percentOf returns part/total as a whole percentage rounded to nearest.
// Zero denominators yield 0, never NaN. Every aggregator shares this one
// implementation so the zero-denominator convention cannot drift.
func percentOf(part, total float64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(part / total * 100))
}

// averageOf returns num/den rounded to two decimals, 0 when den is 0.
func averageOf(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return math.Round(num/den*100) / 100
}

// budgetEfficiency is actual spend as a percentage of the estimate. With no
// estimate there is nothing to miss, so it reports a clean 100.
func budgetEfficiency(actual, estimated float64) int {
	if estimated == 0 {
		return 100
	}
	return percentOf(actual, estimated)
}
