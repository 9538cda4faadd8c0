package analytics

import (
	"PairFlow/internal/domain/models"
)

// ADFResult holds the outcome of an augmented Dickey-Fuller unit-root test.
type ADFResult struct {
	Stat     float64 // tau statistic of the lagged-level coefficient
	PValue   float64
	LagOrder int
	NObs     int
}

// adfMinObs is the minimum number of usable regression observations.
const adfMinObs = 10

// tauTable approximates the distribution of the Dickey-Fuller tau statistic
// for the intercept-only regression (large-sample quantiles); p-values are
// linearly interpolated between anchors and clamped to [0.001, 0.99].
var tauTable = []struct{ stat, p float64 }{
	{-4.32, 0.001},
	{-3.43, 0.01},
	{-3.12, 0.025},
	{-2.86, 0.05},
	{-2.57, 0.10},
	{-2.09, 0.25},
	{-1.57, 0.50},
	{-0.94, 0.75},
	{-0.44, 0.90},
	{-0.07, 0.95},
	{0.23, 0.975},
	{0.60, 0.99},
}

// ADFTest runs an augmented Dickey-Fuller test on the series: the first
// difference is regressed on the lagged level (plus an intercept and lagOrder
// lagged differences) and the tau statistic of the lagged-level coefficient
// is mapped to a p-value. Deterministic for a given series and lag order.
// A small p-value is evidence the series is stationary (mean-reverting).
func ADFTest(series []float64, lagOrder int) (ADFResult, error) {
	if lagOrder < 0 {
		lagOrder = 0
	}
	n := len(series)
	obs := n - 1 - lagOrder
	k := 2 + lagOrder // intercept, lagged level, lagged diffs
	if obs < adfMinObs || obs <= k {
		return ADFResult{}, models.ErrInsufficientData
	}

	diffs := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		diffs[i] = series[i+1] - series[i]
	}

	X := make([][]float64, 0, obs)
	y := make([]float64, 0, obs)
	for t := lagOrder; t < len(diffs); t++ {
		row := make([]float64, k)
		row[0] = 1
		row[1] = series[t] // lagged level
		for j := 1; j <= lagOrder; j++ {
			row[1+j] = diffs[t-j]
		}
		X = append(X, row)
		y = append(y, diffs[t])
	}

	coef, stderr, err := olsMulti(X, y)
	if err != nil {
		return ADFResult{}, err
	}
	if stderr[1] == 0 {
		return ADFResult{}, models.ErrDegenerateSeries
	}

	tau := coef[1] / stderr[1]
	return ADFResult{
		Stat:     tau,
		PValue:   tauPValue(tau),
		LagOrder: lagOrder,
		NObs:     obs,
	}, nil
}

func tauPValue(stat float64) float64 {
	first := tauTable[0]
	if stat <= first.stat {
		return first.p
	}
	last := tauTable[len(tauTable)-1]
	if stat >= last.stat {
		return last.p
	}
	for i := 1; i < len(tauTable); i++ {
		lo, hi := tauTable[i-1], tauTable[i]
		if stat <= hi.stat {
			frac := (stat - lo.stat) / (hi.stat - lo.stat)
			return lo.p + frac*(hi.p-lo.p)
		}
	}
	return last.p
}
