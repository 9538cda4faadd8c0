package analytics

import (
	"fmt"
	"math"

	"PairFlow/internal/domain/models"
)

// olsFit fits y = alpha + beta*x by ordinary least squares.
func olsFit(x, y []float64) (alpha, beta float64, err error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0, 0, fmt.Errorf("ols: mismatched series lengths %d/%d", len(x), len(y))
	}
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		sxx += dx * dx
		sxy += dx * (y[i] - meanY)
	}
	if sxx == 0 {
		return 0, 0, models.ErrDegenerateSeries
	}
	beta = sxy / sxx
	alpha = meanY - beta*meanX
	return alpha, beta, nil
}

// residuals returns eps_t = y_t - alpha - beta*x_t, the spread series.
func residuals(x, y []float64, alpha, beta float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = y[i] - alpha - beta*x[i]
	}
	return out
}

// meanStd returns the mean and sample standard deviation.
func meanStd(xs []float64) (mean, std float64) {
	n := len(xs)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range xs {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n-1))
}

// pearson computes the Pearson correlation of two equal-length series.
func pearson(x, y []float64) (float64, error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0, fmt.Errorf("pearson: mismatched series lengths %d/%d", len(x), len(y))
	}
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var sxx, syy, sxy float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, models.ErrDegenerateSeries
	}
	return sxy / math.Sqrt(sxx*syy), nil
}

// olsMulti fits y = X*coef by least squares via the normal equations and
// returns coefficient estimates and standard errors. X is row-major with the
// regressor count small (intercept + lagged level + a few lagged diffs), so
// Gaussian elimination with partial pivoting is plenty.
func olsMulti(X [][]float64, y []float64) (coef, stderr []float64, err error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return nil, nil, fmt.Errorf("ols: mismatched design %d/%d", len(X), len(y))
	}
	k := len(X[0])
	if n <= k {
		return nil, nil, models.ErrInsufficientData
	}

	// normal equations: (X'X) coef = X'y
	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	xty := make([]float64, k)
	for r := 0; r < n; r++ {
		row := X[r]
		for i := 0; i < k; i++ {
			xty[i] += row[i] * y[r]
			for j := i; j < k; j++ {
				xtx[i][j] += row[i] * row[j]
			}
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}

	inv, err := invert(xtx)
	if err != nil {
		return nil, nil, err
	}

	coef = make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			coef[i] += inv[i][j] * xty[j]
		}
	}

	var rss float64
	for r := 0; r < n; r++ {
		pred := 0.0
		for i := 0; i < k; i++ {
			pred += X[r][i] * coef[i]
		}
		d := y[r] - pred
		rss += d * d
	}
	sigma2 := rss / float64(n-k)

	stderr = make([]float64, k)
	for i := 0; i < k; i++ {
		v := sigma2 * inv[i][i]
		if v < 0 {
			v = 0
		}
		stderr[i] = math.Sqrt(v)
	}
	return coef, stderr, nil
}

// invert inverts a small symmetric positive-definite matrix by Gauss-Jordan
// elimination with partial pivoting.
func invert(a [][]float64) ([][]float64, error) {
	k := len(a)
	m := make([][]float64, k)
	for i := range m {
		m[i] = make([]float64, 2*k)
		copy(m[i], a[i])
		m[i][k+i] = 1
	}

	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, models.ErrDegenerateSeries
		}
		m[col], m[pivot] = m[pivot], m[col]

		pv := m[col][col]
		for j := 0; j < 2*k; j++ {
			m[col][j] /= pv
		}
		for r := 0; r < k; r++ {
			if r == col {
				continue
			}
			f := m[r][col]
			if f == 0 {
				continue
			}
			for j := 0; j < 2*k; j++ {
				m[r][j] -= f * m[col][j]
			}
		}
	}

	inv := make([][]float64, k)
	for i := range inv {
		inv[i] = m[i][k:]
	}
	return inv, nil
}

// logSeries returns the natural logarithm of each value. Non-positive prices
// are excluded upstream at the tick boundary.
func logSeries(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = math.Log(v)
	}
	return out
}
