package analytics

import (
	"errors"
	"math"
	"testing"

	"PairFlow/internal/domain/models"
)

func TestOLSFitRecoversLine(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 0.5 + 2*v
	}

	alpha, beta, err := olsFit(x, y)
	if err != nil {
		t.Fatalf("olsFit: %v", err)
	}
	if math.Abs(beta-2) > 1e-12 {
		t.Errorf("beta = %v, want 2", beta)
	}
	if math.Abs(alpha-0.5) > 1e-12 {
		t.Errorf("alpha = %v, want 0.5", alpha)
	}
}

func TestOLSFitConstantXIsDegenerate(t *testing.T) {
	x := []float64{3, 3, 3, 3}
	y := []float64{1, 2, 3, 4}
	if _, _, err := olsFit(x, y); !errors.Is(err, models.ErrDegenerateSeries) {
		t.Fatalf("err = %v, want ErrDegenerateSeries", err)
	}
}

func TestResidualsAreZeroOnExactFit(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{3, 5, 7} // y = 1 + 2x
	eps := residuals(x, y, 1, 2)
	for i, e := range eps {
		if math.Abs(e) > 1e-12 {
			t.Errorf("residual[%d] = %v, want 0", i, e)
		}
	}
}

func TestMeanStd(t *testing.T) {
	mean, std := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(mean-5) > 1e-12 {
		t.Errorf("mean = %v, want 5", mean)
	}
	// sample variance of this set is 32/7
	want := math.Sqrt(32.0 / 7.0)
	if math.Abs(std-want) > 1e-12 {
		t.Errorf("std = %v, want %v", std, want)
	}
}

func TestMeanStdEdgeCases(t *testing.T) {
	if mean, std := meanStd(nil); mean != 0 || std != 0 {
		t.Errorf("empty series: mean=%v std=%v, want 0,0", mean, std)
	}
	if mean, std := meanStd([]float64{7}); mean != 7 || std != 0 {
		t.Errorf("single value: mean=%v std=%v, want 7,0", mean, std)
	}
}

func TestPearsonPerfectCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{10, 20, 30, 40}
	r, err := pearson(x, y)
	if err != nil {
		t.Fatalf("pearson: %v", err)
	}
	if math.Abs(r-1) > 1e-12 {
		t.Errorf("r = %v, want 1", r)
	}

	yn := []float64{40, 30, 20, 10}
	r, err = pearson(x, yn)
	if err != nil {
		t.Fatalf("pearson: %v", err)
	}
	if math.Abs(r+1) > 1e-12 {
		t.Errorf("r = %v, want -1", r)
	}
}

func TestPearsonZeroVarianceIsDegenerate(t *testing.T) {
	x := []float64{5, 5, 5, 5}
	y := []float64{1, 2, 3, 4}
	if _, err := pearson(x, y); !errors.Is(err, models.ErrDegenerateSeries) {
		t.Fatalf("err = %v, want ErrDegenerateSeries", err)
	}
}

func TestOLSMultiRecoversCoefficients(t *testing.T) {
	// y = 1 + 2a + 3b, noise-free
	X := [][]float64{
		{1, 0, 0},
		{1, 1, 0},
		{1, 0, 1},
		{1, 1, 1},
		{1, 2, 1},
		{1, 1, 2},
	}
	y := make([]float64, len(X))
	for i, row := range X {
		y[i] = 1 + 2*row[1] + 3*row[2]
	}

	coef, stderr, err := olsMulti(X, y)
	if err != nil {
		t.Fatalf("olsMulti: %v", err)
	}
	want := []float64{1, 2, 3}
	for i := range want {
		if math.Abs(coef[i]-want[i]) > 1e-9 {
			t.Errorf("coef[%d] = %v, want %v", i, coef[i], want[i])
		}
	}
	// exact fit leaves no residual variance
	for i, se := range stderr {
		if se > 1e-9 {
			t.Errorf("stderr[%d] = %v, want ~0", i, se)
		}
	}
}

func TestOLSMultiCollinearIsDegenerate(t *testing.T) {
	// second regressor duplicates the first
	X := [][]float64{
		{1, 1, 1},
		{1, 2, 2},
		{1, 3, 3},
		{1, 4, 4},
	}
	y := []float64{1, 2, 3, 4}
	if _, _, err := olsMulti(X, y); !errors.Is(err, models.ErrDegenerateSeries) {
		t.Fatalf("err = %v, want ErrDegenerateSeries", err)
	}
}

func TestOLSMultiTooFewRows(t *testing.T) {
	X := [][]float64{{1, 1}, {1, 2}}
	y := []float64{1, 2}
	if _, _, err := olsMulti(X, y); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}
