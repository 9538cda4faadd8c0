package analytics

import (
	"errors"
	"testing"

	"PairFlow/internal/domain/models"
)

// lcgNoise returns deterministic pseudo-noise in (-scale/2, scale/2) from a
// fixed linear congruential generator, so expected test outcomes never drift.
func lcgNoise(seed uint32, n int, scale float64) []float64 {
	out := make([]float64, n)
	x := seed
	for i := 0; i < n; i++ {
		x = x*1664525 + 1013904223
		out[i] = (float64(x)/float64(1<<32) - 0.5) * scale
	}
	return out
}

// ar1Series builds s_t = phi*s_{t-1} + e_t. With |phi| < 1 the series is
// stationary; with phi = 1 it is a random walk.
func ar1Series(phi float64, noise []float64) []float64 {
	s := make([]float64, len(noise))
	for i := 1; i < len(noise); i++ {
		s[i] = phi*s[i-1] + noise[i]
	}
	return s
}

func TestADFStationarySeries(t *testing.T) {
	s := ar1Series(0.5, lcgNoise(42, 400, 0.1))

	res, err := ADFTest(s, 0)
	if err != nil {
		t.Fatalf("ADFTest: %v", err)
	}
	if res.Stat > -4 {
		t.Errorf("tau = %v, want strongly negative for a mean-reverting series", res.Stat)
	}
	if res.PValue > 0.05 {
		t.Errorf("p-value = %v, want <= 0.05", res.PValue)
	}
	if res.NObs != 399 {
		t.Errorf("NObs = %d, want 399", res.NObs)
	}
}

func TestADFStationarySeriesWithLags(t *testing.T) {
	s := ar1Series(0.5, lcgNoise(42, 400, 0.1))

	res, err := ADFTest(s, 2)
	if err != nil {
		t.Fatalf("ADFTest: %v", err)
	}
	if res.PValue > 0.05 {
		t.Errorf("p-value = %v, want <= 0.05", res.PValue)
	}
	if res.LagOrder != 2 {
		t.Errorf("LagOrder = %d, want 2", res.LagOrder)
	}
	if res.NObs != 397 {
		t.Errorf("NObs = %d, want 397", res.NObs)
	}
}

func TestADFRandomWalkNotStationary(t *testing.T) {
	noise := lcgNoise(42, 400, 0.1)
	rw := make([]float64, len(noise))
	sum := 0.0
	for i, e := range noise {
		sum += e
		rw[i] = sum
	}

	walk, err := ADFTest(rw, 0)
	if err != nil {
		t.Fatalf("ADFTest(random walk): %v", err)
	}
	stat, err := ADFTest(ar1Series(0.5, noise), 0)
	if err != nil {
		t.Fatalf("ADFTest(stationary): %v", err)
	}

	if walk.PValue < 0.10 {
		t.Errorf("random walk p-value = %v, want >= 0.10", walk.PValue)
	}
	if walk.PValue <= stat.PValue {
		t.Errorf("random walk p (%v) should exceed stationary p (%v)", walk.PValue, stat.PValue)
	}
}

func TestADFDeterministic(t *testing.T) {
	s := ar1Series(0.5, lcgNoise(7, 200, 0.1))

	a, err := ADFTest(s, 1)
	if err != nil {
		t.Fatalf("ADFTest: %v", err)
	}
	b, err := ADFTest(s, 1)
	if err != nil {
		t.Fatalf("ADFTest: %v", err)
	}
	if a != b {
		t.Errorf("repeated runs differ: %+v vs %+v", a, b)
	}
}

func TestADFNegativeLagClampedToZero(t *testing.T) {
	s := ar1Series(0.5, lcgNoise(7, 200, 0.1))

	neg, err := ADFTest(s, -3)
	if err != nil {
		t.Fatalf("ADFTest: %v", err)
	}
	zero, err := ADFTest(s, 0)
	if err != nil {
		t.Fatalf("ADFTest: %v", err)
	}
	if neg != zero {
		t.Errorf("lag -3 result %+v differs from lag 0 result %+v", neg, zero)
	}
}

func TestADFTooShort(t *testing.T) {
	s := ar1Series(0.5, lcgNoise(7, 8, 0.1))
	if _, err := ADFTest(s, 0); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestTauPValueInterpolation(t *testing.T) {
	cases := []struct {
		name string
		stat float64
		want float64
	}{
		{"below table", -9.0, 0.001},
		{"above table", 2.0, 0.99},
		{"exact anchor", -2.86, 0.05},
		{"midpoint", (-2.86 + -2.57) / 2, (0.05 + 0.10) / 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tauPValue(tc.stat)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("tauPValue(%v) = %v, want %v", tc.stat, got, tc.want)
			}
		})
	}
}
