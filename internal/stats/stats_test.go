package stats

import (
	"math"
	"testing"
)

func TestAggregates(t *testing.T) {
	values := []float64{4, 1, 3, 2}

	if got := Mean(values); got != 2.5 {
		t.Errorf("Mean = %v", got)
	}
	if got := Median(values); got != 2.5 {
		t.Errorf("Median = %v", got)
	}
	if got := Max(values); got != 4 {
		t.Errorf("Max = %v", got)
	}
	if values[0] != 4 {
		t.Error("input was reordered")
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{50, 30},
		{90, 46},
		{100, 50},
		{150, 50},
		{-10, 10},
	}
	for _, tt := range tests {
		if got := Percentile(values, tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestEmptyInputs(t *testing.T) {
	if Mean(nil) != 0 || Median(nil) != 0 || Max(nil) != 0 || Percentile(nil, 90) != 0 {
		t.Error("empty input should yield 0")
	}
}
