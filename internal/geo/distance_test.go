package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Point
		wantM     float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         Point{Lat: 52.2297, Lon: 21.0122},
			b:         Point{Lat: 52.2297, Lon: 21.0122},
			wantM:     0,
			tolerance: 0.001,
		},
		{
			name:      "warsaw short hop north",
			a:         Point{Lat: 52.2297, Lon: 21.0122},
			b:         Point{Lat: 52.2310, Lon: 21.0122},
			wantM:     144,
			tolerance: 5,
		},
		{
			name:      "warsaw 1.7km north",
			a:         Point{Lat: 52.2297, Lon: 21.0122},
			b:         Point{Lat: 52.2450, Lon: 21.0122},
			wantM:     1700,
			tolerance: 30,
		},
		{
			name:      "one degree of latitude",
			a:         Point{Lat: 0, Lon: 0},
			b:         Point{Lat: 1, Lon: 0},
			wantM:     111195,
			tolerance: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.a, tt.b)
			if math.Abs(got-tt.wantM) > tt.tolerance {
				t.Errorf("Haversine(%v, %v) = %.1fm, want %.1f±%.1fm", tt.a, tt.b, got, tt.wantM, tt.tolerance)
			}
		})
	}
}

func TestHaversineSymmetric(t *testing.T) {
	a := Point{Lat: 52.2297, Lon: 21.0122}
	b := Point{Lat: 41.3851, Lon: 2.1734}
	if d1, d2 := Haversine(a, b), Haversine(b, a); math.Abs(d1-d2) > 1e-6 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}
