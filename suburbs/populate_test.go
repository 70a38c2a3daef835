package suburbs

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	// Brisbane CBD to Fortitude Valley is roughly 1.9 km.
	d := Haversine(-27.4681, 153.0265, -27.4570, 153.0331)
	if math.Abs(d-1.4) > 0.2 {
		t.Errorf("CBD to Fortitude Valley = %.2f km, want about 1.4", d)
	}

	// Brisbane to Sydney is roughly 730 km.
	d = Haversine(-27.4681, 153.0265, -33.8688, 151.2093)
	if math.Abs(d-730) > 15 {
		t.Errorf("Brisbane to Sydney = %.0f km, want about 730", d)
	}

	if d := Haversine(-27.4681, 153.0265, -27.4681, 153.0265); d != 0 {
		t.Errorf("identical points = %v, want 0", d)
	}
}
