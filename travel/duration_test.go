package travel

import (
	"strings"
	"testing"

	"github.com/KnotATypo/Rent-Finder/models"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"45 min", 45},
		{"1 hr 20 min", 80},
		{"2 hr", 120},
		{" 1 hr 5 min ", 65},
		{"1 hr 20 mins", 80},
		{"30 minutes", 30},
	}

	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		if err != nil {
			t.Errorf("ParseDuration(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDuration(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseDurationRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "soon", "90"} {
		if _, err := ParseDuration(in); err == nil {
			t.Errorf("ParseDuration(%q) should fail", in)
		}
	}
}

func TestMinTripDuration(t *testing.T) {
	html := `
	<div data-trip-index="0"><div class="fontHeadlineSmall">1 hr 2 min</div></div>
	<div data-trip-index="1"><div class="fontHeadlineSmall">48 min</div></div>
	<div data-trip-index="2"><div class="fontHeadlineSmall">55 min</div></div>`

	minutes, err := minTripDuration(strings.NewReader(html))
	if err != nil {
		t.Fatalf("minTripDuration failed: %v", err)
	}
	if minutes != 48 {
		t.Errorf("minutes = %d, want 48", minutes)
	}
}

func TestMinTripDurationNoRoutes(t *testing.T) {
	minutes, err := minTripDuration(strings.NewReader(`<div>No route found</div>`))
	if err != nil {
		t.Fatalf("minTripDuration failed: %v", err)
	}
	if minutes != infiniteMinutes {
		t.Errorf("minutes = %d, want the unreachable marker", minutes)
	}
}

func TestMissingModes(t *testing.T) {
	all := models.Modes()

	missing := MissingModes(all, nil)
	if len(missing) != len(all) {
		t.Errorf("missing = %v, want all modes", missing)
	}

	missing = MissingModes(all, []models.TravelMode{models.ModeBike})
	if len(missing) != 1 || missing[0] != models.ModePublicTransport {
		t.Errorf("missing = %v, want [PT]", missing)
	}

	if missing = MissingModes(all, all); missing != nil {
		t.Errorf("missing = %v, want none", missing)
	}
}
