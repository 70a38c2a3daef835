package travel

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/KnotATypo/Rent-Finder/models"
)

// infiniteMinutes marks "no route found" while computing. It is converted to
// the persistent sentinel at write time.
const infiniteMinutes = math.MaxInt

// ParseDuration converts a directions duration label to minutes.
// "1 hr 20 min" -> 80, "2 hr" -> 120, "45 min" -> 45.
func ParseDuration(s string) (int, error) {
	s = strings.TrimSpace(s)
	minutes := 0
	parsed := false

	if i := strings.Index(s, "hr"); i >= 0 {
		hours, err := strconv.Atoi(strings.TrimSpace(s[:i]))
		if err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", s, err)
		}
		minutes = hours * 60
		s = s[i+len("hr"):]
		parsed = true
	}

	if fields := strings.Fields(s); len(fields) >= 2 && strings.HasPrefix(fields[1], "min") {
		m, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", s, err)
		}
		minutes += m
		parsed = true
	}

	if !parsed {
		return 0, fmt.Errorf("parse duration %q: no hr or min token", s)
	}
	return minutes, nil
}

// minTripDuration reads every trip-option row from a rendered directions
// page and returns the fastest, or infiniteMinutes when no row is present
// (no route exists for the query).
func minTripDuration(r io.Reader) (int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return 0, fmt.Errorf("parse page: %w", err)
	}

	best := infiniteMinutes
	for index := 0; ; index++ {
		row := doc.Find(fmt.Sprintf(`div[data-trip-index="%d"]`, index))
		if row.Length() == 0 {
			break
		}
		text := strings.TrimSpace(row.Find("div.fontHeadlineSmall").First().Text())
		minutes, err := ParseDuration(text)
		if err != nil {
			return 0, err
		}
		if minutes < best {
			best = minutes
		}
	}
	return best, nil
}

// MissingModes returns the modes in want that are not yet in have.
func MissingModes(want, have []models.TravelMode) []models.TravelMode {
	existing := make(map[models.TravelMode]bool, len(have))
	for _, m := range have {
		existing[m] = true
	}

	var missing []models.TravelMode
	for _, m := range want {
		if !existing[m] {
			missing = append(missing, m)
		}
	}
	return missing
}
