// Package travel computes minimum commute times between listing addresses
// and saved locations by driving the Google Maps directions page. Travel
// times are the most expensive facts in the system, so every computed key is
// persisted exactly once, including a sentinel for unreachable pairs.
package travel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/KnotATypo/Rent-Finder/browser"
	"github.com/KnotATypo/Rent-Finder/models"
	"github.com/KnotATypo/Rent-Finder/storage"
)

const (
	selCycling     = `div[aria-label="Cycling"]`
	selTransit     = `div[aria-label="Public transport"]`
	selLeaveNow    = `span:text-is("Leave now")`
	selDepartAt    = `div[data-index="1"]`
	selTimeField   = `input[name="transit-time"]`
	selDatePicker  = `button[aria-live="polite"]`
	selNextMonth   = `button.goog-date-picker-btn.goog-date-picker-nextMonth`
	selDateCell    = `td[class="goog-date-picker-date"]`
	selFirstTrip   = `div[data-trip-index="0"]`
	weekdaySamples = 2
	monthSamples   = 2
)

type Calculator struct {
	provider  *browser.Provider
	store     *storage.PostgresStore
	departure string
}

func NewCalculator(provider *browser.Provider, store *storage.PostgresStore, departure string) *Calculator {
	return &Calculator{
		provider:  provider,
		store:     store,
		departure: departure,
	}
}

// Backfill computes, for every saved location, the travel times still
// missing for addresses of currently-available listings. A per-address
// failure discards the browser session and skips the address; since no row
// was written it stays eligible for the next run. An unknown travel mode is
// a programming error and aborts the stage.
func (c *Calculator) Backfill(ctx context.Context) error {
	locations, err := c.store.GetSavedLocations(ctx)
	if err != nil {
		return fmt.Errorf("load saved locations: %w", err)
	}

	sess, err := c.provider.NewSession()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() { sess.Close() }()

	for _, location := range locations {
		need := make(map[int64]models.Address)
		for _, mode := range models.Modes() {
			addresses, err := c.store.GetAddressesNeedingTravelTime(ctx, location.ID, mode)
			if err != nil {
				return fmt.Errorf("load addresses for %s/%s: %w", location.Name, mode, err)
			}
			for _, a := range addresses {
				need[a.ID] = a
			}
		}
		log.Printf("Travel times: %d addresses to do for %s", len(need), location.Name)

		for _, address := range need {
			if err := ctx.Err(); err != nil {
				return err
			}

			existing, err := c.store.GetModesForAddress(ctx, address.ID, location.ID)
			if err != nil {
				return fmt.Errorf("load modes for address %d: %w", address.ID, err)
			}
			missing := MissingModes(models.Modes(), existing)
			if len(missing) == 0 {
				continue
			}

			times, err := c.travelTimes(sess, address, location, missing)
			if err != nil {
				var unknown *models.UnknownModeError
				if errors.As(err, &unknown) {
					return err
				}
				log.Printf("Address %q: %v", address.Address, err)
				if sess, err = c.provider.Recreate(sess); err != nil {
					return fmt.Errorf("recreate session: %w", err)
				}
				continue
			}

			for mode, minutes := range times {
				row := &models.TravelTime{
					AddressID:  address.ID,
					LocationID: location.ID,
					Mode:       mode,
					Minutes:    minutes,
				}
				if minutes == infiniteMinutes {
					row.Minutes = models.TravelTimeUnreachable
				}
				if err := c.store.CreateTravelTime(ctx, row); err != nil {
					return fmt.Errorf("store travel time: %w", err)
				}
			}
		}
	}

	return nil
}

// travelTimes computes the requested modes in one navigation; the directions
// page switches mode without reloading.
func (c *Calculator) travelTimes(sess *browser.Session, from models.Address, to models.SavedLocation, modes []models.TravelMode) (map[models.TravelMode]int, error) {
	if !from.HasCoordinates() {
		return nil, fmt.Errorf("address %d has no coordinates", from.ID)
	}

	link := fmt.Sprintf("https://www.google.com/maps/dir/%v,%v/%v,%v",
		*from.Latitude, *from.Longitude, to.Latitude, to.Longitude)
	if err := sess.Visit(link); err != nil {
		return nil, err
	}

	times := make(map[models.TravelMode]int, len(modes))
	for _, mode := range modes {
		var minutes int
		var err error
		switch mode {
		case models.ModeBike:
			minutes, err = c.bikeTime(sess)
		case models.ModePublicTransport:
			minutes, err = c.transitTime(sess)
		default:
			return nil, &models.UnknownModeError{Mode: mode}
		}
		if err != nil {
			return nil, fmt.Errorf("mode %s: %w", mode, err)
		}
		times[mode] = minutes
	}
	return times, nil
}

// bikeTime selects cycling and reads the single resulting duration.
func (c *Calculator) bikeTime(sess *browser.Session) (int, error) {
	if err := sess.Click(selCycling); err != nil {
		return 0, err
	}
	if !sess.Has(selFirstTrip) {
		return infiniteMinutes, nil
	}
	return c.currentMinTrip(sess)
}

// transitTime selects public transport with a fixed morning departure, then
// samples the first two weekdays of the current and next calendar month via
// the date picker. The result is the minimum over all trip options of all
// four samples.
func (c *Calculator) transitTime(sess *browser.Session) (int, error) {
	if err := sess.Click(selTransit); err != nil {
		return 0, err
	}
	if err := sess.Click(selLeaveNow); err != nil {
		return 0, err
	}
	if err := sess.Click(selDepartAt); err != nil {
		return 0, err
	}
	if err := sess.Fill(selTimeField, c.departure); err != nil {
		return 0, err
	}

	best := infiniteMinutes
	pickerOpen := false
	for month := 0; month < monthSamples; month++ {
		if month > 0 {
			if err := sess.Click(selDatePicker); err != nil {
				return 0, err
			}
			if err := sess.Click(selNextMonth); err != nil {
				return 0, err
			}
			pickerOpen = true
		}

		for day := 0; day < weekdaySamples; day++ {
			if !pickerOpen {
				if err := sess.Click(selDatePicker); err != nil {
					return 0, err
				}
			}
			pickerOpen = false

			if err := sess.ClickNth(selDateCell, day); err != nil {
				return 0, err
			}
			if !sess.Has(selFirstTrip) {
				// No route for this sample.
				continue
			}
			minutes, err := c.currentMinTrip(sess)
			if err != nil {
				return 0, err
			}
			if minutes < best {
				best = minutes
			}
		}
	}
	return best, nil
}

func (c *Calculator) currentMinTrip(sess *browser.Session) (int, error) {
	html, err := sess.HTML()
	if err != nil {
		return 0, err
	}
	return minTripDuration(strings.NewReader(html))
}
