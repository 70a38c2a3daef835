package models

import (
	"fmt"
	"time"
)

// Address is a deduplicated physical location. Many listings can point at the
// same address over time. Coordinates are resolved once at creation and may
// stay null forever when geocoding fails.
type Address struct {
	ID        int64    `json:"id" db:"id"`
	Address   string   `json:"address" db:"address"`
	Beds      int      `json:"beds" db:"beds"`
	Baths     int      `json:"baths" db:"baths"`
	Cars      int      `json:"cars" db:"cars"`
	Latitude  *float64 `json:"latitude" db:"latitude"`
	Longitude *float64 `json:"longitude" db:"longitude"`
}

// HasCoordinates reports whether geocoding succeeded for this address.
func (a *Address) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// Listing is one rental advertisement instance. The ID is the upstream
// listing id and is stable per source; a re-listed property gets a new id
// upstream, so Unavailable is set at most once and never cleared.
type Listing struct {
	ID          string     `json:"id" db:"id"`
	AddressID   int64      `json:"address_id" db:"address_id"`
	Price       int        `json:"price" db:"price"`
	Available   time.Time  `json:"available" db:"available"`
	Unavailable *time.Time `json:"unavailable" db:"unavailable"`
}

// ListingCard is the raw record extracted from one search-results card,
// before any storage lookups.
type ListingCard struct {
	ExternalID string
	Address    string
	Beds       int
	Baths      int
	Cars       int
	Price      int
}

// SavedLocation is an operator-curated destination for travel time
// calculations.
type SavedLocation struct {
	ID        int64   `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// TravelMode is the closed set of supported commute modes. Adding a mode
// requires a calculation strategy in the travel package.
type TravelMode string

const (
	ModePublicTransport TravelMode = "PT"
	ModeBike            TravelMode = "Bike"
)

// Modes lists every supported travel mode.
func Modes() []TravelMode {
	return []TravelMode{ModePublicTransport, ModeBike}
}

// UnknownModeError marks a travel mode with no calculation strategy. It is a
// programming error and is never swallowed.
type UnknownModeError struct {
	Mode TravelMode
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("no travel time strategy for mode %q", e.Mode)
}

// TravelTimeUnreachable is the sentinel stored when no route exists between
// an address and a location. Distinct from an absent row, which means the
// pair has not been computed yet.
const TravelTimeUnreachable = -1

// TravelTime is an append-only fact: minimum commute minutes from an address
// to a saved location for one mode. At most one row exists per
// (address, location, mode) key.
type TravelTime struct {
	ID         int64      `json:"id" db:"id"`
	AddressID  int64      `json:"address_id" db:"address_id"`
	LocationID int64      `json:"location_id" db:"location_id"`
	Mode       TravelMode `json:"travel_mode" db:"travel_mode"`
	Minutes    int        `json:"minutes" db:"minutes"`
}

// Reachable reports whether this row records an actual route.
func (t *TravelTime) Reachable() bool {
	return t.Minutes != TravelTimeUnreachable
}

// Suburb is a crawl seed: a named area whose search results pages are
// paginated through on every run.
type Suburb struct {
	ID               int64   `json:"id" db:"id"`
	Name             string  `json:"name" db:"name"`
	Postcode         int     `json:"postcode" db:"postcode"`
	Latitude         float64 `json:"latitude" db:"latitude"`
	Longitude        float64 `json:"longitude" db:"longitude"`
	DistanceToCentre float64 `json:"distance_to_centre" db:"distance_to_centre"`
}
