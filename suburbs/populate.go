// Package suburbs seeds the suburb table from the Australian postcode API.
// Seeding walks a postcode range once and resumes past the highest postcode
// already stored, so it can be re-run safely after an interruption.
package suburbs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"

	"github.com/KnotATypo/Rent-Finder/browser"
	"github.com/KnotATypo/Rent-Finder/config"
	"github.com/KnotATypo/Rent-Finder/models"
	"github.com/KnotATypo/Rent-Finder/site"
	"github.com/KnotATypo/Rent-Finder/storage"
)

const postcodeAPIFormat = "http://v0.postcodeapi.com.au/suburbs/%d.json"

const earthRadiusKM = 6371.0

type apiSuburb struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Populator struct {
	cfg      *config.Config
	store    *storage.PostgresStore
	src      site.Site
	provider *browser.Provider
	api      *http.Client
}

func NewPopulator(cfg *config.Config, store *storage.PostgresStore, src site.Site, provider *browser.Provider, api *http.Client) *Populator {
	return &Populator{
		cfg:      cfg,
		store:    store,
		src:      src,
		provider: provider,
		api:      api,
	}
}

// Populate walks the configured postcode range and stores every suburb that
// resolves to a real rental search page. Suburbs already stored are kept
// as-is.
func (p *Populator) Populate(ctx context.Context) error {
	start := p.cfg.Search.PostcodeStart
	highest, err := p.store.GetMaxPostcode(ctx)
	if err != nil {
		return fmt.Errorf("load max postcode: %w", err)
	}
	if highest >= start {
		start = highest + 1
	}

	sess, err := p.provider.NewSession()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() { sess.Close() }()

	for postcode := start; postcode <= p.cfg.Search.PostcodeEnd; postcode++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		found, err := p.fetchSuburbs(ctx, postcode)
		if err != nil {
			return fmt.Errorf("postcode %d: %w", postcode, err)
		}
		log.Printf("Postcode %d: %d suburbs", postcode, len(found))

		for _, entry := range found {
			existing, err := p.store.GetSuburbByName(ctx, entry.Name)
			if err != nil {
				return fmt.Errorf("lookup suburb %s: %w", entry.Name, err)
			}
			if existing != nil {
				continue
			}

			suburb := models.Suburb{
				Name:      entry.Name,
				Postcode:  postcode,
				Latitude:  entry.Latitude,
				Longitude: entry.Longitude,
				DistanceToCentre: Haversine(
					entry.Latitude, entry.Longitude,
					p.cfg.Search.CentreLatitude, p.cfg.Search.CentreLongitude,
				),
			}

			// Some postcode entries (districts, PO boxes) have no rental
			// search page; those never become seeds.
			exists, err := p.src.PageExists(ctx, sess, site.SuburbSlug(suburb, p.cfg.Search.State))
			if err != nil {
				log.Printf("Suburb %s: %v", suburb.Name, err)
				if sess, err = p.provider.Recreate(sess); err != nil {
					return fmt.Errorf("recreate session: %w", err)
				}
				continue
			}
			if !exists {
				continue
			}

			if err := p.store.CreateSuburb(ctx, &suburb); err != nil {
				return fmt.Errorf("create suburb %s: %w", suburb.Name, err)
			}
			log.Printf("Added suburb %s (%d), %.1f km from centre", suburb.Name, postcode, suburb.DistanceToCentre)
		}
	}

	return nil
}

func (p *Populator) fetchSuburbs(ctx context.Context, postcode int) ([]apiSuburb, error) {
	url := fmt.Sprintf(postcodeAPIFormat, postcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.api.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("postcode api status %d", resp.StatusCode)
	}

	var found []apiSuburb
	if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
		return nil, fmt.Errorf("decode postcode api response: %w", err)
	}
	return found, nil
}

// Haversine returns the great-circle distance in kilometres between two
// coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
