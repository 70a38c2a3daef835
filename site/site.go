// Package site implements the upstream listing sources. Each source gets one
// implementation of the Site interface; extraction rules are bespoke per
// source and the pure parsing lives apart from the browser driver so it can
// be tested against captured HTML.
package site

import (
	"context"
	"time"

	"github.com/KnotATypo/Rent-Finder/browser"
	"github.com/KnotATypo/Rent-Finder/models"
)

// Store is the persistence surface a Site implementation needs: keyed
// lookups and existence-checked creates for listings and addresses, plus the
// set-once delisting stamp. Satisfied by storage.PostgresStore.
type Store interface {
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	GetAddressByText(ctx context.Context, address string) (*models.Address, error)
	GetAddressByID(ctx context.Context, id int64) (*models.Address, error)
	CreateAddress(ctx context.Context, a *models.Address) error
	CreateListing(ctx context.Context, l *models.Listing) error
	MarkListingUnavailable(ctx context.Context, id string, at time.Time) error
}

// Site is the capability surface one listing source exposes to the pipeline.
// All operations take the browser session explicitly; the session is an
// exclusively-owned resource, never ambient state.
type Site interface {
	// Search crawls a suburb's paginated results until exhaustion and
	// returns every listing found, persisting new addresses and listings
	// along the way.
	Search(ctx context.Context, sess *browser.Session, suburb models.Suburb) ([]models.Listing, error)

	// CheckAvailability visits the listing's detail page and stamps it
	// unavailable when it has been delisted.
	CheckAvailability(ctx context.Context, sess *browser.Session, listing *models.Listing) error

	// DownloadBlurbAndImages extracts the description and gallery images
	// from the listing's page and stores them as one atomic blob batch.
	// Delisting signals encountered on the way mark the listing unavailable
	// instead.
	DownloadBlurbAndImages(ctx context.Context, sess *browser.Session, listing *models.Listing) error

	// PageExists reports whether the source has a results page for the
	// location slug. Used when seeding crawl areas.
	PageExists(ctx context.Context, sess *browser.Session, location string) (bool, error)
}

// Crawl fetches pages 1, 2, 3, ... until a page yields zero candidates, then
// stops. An empty page is the exhaustion signal; there is no explicit upper
// bound. Every Site implementation's pagination honors this contract.
func Crawl(ctx context.Context, fetch func(page int) ([]models.Listing, error)) ([]models.Listing, error) {
	var all []models.Listing
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		batch, err := fetch(page)
		if err != nil {
			return all, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
	}
	return all, nil
}
