package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/KnotATypo/Rent-Finder/browser"
	"github.com/KnotATypo/Rent-Finder/geocode"
	"github.com/KnotATypo/Rent-Finder/httputil"
	"github.com/KnotATypo/Rent-Finder/models"
	"github.com/KnotATypo/Rent-Finder/storage"
)

// Selectors for domain.com.au pages. The site renders everything behind
// data-testid attributes, which are far more stable than class names.
const (
	selDetailsColumn     = `div[data-testid="listing-details__summary-left-column"]`
	selDelistedTag       = `span[data-testid="listing-details__listing-tag"]`
	selDescriptionButton = `button[data-testid="listing-details__description-button"]`
	selGalleryThree      = `div[data-testid="listing-details__gallery-preview three-image-fixed"]`
	selGallerySingle     = `div[data-testid="listing-details__gallery-preview single-image-full"]`
	selGalleryNext       = `button[title="Next (arrow right)"]`
)

// quick check bound for the delisted tag; it renders immediately when
// present, so the full implicit wait would just slow every healthy page down
const delistedCheckMS = 1000

var addressSlugPattern = regexp.MustCompile(`[/ ,]+`)

// Domain scrapes domain.com.au rental search results.
type Domain struct {
	store    Store
	blobs    *storage.ObjectStore
	geocoder *geocode.Client
	media    *http.Client
	state    string
}

func NewDomain(store Store, blobs *storage.ObjectStore, geocoder *geocode.Client, media *http.Client, state string) *Domain {
	return &Domain{
		store:    store,
		blobs:    blobs,
		geocoder: geocoder,
		media:    media,
		state:    state,
	}
}

// Search pages through the suburb's results until a page comes back empty.
func (d *Domain) Search(ctx context.Context, sess *browser.Session, suburb models.Suburb) ([]models.Listing, error) {
	return Crawl(ctx, func(page int) ([]models.Listing, error) {
		return d.searchPage(ctx, sess, suburb, page)
	})
}

func (d *Domain) searchPage(ctx context.Context, sess *browser.Session, suburb models.Suburb, page int) ([]models.Listing, error) {
	pageURL := d.searchURL(suburb, page)
	if err := sess.Visit(pageURL); err != nil {
		return nil, err
	}

	html, err := sess.HTML()
	if err != nil {
		return nil, fmt.Errorf("read page source: %w", err)
	}

	cards, parseErrs := ParseSearchPage(strings.NewReader(html))
	for _, perr := range parseErrs {
		log.Printf("%s - %v", pageURL, perr)
	}

	var listings []models.Listing
	for _, card := range cards {
		listing, err := d.resolveCard(ctx, card)
		if err != nil {
			// Per-listing isolation: geocoder failures and storage errors
			// abort this card only.
			log.Printf("%s - listing %s: %v", pageURL, card.ExternalID, err)
			continue
		}
		listings = append(listings, *listing)
	}
	return listings, nil
}

// resolveCard short-circuits to the stored listing when the external id is
// already known; otherwise it geocodes the address, creates the Address row
// (reusing an existing one with the identical normalized string) and the
// Listing row.
func (d *Domain) resolveCard(ctx context.Context, card models.ListingCard) (*models.Listing, error) {
	existing, err := d.store.GetListing(ctx, card.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("lookup listing: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	addr, err := d.store.GetAddressByText(ctx, card.Address)
	if err != nil {
		return nil, fmt.Errorf("lookup address: %w", err)
	}
	if addr == nil {
		addr = &models.Address{
			Address: card.Address,
			Beds:    card.Beds,
			Baths:   card.Baths,
			Cars:    card.Cars,
		}
		lat, lon, err := d.geocoder.Coordinate(ctx, card.Address)
		switch {
		case err == nil:
			addr.Latitude = &lat
			addr.Longitude = &lon
		case errors.Is(err, geocode.ErrNotFound):
			// Address persists with null coordinates.
		default:
			return nil, err
		}
		if err := d.store.CreateAddress(ctx, addr); err != nil {
			return nil, fmt.Errorf("create address: %w", err)
		}
	}

	listing := &models.Listing{
		ID:        card.ExternalID,
		AddressID: addr.ID,
		Price:     card.Price,
		Available: time.Now(),
	}
	if err := d.store.CreateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	return listing, nil
}

// CheckAvailability stamps the listing unavailable when its detail page
// shows a delisting tag or has lost its details container.
func (d *Domain) CheckAvailability(ctx context.Context, sess *browser.Session, listing *models.Listing) error {
	link, err := d.listingURL(ctx, listing)
	if err != nil {
		return err
	}
	if err := sess.Visit(link); err != nil {
		return err
	}

	if !sess.Has(selDetailsColumn) || sess.HasWithin(selDelistedTag, delistedCheckMS) {
		return d.markUnavailable(ctx, listing)
	}
	return nil
}

// DownloadBlurbAndImages extracts the description and every gallery image,
// then writes all blobs in one batch. Any error discards the partial
// extraction; nothing is written.
func (d *Domain) DownloadBlurbAndImages(ctx context.Context, sess *browser.Session, listing *models.Listing) error {
	link, err := d.listingURL(ctx, listing)
	if err != nil {
		return err
	}
	if err := sess.Visit(link); err != nil {
		return err
	}

	if !sess.Has(selDetailsColumn) {
		return d.markUnavailable(ctx, listing)
	}
	if sess.HasWithin(selDelistedTag, delistedCheckMS) {
		return d.markUnavailable(ctx, listing)
	}

	if err := sess.Click(selDescriptionButton); err != nil {
		return err
	}
	html, err := sess.HTML()
	if err != nil {
		return err
	}
	blurb, err := ExtractBlurb(strings.NewReader(html))
	if err != nil {
		return err
	}

	objects := map[string][]byte{
		listing.ID + "/blurb.html": []byte(blurb),
	}

	// Some listings only have a single image at the top of the page; a
	// listing with no gallery at all is treated as gone.
	switch {
	case sess.HasWithin(selGalleryThree, delistedCheckMS):
		if err := sess.Click(selGalleryThree); err != nil {
			return err
		}
	case sess.HasWithin(selGallerySingle, delistedCheckMS):
		if err := sess.Click(selGallerySingle); err != nil {
			return err
		}
	default:
		return d.markUnavailable(ctx, listing)
	}
	sess.Pause(1000)

	html, err = sess.HTML()
	if err != nil {
		return err
	}
	total, err := GalleryPageCount(strings.NewReader(html))
	if err != nil {
		return err
	}

	for i := 0; i < total; i++ {
		html, err := sess.HTML()
		if err != nil {
			return err
		}
		imageURL, err := SlideImageURL(strings.NewReader(html))
		if err != nil {
			return err
		}
		// Video-only slides have no image and contribute nothing.
		if imageURL != "" {
			data, err := d.fetchImage(ctx, imageURL)
			if err != nil {
				return err
			}
			objects[fmt.Sprintf("%s/%d.webp", listing.ID, i)] = data
		}

		if err := sess.Click(selGalleryNext); err != nil {
			return err
		}
	}

	return d.blobs.PutObjects(ctx, objects)
}

// PageExists loads page 1 of a location's search results and checks for the
// results summary element.
func (d *Domain) PageExists(ctx context.Context, sess *browser.Session, location string) (bool, error) {
	url := fmt.Sprintf("https://www.domain.com.au/rent/%s/?excludedeposittaken=1&page=1&ssubs=0", location)
	if err := sess.Visit(url); err != nil {
		return false, err
	}
	html, err := sess.HTML()
	if err != nil {
		return false, err
	}
	return HasResultsSummary(strings.NewReader(html))
}

func (d *Domain) markUnavailable(ctx context.Context, listing *models.Listing) error {
	now := time.Now()
	if err := d.store.MarkListingUnavailable(ctx, listing.ID, now); err != nil {
		return fmt.Errorf("mark unavailable: %w", err)
	}
	listing.Unavailable = &now
	return nil
}

func (d *Domain) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	httputil.BrowserHeaders(req)

	resp, err := d.media.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SuburbSlug builds the URL fragment for a suburb: "fortitude-valley-qld-4006".
func SuburbSlug(suburb models.Suburb, state string) string {
	name := strings.ReplaceAll(strings.ToLower(suburb.Name), " ", "-")
	return fmt.Sprintf("%s-%s-%d", name, state, suburb.Postcode)
}

func (d *Domain) searchURL(suburb models.Suburb, page int) string {
	return fmt.Sprintf("https://www.domain.com.au/rent/%s/?excludedeposittaken=1&page=%d&ssubs=0",
		SuburbSlug(suburb, d.state), page)
}

// listingURL rebuilds a listing's canonical page URL from its address text
// and external id.
func (d *Domain) listingURL(ctx context.Context, listing *models.Listing) (string, error) {
	addr, err := d.store.GetAddressByID(ctx, listing.AddressID)
	if err != nil {
		return "", fmt.Errorf("lookup address: %w", err)
	}
	if addr == nil {
		return "", fmt.Errorf("listing %s: address %d not found", listing.ID, listing.AddressID)
	}
	slug := addressSlugPattern.ReplaceAllString(addr.Address, "-")
	return fmt.Sprintf("https://www.domain.com.au/%s-%s", slug, listing.ID), nil
}
