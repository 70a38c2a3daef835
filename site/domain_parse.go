package site

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/KnotATypo/Rent-Finder/models"
)

// Pure extraction over rendered search-results HTML. Nothing here touches
// the browser, so all of it is testable against captured fixtures.

var priceAmountPattern = regexp.MustCompile(`\$\d+(?:,\d+)*`)

// ParseSearchPage extracts every listing card from one results page.
// Promotional cards (no primary address line) are dropped silently; cards
// that fail extraction are reported as errors so the caller can log them
// with page context. One bad card never aborts the page.
func ParseSearchPage(r io.Reader) ([]models.ListingCard, []error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, []error{fmt.Errorf("parse page: %w", err)}
	}

	var cards []models.ListingCard
	var errs []error

	doc.Find(`[data-testid^="listing-card-wrapper"]`).Each(func(i int, sel *goquery.Selection) {
		card, err := parseCard(sel)
		if err != nil {
			errs = append(errs, fmt.Errorf("card %d: %w", i, err))
			return
		}
		if card != nil {
			cards = append(cards, *card)
		}
	})

	return cards, errs
}

// parseCard extracts one card. A nil card with nil error means the card is
// not a listing (advertisement slot).
func parseCard(sel *goquery.Selection) (*models.ListingCard, error) {
	addrWrap := sel.Find(`[data-testid="address-wrapper"]`)
	line1 := addrWrap.Find(`[data-testid="address-line1"]`)
	if line1.Length() == 0 {
		// No viable address: a promotional card, not a listing.
		return nil, nil
	}

	address := line1.Text() + addrWrap.Find(`[data-testid="address-line2"]`).Text()
	address = strings.ReplaceAll(address, " ", " ")
	address = strings.TrimSpace(address)

	id, err := cardExternalID(sel)
	if err != nil {
		return nil, err
	}

	card := &models.ListingCard{
		ExternalID: id,
		Address:    address,
		Price:      parseCardPrice(sel.Find(`[data-testid="listing-card-price-wrapper"]`).Text()),
	}
	parseFeatures(sel.Find(`[data-testid="property-features-wrapper"]`), card)

	return card, nil
}

// cardExternalID reads the stable upstream id from the card container's
// structural attribute, data-testid="listing-<id>".
func cardExternalID(sel *goquery.Selection) (string, error) {
	attr := sel.Parent().AttrOr("data-testid", "")
	if !strings.HasPrefix(attr, "listing-") {
		return "", fmt.Errorf("no listing id attribute (got %q)", attr)
	}
	id := strings.TrimPrefix(attr, "listing-")
	if id == "" {
		return "", fmt.Errorf("empty listing id")
	}
	return id, nil
}

// parseFeatures scans the labeled feature chips for bed/bath/car counts. A
// dash glyph means zero; categories with no chip stay zero; a chip that
// fails to parse is skipped.
func parseFeatures(features *goquery.Selection, card *models.ListingCard) {
	features.Children().Each(func(_ int, chip *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(chip.Text()))
		if text == "" {
			return
		}

		num := strings.Fields(text)[0]
		count := 0
		if num != "−" && num != "-" {
			n, err := strconv.Atoi(num)
			if err != nil {
				return
			}
			count = n
		}

		switch {
		case strings.Contains(text, "bed"):
			card.Beds = count
		case strings.Contains(text, "bath"):
			card.Baths = count
		case strings.Contains(text, "car"), strings.Contains(text, "park"):
			card.Cars = count
		}
	})
}

// parseCardPrice extracts the first dollar amount. Some listings hide the
// price; that yields zero, not an error.
func parseCardPrice(text string) int {
	match := priceAmountPattern.FindString(text)
	if match == "" {
		return 0
	}
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(match)
	price, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return price
}

// ExtractBlurb returns the description panel's inner content from a rendered
// detail page.
func ExtractBlurb(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	panel := doc.Find(`div[data-testid="listing-details__description"]`)
	if panel.Length() == 0 {
		return "", fmt.Errorf("no description panel")
	}

	// The panel's first child is the expand button; the content follows it.
	content := panel.Children().Eq(1)
	if content.Length() == 0 {
		content = panel.Children().First()
	}
	html, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("render blurb: %w", err)
	}
	return html, nil
}

// GalleryPageCount reads the total slide count from the gallery's thumbnail
// carousel footer ("3 / 17").
func GalleryPageCount(r io.Reader) (int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return 0, fmt.Errorf("parse page: %w", err)
	}

	text := doc.Find(`div[data-testid="pswp-thumbnails-carousel"]`).Text()
	parts := strings.Split(text, " / ")
	if len(parts) != 2 {
		return 0, fmt.Errorf("unexpected carousel footer %q", text)
	}
	total, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("carousel page count %q: %w", parts[1], err)
	}
	return total, nil
}

// SlideImageURL returns the full-resolution image URL of the gallery slide
// currently shown, or "" when the slide has none (video-only slides). Each
// slide typically renders two image elements, one being a low-res
// placeholder; the non-placeholder one wins.
func SlideImageURL(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	var url string
	doc.Find(`div[data-testid="pswp-current-item"] img`).EachWithBreak(func(_ int, img *goquery.Selection) bool {
		html, err := goquery.OuterHtml(img)
		if err != nil || strings.Contains(html, "--placeholder") {
			return true
		}
		url = img.AttrOr("src", "")
		return false
	})

	return url, nil
}

// HasResultsSummary reports whether the page carries the search results
// summary element, i.e. the location slug resolves to a real results page.
func HasResultsSummary(r io.Reader) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return false, fmt.Errorf("parse page: %w", err)
	}
	return doc.Find(`[data-testid="summary"]`).Length() > 0, nil
}
