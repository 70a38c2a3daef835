package site

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("Failed to load fixture %s: %v", name, err)
	}
	return data
}

func TestParseSearchPage(t *testing.T) {
	fixture := loadFixture(t, "search_results.html")

	cards, errs := ParseSearchPage(bytes.NewReader(fixture))

	// The fixture holds three listings, one promotional card, and one card
	// with a broken id attribute.
	if len(errs) != 1 {
		t.Fatalf("got %d parse errors, want 1: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0].Error(), "listing id") {
		t.Errorf("unexpected parse error: %v", errs[0])
	}
	if len(cards) != 3 {
		t.Fatalf("got %d cards, want 3", len(cards))
	}

	first := cards[0]
	if first.ExternalID != "17452891" {
		t.Errorf("ExternalID = %q, want 17452891", first.ExternalID)
	}
	if first.Address != "12/34 Smith Street, Milton QLD 4064" {
		t.Errorf("Address = %q", first.Address)
	}
	if first.Price != 650 {
		t.Errorf("Price = %d, want 650", first.Price)
	}
	if first.Beds != 2 || first.Baths != 1 || first.Cars != 1 {
		t.Errorf("features = %d/%d/%d, want 2/1/1", first.Beds, first.Baths, first.Cars)
	}

	if cards[1].Price != 1150 {
		t.Errorf("comma price = %d, want 1150", cards[1].Price)
	}

	third := cards[2]
	if third.Price != 0 {
		t.Errorf("hidden price = %d, want 0", third.Price)
	}
	if third.Cars != 0 {
		t.Errorf("dash parking = %d, want 0", third.Cars)
	}
	if third.Beds != 1 || third.Baths != 1 {
		t.Errorf("features = %d/%d, want 1/1", third.Beds, third.Baths)
	}
}

func TestHasResultsSummary(t *testing.T) {
	fixture := loadFixture(t, "search_results.html")

	ok, err := HasResultsSummary(bytes.NewReader(fixture))
	if err != nil {
		t.Fatalf("HasResultsSummary failed: %v", err)
	}
	if !ok {
		t.Error("expected results summary in fixture")
	}

	ok, err = HasResultsSummary(strings.NewReader(`<html><body><h1>Not found</h1></body></html>`))
	if err != nil {
		t.Fatalf("HasResultsSummary failed: %v", err)
	}
	if ok {
		t.Error("expected no results summary on an error page")
	}
}

func TestGalleryPageCount(t *testing.T) {
	html := `<div data-testid="pswp-thumbnails-carousel"><span>3 / 17</span></div>`
	total, err := GalleryPageCount(strings.NewReader(html))
	if err != nil {
		t.Fatalf("GalleryPageCount failed: %v", err)
	}
	if total != 17 {
		t.Errorf("total = %d, want 17", total)
	}

	if _, err := GalleryPageCount(strings.NewReader(`<div></div>`)); err == nil {
		t.Error("expected error without carousel footer")
	}
}

func TestSlideImageURL(t *testing.T) {
	html := `
	<div data-testid="pswp-current-item">
		<img class="pswp__img pswp__img--placeholder" src="https://img.example/low.webp">
		<img class="pswp__img" src="https://img.example/full.webp">
	</div>`
	url, err := SlideImageURL(strings.NewReader(html))
	if err != nil {
		t.Fatalf("SlideImageURL failed: %v", err)
	}
	if url != "https://img.example/full.webp" {
		t.Errorf("url = %q, want the non-placeholder image", url)
	}
}

func TestSlideImageURLVideoSlide(t *testing.T) {
	html := `<div data-testid="pswp-current-item"><video src="https://img.example/tour.mp4"></video></div>`
	url, err := SlideImageURL(strings.NewReader(html))
	if err != nil {
		t.Fatalf("SlideImageURL failed: %v", err)
	}
	if url != "" {
		t.Errorf("url = %q, want empty for a video-only slide", url)
	}
}

func TestExtractBlurb(t *testing.T) {
	html := `
	<div data-testid="listing-details__description">
		<button data-testid="listing-details__description-button">Read more</button>
		<div><p>Sunny two bedroom apartment close to the river.</p></div>
	</div>`
	blurb, err := ExtractBlurb(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ExtractBlurb failed: %v", err)
	}
	if !strings.Contains(blurb, "Sunny two bedroom apartment") {
		t.Errorf("blurb = %q", blurb)
	}
	if strings.Contains(blurb, "Read more") {
		t.Errorf("blurb should not contain the expand button: %q", blurb)
	}

	if _, err := ExtractBlurb(strings.NewReader(`<div></div>`)); err == nil {
		t.Error("expected error without description panel")
	}
}
