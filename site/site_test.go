package site

import (
	"context"
	"errors"
	"testing"

	"github.com/KnotATypo/Rent-Finder/models"
)

func TestCrawlStopsOnEmptyPage(t *testing.T) {
	pages := map[int]int{1: 20, 2: 20, 3: 7, 4: 0}
	var fetched []int

	listings, err := Crawl(context.Background(), func(page int) ([]models.Listing, error) {
		fetched = append(fetched, page)
		count, ok := pages[page]
		if !ok {
			t.Fatalf("fetched page %d past the empty page", page)
		}
		batch := make([]models.Listing, count)
		return batch, nil
	})
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}

	if len(listings) != 47 {
		t.Errorf("got %d listings, want 47", len(listings))
	}
	if len(fetched) != 4 || fetched[3] != 4 {
		t.Errorf("fetched pages %v, want [1 2 3 4]", fetched)
	}
}

func TestCrawlPropagatesFetchError(t *testing.T) {
	fetchErr := errors.New("page timed out")

	listings, err := Crawl(context.Background(), func(page int) ([]models.Listing, error) {
		if page == 2 {
			return nil, fetchErr
		}
		return make([]models.Listing, 5), nil
	})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("err = %v, want the fetch error", err)
	}
	if len(listings) != 5 {
		t.Errorf("got %d listings from the pages before the failure, want 5", len(listings))
	}
}

func TestCrawlHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Crawl(ctx, func(page int) ([]models.Listing, error) {
		t.Fatal("fetch called after cancellation")
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSuburbSlug(t *testing.T) {
	cases := []struct {
		suburb models.Suburb
		want   string
	}{
		{models.Suburb{Name: "Fortitude Valley", Postcode: 4006}, "fortitude-valley-qld-4006"},
		{models.Suburb{Name: "Milton", Postcode: 4064}, "milton-qld-4064"},
	}

	for _, tc := range cases {
		if got := SuburbSlug(tc.suburb, "qld"); got != tc.want {
			t.Errorf("SuburbSlug(%q) = %q, want %q", tc.suburb.Name, got, tc.want)
		}
	}
}
