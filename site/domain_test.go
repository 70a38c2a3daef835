package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KnotATypo/Rent-Finder/geocode"
	"github.com/KnotATypo/Rent-Finder/models"
)

// fakeStore mirrors the store contract: existence-checked creates and a
// delisting stamp that only lands while unset.
type fakeStore struct {
	listings  map[string]*models.Listing
	addresses map[string]*models.Address
	nextID    int64

	addressCreates  int
	listingCreates  int
	unavailableSets int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		listings:  make(map[string]*models.Listing),
		addresses: make(map[string]*models.Address),
	}
}

func (f *fakeStore) GetListing(_ context.Context, id string) (*models.Listing, error) {
	if l, ok := f.listings[id]; ok {
		copied := *l
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeStore) GetAddressByText(_ context.Context, address string) (*models.Address, error) {
	if a, ok := f.addresses[address]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeStore) GetAddressByID(_ context.Context, id int64) (*models.Address, error) {
	for _, a := range f.addresses {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateAddress(_ context.Context, a *models.Address) error {
	if existing, ok := f.addresses[a.Address]; ok {
		*a = *existing
		return nil
	}
	f.nextID++
	a.ID = f.nextID
	copied := *a
	f.addresses[a.Address] = &copied
	f.addressCreates++
	return nil
}

func (f *fakeStore) CreateListing(_ context.Context, l *models.Listing) error {
	if _, ok := f.listings[l.ID]; ok {
		return nil
	}
	copied := *l
	f.listings[l.ID] = &copied
	f.listingCreates++
	return nil
}

func (f *fakeStore) MarkListingUnavailable(_ context.Context, id string, at time.Time) error {
	if l, ok := f.listings[id]; ok && l.Unavailable == nil {
		l.Unavailable = &at
		f.unavailableSets++
	}
	return nil
}

// newTestDomain backs the geocoder with a server returning the given JSON
// body and counts the lookups made.
func newTestDomain(t *testing.T, store Store, geocodeBody string) (*Domain, *int) {
	t.Helper()
	lookups := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lookups++
		w.Write([]byte(geocodeBody))
	}))
	t.Cleanup(server.Close)

	geocoder := geocode.NewClient(server.Client(), server.URL, "test-key", nil)
	return NewDomain(store, nil, geocoder, nil, "qld"), &lookups
}

func TestResolveCardShortCircuitsOnKnownID(t *testing.T) {
	store := newFakeStore()
	stamp := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store.listings["17452891"] = &models.Listing{ID: "17452891", AddressID: 9, Price: 650, Available: stamp}

	d, lookups := newTestDomain(t, store, `[{"lat":"-27.47","lon":"153.00"}]`)

	listing, err := d.resolveCard(context.Background(), models.ListingCard{
		ExternalID: "17452891",
		Address:    "12/34 Smith Street, Milton QLD 4064",
		Price:      680,
	})
	if err != nil {
		t.Fatalf("resolveCard failed: %v", err)
	}

	if listing.AddressID != 9 || listing.Price != 650 || !listing.Available.Equal(stamp) {
		t.Errorf("got %+v, want the stored listing untouched", listing)
	}
	if store.addressCreates != 0 || store.listingCreates != 0 {
		t.Errorf("creates = %d/%d, want none for a known id", store.addressCreates, store.listingCreates)
	}
	if *lookups != 0 {
		t.Errorf("geocode lookups = %d, want 0 for a known id", *lookups)
	}
}

func TestResolveCardSecondPassCreatesNothing(t *testing.T) {
	store := newFakeStore()
	d, lookups := newTestDomain(t, store, `[{"lat":"-27.47","lon":"153.00"}]`)

	card := models.ListingCard{
		ExternalID: "17452906",
		Address:    "8 Park Road, Milton QLD 4064",
		Beds:       4, Baths: 2, Cars: 2,
		Price: 1150,
	}

	first, err := d.resolveCard(context.Background(), card)
	if err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	if store.addressCreates != 1 || store.listingCreates != 1 {
		t.Fatalf("first pass creates = %d/%d, want 1/1", store.addressCreates, store.listingCreates)
	}

	second, err := d.resolveCard(context.Background(), card)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}

	if store.addressCreates != 1 || store.listingCreates != 1 {
		t.Errorf("second pass creates = %d/%d, want still 1/1", store.addressCreates, store.listingCreates)
	}
	if *lookups != 1 {
		t.Errorf("geocode lookups = %d, want 1", *lookups)
	}
	if second.ID != first.ID || second.AddressID != first.AddressID {
		t.Errorf("second pass returned %+v, want the listing from the first pass", second)
	}
	if !second.Available.Equal(first.Available) {
		t.Errorf("second pass moved the available stamp: %v vs %v", second.Available, first.Available)
	}
}

func TestResolveCardReusesAddressAcrossListings(t *testing.T) {
	store := newFakeStore()
	d, _ := newTestDomain(t, store, `[{"lat":"-27.47","lon":"153.00"}]`)

	address := "506/18 Manning Street, Milton QLD 4064"
	first, err := d.resolveCard(context.Background(), models.ListingCard{ExternalID: "100", Address: address})
	if err != nil {
		t.Fatalf("resolveCard failed: %v", err)
	}
	second, err := d.resolveCard(context.Background(), models.ListingCard{ExternalID: "200", Address: address})
	if err != nil {
		t.Fatalf("resolveCard failed: %v", err)
	}

	if store.addressCreates != 1 {
		t.Errorf("address creates = %d, want 1 for the shared address", store.addressCreates)
	}
	if store.listingCreates != 2 {
		t.Errorf("listing creates = %d, want 2", store.listingCreates)
	}
	if first.AddressID != second.AddressID {
		t.Errorf("address ids %d and %d, want the same row", first.AddressID, second.AddressID)
	}
}

func TestResolveCardGeocodeNotFound(t *testing.T) {
	store := newFakeStore()
	d, _ := newTestDomain(t, store, `[]`)

	listing, err := d.resolveCard(context.Background(), models.ListingCard{
		ExternalID: "17452950",
		Address:    "1 Nowhere Street, Milton QLD 4064",
	})
	if err != nil {
		t.Fatalf("resolveCard failed: %v", err)
	}

	addr, err := store.GetAddressByID(context.Background(), listing.AddressID)
	if err != nil || addr == nil {
		t.Fatalf("stored address not found: %v", err)
	}
	if addr.HasCoordinates() {
		t.Errorf("address has coordinates %v/%v, want null after a failed lookup", addr.Latitude, addr.Longitude)
	}
	if store.listingCreates != 1 {
		t.Errorf("listing creates = %d, want 1: a failed lookup still ingests", store.listingCreates)
	}
}

func TestMarkUnavailableSetOnce(t *testing.T) {
	store := newFakeStore()
	store.listings["17452891"] = &models.Listing{ID: "17452891", AddressID: 1}
	d, _ := newTestDomain(t, store, `[]`)

	listing := &models.Listing{ID: "17452891", AddressID: 1}
	if err := d.markUnavailable(context.Background(), listing); err != nil {
		t.Fatalf("markUnavailable failed: %v", err)
	}
	firstStamp := *store.listings["17452891"].Unavailable

	if err := d.markUnavailable(context.Background(), listing); err != nil {
		t.Fatalf("second markUnavailable failed: %v", err)
	}

	if store.unavailableSets != 1 {
		t.Errorf("unavailable set %d times, want once", store.unavailableSets)
	}
	if !store.listings["17452891"].Unavailable.Equal(firstStamp) {
		t.Errorf("stamp moved from %v to %v", firstStamp, store.listings["17452891"].Unavailable)
	}
}
