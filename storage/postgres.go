package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KnotATypo/Rent-Finder/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 5
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.createTables(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS addresses (
			id BIGSERIAL PRIMARY KEY,
			address TEXT NOT NULL UNIQUE,
			beds INT NOT NULL DEFAULT 0,
			baths INT NOT NULL DEFAULT 0,
			cars INT NOT NULL DEFAULT 0,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS listings (
			id TEXT PRIMARY KEY,
			address_id BIGINT NOT NULL REFERENCES addresses(id),
			price INT NOT NULL DEFAULT 0,
			available TIMESTAMPTZ NOT NULL,
			unavailable TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS saved_locations (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS travel_times (
			id BIGSERIAL PRIMARY KEY,
			address_id BIGINT NOT NULL REFERENCES addresses(id),
			location_id BIGINT NOT NULL REFERENCES saved_locations(id),
			travel_mode TEXT NOT NULL,
			minutes INT NOT NULL,
			UNIQUE (address_id, location_id, travel_mode)
		)`,
		`CREATE TABLE IF NOT EXISTS suburbs (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			postcode INT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			distance_to_centre DOUBLE PRECISION NOT NULL
		)`,
	}

	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Addresses
// =============================================================================

// CreateAddress inserts the address and fills in its generated ID. If a row
// with the same address text already exists, the existing row is returned
// instead; addresses are deduplicated by their normalized string.
func (s *PostgresStore) CreateAddress(ctx context.Context, a *models.Address) error {
	query := `
		INSERT INTO addresses (address, beds, baths, cars, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address) DO NOTHING
		RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		a.Address, a.Beds, a.Baths, a.Cars, a.Latitude, a.Longitude,
	).Scan(&a.ID)
	if err == pgx.ErrNoRows {
		existing, err := s.GetAddressByText(ctx, a.Address)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("address %q: conflict but no existing row", a.Address)
		}
		*a = *existing
		return nil
	}
	return err
}

func (s *PostgresStore) GetAddressByText(ctx context.Context, address string) (*models.Address, error) {
	query := `
		SELECT id, address, beds, baths, cars, latitude, longitude
		FROM addresses WHERE address = $1`

	var a models.Address
	err := s.pool.QueryRow(ctx, query, address).Scan(
		&a.ID, &a.Address, &a.Beds, &a.Baths, &a.Cars, &a.Latitude, &a.Longitude,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) GetAddressByID(ctx context.Context, id int64) (*models.Address, error) {
	query := `
		SELECT id, address, beds, baths, cars, latitude, longitude
		FROM addresses WHERE id = $1`

	var a models.Address
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Address, &a.Beds, &a.Baths, &a.Cars, &a.Latitude, &a.Longitude,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// =============================================================================
// Listings
// =============================================================================

func (s *PostgresStore) CreateListing(ctx context.Context, l *models.Listing) error {
	query := `
		INSERT INTO listings (id, address_id, price, available, unavailable)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, l.ID, l.AddressID, l.Price, l.Available, l.Unavailable)
	return err
}

func (s *PostgresStore) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	query := `
		SELECT id, address_id, price, available, unavailable
		FROM listings WHERE id = $1`

	var l models.Listing
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.AddressID, &l.Price, &l.Available, &l.Unavailable,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetAvailableListings returns every listing still considered on-market.
func (s *PostgresStore) GetAvailableListings(ctx context.Context) ([]models.Listing, error) {
	query := `
		SELECT id, address_id, price, available, unavailable
		FROM listings
		WHERE unavailable IS NULL
		ORDER BY available`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.ID, &l.AddressID, &l.Price, &l.Available, &l.Unavailable); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// MarkListingUnavailable stamps the delisting time. The guard keeps the first
// stamp: once set, the timestamp is never overwritten.
func (s *PostgresStore) MarkListingUnavailable(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE listings SET unavailable = $2 WHERE id = $1 AND unavailable IS NULL`
	_, err := s.pool.Exec(ctx, query, id, at)
	return err
}

// =============================================================================
// Saved locations
// =============================================================================

func (s *PostgresStore) GetSavedLocations(ctx context.Context) ([]models.SavedLocation, error) {
	query := `SELECT id, name, latitude, longitude FROM saved_locations ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []models.SavedLocation
	for rows.Next() {
		var loc models.SavedLocation
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Latitude, &loc.Longitude); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// =============================================================================
// Travel times
// =============================================================================

// CreateTravelTime appends one (address, location, mode) fact. Conflicts are
// ignored: rows are append-once and never recomputed.
func (s *PostgresStore) CreateTravelTime(ctx context.Context, t *models.TravelTime) error {
	query := `
		INSERT INTO travel_times (address_id, location_id, travel_mode, minutes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address_id, location_id, travel_mode) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, t.AddressID, t.LocationID, t.Mode, t.Minutes)
	return err
}

// GetModesForAddress returns the modes already computed for an address and
// location.
func (s *PostgresStore) GetModesForAddress(ctx context.Context, addressID, locationID int64) ([]models.TravelMode, error) {
	query := `
		SELECT travel_mode FROM travel_times
		WHERE address_id = $1 AND location_id = $2`

	rows, err := s.pool.Query(ctx, query, addressID, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modes []models.TravelMode
	for rows.Next() {
		var m models.TravelMode
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, rows.Err()
}

// GetAddressesNeedingTravelTime returns addresses of currently-available
// listings that have coordinates but no travel time row for the given
// location and mode.
func (s *PostgresStore) GetAddressesNeedingTravelTime(ctx context.Context, locationID int64, mode models.TravelMode) ([]models.Address, error) {
	query := `
		SELECT DISTINCT a.id, a.address, a.beds, a.baths, a.cars, a.latitude, a.longitude
		FROM addresses a
		JOIN listings l ON l.address_id = a.id AND l.unavailable IS NULL
		WHERE a.latitude IS NOT NULL AND a.longitude IS NOT NULL
		AND NOT EXISTS (
			SELECT 1 FROM travel_times t
			WHERE t.address_id = a.id AND t.location_id = $1 AND t.travel_mode = $2
		)
		ORDER BY a.id`

	rows, err := s.pool.Query(ctx, query, locationID, mode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []models.Address
	for rows.Next() {
		var a models.Address
		if err := rows.Scan(&a.ID, &a.Address, &a.Beds, &a.Baths, &a.Cars, &a.Latitude, &a.Longitude); err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

// =============================================================================
// Suburbs
// =============================================================================

func (s *PostgresStore) CreateSuburb(ctx context.Context, sub *models.Suburb) error {
	query := `
		INSERT INTO suburbs (name, postcode, latitude, longitude, distance_to_centre)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, sub.Name, sub.Postcode, sub.Latitude, sub.Longitude, sub.DistanceToCentre)
	return err
}

func (s *PostgresStore) GetSuburbByName(ctx context.Context, name string) (*models.Suburb, error) {
	query := `
		SELECT id, name, postcode, latitude, longitude, distance_to_centre
		FROM suburbs WHERE name = $1`

	var sub models.Suburb
	err := s.pool.QueryRow(ctx, query, name).Scan(
		&sub.ID, &sub.Name, &sub.Postcode, &sub.Latitude, &sub.Longitude, &sub.DistanceToCentre,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSuburbsWithin returns crawl seeds inside the search radius.
func (s *PostgresStore) GetSuburbsWithin(ctx context.Context, maxKM float64) ([]models.Suburb, error) {
	query := `
		SELECT id, name, postcode, latitude, longitude, distance_to_centre
		FROM suburbs
		WHERE distance_to_centre < $1
		ORDER BY distance_to_centre`

	rows, err := s.pool.Query(ctx, query, maxKM)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suburbs []models.Suburb
	for rows.Next() {
		var sub models.Suburb
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Postcode, &sub.Latitude, &sub.Longitude, &sub.DistanceToCentre); err != nil {
			return nil, err
		}
		suburbs = append(suburbs, sub)
	}
	return suburbs, rows.Err()
}

// GetMaxPostcode returns the highest seeded postcode, or 0 when the table is
// empty. The suburb populator resumes from here.
func (s *PostgresStore) GetMaxPostcode(ctx context.Context) (int, error) {
	var max *int
	if err := s.pool.QueryRow(ctx, `SELECT MAX(postcode) FROM suburbs`).Scan(&max); err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}
