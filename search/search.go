// Package search runs the whole ingestion pipeline as one unit of work:
// crawl seed suburbs, sweep availability, enrich details, backfill travel
// times. Stages run strictly in order; items within a stage fail
// independently. Every persisted write is keyed and existence-checked, so an
// aborted run retries cleanly from the top on the next schedule.
package search

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/KnotATypo/Rent-Finder/browser"
	"github.com/KnotATypo/Rent-Finder/config"
	"github.com/KnotATypo/Rent-Finder/models"
	"github.com/KnotATypo/Rent-Finder/site"
	"github.com/KnotATypo/Rent-Finder/storage"
	"github.com/KnotATypo/Rent-Finder/travel"
)

type Runner struct {
	cfg      *config.Config
	store    *storage.PostgresStore
	ops      *storage.SQLiteStore
	blobs    *storage.ObjectStore
	src      site.Site
	provider *browser.Provider
	travel   *travel.Calculator
}

func NewRunner(
	cfg *config.Config,
	store *storage.PostgresStore,
	ops *storage.SQLiteStore,
	blobs *storage.ObjectStore,
	src site.Site,
	provider *browser.Provider,
	calculator *travel.Calculator,
) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    store,
		ops:      ops,
		blobs:    blobs,
		src:      src,
		provider: provider,
		travel:   calculator,
	}
}

// Run executes one full pipeline pass.
func (r *Runner) Run(ctx context.Context) error {
	run := &models.Run{
		UUID:      uuid.NewString(),
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	id, err := r.ops.CreateRun(run)
	if err != nil {
		log.Printf("Warning: could not record run: %v", err)
	} else {
		run.ID = id
	}

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		if err := r.ops.UpdateRun(run); err != nil {
			log.Printf("Warning: could not update run: %v", err)
		}
	}()

	log.Printf("Starting search run %s", run.UUID)

	stages := []struct {
		name string
		fn   func(context.Context, *models.Run) error
	}{
		{models.StageCrawl, r.getRentals},
		{models.StageAvailability, r.sweepAvailability},
		{models.StageEnrichment, r.enrichListings},
		{models.StageTravelTimes, r.backfillTravelTimes},
	}

	for _, stage := range stages {
		if err := stage.fn(ctx, run); err != nil {
			run.Status = models.RunStatusFailed
			r.log(run, models.LogLevelError, fmt.Sprintf("Stage aborted: %v", err), stage.name)
			return fmt.Errorf("%s: %w", stage.name, err)
		}
	}

	run.Status = models.RunStatusCompleted
	log.Printf("Finished search run %s: %d listings found, %d new, %d errors",
		run.UUID, run.ListingsFound, run.ListingsNew, run.ErrorsCount)
	return nil
}

// getRentals crawls every seed suburb inside the search radius. Suburbs fail
// independently: a dead session is recreated and the crawl moves on.
func (r *Runner) getRentals(ctx context.Context, run *models.Run) error {
	suburbs, err := r.store.GetSuburbsWithin(ctx, r.cfg.Search.MaxDistanceKM)
	if err != nil {
		return fmt.Errorf("load suburbs: %w", err)
	}
	r.log(run, models.LogLevelInfo, fmt.Sprintf("Found %d suburbs", len(suburbs)), models.StageCrawl)

	sess, err := r.provider.NewSession()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() { sess.Close() }()

	for _, suburb := range suburbs {
		if err := ctx.Err(); err != nil {
			return err
		}

		listings, err := r.src.Search(ctx, sess, suburb)
		if err != nil {
			run.ErrorsCount++
			r.log(run, models.LogLevelError, fmt.Sprintf("Suburb %s: %v", suburb.Name, err), models.StageCrawl)
			if sess, err = r.provider.Recreate(sess); err != nil {
				return fmt.Errorf("recreate session: %w", err)
			}
			continue
		}

		run.ListingsFound += len(listings)
		for _, l := range listings {
			if !l.Available.Before(run.StartedAt) {
				run.ListingsNew++
			}
		}
	}

	r.log(run, models.LogLevelInfo,
		fmt.Sprintf("Crawl complete: %d listings, %d new", run.ListingsFound, run.ListingsNew),
		models.StageCrawl)
	return nil
}

// sweepAvailability revisits every on-market listing to detect delisting.
func (r *Runner) sweepAvailability(ctx context.Context, run *models.Run) error {
	listings, err := r.store.GetAvailableListings(ctx)
	if err != nil {
		return fmt.Errorf("load listings: %w", err)
	}
	r.log(run, models.LogLevelInfo, fmt.Sprintf("%d listings to check", len(listings)), models.StageAvailability)

	sess, err := r.provider.NewSession()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() { sess.Close() }()

	for i := range listings {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.src.CheckAvailability(ctx, sess, &listings[i]); err != nil {
			run.ErrorsCount++
			r.log(run, models.LogLevelError,
				fmt.Sprintf("Listing %s: %v", listings[i].ID, err), models.StageAvailability)
			if sess, err = r.provider.Recreate(sess); err != nil {
				return fmt.Errorf("recreate session: %w", err)
			}
		}
	}
	return nil
}

// enrichListings downloads blurb and gallery images for available listings
// that have no stored first image yet.
func (r *Runner) enrichListings(ctx context.Context, run *models.Run) error {
	listings, err := r.store.GetAvailableListings(ctx)
	if err != nil {
		return fmt.Errorf("load listings: %w", err)
	}

	var pending []models.Listing
	for _, l := range listings {
		exists, err := r.blobs.Exists(ctx, l.ID+"/0.webp")
		if err != nil {
			return fmt.Errorf("check blob for %s: %w", l.ID, err)
		}
		if !exists {
			pending = append(pending, l)
		}
	}
	r.log(run, models.LogLevelInfo, fmt.Sprintf("%d listings to enrich", len(pending)), models.StageEnrichment)

	sess, err := r.provider.NewSession()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() { sess.Close() }()

	for i := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.src.DownloadBlurbAndImages(ctx, sess, &pending[i]); err != nil {
			run.ErrorsCount++
			r.log(run, models.LogLevelError,
				fmt.Sprintf("Listing %s: %v", pending[i].ID, err), models.StageEnrichment)
			if sess, err = r.provider.Recreate(sess); err != nil {
				return fmt.Errorf("recreate session: %w", err)
			}
		}
	}
	return nil
}

func (r *Runner) backfillTravelTimes(ctx context.Context, run *models.Run) error {
	r.log(run, models.LogLevelInfo, "Populating travel times", models.StageTravelTimes)
	return r.travel.Backfill(ctx)
}

func (r *Runner) log(run *models.Run, level models.LogLevel, message, stage string) {
	log.Printf("[%s] %s: %s", level, stage, message)
	// A failed CreateRun leaves run.ID zero; those logs stay unattributed
	// rather than pointing at a run row that does not exist.
	var runID *int64
	if run.ID != 0 {
		runID = &run.ID
	}
	if err := r.ops.Log(runID, level, message, stage); err != nil {
		log.Printf("Warning: could not persist log: %v", err)
	}
}
