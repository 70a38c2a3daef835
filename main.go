package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/KnotATypo/Rent-Finder/browser"
	"github.com/KnotATypo/Rent-Finder/config"
	"github.com/KnotATypo/Rent-Finder/geocode"
	"github.com/KnotATypo/Rent-Finder/httputil"
	"github.com/KnotATypo/Rent-Finder/logging"
	"github.com/KnotATypo/Rent-Finder/scheduler"
	"github.com/KnotATypo/Rent-Finder/search"
	"github.com/KnotATypo/Rent-Finder/site"
	"github.com/KnotATypo/Rent-Finder/storage"
	"github.com/KnotATypo/Rent-Finder/suburbs"
	"github.com/KnotATypo/Rent-Finder/travel"
)

func main() {
	searchNow := flag.Bool("search", false, "run one search pass and exit")
	populateSuburbs := flag.Bool("populate-suburbs", false, "seed the suburb table and exit")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	writer, err := logging.Setup("rent-finder.log")
	if err != nil {
		log.Fatalf("Could not set up logging: %v", err)
	}
	defer writer.Close()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer store.Close()

	ops, err := storage.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Could not open operational store: %v", err)
	}
	defer ops.Close()

	blobs, err := storage.NewObjectStore(ctx, storage.S3Config{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	})
	if err != nil {
		log.Fatalf("Could not set up object storage: %v", err)
	}

	clients := httputil.NewClients()
	geocoder := geocode.NewClient(clients.API, cfg.Geocode.BaseURL, cfg.Geocode.APIKey, log.Printf)

	provider, err := browser.NewProvider(cfg.Browser.Headless, cfg.Browser.TimeoutMS)
	if err != nil {
		log.Fatalf("Could not start browser: %v", err)
	}
	defer provider.Close()

	src := site.NewDomain(store, blobs, geocoder, clients.Media, cfg.Search.State)
	calculator := travel.NewCalculator(provider, store, cfg.Search.DepartureTime)
	runner := search.NewRunner(cfg, store, ops, blobs, src, provider, calculator)

	switch {
	case *populateSuburbs:
		populator := suburbs.NewPopulator(cfg, store, src, provider, clients.API)
		if err := populator.Populate(ctx); err != nil {
			log.Fatalf("Suburb population failed: %v", err)
		}
	case *searchNow:
		if err := runner.Run(ctx); err != nil {
			log.Fatalf("Search run failed: %v", err)
		}
	default:
		sched := scheduler.New(cfg.Scheduler.Cron, runner.Run)
		if err := sched.Start(ctx); err != nil {
			log.Fatalf("Could not start scheduler: %v", err)
		}

		<-ctx.Done()
		log.Printf("Shutting down")
		sched.Stop()
	}
}
