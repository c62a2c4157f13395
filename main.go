package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gaze.report/api"
	"github.com/banshee-data/gaze.report/internal/acquire"
	"github.com/banshee-data/gaze.report/internal/gaze"
	"github.com/banshee-data/gaze.report/internal/gazedb"
	"github.com/banshee-data/gaze.report/internal/gazemux"
	"github.com/banshee-data/gaze.report/internal/version"
)

var (
	listen = flag.String("listen", ":8080", "Listen address")

	mock       = flag.Bool("mock", false, "Use the synthetic gaze source instead of tracker hardware")
	rate       = flag.Int("rate", 600, "Mock sample rate in Hz")
	replayPath = flag.String("replay", "", "Replay raw samples from a fixtures file instead of tracker hardware")

	dbFile = flag.String("db", "gaze_data.db", "SQLite database path (empty disables persistence)")
	record = flag.Bool("record", false, "Persist composed records to the session database")

	screenWidth  = flag.Float64("screen-width", 1920, "Screen width in pixels")
	screenHeight = flag.Float64("screen-height", 1080, "Screen height in pixels")
	fixation     = flag.Bool("fixation", true, "Classify fixations")
	threshold    = flag.Float64("velocity-threshold", 30, "Fixation velocity threshold in pixels/second")
	configPath   = flag.String("config", "", "Optional JSON options file overriding the flags")

	statsInterval = flag.Duration("stats-interval", 30*time.Second, "How often to log pipeline counters")
)

func buildOptions() (gaze.Options, error) {
	opts := gaze.DefaultOptions(gaze.Screen{Width: *screenWidth, Height: *screenHeight})
	opts.EnableFixation = *fixation
	opts.VelocityThreshold = *threshold

	if *configPath != "" {
		fo, err := gaze.LoadFileOptions(*configPath)
		if err != nil {
			return gaze.Options{}, err
		}
		opts = fo.Apply(opts)
	}
	return opts, opts.Validate()
}

func newSource() (acquire.Source, string, error) {
	if *replayPath != "" {
		src, err := acquire.NewReplay(*replayPath, true)
		return src, "replay", err
	}
	cfg := acquire.DefaultMockConfig()
	cfg.Rate = *rate
	return acquire.NewMock(cfg), "mock", nil
}

// Main
func main() {
	flag.Parse()

	log.Printf("gaze tracker %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !*mock && *replayPath == "" {
		log.Fatal("No tracker hardware driver is linked in; run with -mock or -replay")
	}

	opts, err := buildOptions()
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	source, sourceName, err := newSource()
	if err != nil {
		log.Fatalf("Failed to create %s source: %v", sourceName, err)
	}

	var db *gazedb.DB
	if *dbFile != "" {
		db, err = gazedb.Open(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
	}

	sessionID := uuid.NewString()
	if db != nil && *record {
		if err := db.CreateSession(sessionID, opts.Screen, sourceName); err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		log.Printf("Recording session %s", sessionID)
	}

	stats := gaze.NewPipelineStats()
	composer, err := gaze.NewComposer(opts, stats)
	if err != nil {
		log.Fatalf("Failed to create composer: %v", err)
	}
	mux := gazemux.New()
	defer mux.Close()

	// Wait group for the acquisition, processing, HTTP server and stats
	// reporter routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// drive the acquisition source
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := source.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("source terminated: %v", err)
		}
		log.Print("acquisition routine terminated")
	}()

	// per-sample processing loop: compose each raw sample into a record,
	// broadcast it and optionally persist it
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case sample, ok := <-source.Samples():
				if !ok {
					// source exhausted (replay): shut the daemon down
					log.Print("sample stream ended")
					stop()
					return
				}
				rec := composer.Process(sample)
				mux.Publish(rec)
				if db != nil && *record {
					if err := db.InsertRecord(sessionID, rec); err != nil {
						log.Printf("failed to persist record: %v", err)
					}
				}
			case <-ctx.Done():
				log.Print("processing routine terminated")
				return
			}
		}
	}()

	// periodic pipeline counter log
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(*statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				samplesIn, recordsOut, nanSamples, timingAnomalies, period := stats.GetAndReset()
				log.Printf("pipeline: %d samples in, %d records out, %d nan samples, %d timing anomalies over %s (source dropped %d)",
					samplesIn, recordsOut, nanSamples, timingAnomalies, period.Round(time.Second), source.Dropped())
			case <-ctx.Done():
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		handler := api.NewServer(mux, db, stats, opts).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: handler,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
