// Command validate scores a recorded tracking session against the
// target sequence it was captured with, reporting per-target accuracy
// and precision in pixels.
//
// The session must have been recorded while the on-screen stimulus
// followed the grid schedule produced by the same flags (rows, cols,
// move, stay, seed, start), so the tool can reconstruct which target
// was visible when.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/banshee-data/gaze.report/internal/gaze"
	"github.com/banshee-data/gaze.report/internal/gazedb"
	"github.com/banshee-data/gaze.report/internal/security"
	"github.com/banshee-data/gaze.report/internal/units"
	"github.com/banshee-data/gaze.report/internal/validate"
)

func main() {
	var dbPath string
	var sessionID string
	var rows, cols int
	var move, stay, start, skip float64
	var seed int64
	var csvPath string
	var htmlPath string
	var save bool
	var reportUnits string
	var screenWidthMM, distanceMM float64

	flag.StringVar(&dbPath, "db", "gaze_data.db", "path to sqlite db")
	flag.StringVar(&sessionID, "session", "", "session ID to score")
	flag.IntVar(&rows, "rows", 3, "target grid rows")
	flag.IntVar(&cols, "cols", 3, "target grid columns")
	flag.Float64Var(&move, "move", 1.0, "stimulus travel time per target (seconds)")
	flag.Float64Var(&stay, "stay", 3.0, "stimulus hold time per target (seconds)")
	flag.Float64Var(&start, "start", 0, "device time the sequence started (seconds)")
	flag.Float64Var(&skip, "skip", 0.5, "settle time discarded after each onset (seconds)")
	flag.Int64Var(&seed, "seed", 0, "shuffle seed used during capture (0 = grid order)")
	flag.StringVar(&csvPath, "csv", "", "write the per-target summary to this CSV file")
	flag.StringVar(&htmlPath, "html", "", "write a scatter chart to this HTML file")
	flag.BoolVar(&save, "save", false, "store the run in the database")
	flag.StringVar(&reportUnits, "units", units.PX, "units for the printed metrics (px or deg)")
	flag.Float64Var(&screenWidthMM, "screen-width-mm", 0, "physical screen width in mm (required for deg)")
	flag.Float64Var(&distanceMM, "distance-mm", 0, "viewing distance in mm (required for deg)")
	flag.Parse()

	if sessionID == "" {
		log.Fatalf("session must be provided")
	}
	if skip >= stay {
		log.Fatalf("skip (%gs) must be shorter than stay (%gs)", skip, stay)
	}
	if !units.IsValid(reportUnits) {
		log.Fatalf("invalid units %q: must be one of %s", reportUnits, units.GetValidUnitsString())
	}
	if reportUnits == units.DEG && (screenWidthMM <= 0 || distanceMM <= 0) {
		log.Fatalf("deg units need -screen-width-mm and -distance-mm")
	}

	db, err := gazedb.Open(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	records, err := db.Records(sessionID)
	if err != nil {
		log.Fatalf("load records: %v", err)
	}
	if len(records) == 0 {
		log.Fatalf("session %s has no records", sessionID)
	}
	screen := gaze.Screen{Width: records[0].ScreenWidth, Height: records[0].ScreenHeight}

	cfg := validate.SequenceConfig{
		Rows: rows, Cols: cols,
		MoveSeconds: move, StaySeconds: stay,
		Seed: seed,
	}
	presentations := validate.Sequence(cfg, screen, start)
	trials := validate.Window(records, presentations, skip, stay)
	summary := validate.Summarize(trials)

	// stored metrics stay in pixels; conversion applies to the printed
	// report only
	geom := units.Geometry{ScreenWidthPx: screen.Width, ScreenWidthMM: screenWidthMM, DistanceMM: distanceMM}
	conv := func(px float64) float64 { return geom.Convert(px, reportUnits) }

	for _, row := range summary.Targets {
		fmt.Printf("target %d (%.0f, %.0f): accuracy %.2f %s, precision %.2f %s, %d samples\n",
			row.Index, row.X, row.Y, conv(row.Accuracy), reportUnits, conv(row.Precision), reportUnits, row.Samples)
	}
	fmt.Printf("overall: accuracy %.2f %s, precision %.2f %s\n",
		conv(summary.Accuracy), reportUnits, conv(summary.Precision), reportUnits)

	if csvPath != "" {
		writeFile(csvPath, func(f *os.File) error { return validate.WriteCSV(f, summary) })
	}
	if htmlPath != "" {
		writeFile(htmlPath, func(f *os.File) error { return validate.WriteHTML(f, trials, summary) })
	}

	if save {
		run := gazedb.ValidationRun{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Accuracy:  summary.Accuracy,
			Precision: summary.Precision,
		}
		for _, row := range summary.Targets {
			run.Targets = append(run.Targets, gazedb.ValidationTarget{
				TargetIndex: row.Index,
				TargetX:     row.X,
				TargetY:     row.Y,
				Accuracy:    row.Accuracy,
				Precision:   row.Precision,
				Samples:     row.Samples,
			})
		}
		if err := db.SaveValidationRun(run); err != nil {
			log.Fatalf("save run: %v", err)
		}
		fmt.Printf("saved validation run %s\n", run.ID)
	}
}

func writeFile(path string, write func(*os.File) error) {
	if err := security.ValidateExportPath(path); err != nil {
		log.Fatalf("refusing to write %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		log.Fatalf("write %s: %v", path, err)
	}
}
