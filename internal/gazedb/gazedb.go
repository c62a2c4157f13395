// Package gazedb persists composed gaze records, session metadata and
// validation results to SQLite.
package gazedb

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/gaze.report/internal/gaze"
)

// DB wraps the SQLite handle with gaze-specific helpers.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the database at path and applies any pending
// migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Session describes one tracking session.
type Session struct {
	ID           string
	StartedAt    time.Time
	ScreenWidth  float64
	ScreenHeight float64
	Source       string
	Records      int64
}

// CreateSession registers a new tracking session. Source names the
// acquisition driver ("mock", "replay", ...).
func (db *DB) CreateSession(id string, screen gaze.Screen, source string) error {
	_, err := db.Exec(
		`INSERT INTO sessions (id, started_at, screen_width, screen_height, source)
		 VALUES (?, ?, ?, ?, ?)`,
		id, time.Now().UTC(), screen.Width, screen.Height, source,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Sessions lists all sessions, newest first, with their record counts.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(
		`SELECT s.id, s.started_at, s.screen_width, s.screen_height, s.source,
		        (SELECT COUNT(*) FROM gaze_records g WHERE g.session_id = s.id)
		 FROM sessions s ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.ScreenWidth, &s.ScreenHeight, &s.Source, &s.Records); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// InsertRecord appends one composed record to a session. NaN channels are
// stored as NULL.
func (db *DB) InsertRecord(sessionID string, rec gaze.Record) error {
	_, err := db.Exec(
		`INSERT INTO gaze_records (
			session_id,
			left_x, left_y, left_pupil, left_fixated, left_velocity,
			left_fixation_onset, left_fixation_elapsed, left_filtered_x, left_filtered_y,
			right_x, right_y, right_pupil, right_fixated, right_velocity,
			right_fixation_onset, right_fixation_elapsed, right_filtered_x, right_filtered_y,
			screen_width, screen_height, timestamp, local_clock
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		nullable(rec.Left.GazeX), nullable(rec.Left.GazeY), nullable(rec.Left.Pupil),
		rec.Left.Fixated, rec.Left.Velocity,
		nullable(rec.Left.FixationOnset), rec.Left.FixationElapsed,
		nullable(rec.Left.FilteredX), nullable(rec.Left.FilteredY),
		nullable(rec.Right.GazeX), nullable(rec.Right.GazeY), nullable(rec.Right.Pupil),
		rec.Right.Fixated, rec.Right.Velocity,
		nullable(rec.Right.FixationOnset), rec.Right.FixationElapsed,
		nullable(rec.Right.FilteredX), nullable(rec.Right.FilteredY),
		rec.ScreenWidth, rec.ScreenHeight, rec.Timestamp, rec.LocalClock,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Records returns a session's records in emission order.
func (db *DB) Records(sessionID string) ([]gaze.Record, error) {
	rows, err := db.Query(
		`SELECT
			left_x, left_y, left_pupil, left_fixated, left_velocity,
			left_fixation_onset, left_fixation_elapsed, left_filtered_x, left_filtered_y,
			right_x, right_y, right_pupil, right_fixated, right_velocity,
			right_fixation_onset, right_fixation_elapsed, right_filtered_x, right_filtered_y,
			screen_width, screen_height, timestamp, local_clock
		 FROM gaze_records WHERE session_id = ? ORDER BY rowid`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []gaze.Record
	for rows.Next() {
		var rec gaze.Record
		var lx, ly, lp, lon, lfx, lfy sql.NullFloat64
		var rx, ry, rp, ron, rfx, rfy sql.NullFloat64
		err := rows.Scan(
			&lx, &ly, &lp, &rec.Left.Fixated, &rec.Left.Velocity,
			&lon, &rec.Left.FixationElapsed, &lfx, &lfy,
			&rx, &ry, &rp, &rec.Right.Fixated, &rec.Right.Velocity,
			&ron, &rec.Right.FixationElapsed, &rfx, &rfy,
			&rec.ScreenWidth, &rec.ScreenHeight, &rec.Timestamp, &rec.LocalClock,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Left.GazeX, rec.Left.GazeY, rec.Left.Pupil = denull(lx), denull(ly), denull(lp)
		rec.Left.FixationOnset = denull(lon)
		rec.Left.FilteredX, rec.Left.FilteredY = denull(lfx), denull(lfy)
		rec.Right.GazeX, rec.Right.GazeY, rec.Right.Pupil = denull(rx), denull(ry), denull(rp)
		rec.Right.FixationOnset = denull(ron)
		rec.Right.FilteredX, rec.Right.FilteredY = denull(rfx), denull(rfy)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ValidationRun is a stored validation summary.
type ValidationRun struct {
	ID        string
	SessionID string
	CreatedAt time.Time
	Accuracy  float64
	Precision float64
	Targets   []ValidationTarget
}

// ValidationTarget is one per-target row of a validation run.
type ValidationTarget struct {
	TargetIndex int
	TargetX     float64
	TargetY     float64
	Accuracy    float64
	Precision   float64
	Samples     int
}

// SaveValidationRun stores a validation summary and its per-target rows
// in one transaction.
func (db *DB) SaveValidationRun(run ValidationRun) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = tx.Exec(
		`INSERT INTO validation_runs (id, session_id, created_at, accuracy_px, precision_px)
		 VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, createdAt, nullable(run.Accuracy), nullable(run.Precision),
	)
	if err != nil {
		return fmt.Errorf("failed to insert validation run: %w", err)
	}
	for _, tgt := range run.Targets {
		_, err = tx.Exec(
			`INSERT INTO validation_targets (run_id, target_index, target_x, target_y, accuracy_px, precision_px, samples)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, tgt.TargetIndex, tgt.TargetX, tgt.TargetY,
			nullable(tgt.Accuracy), nullable(tgt.Precision), tgt.Samples,
		)
		if err != nil {
			return fmt.Errorf("failed to insert validation target %d: %w", tgt.TargetIndex, err)
		}
	}
	return tx.Commit()
}

// ValidationRuns lists stored validation runs for a session, newest
// first, including their per-target rows.
func (db *DB) ValidationRuns(sessionID string) ([]ValidationRun, error) {
	rows, err := db.Query(
		`SELECT id, session_id, created_at, accuracy_px, precision_px
		 FROM validation_runs WHERE session_id = ? ORDER BY created_at DESC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation runs: %w", err)
	}
	defer rows.Close()

	var runs []ValidationRun
	for rows.Next() {
		var run ValidationRun
		var acc, prec sql.NullFloat64
		if err := rows.Scan(&run.ID, &run.SessionID, &run.CreatedAt, &acc, &prec); err != nil {
			return nil, fmt.Errorf("failed to scan validation run: %w", err)
		}
		run.Accuracy, run.Precision = denull(acc), denull(prec)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		targets, err := db.validationTargets(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Targets = targets
	}
	return runs, nil
}

func (db *DB) validationTargets(runID string) ([]ValidationTarget, error) {
	rows, err := db.Query(
		`SELECT target_index, target_x, target_y, accuracy_px, precision_px, samples
		 FROM validation_targets WHERE run_id = ? ORDER BY target_index`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation targets: %w", err)
	}
	defer rows.Close()

	var out []ValidationTarget
	for rows.Next() {
		var tgt ValidationTarget
		var acc, prec sql.NullFloat64
		if err := rows.Scan(&tgt.TargetIndex, &tgt.TargetX, &tgt.TargetY, &acc, &prec, &tgt.Samples); err != nil {
			return nil, fmt.Errorf("failed to scan validation target: %w", err)
		}
		tgt.Accuracy, tgt.Precision = denull(acc), denull(prec)
		out = append(out, tgt)
	}
	return out, rows.Err()
}

// nullable maps NaN to NULL for storage.
func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

// denull maps NULL back to NaN.
func denull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
