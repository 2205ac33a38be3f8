// Package schedule provides the SQLite-backed course schedule store.
package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// Store persists course schedule slots in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_name TEXT NOT NULL,
		week INTEGER NOT NULL,
		day_of_week INTEGER NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		location TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_week ON schedules(week);
	CREATE INDEX IF NOT EXISTS idx_schedules_course_slot ON schedules(course_name, week, day_of_week);
	`
	_, err := db.Exec(schema)
	return err
}

// Create validates the input, rejects slots overlapping an existing slot of
// the same course on the same week and day, and inserts a new schedule.
func (s *Store) Create(ctx context.Context, in models.ScheduleInput) (*models.Schedule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, in, 0); err != nil {
		return nil, err
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO schedules (course_name, week, day_of_week, start_time, end_time, location, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.CourseName, in.Week, in.DayOfWeek, in.StartTime, in.EndTime, in.Location, now, now,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Update validates the input and replaces the schedule with the given ID.
func (s *Store) Update(ctx context.Context, id int64, in models.ScheduleInput) (*models.Schedule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, in, id); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE schedules SET course_name = ?, week = ?, day_of_week = ?, start_time = ?, end_time = ?, location = ?, updated_at = ?
		 WHERE id = ?`,
		in.CourseName, in.Week, in.DayOfWeek, in.StartTime, in.EndTime, in.Location, time.Now(), id,
	)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("schedule not found: %d", id)
	}
	return s.Get(ctx, id)
}

// checkOverlap rejects a slot that overlaps another slot of the same course
// on the same week and day. excludeID skips the row being updated.
func (s *Store) checkOverlap(ctx context.Context, in models.ScheduleInput, excludeID int64) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schedules
		 WHERE course_name = ? AND week = ? AND day_of_week = ? AND id != ?
		   AND NOT (end_time <= ? OR start_time >= ?)`,
		in.CourseName, in.Week, in.DayOfWeek, excludeID, in.StartTime, in.EndTime,
	).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return models.NewValidationError("start_time",
			fmt.Sprintf("schedule overlaps an existing slot for %s in week %d", in.CourseName, in.Week))
	}
	return nil
}

// Get returns a schedule by ID.
func (s *Store) Get(ctx context.Context, id int64) (*models.Schedule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, course_name, week, day_of_week, start_time, end_time, location, created_at, updated_at
		 FROM schedules WHERE id = ?`, id)
	sched, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("schedule not found: %d", id)
	}
	return sched, err
}

// Delete removes a schedule by ID.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("schedule not found: %d", id)
	}
	return nil
}

// List returns schedules ordered by week, day, and start time. A week of 0
// lists all weeks.
func (s *Store) List(ctx context.Context, week int) ([]*models.Schedule, error) {
	query := `SELECT id, course_name, week, day_of_week, start_time, end_time, location, created_at, updated_at
	          FROM schedules`
	args := []any{}
	if week > 0 {
		query += ` WHERE week = ?`
		args = append(args, week)
	}
	query += ` ORDER BY week, day_of_week, start_time`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

// DaySchedule groups one day's slots for the weekly view.
type DaySchedule struct {
	DayOfWeek int                `json:"day_of_week"`
	DayName   string             `json:"day_name"`
	Slots     []*models.Schedule `json:"slots"`
}

// WeeklyView returns the week's schedules grouped by day, days in order,
// days without slots omitted.
func (s *Store) WeeklyView(ctx context.Context, week int) ([]DaySchedule, error) {
	all, err := s.List(ctx, week)
	if err != nil {
		return nil, err
	}
	var view []DaySchedule
	for _, sched := range all {
		if len(view) == 0 || view[len(view)-1].DayOfWeek != sched.DayOfWeek {
			view = append(view, DaySchedule{
				DayOfWeek: sched.DayOfWeek,
				DayName:   models.DayName(sched.DayOfWeek),
			})
		}
		last := &view[len(view)-1]
		last.Slots = append(last.Slots, sched)
	}
	return view, nil
}

// Count returns the total number of schedule slots.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedules`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var sched models.Schedule
	var location sql.NullString
	if err := row.Scan(&sched.ID, &sched.CourseName, &sched.Week, &sched.DayOfWeek,
		&sched.StartTime, &sched.EndTime, &location, &sched.CreatedAt, &sched.UpdatedAt); err != nil {
		return nil, err
	}
	sched.Location = location.String
	sched.DayName = models.DayName(sched.DayOfWeek)
	return &sched, nil
}
