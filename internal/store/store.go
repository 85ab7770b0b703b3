package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	ErrNotFound   = errors.New("record not found")
	ErrIDAssigned = errors.New("record already has an id")
)

const (
	dialectSQLite   = "sqlite3"
	dialectPostgres = "postgres"

	mealColumns    = "id, date, name, original_text, calories, protein, carbs, fat, created_at"
	workoutColumns = "id, date, name, original_text, calories_burned, duration_minutes, intensity, created_at"
)

// Options tunes per-call behaviour. Zero values fall back to defaults.
type Options struct {
	Timeout     time.Duration // per attempt
	Retries     int           // extra attempts for transient failures
	BackoffBase time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 100 * time.Millisecond
	}
	return o
}

// SQLStore keeps meals and workouts in two tables keyed by id and
// filtered by date. It speaks SQLite by default and PostgreSQL for
// postgres:// URLs.
type SQLStore struct {
	db      *sql.DB
	dialect string
	opts    Options
}

func NewSQLStore(ctx context.Context, dataSourceName string, opts Options) (*SQLStore, error) {
	driverName, dialect := "sqlite3", dialectSQLite
	if strings.HasPrefix(dataSourceName, "postgres://") || strings.HasPrefix(dataSourceName, "postgresql://") {
		driverName, dialect = "pgx", dialectPostgres
	}

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := newSQLStore(db, dialect, opts)
	if err = s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func newSQLStore(db *sql.DB, dialect string, opts Options) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, opts: opts.withDefaults()}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(s.dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, "migrations")
}

// Meal methods

// InsertMeal writes a new meal and returns the stored row. The id is
// generated here; callers must not set one.
func (s *SQLStore) InsertMeal(ctx context.Context, rec MealRecord) (MealRecord, error) {
	if rec.ID != "" {
		return MealRecord{}, ErrIDAssigned
	}
	row := MealRowFromRecord(rec)
	row.ID = uuid.NewString()

	query := s.rebind("INSERT INTO meals (" + mealColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING " + mealColumns)

	var stored MealRow
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, query,
			row.ID, row.Date, row.Name, row.OriginalText,
			row.Calories, row.Protein, row.Carbs, row.Fat, row.CreatedAt,
		).Scan(scanMeal(&stored)...)
	})
	if err != nil {
		return MealRecord{}, fmt.Errorf("failed to insert meal: %w", err)
	}
	return stored.Record(), nil
}

func (s *SQLStore) MealsByDate(ctx context.Context, date string) ([]MealRecord, error) {
	return s.queryMeals(ctx, "SELECT "+mealColumns+" FROM meals WHERE date = ? ORDER BY created_at, id", date)
}

// MealsBetween returns meals whose date falls in [from, to]. Date keys
// are zero-padded, so string order is calendar order.
func (s *SQLStore) MealsBetween(ctx context.Context, from, to string) ([]MealRecord, error) {
	return s.queryMeals(ctx, "SELECT "+mealColumns+" FROM meals WHERE date >= ? AND date <= ? ORDER BY date, created_at, id", from, to)
}

func (s *SQLStore) DeleteMeal(ctx context.Context, id string) error {
	if err := s.deleteByID(ctx, "meals", id); err != nil {
		return fmt.Errorf("failed to delete meal %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) queryMeals(ctx context.Context, query string, args ...any) ([]MealRecord, error) {
	query = s.rebind(query)
	var meals []MealRecord
	err := s.withRetry(ctx, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		meals = make([]MealRecord, 0)
		for rows.Next() {
			var row MealRow
			if err := rows.Scan(scanMeal(&row)...); err != nil {
				return fmt.Errorf("failed to scan meal row: %w", err)
			}
			meals = append(meals, row.Record())
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	return meals, nil
}

func scanMeal(r *MealRow) []any {
	return []any{&r.ID, &r.Date, &r.Name, &r.OriginalText, &r.Calories, &r.Protein, &r.Carbs, &r.Fat, &r.CreatedAt}
}

// Workout methods

func (s *SQLStore) InsertWorkout(ctx context.Context, rec WorkoutRecord) (WorkoutRecord, error) {
	if rec.ID != "" {
		return WorkoutRecord{}, ErrIDAssigned
	}
	row := WorkoutRowFromRecord(rec)
	row.ID = uuid.NewString()

	query := s.rebind("INSERT INTO workouts (" + workoutColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING " + workoutColumns)

	var stored WorkoutRow
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, query,
			row.ID, row.Date, row.Name, row.OriginalText,
			row.CaloriesBurned, row.DurationMinutes, row.Intensity, row.CreatedAt,
		).Scan(scanWorkout(&stored)...)
	})
	if err != nil {
		return WorkoutRecord{}, fmt.Errorf("failed to insert workout: %w", err)
	}
	return stored.Record(), nil
}

func (s *SQLStore) WorkoutsByDate(ctx context.Context, date string) ([]WorkoutRecord, error) {
	return s.queryWorkouts(ctx, "SELECT "+workoutColumns+" FROM workouts WHERE date = ? ORDER BY created_at, id", date)
}

func (s *SQLStore) WorkoutsBetween(ctx context.Context, from, to string) ([]WorkoutRecord, error) {
	return s.queryWorkouts(ctx, "SELECT "+workoutColumns+" FROM workouts WHERE date >= ? AND date <= ? ORDER BY date, created_at, id", from, to)
}

func (s *SQLStore) DeleteWorkout(ctx context.Context, id string) error {
	if err := s.deleteByID(ctx, "workouts", id); err != nil {
		return fmt.Errorf("failed to delete workout %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) queryWorkouts(ctx context.Context, query string, args ...any) ([]WorkoutRecord, error) {
	query = s.rebind(query)
	var workouts []WorkoutRecord
	err := s.withRetry(ctx, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		workouts = make([]WorkoutRecord, 0)
		for rows.Next() {
			var row WorkoutRow
			if err := rows.Scan(scanWorkout(&row)...); err != nil {
				return fmt.Errorf("failed to scan workout row: %w", err)
			}
			workouts = append(workouts, row.Record())
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query workouts: %w", err)
	}
	return workouts, nil
}

func scanWorkout(r *WorkoutRow) []any {
	return []any{&r.ID, &r.Date, &r.Name, &r.OriginalText, &r.CaloriesBurned, &r.DurationMinutes, &r.Intensity, &r.CreatedAt}
}

// deleteByID removes one row; table is always one of our constants.
func (s *SQLStore) deleteByID(ctx context.Context, table, id string) error {
	query := s.rebind("DELETE FROM " + table + " WHERE id = ?")
	return s.withRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, query, id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// withRetry runs fn with a per-attempt timeout, retrying transient
// failures with exponential backoff.
func (s *SQLStore) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(uint64(s.opts.Retries), retry.NewExponential(s.opts.BackoffBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()

		err := fn(attemptCtx)
		if err != nil && isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return pgconn.SafeToRetry(err)
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
