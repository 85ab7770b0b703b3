package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"nutritrack.io/nutritrack/internal/logging"
	"nutritrack.io/nutritrack/internal/store"
	"nutritrack.io/nutritrack/internal/utils"
)

// Repository is the record storage used by JournalService.
type Repository interface {
	InsertMeal(ctx context.Context, rec store.MealRecord) (store.MealRecord, error)
	InsertWorkout(ctx context.Context, rec store.WorkoutRecord) (store.WorkoutRecord, error)
	MealsByDate(ctx context.Context, date string) ([]store.MealRecord, error)
	WorkoutsByDate(ctx context.Context, date string) ([]store.WorkoutRecord, error)
	MealsBetween(ctx context.Context, from, to string) ([]store.MealRecord, error)
	WorkoutsBetween(ctx context.Context, from, to string) ([]store.WorkoutRecord, error)
	DeleteMeal(ctx context.Context, id string) error
	DeleteWorkout(ctx context.Context, id string) error
}

// JournalService reads and writes the meal/workout journal. Reads degrade
// to an empty day; writes and deletes always report failure.
type JournalService struct {
	repo    Repository
	profile UserProfile
	log     logging.Logger
	now     func() time.Time
}

func NewJournalService(repo Repository, profile UserProfile, log logging.Logger) *JournalService {
	return &JournalService{repo: repo, profile: profile, log: log, now: time.Now}
}

func (s *JournalService) Profile() UserProfile {
	return s.profile
}

// FetchDay loads a day's records. On a read failure it returns an empty
// day with the profile goals and a *LoadDegraded error.
func (s *JournalService) FetchDay(ctx context.Context, date string) (DailyStats, error) {
	day := emptyDay(date, s.profile)
	if !utils.ValidDate(date) {
		return day, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, date)
	}

	var (
		meals    []store.MealRecord
		workouts []store.WorkoutRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meals, err = s.repo.MealsByDate(gctx, date)
		return err
	})
	g.Go(func() error {
		var err error
		workouts, err = s.repo.WorkoutsByDate(gctx, date)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn(ctx, "day load degraded", "date", date, "err", err)
		return day, &LoadDegraded{Date: date, Err: err}
	}

	if meals != nil {
		day.Meals = meals
	}
	if workouts != nil {
		day.Workouts = workouts
	}
	return day, nil
}

// FetchRange loads every day in [from, to] that has at least one record,
// ordered by date. Failures degrade to an empty result.
func (s *JournalService) FetchRange(ctx context.Context, from, to string) ([]DailyStats, error) {
	if !utils.ValidDate(from) || !utils.ValidDate(to) || from > to {
		return []DailyStats{}, fmt.Errorf("%w: bad range %q..%q", ErrInvalidInput, from, to)
	}

	var (
		meals    []store.MealRecord
		workouts []store.WorkoutRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meals, err = s.repo.MealsBetween(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		workouts, err = s.repo.WorkoutsBetween(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn(ctx, "range load degraded", "from", from, "to", to, "err", err)
		return []DailyStats{}, &LoadDegraded{Date: from + ".." + to, Err: err}
	}

	byDate := map[string]*DailyStats{}
	get := func(date string) *DailyStats {
		d, ok := byDate[date]
		if !ok {
			nd := emptyDay(date, s.profile)
			d = &nd
			byDate[date] = d
		}
		return d
	}
	for _, m := range meals {
		d := get(m.Date)
		d.Meals = append(d.Meals, m)
	}
	for _, w := range workouts {
		d := get(w.Date)
		d.Workouts = append(d.Workouts, w)
	}

	out := make([]DailyStats, 0, len(byDate))
	for _, d := range byDate {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *JournalService) InsertMeal(ctx context.Context, rec store.MealRecord, date string) (store.MealRecord, error) {
	const op = "insert meal"
	rec.Date = date
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Timestamp == 0 {
		rec.Timestamp = s.now().UnixMilli()
	}
	if err := validateMeal(rec); err != nil {
		return store.MealRecord{}, &PersistenceError{Op: op, Err: err}
	}

	stored, err := s.repo.InsertMeal(ctx, rec)
	if err != nil {
		s.log.Error(ctx, "meal insert failed", "date", date, "err", err)
		return store.MealRecord{}, &PersistenceError{Op: op, Err: err}
	}
	s.log.Info(ctx, "meal stored", "id", stored.ID, "date", stored.Date, "calories", stored.Calories)
	return stored, nil
}

func (s *JournalService) InsertWorkout(ctx context.Context, rec store.WorkoutRecord, date string) (store.WorkoutRecord, error) {
	const op = "insert workout"
	rec.Date = date
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Timestamp == 0 {
		rec.Timestamp = s.now().UnixMilli()
	}
	if err := validateWorkout(rec); err != nil {
		return store.WorkoutRecord{}, &PersistenceError{Op: op, Err: err}
	}

	stored, err := s.repo.InsertWorkout(ctx, rec)
	if err != nil {
		s.log.Error(ctx, "workout insert failed", "date", date, "err", err)
		return store.WorkoutRecord{}, &PersistenceError{Op: op, Err: err}
	}
	s.log.Info(ctx, "workout stored", "id", stored.ID, "date", stored.Date, "calories_burned", stored.CaloriesBurned)
	return stored, nil
}

func (s *JournalService) DeleteMeal(ctx context.Context, id string) error {
	return s.delete(ctx, "delete meal", id, s.repo.DeleteMeal)
}

func (s *JournalService) DeleteWorkout(ctx context.Context, id string) error {
	return s.delete(ctx, "delete workout", id, s.repo.DeleteWorkout)
}

func (s *JournalService) delete(ctx context.Context, op, id string, del func(context.Context, string) error) error {
	if strings.TrimSpace(id) == "" {
		return &PersistenceError{Op: op, Err: fmt.Errorf("%w: id is empty", ErrInvalidInput)}
	}
	if err := del(ctx, id); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Error(ctx, op+" failed", "id", id, "err", err)
		}
		return &PersistenceError{Op: op, Err: err}
	}
	s.log.Info(ctx, op, "id", id)
	return nil
}

func validateMeal(r store.MealRecord) error {
	if r.ID != "" {
		return fmt.Errorf("%w: id is assigned by the store", ErrInvalidInput)
	}
	if !utils.ValidDate(r.Date) {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, r.Date)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidInput)
	}
	return checkAmounts(map[string]float64{
		"calories": r.Calories, "protein": r.Protein, "carbs": r.Carbs, "fat": r.Fat,
	})
}

func validateWorkout(r store.WorkoutRecord) error {
	if r.ID != "" {
		return fmt.Errorf("%w: id is assigned by the store", ErrInvalidInput)
	}
	if !utils.ValidDate(r.Date) {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, r.Date)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidInput)
	}
	if !r.Intensity.Valid() {
		return fmt.Errorf("%w: intensity %q", ErrInvalidInput, r.Intensity)
	}
	return checkAmounts(map[string]float64{
		"caloriesBurned": r.CaloriesBurned, "durationMinutes": r.DurationMinutes,
	})
}

func checkAmounts(fields map[string]float64) error {
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidInput, name, v)
		}
	}
	return nil
}
