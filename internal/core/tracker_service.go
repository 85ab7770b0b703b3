package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nutritrack.io/nutritrack/internal/logging"
	"nutritrack.io/nutritrack/internal/store"
	"nutritrack.io/nutritrack/internal/utils"
)

// TrackerService drives input -> extraction -> persistence -> aggregation.
// Logging and deleting go through a single in-flight slot; a second
// request while one is running fails with ErrBusy.
type TrackerService struct {
	extractor *ExtractionService
	journal   *JournalService
	log       logging.Logger
	inFlight  chan struct{}
}

func NewTrackerService(extractor *ExtractionService, journal *JournalService, log logging.Logger) *TrackerService {
	return &TrackerService{
		extractor: extractor,
		journal:   journal,
		log:       log,
		inFlight:  make(chan struct{}, 1),
	}
}

// DayView is one day's records with their aggregates. Degraded is set when
// the records could not be read and the view is an empty placeholder.
type DayView struct {
	Stats    DailyStats `json:"stats"`
	Totals   DayTotals  `json:"totals"`
	Degraded bool       `json:"degraded"`
}

type RangeView struct {
	From     string       `json:"from"`
	To       string       `json:"to"`
	Days     []DayTotals  `json:"days"`
	Summary  RangeSummary `json:"summary"`
	Degraded bool         `json:"degraded"`
}

type MealFromImage struct {
	Meal        store.MealRecord `json:"meal"`
	Explanation string           `json:"explanation"`
}

func (s *TrackerService) acquire() (func(), error) {
	select {
	case s.inFlight <- struct{}{}:
		return func() { <-s.inFlight }, nil
	default:
		return nil, ErrBusy
	}
}

func (s *TrackerService) Profile() UserProfile {
	return s.journal.Profile()
}

func (s *TrackerService) LogMeal(ctx context.Context, date, text string) (store.MealRecord, error) {
	if err := checkDate(date); err != nil {
		return store.MealRecord{}, err
	}
	release, err := s.acquire()
	if err != nil {
		return store.MealRecord{}, err
	}
	defer release()

	ex, err := s.extractor.ExtractMeal(ctx, text)
	if err != nil {
		return store.MealRecord{}, err
	}
	return s.journal.InsertMeal(ctx, store.MealRecord{
		Name:         ex.Name,
		OriginalText: strings.TrimSpace(text),
		Calories:     ex.Calories,
		Protein:      ex.Protein,
		Carbs:        ex.Carbs,
		Fat:          ex.Fat,
	}, date)
}

// LogMealFromImage stores a meal read from a photo. Without user text the
// model's explanation becomes the record's source text.
func (s *TrackerService) LogMealFromImage(ctx context.Context, date, imageData, text string) (MealFromImage, error) {
	if err := checkDate(date); err != nil {
		return MealFromImage{}, err
	}
	release, err := s.acquire()
	if err != nil {
		return MealFromImage{}, err
	}
	defer release()

	ex, err := s.extractor.ExtractMealFromImage(ctx, imageData, text)
	if err != nil {
		return MealFromImage{}, err
	}
	source := strings.TrimSpace(text)
	if source == "" {
		source = ex.Explanation
	}
	meal, err := s.journal.InsertMeal(ctx, store.MealRecord{
		Name:         ex.Name,
		OriginalText: source,
		Calories:     ex.Calories,
		Protein:      ex.Protein,
		Carbs:        ex.Carbs,
		Fat:          ex.Fat,
	}, date)
	if err != nil {
		return MealFromImage{}, err
	}
	return MealFromImage{Meal: meal, Explanation: ex.Explanation}, nil
}

func (s *TrackerService) LogWorkout(ctx context.Context, date, text string) (store.WorkoutRecord, error) {
	if err := checkDate(date); err != nil {
		return store.WorkoutRecord{}, err
	}
	release, err := s.acquire()
	if err != nil {
		return store.WorkoutRecord{}, err
	}
	defer release()

	ex, err := s.extractor.ExtractWorkout(ctx, text)
	if err != nil {
		return store.WorkoutRecord{}, err
	}
	return s.journal.InsertWorkout(ctx, store.WorkoutRecord{
		Name:            ex.Name,
		OriginalText:    strings.TrimSpace(text),
		CaloriesBurned:  ex.CaloriesBurned,
		DurationMinutes: ex.DurationMinutes,
		Intensity:       ex.Intensity,
	}, date)
}

func (s *TrackerService) DeleteMeal(ctx context.Context, id string) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	return s.journal.DeleteMeal(ctx, id)
}

func (s *TrackerService) DeleteWorkout(ctx context.Context, id string) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	return s.journal.DeleteWorkout(ctx, id)
}

// Day never fails on storage errors; it reports them through Degraded.
func (s *TrackerService) Day(ctx context.Context, date string) (DayView, error) {
	stats, err := s.journal.FetchDay(ctx, date)
	var degraded *LoadDegraded
	if err != nil && !errors.As(err, &degraded) {
		return DayView{}, err
	}
	return DayView{Stats: stats, Totals: ComputeTotals(stats), Degraded: degraded != nil}, nil
}

// Week rolls up Monday..Sunday of the week containing date.
func (s *TrackerService) Week(ctx context.Context, date string) (RangeView, error) {
	anchor, err := utils.ParseDate(date)
	if err != nil {
		return RangeView{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	dates := WeekDates(anchor)
	days, degraded, err := s.fetchRange(ctx, dates[0], dates[len(dates)-1])
	if err != nil {
		return RangeView{}, err
	}
	totals := WeeklyRollup(anchor, days)
	return RangeView{
		From:     dates[0],
		To:       dates[len(dates)-1],
		Days:     totals,
		Summary:  SummarizeRange(totals),
		Degraded: degraded,
	}, nil
}

// Month rolls up every day of a YYYY-MM month.
func (s *TrackerService) Month(ctx context.Context, month string) (RangeView, error) {
	first, last, err := utils.ParseMonth(month)
	if err != nil {
		return RangeView{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	from, to := utils.FormatDate(first), utils.FormatDate(last)
	days, degraded, err := s.fetchRange(ctx, from, to)
	if err != nil {
		return RangeView{}, err
	}
	totals := MonthlyRollup(first.Year(), first.Month(), days)
	return RangeView{
		From:     from,
		To:       to,
		Days:     totals,
		Summary:  SummarizeRange(totals),
		Degraded: degraded,
	}, nil
}

func (s *TrackerService) fetchRange(ctx context.Context, from, to string) ([]DailyStats, bool, error) {
	days, err := s.journal.FetchRange(ctx, from, to)
	var degraded *LoadDegraded
	if err != nil && !errors.As(err, &degraded) {
		return nil, false, err
	}
	return days, degraded != nil, nil
}

// Insight returns a short motivational note about the day.
func (s *TrackerService) Insight(ctx context.Context, date string) (string, error) {
	stats, err := s.journal.FetchDay(ctx, date)
	if err != nil {
		return "", err
	}
	return s.extractor.Summarize(ctx, describeDay(stats))
}

// Advice returns suggestions for the day measured against the profile.
func (s *TrackerService) Advice(ctx context.Context, date string) (string, error) {
	stats, err := s.journal.FetchDay(ctx, date)
	if err != nil {
		return "", err
	}
	return s.extractor.GetAdvice(ctx, stats, s.journal.Profile())
}

func describeDay(stats DailyStats) string {
	t := ComputeTotals(stats)

	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", stats.Date)
	fmt.Fprintf(&b, "Calories consumed: %.0f of a %.0f kcal goal\n", t.ConsumedCals, stats.CalorieGoal)
	fmt.Fprintf(&b, "Calories burned: %.0f kcal\n", t.BurnedCals)
	fmt.Fprintf(&b, "Net calories: %.0f kcal\n", t.NetCals)
	fmt.Fprintf(&b, "Protein: %.0f of a %.0f g goal\n", t.Protein, stats.ProteinGoal)
	fmt.Fprintf(&b, "Meals logged: %d, workouts logged: %d", t.MealCount, t.WorkoutCount)
	return b.String()
}

func checkDate(date string) error {
	if !utils.ValidDate(date) {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, date)
	}
	return nil
}
