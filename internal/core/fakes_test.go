package core

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"nutritrack.io/nutritrack/internal/config"
	"nutritrack.io/nutritrack/internal/logging"
	"nutritrack.io/nutritrack/internal/store"
)

// fakeGenerator replays canned responses and records every request.
type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     []GenerationRequest
	hadDL     []bool

	started chan struct{} // receives a send when a call begins, optional
	release chan struct{} // blocks the call until closed, optional
}

func newFakeGenerator(responses ...string) *fakeGenerator {
	return &fakeGenerator{responses: responses}
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	_, hasDeadline := ctx.Deadline()
	f.hadDL = append(f.hadDL, hasDeadline)
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	r := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return r, nil
}

func (f *fakeGenerator) lastCall() GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return GenerationRequest{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// memRepo is an in-memory Repository with injectable failures.
type memRepo struct {
	mu       sync.Mutex
	seq      int
	meals    []store.MealRecord
	workouts []store.WorkoutRecord

	readErr  error
	writeErr error
}

func (r *memRepo) nextID(prefix string) string {
	r.seq++
	return prefix + strconv.Itoa(r.seq)
}

func (r *memRepo) InsertMeal(_ context.Context, rec store.MealRecord) (store.MealRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return store.MealRecord{}, r.writeErr
	}
	rec.ID = r.nextID("m")
	r.meals = append(r.meals, rec)
	return rec, nil
}

func (r *memRepo) InsertWorkout(_ context.Context, rec store.WorkoutRecord) (store.WorkoutRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return store.WorkoutRecord{}, r.writeErr
	}
	rec.ID = r.nextID("w")
	r.workouts = append(r.workouts, rec)
	return rec, nil
}

func (r *memRepo) MealsByDate(ctx context.Context, date string) ([]store.MealRecord, error) {
	return r.MealsBetween(ctx, date, date)
}

func (r *memRepo) WorkoutsByDate(ctx context.Context, date string) ([]store.WorkoutRecord, error) {
	return r.WorkoutsBetween(ctx, date, date)
}

func (r *memRepo) MealsBetween(_ context.Context, from, to string) ([]store.MealRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, r.readErr
	}
	out := []store.MealRecord{}
	for _, m := range r.meals {
		if m.Date >= from && m.Date <= to {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memRepo) WorkoutsBetween(_ context.Context, from, to string) ([]store.WorkoutRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, r.readErr
	}
	out := []store.WorkoutRecord{}
	for _, w := range r.workouts {
		if w.Date >= from && w.Date <= to {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *memRepo) DeleteMeal(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	for i, m := range r.meals {
		if m.ID == id {
			r.meals = append(r.meals[:i], r.meals[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *memRepo) DeleteWorkout(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	for i, w := range r.workouts {
		if w.ID == id {
			r.workouts = append(r.workouts[:i], r.workouts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

var errStoreDown = errors.New("store unavailable")

func testProfile() UserProfile {
	return config.DefaultProfile()
}

func newTestExtraction(gen Generator) *ExtractionService {
	return NewExtractionService(gen, 0, logging.Discard())
}

func newTestJournal(repo Repository) *JournalService {
	return NewJournalService(repo, testProfile(), logging.Discard())
}
