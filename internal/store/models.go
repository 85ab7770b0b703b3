package store

import "strings"

// Intensity is the effort level of a workout.
type Intensity string

const (
	IntensityLow      Intensity = "Low"
	IntensityModerate Intensity = "Moderate"
	IntensityHigh     Intensity = "High"
)

// Intensities lists the accepted values in ascending order.
var Intensities = []Intensity{IntensityLow, IntensityModerate, IntensityHigh}

// ParseIntensity matches s case-insensitively against the three levels.
// Anything else is rejected; there is no nearest-value fallback.
func ParseIntensity(s string) (Intensity, bool) {
	s = strings.TrimSpace(s)
	for _, in := range Intensities {
		if strings.EqualFold(s, string(in)) {
			return in, true
		}
	}
	return "", false
}

// Valid reports whether i is one of the canonical levels.
func (i Intensity) Valid() bool {
	switch i {
	case IntensityLow, IntensityModerate, IntensityHigh:
		return true
	}
	return false
}

// MealRecord is a logged meal. ID is assigned by the store.
type MealRecord struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	OriginalText string  `json:"originalText"`
	Calories     float64 `json:"calories"`
	Protein      float64 `json:"protein"`
	Carbs        float64 `json:"carbs"`
	Fat          float64 `json:"fat"`
	Timestamp    int64   `json:"timestamp"` // epoch millis
	Date         string  `json:"date"`
}

// WorkoutRecord is a logged workout. ID is assigned by the store.
type WorkoutRecord struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	OriginalText    string    `json:"originalText"`
	CaloriesBurned  float64   `json:"caloriesBurned"`
	DurationMinutes float64   `json:"durationMinutes"`
	Intensity       Intensity `json:"intensity"`
	Timestamp       int64     `json:"timestamp"` // epoch millis
	Date            string    `json:"date"`
}

// MealRow is a meals row as it is laid out in storage.
type MealRow struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Name         string  `json:"name"`
	OriginalText string  `json:"original_text"`
	Calories     float64 `json:"calories"`
	Protein      float64 `json:"protein"`
	Carbs        float64 `json:"carbs"`
	Fat          float64 `json:"fat"`
	CreatedAt    int64   `json:"created_at"`
}

// WorkoutRow is a workouts row as it is laid out in storage.
type WorkoutRow struct {
	ID              string  `json:"id"`
	Date            string  `json:"date"`
	Name            string  `json:"name"`
	OriginalText    string  `json:"original_text"`
	CaloriesBurned  float64 `json:"calories_burned"`
	DurationMinutes float64 `json:"duration_minutes"`
	Intensity       string  `json:"intensity"`
	CreatedAt       int64   `json:"created_at"`
}
