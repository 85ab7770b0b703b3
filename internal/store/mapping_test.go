package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMealMapping_RoundTrip(t *testing.T) {
	rec := MealRecord{
		ID:           "m1",
		Name:         "Eggs on toast",
		OriginalText: "2 eggs and toast",
		Calories:     320.5,
		Protein:      18,
		Carbs:        24.25,
		Fat:          15,
		Timestamp:    1715000000123,
		Date:         "2024-05-06",
	}

	row := MealRowFromRecord(rec)
	assert.Equal(t, rec.OriginalText, row.OriginalText)
	assert.Equal(t, rec.Timestamp, row.CreatedAt)
	assert.Equal(t, rec, row.Record())
	assert.Equal(t, row, MealRowFromRecord(row.Record()))
}

func TestWorkoutMapping_RoundTrip(t *testing.T) {
	rec := WorkoutRecord{
		ID:              "w1",
		Name:            "Run",
		OriginalText:    "ran 5k in 30 minutes",
		CaloriesBurned:  350,
		DurationMinutes: 30,
		Intensity:       IntensityHigh,
		Timestamp:       1715000000456,
		Date:            "2024-05-06",
	}

	row := WorkoutRowFromRecord(rec)
	assert.Equal(t, rec.CaloriesBurned, row.CaloriesBurned)
	assert.Equal(t, "High", row.Intensity)
	assert.Equal(t, rec, row.Record())
	assert.Equal(t, row, WorkoutRowFromRecord(row.Record()))
}

// The two shapes must differ only in naming convention.
func TestMapping_FieldNames(t *testing.T) {
	rec := WorkoutRecord{ID: "w1", Name: "Row", OriginalText: "rowing", CaloriesBurned: 200, DurationMinutes: 20, Intensity: IntensityModerate, Timestamp: 1, Date: "2024-05-06"}

	entity := jsonKeys(t, rec)
	stored := jsonKeys(t, WorkoutRowFromRecord(rec))

	assert.Contains(t, entity, "caloriesBurned")
	assert.Contains(t, entity, "originalText")
	assert.Contains(t, entity, "durationMinutes")
	assert.Contains(t, stored, "calories_burned")
	assert.Contains(t, stored, "original_text")
	assert.Contains(t, stored, "duration_minutes")
	assert.Contains(t, stored, "created_at")
	assert.Len(t, stored, len(entity))

	var e map[string]any
	var s map[string]any
	require.NoError(t, json.Unmarshal(mustJSON(t, rec), &e))
	require.NoError(t, json.Unmarshal(mustJSON(t, WorkoutRowFromRecord(rec)), &s))
	assert.Equal(t, e["caloriesBurned"], s["calories_burned"])
	assert.Equal(t, e["timestamp"], s["created_at"])
}

func TestParseIntensity(t *testing.T) {
	cases := map[string]Intensity{
		"Low":      IntensityLow,
		"moderate": IntensityModerate,
		" HIGH ":   IntensityHigh,
		"hIgH":     IntensityHigh,
	}
	for in, want := range cases {
		got, ok := ParseIntensity(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
		assert.True(t, got.Valid())
	}

	for _, in := range []string{"", "Medium", "Very High", "extreme", "low-ish"} {
		_, ok := ParseIntensity(in)
		assert.False(t, ok, in)
	}
	assert.False(t, Intensity("high").Valid())
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func jsonKeys(t *testing.T, v any) []string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(mustJSON(t, v), &m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
