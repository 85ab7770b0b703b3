package store

// The storage layer names columns in snake_case while records use the
// in-memory names. These pairs are the only place the two meet.

func MealRowFromRecord(r MealRecord) MealRow {
	return MealRow{
		ID:           r.ID,
		Date:         r.Date,
		Name:         r.Name,
		OriginalText: r.OriginalText,
		Calories:     r.Calories,
		Protein:      r.Protein,
		Carbs:        r.Carbs,
		Fat:          r.Fat,
		CreatedAt:    r.Timestamp,
	}
}

func (row MealRow) Record() MealRecord {
	return MealRecord{
		ID:           row.ID,
		Name:         row.Name,
		OriginalText: row.OriginalText,
		Calories:     row.Calories,
		Protein:      row.Protein,
		Carbs:        row.Carbs,
		Fat:          row.Fat,
		Timestamp:    row.CreatedAt,
		Date:         row.Date,
	}
}

func WorkoutRowFromRecord(r WorkoutRecord) WorkoutRow {
	return WorkoutRow{
		ID:              r.ID,
		Date:            r.Date,
		Name:            r.Name,
		OriginalText:    r.OriginalText,
		CaloriesBurned:  r.CaloriesBurned,
		DurationMinutes: r.DurationMinutes,
		Intensity:       string(r.Intensity),
		CreatedAt:       r.Timestamp,
	}
}

func (row WorkoutRow) Record() WorkoutRecord {
	return WorkoutRecord{
		ID:              row.ID,
		Name:            row.Name,
		OriginalText:    row.OriginalText,
		CaloriesBurned:  row.CaloriesBurned,
		DurationMinutes: row.DurationMinutes,
		Intensity:       Intensity(row.Intensity),
		Timestamp:       row.CreatedAt,
		Date:            row.Date,
	}
}
