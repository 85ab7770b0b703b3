package core

import (
	"time"

	"nutritrack.io/nutritrack/internal/config"
	"nutritrack.io/nutritrack/internal/store"
	"nutritrack.io/nutritrack/internal/utils"
)

// UserProfile is the owner's static profile and daily targets.
type UserProfile = config.Profile

// DailyStats is everything recorded for one calendar day plus the goals
// it is measured against. It is derived, never stored.
type DailyStats struct {
	Date        string                `json:"date"`
	Meals       []store.MealRecord    `json:"meals"`
	Workouts    []store.WorkoutRecord `json:"workouts"`
	CalorieGoal float64               `json:"calorieGoal"`
	ProteinGoal float64               `json:"proteinGoal"`
}

func emptyDay(date string, p UserProfile) DailyStats {
	return DailyStats{
		Date:        date,
		Meals:       []store.MealRecord{},
		Workouts:    []store.WorkoutRecord{},
		CalorieGoal: p.CalorieGoal,
		ProteinGoal: p.ProteinGoal,
	}
}

// DayTotals are the aggregates of one day.
type DayTotals struct {
	Date            string  `json:"date"`
	ConsumedCals    float64 `json:"consumedCals"`
	BurnedCals      float64 `json:"burnedCals"`
	NetCals         float64 `json:"netCals"`
	Protein         float64 `json:"protein"`
	Carbs           float64 `json:"carbs"`
	Fat             float64 `json:"fat"`
	MealCount       int     `json:"mealCount"`
	WorkoutCount    int     `json:"workoutCount"`
	CalorieProgress float64 `json:"calorieProgress"` // net as % of goal
	ProteinProgress float64 `json:"proteinProgress"`
}

// RangeSummary sums a run of days; averages are per entry.
type RangeSummary struct {
	Days          int     `json:"days"`
	ActiveDays    int     `json:"activeDays"`
	TotalConsumed float64 `json:"totalConsumed"`
	TotalBurned   float64 `json:"totalBurned"`
	TotalNet      float64 `json:"totalNet"`
	TotalProtein  float64 `json:"totalProtein"`
	TotalCarbs    float64 `json:"totalCarbs"`
	TotalFat      float64 `json:"totalFat"`
	AvgConsumed   float64 `json:"avgConsumed"`
	AvgBurned     float64 `json:"avgBurned"`
	AvgNet        float64 `json:"avgNet"`
	AvgProtein    float64 `json:"avgProtein"`
}

func ComputeTotals(s DailyStats) DayTotals {
	t := DayTotals{
		Date:         s.Date,
		MealCount:    len(s.Meals),
		WorkoutCount: len(s.Workouts),
	}
	for _, m := range s.Meals {
		t.ConsumedCals += m.Calories
		t.Protein += m.Protein
		t.Carbs += m.Carbs
		t.Fat += m.Fat
	}
	for _, w := range s.Workouts {
		t.BurnedCals += w.CaloriesBurned
	}
	t.NetCals = t.ConsumedCals - t.BurnedCals
	t.CalorieProgress = percent(t.NetCals, s.CalorieGoal)
	t.ProteinProgress = percent(t.Protein, s.ProteinGoal)
	return t
}

func percent(v, goal float64) float64 {
	if goal <= 0 || v <= 0 {
		return 0
	}
	return v / goal * 100
}

// WeekDates lists Monday through Sunday of the week containing anchor.
func WeekDates(anchor time.Time) []string {
	start := utils.WeekStart(anchor)
	return utils.DaysBetween(start, start.AddDate(0, 0, 6))
}

// WeeklyRollup always returns seven entries, Monday first. Dates with no
// data report zeros.
func WeeklyRollup(anchor time.Time, days []DailyStats) []DayTotals {
	return rollup(WeekDates(anchor), days)
}

// MonthlyRollup returns one entry per calendar day of the given month.
func MonthlyRollup(year int, month time.Month, days []DailyStats) []DayTotals {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return rollup(utils.DaysBetween(first, first.AddDate(0, 1, -1)), days)
}

func rollup(dates []string, days []DailyStats) []DayTotals {
	byDate := make(map[string]DailyStats, len(days))
	for _, d := range days {
		byDate[d.Date] = d
	}

	out := make([]DayTotals, 0, len(dates))
	for _, date := range dates {
		if d, ok := byDate[date]; ok {
			out = append(out, ComputeTotals(d))
			continue
		}
		out = append(out, DayTotals{Date: date})
	}
	return out
}

func SummarizeRange(days []DayTotals) RangeSummary {
	s := RangeSummary{Days: len(days)}
	for _, d := range days {
		if d.MealCount > 0 || d.WorkoutCount > 0 {
			s.ActiveDays++
		}
		s.TotalConsumed += d.ConsumedCals
		s.TotalBurned += d.BurnedCals
		s.TotalNet += d.NetCals
		s.TotalProtein += d.Protein
		s.TotalCarbs += d.Carbs
		s.TotalFat += d.Fat
	}
	if s.Days > 0 {
		n := float64(s.Days)
		s.AvgConsumed = s.TotalConsumed / n
		s.AvgBurned = s.TotalBurned / n
		s.AvgNet = s.TotalNet / n
		s.AvgProtein = s.TotalProtein / n
	}
	return s
}
