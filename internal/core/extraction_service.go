package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"nutritrack.io/nutritrack/internal/logging"
	"nutritrack.io/nutritrack/internal/store"
)

const (
	extractionSystemInstruction = "You are a nutrition and fitness data extractor. " +
		"Return only the requested JSON object. Estimate realistic values for the portion or session described. " +
		"All numbers are non-negative; macronutrients are in grams."

	coachSystemInstruction = "You are a friendly, concise nutrition coach. Answer in plain text without markdown."

	summaryTemperature = 0.7
	adviceTemperature  = 0.9
)

// Structured results. Every field is required in the model output.

type MealExtraction struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

type MealImageExtraction struct {
	Name        string  `json:"name"`
	Explanation string  `json:"explanation"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
}

type WorkoutExtraction struct {
	Name            string          `json:"name"`
	CaloriesBurned  float64         `json:"caloriesBurned"`
	DurationMinutes float64         `json:"durationMinutes"`
	Intensity       store.Intensity `json:"intensity"`
}

var (
	mealSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":     {Type: genai.TypeString, Description: "Short display name of the meal"},
			"calories": {Type: genai.TypeNumber, Description: "Total kilocalories"},
			"protein":  {Type: genai.TypeNumber, Description: "Protein in grams"},
			"carbs":    {Type: genai.TypeNumber, Description: "Carbohydrates in grams"},
			"fat":      {Type: genai.TypeNumber, Description: "Fat in grams"},
		},
		Required: []string{"name", "calories", "protein", "carbs", "fat"},
	}

	mealImageSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        {Type: genai.TypeString, Description: "Short display name of the meal"},
			"explanation": {Type: genai.TypeString, Description: "One or two sentences on what was identified and how it was estimated"},
			"calories":    {Type: genai.TypeNumber, Description: "Total kilocalories"},
			"protein":     {Type: genai.TypeNumber, Description: "Protein in grams"},
			"carbs":       {Type: genai.TypeNumber, Description: "Carbohydrates in grams"},
			"fat":         {Type: genai.TypeNumber, Description: "Fat in grams"},
		},
		Required: []string{"name", "explanation", "calories", "protein", "carbs", "fat"},
	}

	workoutSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":            {Type: genai.TypeString, Description: "Short display name of the workout"},
			"caloriesBurned":  {Type: genai.TypeNumber, Description: "Estimated kilocalories burned"},
			"durationMinutes": {Type: genai.TypeNumber, Description: "Duration in minutes"},
			"intensity": {
				Type: genai.TypeString,
				Enum: []string{string(store.IntensityLow), string(store.IntensityModerate), string(store.IntensityHigh)},
			},
		},
		Required: []string{"name", "caloriesBurned", "durationMinutes", "intensity"},
	}
)

// ExtractionService turns free text or photos into structured records.
// Numeric paths run at temperature 0 with a response schema; prose paths
// run without a schema.
type ExtractionService struct {
	gen     Generator
	timeout time.Duration
	log     logging.Logger
}

func NewExtractionService(gen Generator, timeout time.Duration, log logging.Logger) *ExtractionService {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &ExtractionService{gen: gen, timeout: timeout, log: log}
}

func (s *ExtractionService) ExtractMeal(ctx context.Context, text string) (MealExtraction, error) {
	const op = "meal"
	text = strings.TrimSpace(text)
	if text == "" {
		return MealExtraction{}, fmt.Errorf("%w: meal description is empty", ErrInvalidInput)
	}

	prompt := fmt.Sprintf("Extract the nutritional information for this meal description: %q. "+
		"Give the meal a short name and estimate total calories, protein, carbs and fat for everything described.", text)

	raw, err := s.generate(ctx, op, GenerationRequest{
		SystemInstruction: extractionSystemInstruction,
		Prompt:            prompt,
		Temperature:       0,
		Schema:            mealSchema,
	})
	if err != nil {
		return MealExtraction{}, err
	}

	var p struct {
		Name     *string  `json:"name"`
		Calories *float64 `json:"calories"`
		Protein  *float64 `json:"protein"`
		Carbs    *float64 `json:"carbs"`
		Fat      *float64 `json:"fat"`
	}
	if err := decodeObject(raw, &p); err != nil {
		return MealExtraction{}, &ExtractionError{Op: op, Err: err}
	}

	v := validator{op: op}
	out := MealExtraction{
		Name:     v.name("name", p.Name),
		Calories: v.amount("calories", p.Calories),
		Protein:  v.amount("protein", p.Protein),
		Carbs:    v.amount("carbs", p.Carbs),
		Fat:      v.amount("fat", p.Fat),
	}
	if v.err != nil {
		return MealExtraction{}, v.err
	}
	return out, nil
}

// ExtractMealFromImage analyses a photo given as a data URI
// (data:image/jpeg;base64,...). text is optional extra context.
func (s *ExtractionService) ExtractMealFromImage(ctx context.Context, imageData, text string) (MealImageExtraction, error) {
	const op = "meal image"
	img, err := parseDataURI(imageData)
	if err != nil {
		return MealImageExtraction{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	prompt := "Identify the food in this photo and estimate its nutritional content for the visible portion. " +
		"Explain briefly what you identified."
	if text = strings.TrimSpace(text); text != "" {
		prompt += fmt.Sprintf(" Additional context from the user: %q.", text)
	}

	raw, err := s.generate(ctx, op, GenerationRequest{
		SystemInstruction: extractionSystemInstruction,
		Prompt:            prompt,
		Image:             img,
		Temperature:       0,
		Schema:            mealImageSchema,
	})
	if err != nil {
		return MealImageExtraction{}, err
	}

	var p struct {
		Name        *string  `json:"name"`
		Explanation *string  `json:"explanation"`
		Calories    *float64 `json:"calories"`
		Protein     *float64 `json:"protein"`
		Carbs       *float64 `json:"carbs"`
		Fat         *float64 `json:"fat"`
	}
	if err := decodeObject(raw, &p); err != nil {
		return MealImageExtraction{}, &ExtractionError{Op: op, Err: err}
	}

	v := validator{op: op}
	out := MealImageExtraction{
		Name:        v.name("name", p.Name),
		Explanation: v.text("explanation", p.Explanation),
		Calories:    v.amount("calories", p.Calories),
		Protein:     v.amount("protein", p.Protein),
		Carbs:       v.amount("carbs", p.Carbs),
		Fat:         v.amount("fat", p.Fat),
	}
	if v.err != nil {
		return MealImageExtraction{}, v.err
	}
	return out, nil
}

func (s *ExtractionService) ExtractWorkout(ctx context.Context, text string) (WorkoutExtraction, error) {
	const op = "workout"
	text = strings.TrimSpace(text)
	if text == "" {
		return WorkoutExtraction{}, fmt.Errorf("%w: workout description is empty", ErrInvalidInput)
	}

	prompt := fmt.Sprintf("Extract the exercise data for this workout description: %q. "+
		"Give it a short name, estimate calories burned and duration in minutes, and rate the intensity as Low, Moderate or High.", text)

	raw, err := s.generate(ctx, op, GenerationRequest{
		SystemInstruction: extractionSystemInstruction,
		Prompt:            prompt,
		Temperature:       0,
		Schema:            workoutSchema,
	})
	if err != nil {
		return WorkoutExtraction{}, err
	}

	var p struct {
		Name            *string  `json:"name"`
		CaloriesBurned  *float64 `json:"caloriesBurned"`
		DurationMinutes *float64 `json:"durationMinutes"`
		Intensity       *string  `json:"intensity"`
	}
	if err := decodeObject(raw, &p); err != nil {
		return WorkoutExtraction{}, &ExtractionError{Op: op, Err: err}
	}

	v := validator{op: op}
	out := WorkoutExtraction{
		Name:            v.name("name", p.Name),
		CaloriesBurned:  v.amount("caloriesBurned", p.CaloriesBurned),
		DurationMinutes: v.amount("durationMinutes", p.DurationMinutes),
		Intensity:       v.intensity("intensity", p.Intensity),
	}
	if v.err != nil {
		return WorkoutExtraction{}, v.err
	}
	return out, nil
}

// Summarize returns a short motivational line for a day summary.
func (s *ExtractionService) Summarize(ctx context.Context, summary string) (string, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("%w: summary is empty", ErrInvalidInput)
	}
	prompt := "Here is today's nutrition and activity summary:\n\n" + summary +
		"\n\nWrite one or two short, encouraging sentences about this progress."
	return s.prose(ctx, "summary", prompt, summaryTemperature)
}

// GetAdvice asks for a few concrete suggestions for the rest of the day.
func (s *ExtractionService) GetAdvice(ctx context.Context, stats DailyStats, profile UserProfile) (string, error) {
	totals := ComputeTotals(stats)

	var b strings.Builder
	b.WriteString("USER PROFILE:\n")
	fmt.Fprintf(&b, "- Weight: %.1f kg\n", profile.WeightKg)
	fmt.Fprintf(&b, "- Height: %.0f cm\n", profile.HeightCm)
	fmt.Fprintf(&b, "- Goal weight: %.1f kg\n", profile.GoalWeightKg)
	fmt.Fprintf(&b, "- Daily targets: %.0f kcal, %.0f g protein, %.0f g carbs, %.0f g fat\n\n",
		profile.CalorieGoal, profile.ProteinGoal, profile.CarbsGoal, profile.FatGoal)

	fmt.Fprintf(&b, "TODAY (%s):\n", stats.Date)
	fmt.Fprintf(&b, "- Consumed: %.0f kcal, %.0f g protein, %.0f g carbs, %.0f g fat\n",
		totals.ConsumedCals, totals.Protein, totals.Carbs, totals.Fat)
	fmt.Fprintf(&b, "- Burned through exercise: %.0f kcal\n", totals.BurnedCals)
	fmt.Fprintf(&b, "- Net: %.0f kcal\n", totals.NetCals)
	for _, m := range stats.Meals {
		fmt.Fprintf(&b, "- Meal: %s (%.0f kcal)\n", m.Name, m.Calories)
	}
	for _, w := range stats.Workouts {
		fmt.Fprintf(&b, "- Workout: %s, %.0f min, %s\n", w.Name, w.DurationMinutes, w.Intensity)
	}
	b.WriteString("\nGive three short, practical suggestions for the rest of the day to stay on target.")

	return s.prose(ctx, "advice", b.String(), adviceTemperature)
}

func (s *ExtractionService) prose(ctx context.Context, op, prompt string, temperature float32) (string, error) {
	raw, err := s.generate(ctx, op, GenerationRequest{
		SystemInstruction: coachSystemInstruction,
		Prompt:            prompt,
		Temperature:       temperature,
	})
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(raw)
	if out == "" {
		return "", extractionErr(op, "empty response")
	}
	return out, nil
}

func (s *ExtractionService) generate(ctx context.Context, op string, req GenerationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.gen.Generate(ctx, req)
	if err != nil {
		s.log.Warn(ctx, "generation failed", "op", op, "err", err)
		return "", &ExtractionError{Op: op, Err: err}
	}
	s.log.Debug(ctx, "generation finished", "op", op, "took", time.Since(start), "bytes", len(raw))
	return raw, nil
}

// decodeObject parses a model response into v. An empty response is
// treated as an empty object so that required-field checks report it.
func decodeObject(raw string, v any) error {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)
	if body == "" {
		body = "{}"
	}
	if !strings.HasPrefix(body, "{") {
		return fmt.Errorf("response is not a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("unparseable response: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}

// validator collects the first problem found in a decoded payload.
type validator struct {
	op  string
	err error
}

func (v *validator) fail(format string, args ...any) {
	if v.err == nil {
		v.err = extractionErr(v.op, format, args...)
	}
}

func (v *validator) text(field string, p *string) string {
	if p == nil {
		v.fail("missing field %q", field)
		return ""
	}
	return strings.TrimSpace(*p)
}

func (v *validator) name(field string, p *string) string {
	s := v.text(field, p)
	if p != nil && s == "" {
		v.fail("field %q is empty", field)
	}
	return s
}

func (v *validator) amount(field string, p *float64) float64 {
	if p == nil {
		v.fail("missing field %q", field)
		return 0
	}
	n := *p
	if math.IsNaN(n) || math.IsInf(n, 0) {
		v.fail("field %q is not a finite number", field)
		return 0
	}
	if n < 0 {
		v.fail("field %q is negative: %v", field, n)
		return 0
	}
	return n
}

func (v *validator) intensity(field string, p *string) store.Intensity {
	if p == nil {
		v.fail("missing field %q", field)
		return ""
	}
	in, ok := store.ParseIntensity(*p)
	if !ok {
		v.fail("field %q has unsupported value %q", field, *p)
		return ""
	}
	return in
}

// parseDataURI decodes data:<mime>;base64,<payload>.
func parseDataURI(uri string) (*InlineImage, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "data:") {
		return nil, fmt.Errorf("image must be a data URI")
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("data URI has no payload")
	}
	mime, params, _ := strings.Cut(header, ";")
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("unsupported media type %q", mime)
	}
	if params != "base64" {
		return nil, fmt.Errorf("data URI must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image payload is empty")
	}
	return &InlineImage{MIMEType: mime, Data: data}, nil
}
