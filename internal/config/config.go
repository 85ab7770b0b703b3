package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string
	GeminiModel  string
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
	JWTSecret    string
	OwnerID      string

	AITimeout    time.Duration
	StoreTimeout time.Duration
	StoreRetries int

	Profile Profile
}

// Profile is the static owner profile. Goals fall back to these values
// whenever a day cannot be loaded.
type Profile struct {
	WeightKg     float64 `json:"weightKg"`
	HeightCm     float64 `json:"heightCm"`
	GoalWeightKg float64 `json:"goalWeightKg"`
	CalorieGoal  float64 `json:"calorieGoal"`
	ProteinGoal  float64 `json:"proteinGoal"`
	CarbsGoal    float64 `json:"carbsGoal"`
	FatGoal      float64 `json:"fatGoal"`
}

var AppConfig Config

var (
	ErrMissingGeminiKey   = errors.New("GEMINI_API_KEY environment variable is required")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")
)

func DefaultProfile() Profile {
	return Profile{
		WeightKg:     80,
		HeightCm:     180,
		GoalWeightKg: 75,
		CalorieGoal:  2200,
		ProteinGoal:  150,
		CarbsGoal:    220,
		FatGoal:      70,
	}
}

// LoadConfig fills AppConfig from .env and the environment. Missing
// secrets stop the process here rather than at the first request.
func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	AppConfig = cfg
}

// Load reads the configuration from the environment without touching
// AppConfig.
func Load() (Config, error) {
	def := DefaultProfile()
	cfg := Config{
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		DatabaseURL:  getEnv("DATABASE_URL", "nutritrack.db"),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		OwnerID:      getEnv("OWNER_ID", "owner"),
		AITimeout:    getEnvAsDuration("AI_TIMEOUT", 45*time.Second),
		StoreTimeout: getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),
		StoreRetries: getEnvAsInt("STORE_RETRIES", 2),
		Profile: Profile{
			WeightKg:     getEnvAsFloat("PROFILE_WEIGHT_KG", def.WeightKg),
			HeightCm:     getEnvAsFloat("PROFILE_HEIGHT_CM", def.HeightCm),
			GoalWeightKg: getEnvAsFloat("PROFILE_GOAL_WEIGHT_KG", def.GoalWeightKg),
			CalorieGoal:  getEnvAsFloat("PROFILE_CALORIE_GOAL", def.CalorieGoal),
			ProteinGoal:  getEnvAsFloat("PROFILE_PROTEIN_GOAL", def.ProteinGoal),
			CarbsGoal:    getEnvAsFloat("PROFILE_CARBS_GOAL", def.CarbsGoal),
			FatGoal:      getEnvAsFloat("PROFILE_FAT_GOAL", def.FatGoal),
		},
	}

	if cfg.GeminiAPIKey == "" {
		return cfg, ErrMissingGeminiKey
	}
	if cfg.DatabaseURL == "" {
		return cfg, ErrMissingDatabaseURL
	}
	if cfg.StoreRetries < 0 {
		cfg.StoreRetries = 0
	}
	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil && value >= 0 {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}
