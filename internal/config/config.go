package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath      string
	CatalogPath string
	CacheDir    string
	OutputDir   string

	EmbedAPIBaseURL string
	EmbedModel      string
	EmbedTimeoutMs  int
	EmbedMaxRPS     int

	SemanticTopK       int
	SemanticMinScore   float64
	SemanticAttrFloor  float64
	FuzzyCodeThreshold float64
	FuzzyAttrThreshold float64
	ExactAttrThreshold float64
	DimToleranceMM     float64
	KeywordConfidence  float64
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		CatalogPath: getEnv("CATALOG_PATH", filepath.Join(cwd, "data", "catalog.json")),
		CacheDir:    getEnv("CACHE_DIR", filepath.Join(cwd, "data", "cache")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		EmbedAPIBaseURL: getEnv("EMBED_API_BASE_URL", "http://localhost:11434"),
		EmbedModel:      getEnv("EMBED_MODEL", "nomic-embed-text"),
		EmbedTimeoutMs:  getEnvInt("EMBED_TIMEOUT_MS", 30000),
		EmbedMaxRPS:     getEnvInt("EMBED_MAX_RPS", 0),

		SemanticTopK:       getEnvInt("SEMANTIC_TOP_K", 5),
		SemanticMinScore:   getEnvFloat("SEMANTIC_MIN_SCORE", 0.60),
		SemanticAttrFloor:  getEnvFloat("SEMANTIC_ATTR_FLOOR", 0.50),
		FuzzyCodeThreshold: getEnvFloat("FUZZY_CODE_THRESHOLD", 0.80),
		FuzzyAttrThreshold: getEnvFloat("FUZZY_ATTR_THRESHOLD", 0.80),
		ExactAttrThreshold: getEnvFloat("EXACT_ATTR_THRESHOLD", 0.50),
		DimToleranceMM:     getEnvFloat("DIM_TOLERANCE_MM", 5),
		KeywordConfidence:  getEnvFloat("KEYWORD_CONFIDENCE", 0.60),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
