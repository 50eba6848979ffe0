package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default extraction patterns. These are heuristics tuned against the
// tender documents we have seen so far; both can be overridden per
// deployment without a rebuild.
const (
	DefaultOZPattern      = `^(\d{2,}\.\d{2,}\.\d{2,}(?:\.\d{2,})?\.?)\s+(.*)`
	DefaultQtyLinePattern = `^\s*([\d\.,]+)\s*([a-zA-Z²³]+|m2|m3|Stk|psch|lfm|h|t)\s*(\.{2,}|Nur Einh\.|Einh\.-Pr\.)?`
)

type Config struct {
	DBPath    string
	OutputDir string

	AnthropicAPIKey string
	AnthropicModel  string
	AIMaxTokens     int
	AIRateLimitRPS  int

	// Matcher tier cut-offs: score < Low => NONE, score > High => HIGH.
	MatchLowThreshold  int
	MatchHighThreshold int

	// Pages shorter than this many characters are skipped as noise.
	MinPageChars int

	OZPattern      *regexp.Regexp
	QtyLinePattern *regexp.Regexp
	// Quantity lines containing this substring are treated as page
	// footers ("Seite 3 von 12") and never close an item.
	QtyExcludeMarker string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "prices.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		AIMaxTokens:     getEnvInt("AI_MAX_TOKENS", 4096),
		AIRateLimitRPS:  getEnvInt("AI_RATE_LIMIT_RPS", 2),

		MatchLowThreshold:  getEnvInt("MATCH_LOW_THRESHOLD", 50),
		MatchHighThreshold: getEnvInt("MATCH_HIGH_THRESHOLD", 90),

		MinPageChars: getEnvInt("MIN_PAGE_CHARS", 50),

		QtyExcludeMarker: getEnv("QTY_EXCLUDE_MARKER", "von"),
	}

	ozPattern := getEnv("OZ_PATTERN", DefaultOZPattern)
	cfg.OZPattern, err = regexp.Compile(ozPattern)
	if err != nil {
		return Config{}, fmt.Errorf("invalid OZ_PATTERN: %w", err)
	}

	qtyPattern := getEnv("QTY_LINE_PATTERN", DefaultQtyLinePattern)
	cfg.QtyLinePattern, err = regexp.Compile(qtyPattern)
	if err != nil {
		return Config{}, fmt.Errorf("invalid QTY_LINE_PATTERN: %w", err)
	}

	return cfg, nil
}

// AIConfigured reports whether the AI collaborator can be constructed at
// all. Unconfigured AI short-circuits every AI path to its fallback.
func (c Config) AIConfigured() bool {
	return strings.TrimSpace(c.AnthropicAPIKey) != ""
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
