package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Config holds all application configuration
type Config struct {
	// Users is the fixed set of people sharing the library, in display order
	Users []string

	// Language is the target language for localized metadata (BCP-47, e.g. "es-ES")
	Language language.Tag

	// TMDB (general movie catalog)
	TMDBAPIKey  string
	TMDBBaseURL string

	// OMDb (secondary movie catalog)
	OMDBAPIKey  string
	OMDBBaseURL string

	// TVMaze (series catalog, no key required)
	TVMazeBaseURL string

	// YouTube (video search + oEmbed validation)
	YouTubeAPIKey string

	// Gemini (AI completion service)
	GeminiAPIKey string
	GeminiModel  string

	// Search
	SearchTimeoutSeconds int // Per-provider bound (default: 5)

	// Scheduler
	ReconcileSchedule string // Cron expression for the full reload (default: every 5 minutes)
	EnrichSchedule    string // Cron expression for the unenriched backlog sweep (default: every 15 minutes)

	// Server
	ServerPort string

	// Paths
	DatabaseFile  string // $CONFIG_DIR/watchduo.db
	TitleDenyFile string // $CONFIG_DIR/title_deny.txt

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	viper.SetDefault("USERS", "ana,luis")
	viper.SetDefault("LANGUAGE", "es-ES")
	viper.SetDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3")
	viper.SetDefault("OMDB_BASE_URL", "https://www.omdbapi.com")
	viper.SetDefault("TVMAZE_BASE_URL", "https://api.tvmaze.com")
	viper.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	viper.SetDefault("SEARCH_TIMEOUT_SECONDS", 5)
	viper.SetDefault("RECONCILE_SCHEDULE", "*/5 * * * *")
	viper.SetDefault("ENRICH_SCHEDULE", "*/15 * * * *")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "watchduo")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	lang, err := language.Parse(viper.GetString("LANGUAGE"))
	if err != nil {
		return nil, fmt.Errorf("invalid LANGUAGE: %w", err)
	}

	config := &Config{
		Users:    ParseUsers(viper.GetString("USERS")),
		Language: lang,

		TMDBAPIKey:  viper.GetString("TMDB_API_KEY"),
		TMDBBaseURL: viper.GetString("TMDB_BASE_URL"),

		OMDBAPIKey:  viper.GetString("OMDB_API_KEY"),
		OMDBBaseURL: viper.GetString("OMDB_BASE_URL"),

		TVMazeBaseURL: viper.GetString("TVMAZE_BASE_URL"),

		YouTubeAPIKey: viper.GetString("YOUTUBE_API_KEY"),

		GeminiAPIKey: viper.GetString("GEMINI_API_KEY"),
		GeminiModel:  viper.GetString("GEMINI_MODEL"),

		SearchTimeoutSeconds: viper.GetInt("SEARCH_TIMEOUT_SECONDS"),

		ReconcileSchedule: viper.GetString("RECONCILE_SCHEDULE"),
		EnrichSchedule:    viper.GetString("ENRICH_SCHEDULE"),

		ServerPort: viper.GetString("SERVER_PORT"),

		DatabaseFile:  filepath.Join(configDir, "watchduo.db"),
		TitleDenyFile: filepath.Join(configDir, "title_deny.txt"),

		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the invariants the rest of the application relies on
func (c *Config) Validate() error {
	if len(c.Users) == 0 {
		return fmt.Errorf("USERS must name at least one user")
	}
	seen := make(map[string]bool, len(c.Users))
	for _, user := range c.Users {
		if seen[user] {
			return fmt.Errorf("USERS contains duplicate user %q", user)
		}
		seen[user] = true
	}
	if c.SearchTimeoutSeconds <= 0 {
		return fmt.Errorf("SEARCH_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// ParseUsers splits a comma separated user list, dropping blanks
func ParseUsers(raw string) []string {
	var users []string
	for _, part := range strings.Split(raw, ",") {
		user := strings.ToLower(strings.TrimSpace(part))
		if user != "" {
			users = append(users, user)
		}
	}
	return users
}
