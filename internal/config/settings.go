// Package config persists credentials, search configuration and user
// statistics in the autoapply data directory, and reads process settings
// from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Settings are process-level options read from the environment.
type Settings struct {
	Home        string
	Port        int
	Headless    bool
	BaseURL     string
	BrowserPath string
	Schedule    string
}

// LoadSettings reads settings from the environment, loading a .env file in
// the working directory first when one exists.
func LoadSettings() (Settings, error) {
	_ = godotenv.Load()

	home, err := Dir()
	if err != nil {
		return Settings{}, err
	}

	port, err := strconv.Atoi(getEnvOrDefault("AUTOAPPLY_PORT", "8000"))
	if err != nil || port <= 0 || port > 65535 {
		return Settings{}, fmt.Errorf("invalid AUTOAPPLY_PORT %q", os.Getenv("AUTOAPPLY_PORT"))
	}

	headless, err := strconv.ParseBool(getEnvOrDefault("AUTOAPPLY_HEADLESS", "false"))
	if err != nil {
		return Settings{}, fmt.Errorf("invalid AUTOAPPLY_HEADLESS %q: %w", os.Getenv("AUTOAPPLY_HEADLESS"), err)
	}

	return Settings{
		Home:        home,
		Port:        port,
		Headless:    headless,
		BaseURL:     strings.TrimRight(getEnvOrDefault("AUTOAPPLY_BASE_URL", "https://www.free-work.com"), "/"),
		BrowserPath: os.Getenv("AUTOAPPLY_BROWSER"),
		Schedule:    os.Getenv("AUTOAPPLY_SCHEDULE"),
	}, nil
}

// Dir returns the data directory, respecting AUTOAPPLY_HOME.
// Defaults to ~/.autoapply.
func Dir() (string, error) {
	if dir := os.Getenv("AUTOAPPLY_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".autoapply"), nil
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
