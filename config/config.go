package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// EnvAPIKey overrides the API key from the config file.
	EnvAPIKey = "TRACKER_API_KEY"
	// EnvBaseURL overrides the backend base URL from the config file.
	EnvBaseURL = "TRACKER_BASE_URL"

	defaultSessionDBPath = "session.db"
	defaultUploadTimeout = 30
)

// Config represents the application configuration
type Config struct {
	// Base URL of the tracker API, e.g. "https://tracker.example.com/api/v1"
	BaseURL string `json:"base_url"`

	// API key attached to every request (can be set via TRACKER_API_KEY)
	APIKey string `json:"api_key"`

	// Path to the SQLite file holding the selected-user session
	SessionDBPath string `json:"session_db_path"`

	// Timeout budget in seconds for attachment and avatar uploads
	UploadTimeoutSeconds int `json:"upload_timeout_seconds"`
}

// UploadTimeout returns the upload budget as a duration.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSeconds) * time.Second
}

// LoadConfig loads the configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment overrides win over file values
	if envKey := os.Getenv(EnvAPIKey); envKey != "" {
		config.APIKey = envKey
	}
	if envURL := os.Getenv(EnvBaseURL); envURL != "" {
		config.BaseURL = envURL
	}

	if config.SessionDBPath == "" {
		config.SessionDBPath = defaultSessionDBPath
	}
	if config.UploadTimeoutSeconds <= 0 {
		config.UploadTimeoutSeconds = defaultUploadTimeout
	}

	// Make session path absolute if it's relative
	if !filepath.IsAbs(config.SessionDBPath) {
		configDir := filepath.Dir(path)
		config.SessionDBPath = filepath.Join(configDir, config.SessionDBPath)
	}

	if config.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required (set it in %s or via %s)", path, EnvBaseURL)
	}

	return &config, nil
}

// SaveConfig saves the configuration to a JSON file
func SaveConfig(config *Config, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig creates a default configuration file if it doesn't exist
func CreateDefaultConfig(path string) error {
	// Check if the file already exists
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, don't overwrite
	}

	config := &Config{
		BaseURL:              "",
		APIKey:               "",
		SessionDBPath:        defaultSessionDBPath,
		UploadTimeoutSeconds: defaultUploadTimeout,
	}

	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return SaveConfig(config, path)
}
