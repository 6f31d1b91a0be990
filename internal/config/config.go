// Package config provides configuration loading for the server and CLI.
// Values come from an optional JSON file, overridden by environment
// variables, with defaults rooted under the data directory.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds everything the pipeline needs to run. All fields are
// optional in the file; missing values fall back to defaults.
type Config struct {
	// Paths
	DataDir        string `json:"data_dir,omitempty"`         // Root for hoard, queue and sessions
	HoardPath      string `json:"hoard_path,omitempty"`       // Path to hoard.json
	QueueDir       string `json:"queue_dir,omitempty"`        // Durable job queue directory
	SessionDir     string `json:"session_dir,omitempty"`      // Generation session directories
	TemplateDir    string `json:"template_dir,omitempty"`     // Resume HTML templates
	ResumeDataPath string `json:"resume_data_path,omitempty"` // Candidate resume.json

	// Server
	Port int `json:"port,omitempty"`

	// Behavior
	APIKey              string `json:"api_key,omitempty"`       // Gemini API key
	UseBrowser          bool   `json:"use_browser,omitempty"`   // Headless browser fallback for URL ingestion
	PollIntervalSeconds int    `json:"poll_interval,omitempty"` // Queue poll interval

	// Logging
	LogPath    string `json:"log_path,omitempty"`
	Production bool   `json:"production,omitempty"`
}

// DefaultConfig returns a config rooted under ./data.
func DefaultConfig() *Config {
	return (&Config{DataDir: "data"}).withDerivedPaths()
}

// Load reads configuration. A missing file is not an error; the defaults,
// adjusted by environment variables, are returned.
func Load(path string) (*Config, error) {
	cfg := &Config{DataDir: "data"}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg.withDerivedPaths(), nil
}

// applyEnv overrides file values from the environment. GEMINI_API_KEY is
// read last so the key never has to live in the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("STASHBOARD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("STASHBOARD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("STASHBOARD_LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("STASHBOARD_PRODUCTION"); v != "" {
		c.Production = v == "1" || v == "true"
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
}

// withDerivedPaths fills unset paths and values from DataDir.
func (c *Config) withDerivedPaths() *Config {
	if c.HoardPath == "" {
		c.HoardPath = filepath.Join(c.DataDir, "hoard.json")
	}
	if c.QueueDir == "" {
		c.QueueDir = filepath.Join(c.DataDir, "queue")
	}
	if c.SessionDir == "" {
		c.SessionDir = filepath.Join(c.DataDir, "sessions")
	}
	if c.TemplateDir == "" {
		c.TemplateDir = filepath.Join(c.DataDir, "templates")
	}
	if c.ResumeDataPath == "" {
		c.ResumeDataPath = filepath.Join(c.DataDir, "resume.json")
	}
	if c.LogPath == "" {
		c.LogPath = filepath.Join(c.DataDir, "stashboard.log")
	}
	if c.Port == 0 {
		c.Port = 3000
	}
	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = 2
	}
	return c
}

// Validate checks value ranges and that explicitly configured paths exist.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: port %d out of range", c.Port)
	}
	if c.PollIntervalSeconds < 1 {
		return fmt.Errorf("config error: poll_interval must be at least 1 second")
	}
	return nil
}

// EnsureDirs creates the data directories the pipeline writes to.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.QueueDir, c.SessionDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
