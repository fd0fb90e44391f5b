package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// CredentialMode selects where the GitHub token comes from
type CredentialMode string

const (
	// CredentialDefault reads the token from the local credential file
	CredentialDefault CredentialMode = "default"
	// CredentialExplicit uses a token supplied via the environment
	CredentialExplicit CredentialMode = "explicit"
)

// CredentialSource is an explicit choice of credential origin, so callers
// never have to compare configuration values to infer intent.
type CredentialSource struct {
	Mode  CredentialMode
	Token string
}

// DefaultCredentials selects the local credential file
func DefaultCredentials() CredentialSource {
	return CredentialSource{Mode: CredentialDefault}
}

// TokenCredentials selects an explicitly supplied token
func TokenCredentials(token string) CredentialSource {
	return CredentialSource{Mode: CredentialExplicit, Token: token}
}

// Resolve returns the token for this source
func (c CredentialSource) Resolve() (string, error) {
	if c.Mode == CredentialExplicit {
		if c.Token == "" {
			return "", &ConfigError{Field: "GITHUB_TOKEN", Message: "GitHub token is empty"}
		}
		return c.Token, nil
	}

	path, err := DefaultCredentialPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ConfigError{Field: "GITHUB_TOKEN", Message: "no token in environment and no credential file at " + path}
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", &ConfigError{Field: "GITHUB_TOKEN", Message: "credential file " + path + " is empty"}
	}
	return token, nil
}

// DefaultCredentialPath returns the location of the local credential file
func DefaultCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "orgsync", "token"), nil
}

// Config holds the application configuration
type Config struct {
	// GitHub
	Credentials CredentialSource
	BaseURL     string // GitHub Enterprise base URL, empty for github.com

	// Local clone root, repos land under DevHome/org/repo
	DevHome string

	// Run history storage
	StorageType string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string

	// History API server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	creds := DefaultCredentials()
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		creds = TokenCredentials(token)
	}

	devHome := os.Getenv("DEV_HOME")
	if devHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		devHome = filepath.Join(home, "dev")
	}

	return &Config{
		Credentials: creds,
		BaseURL:     getEnv("GITHUB_BASE_URL", ""),
		DevHome:     devHome,
		StorageType: getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:  getEnv("SQLITE_PATH", "./orgsync.db"),
		PostgresURL: getEnv("POSTGRES_URL", ""),
		APIPort:     getEnv("API_PORT", "8080"),
		APIHost:     getEnv("API_HOST", "localhost"),
		APIEndpoint: getEnv("API_ENDPOINT", "http://localhost:8080"),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate validates the configuration. The dev home must already exist:
// this runs before any network call or filesystem mutation.
func (c *Config) Validate() error {
	info, err := os.Stat(c.DevHome)
	if err != nil {
		return &ConfigError{Field: "DEV_HOME", Message: "development root does not exist: " + c.DevHome}
	}
	if !info.IsDir() {
		return &ConfigError{Field: "DEV_HOME", Message: "development root is not a directory: " + c.DevHome}
	}
	if c.StorageType != "sqlite" && c.StorageType != "postgres" {
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite' or 'postgres'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
