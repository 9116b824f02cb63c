package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/zmrishh/moneyai/internal/models"
)

const configFile = ".moneyai/config.json"
const lockFile = ".moneyai/config.json.lock"

// Service endpoint defaults
const (
	DefaultGatewayURL = "http://localhost:8488"
	DefaultBackendURL = "https://api.moneyai.app"
)

// Load reads the config from disk
func Load(baseDir string) (*models.Config, error) {
	configPath := filepath.Join(baseDir, configFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.Config{}, nil
		}
		return nil, err
	}

	var cfg models.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to disk using atomic write (temp file + rename)
func Save(baseDir string, cfg *models.Config) error {
	configPath := filepath.Join(baseDir, configFile)

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: temp file in same dir, then rename
	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, configPath)
}

// withConfigLock serializes access to config.json using flock
func withConfigLock(baseDir string, fn func() error) error {
	lockPath := filepath.Join(baseDir, lockFile)

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	return fn()
}

// Currency returns the display currency, defaulting to INR
func Currency(baseDir string) (string, error) {
	cfg, err := Load(baseDir)
	if err != nil {
		return "", err
	}
	if cfg.Currency == "" {
		return models.DefaultCurrency, nil
	}
	return cfg.Currency, nil
}

// SetCurrency sets the display currency (stored uppercase)
func SetCurrency(baseDir string, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return os.ErrInvalid
	}
	return withConfigLock(baseDir, func() error {
		cfg, err := Load(baseDir)
		if err != nil {
			return err
		}
		cfg.Currency = code
		return Save(baseDir, cfg)
	})
}

// GatewayURL returns the AA gateway base URL
func GatewayURL(baseDir string) (string, error) {
	cfg, err := Load(baseDir)
	if err != nil {
		return "", err
	}
	if cfg.GatewayURL == "" {
		return DefaultGatewayURL, nil
	}
	return cfg.GatewayURL, nil
}

// SetGatewayURL sets the AA gateway base URL
func SetGatewayURL(baseDir string, url string) error {
	return withConfigLock(baseDir, func() error {
		cfg, err := Load(baseDir)
		if err != nil {
			return err
		}
		cfg.GatewayURL = strings.TrimRight(strings.TrimSpace(url), "/")
		return Save(baseDir, cfg)
	})
}

// BackendURL returns the moneyAI backend base URL
func BackendURL(baseDir string) (string, error) {
	cfg, err := Load(baseDir)
	if err != nil {
		return "", err
	}
	if cfg.BackendURL == "" {
		return DefaultBackendURL, nil
	}
	return cfg.BackendURL, nil
}

// SetBackendURL sets the moneyAI backend base URL
func SetBackendURL(baseDir string, url string) error {
	return withConfigLock(baseDir, func() error {
		cfg, err := Load(baseDir)
		if err != nil {
			return err
		}
		cfg.BackendURL = strings.TrimRight(strings.TrimSpace(url), "/")
		return Save(baseDir, cfg)
	})
}

// AuthToken returns the stored backend bearer token, empty if not logged in
func AuthToken(baseDir string) (string, error) {
	cfg, err := Load(baseDir)
	if err != nil {
		return "", err
	}
	return cfg.AuthToken, nil
}

// AuthEmail returns the email the stored token was issued for
func AuthEmail(baseDir string) (string, error) {
	cfg, err := Load(baseDir)
	if err != nil {
		return "", err
	}
	return cfg.AuthEmail, nil
}

// SetAuthToken stores the backend bearer token and the email it belongs to
func SetAuthToken(baseDir string, token, email string) error {
	return withConfigLock(baseDir, func() error {
		cfg, err := Load(baseDir)
		if err != nil {
			return err
		}
		cfg.AuthToken = token
		cfg.AuthEmail = email
		return Save(baseDir, cfg)
	})
}

// ClearAuthToken removes the stored backend bearer token
func ClearAuthToken(baseDir string) error {
	return SetAuthToken(baseDir, "", "")
}

// JSONOutput reports whether machine-readable output is the default
func JSONOutput(baseDir string) (bool, error) {
	cfg, err := Load(baseDir)
	if err != nil {
		return false, err
	}
	return cfg.JSONOutput, nil
}

// SetJSONOutput sets whether machine-readable output is the default
func SetJSONOutput(baseDir string, enabled bool) error {
	return withConfigLock(baseDir, func() error {
		cfg, err := Load(baseDir)
		if err != nil {
			return err
		}
		cfg.JSONOutput = enabled
		return Save(baseDir, cfg)
	})
}
