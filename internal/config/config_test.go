package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zmrishh/moneyai/internal/models"
)

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load missing config: %v", err)
	}
	if cfg.Currency != "" || cfg.AuthToken != "" {
		t.Fatalf("missing config should be zero value, got %+v", cfg)
	}
}

func TestDefaults(t *testing.T) {
	dir := t.TempDir()

	currency, err := Currency(dir)
	if err != nil {
		t.Fatalf("currency: %v", err)
	}
	if currency != models.DefaultCurrency {
		t.Fatalf("default currency: got %q, want %q", currency, models.DefaultCurrency)
	}

	gateway, err := GatewayURL(dir)
	if err != nil {
		t.Fatalf("gateway url: %v", err)
	}
	if gateway != DefaultGatewayURL {
		t.Fatalf("default gateway: got %q, want %q", gateway, DefaultGatewayURL)
	}

	backend, err := BackendURL(dir)
	if err != nil {
		t.Fatalf("backend url: %v", err)
	}
	if backend != DefaultBackendURL {
		t.Fatalf("default backend: got %q, want %q", backend, DefaultBackendURL)
	}

	jsonOut, err := JSONOutput(dir)
	if err != nil {
		t.Fatalf("json output: %v", err)
	}
	if jsonOut {
		t.Fatal("json output should default to false")
	}
}

func TestSetCurrency(t *testing.T) {
	dir := t.TempDir()

	if err := SetCurrency(dir, "usd"); err != nil {
		t.Fatalf("set currency: %v", err)
	}

	currency, err := Currency(dir)
	if err != nil {
		t.Fatalf("currency: %v", err)
	}
	if currency != "USD" {
		t.Fatalf("currency should be uppercased: got %q, want USD", currency)
	}
}

func TestSetCurrencyEmpty(t *testing.T) {
	dir := t.TempDir()

	if err := SetCurrency(dir, "   "); err == nil {
		t.Fatal("blank currency should be rejected")
	}
}

func TestSetGatewayURLTrimsTrailingSlash(t *testing.T) {
	dir := t.TempDir()

	if err := SetGatewayURL(dir, "http://localhost:9999/"); err != nil {
		t.Fatalf("set gateway: %v", err)
	}

	gateway, err := GatewayURL(dir)
	if err != nil {
		t.Fatalf("gateway url: %v", err)
	}
	if gateway != "http://localhost:9999" {
		t.Fatalf("gateway: got %q, want trailing slash stripped", gateway)
	}
}

func TestAuthTokenRoundTrip(t *testing.T) {
	dir := t.TempDir()

	token, err := AuthToken(dir)
	if err != nil {
		t.Fatalf("auth token: %v", err)
	}
	if token != "" {
		t.Fatalf("token before login: got %q, want empty", token)
	}

	if err := SetAuthToken(dir, "tok_abc123", "dev@example.com"); err != nil {
		t.Fatalf("set token: %v", err)
	}

	token, err = AuthToken(dir)
	if err != nil {
		t.Fatalf("auth token: %v", err)
	}
	if token != "tok_abc123" {
		t.Fatalf("token: got %q, want tok_abc123", token)
	}

	email, err := AuthEmail(dir)
	if err != nil {
		t.Fatalf("auth email: %v", err)
	}
	if email != "dev@example.com" {
		t.Fatalf("email: got %q, want dev@example.com", email)
	}

	if err := ClearAuthToken(dir); err != nil {
		t.Fatalf("clear token: %v", err)
	}

	token, err = AuthToken(dir)
	if err != nil {
		t.Fatalf("auth token: %v", err)
	}
	if token != "" {
		t.Fatalf("token after clear: got %q, want empty", token)
	}

	email, err = AuthEmail(dir)
	if err != nil {
		t.Fatalf("auth email: %v", err)
	}
	if email != "" {
		t.Fatalf("email after clear: got %q, want empty", email)
	}
}

func TestSetJSONOutput(t *testing.T) {
	dir := t.TempDir()

	if err := SetJSONOutput(dir, true); err != nil {
		t.Fatalf("set json output: %v", err)
	}

	jsonOut, err := JSONOutput(dir)
	if err != nil {
		t.Fatalf("json output: %v", err)
	}
	if !jsonOut {
		t.Fatal("json output should be true after set")
	}
}

func TestSavePreservesOtherFields(t *testing.T) {
	dir := t.TempDir()

	if err := SetCurrency(dir, "EUR"); err != nil {
		t.Fatalf("set currency: %v", err)
	}
	if err := SetAuthToken(dir, "tok_keep", "dev@example.com"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := SetJSONOutput(dir, true); err != nil {
		t.Fatalf("set json output: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Currency != "EUR" {
		t.Fatalf("currency clobbered: got %q", cfg.Currency)
	}
	if cfg.AuthToken != "tok_keep" {
		t.Fatalf("token clobbered: got %q", cfg.AuthToken)
	}
	if !cfg.JSONOutput {
		t.Fatal("json output clobbered")
	}
}

func TestSaveWritesIndentedJSON(t *testing.T) {
	dir := t.TempDir()

	if err := SetCurrency(dir, "INR"); err != nil {
		t.Fatalf("set currency: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if err != nil {
		t.Fatalf("read config file: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"currency\"") {
		t.Fatalf("config should be indented JSON, got: %s", data)
	}

	// No temp files should survive an atomic write
	entries, err := os.ReadDir(filepath.Join(dir, ".moneyai"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, configFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("corrupt config should return an error")
	}
}
