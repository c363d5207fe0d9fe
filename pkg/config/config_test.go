package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	// Save original env
	originalPath := os.Getenv("FLARE_DATABASE_PATH")
	defer func() {
		if originalPath != "" {
			os.Setenv("FLARE_DATABASE_PATH", originalPath)
		} else {
			os.Unsetenv("FLARE_DATABASE_PATH")
		}
	}()

	// Test with environment variable
	os.Setenv("FLARE_DATABASE_PATH", "/tmp/flare-test.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Database.Path != "/tmp/flare-test.db" {
		t.Errorf("Expected database path from env, got: %s", cfg.Database.Path)
	}

	if cfg.Paging.PageSize != 20 {
		t.Errorf("Expected default page size 20, got: %d", cfg.Paging.PageSize)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Path: "flare.db"},
		Paging:   PagingConfig{PageSize: 20},
		Accounts: []AccountConfig{
			{Platform: "mastodon", Host: "mastodon.social", UserID: "1", Token: "secret"},
		},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Valid config should not error: %v", err)
	}

	// Test invalid page_size
	cfg.Paging.PageSize = 1000
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for invalid page_size")
	}
	cfg.Paging.PageSize = 20

	// Test unknown platform
	cfg.Accounts = append(cfg.Accounts, AccountConfig{Platform: "friendster", Host: "x", UserID: "1"})
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unknown platform")
	}
}
