package logging

import (
	"testing"

	"github.com/DimensionDev/Flare-sub003/pkg/config"
)

func TestInitLogger(t *testing.T) {
	cfg := &config.LoggingConfig{
		Level:  "INFO",
		Format: "json",
	}

	if err := InitLogger(cfg); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if Logger == nil {
		t.Fatal("Expected Logger to be set")
	}

	// Invalid level falls back to info instead of failing
	cfg.Level = "not-a-level"
	if err := InitLogger(cfg); err != nil {
		t.Fatalf("Unexpected error for unknown level: %v", err)
	}

	cfg.Level = "DEBUG"
	cfg.Format = "text"
	if err := InitLogger(cfg); err != nil {
		t.Fatalf("Failed to initialize text logger: %v", err)
	}
}

func TestGetLoggerFallback(t *testing.T) {
	oldLogger := Logger
	defer func() { Logger = oldLogger }()

	Logger = nil
	if GetLogger() == nil {
		t.Fatal("Expected fallback logger")
	}
}
