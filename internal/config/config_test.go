package config

import (
	"strings"
	"testing"
)

func TestValidate_DevWithoutSecret(t *testing.T) {
	cfg := &Config{Env: "development", TokenTTLHours: 12}
	if err := cfg.Validate(); err != nil {
		t.Errorf("dev mode should not require a JWT secret: %v", err)
	}
}

func TestValidate_ProductionRequiresSecret(t *testing.T) {
	cfg := &Config{Env: "production", TokenTTLHours: 12}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for production without JWT_SECRET")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_ShortSecret(t *testing.T) {
	cfg := &Config{Env: "production", JWTSecret: "short", TokenTTLHours: 12}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for short JWT_SECRET")
	}
}

func TestValidate_TokenTTL(t *testing.T) {
	cfg := &Config{Env: "development", TokenTTLHours: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero TOKEN_TTL_HOURS")
	}
}

func TestIsDev(t *testing.T) {
	if !(&Config{Env: "development"}).IsDev() {
		t.Error("expected IsDev")
	}
	if (&Config{Env: "production"}).IsDev() {
		t.Error("did not expect IsDev")
	}
	if !(&Config{Env: "production"}).IsProduction() {
		t.Error("expected IsProduction")
	}
}
