package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sample = `
environment: test
server:
  port: 8080
pipeline:
  position_limit_pct: 0.2
audit:
  backend: none
cache:
  mode: memory
`

func writeSample(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeSample(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "test" {
		t.Fatalf("unexpected environment %q", c.Environment)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("unexpected port %d", c.Server.Port)
	}
	if c.Pipeline.PositionLimitPct != 0.2 {
		t.Fatalf("unexpected position limit %v", c.Pipeline.PositionLimitPct)
	}
}

func TestLoadRejectsBadAuditBackend(t *testing.T) {
	_, err := Load(writeSample(t, `
environment: test
audit:
  backend: postgres
`))
	if err == nil {
		t.Fatalf("expected error for bad audit backend")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("FUNDDATA_API_KEY", "key-from-env")
	t.Setenv("AUDIT_BACKEND", "none")
	c, err := LoadWithEnv(writeSample(t, sample))
	if err != nil {
		t.Fatalf("load with env: %v", err)
	}
	if c.FundData.APIKey != "key-from-env" {
		t.Fatalf("env override not applied: %q", c.FundData.APIKey)
	}
}

func TestValidatePositionLimitBounds(t *testing.T) {
	_, err := Load(writeSample(t, `
environment: test
pipeline:
  position_limit_pct: 1.5
`))
	if err == nil {
		t.Fatalf("expected error for out-of-range position limit")
	}
}
