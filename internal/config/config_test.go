package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.DataPath != "dados.json" {
		t.Fatalf("DataPath=%q", cfg.DataPath)
	}
	if cfg.ExportBin != "dados_notas.dat" || cfg.ExportList != "ras_para_c.txt" {
		t.Fatalf("export artifact defaults changed: %q %q", cfg.ExportBin, cfg.ExportList)
	}
	if cfg.ModuleTimeout != 30*time.Second {
		t.Fatalf("ModuleTimeout=%s", cfg.ModuleTimeout)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATA_PATH", "/tmp/other.json")
	t.Setenv("MODULE_TIMEOUT", "2m")
	t.Setenv("SESSION_TTL", "not-a-duration")

	cfg := Load()
	if cfg.DataPath != "/tmp/other.json" {
		t.Fatalf("DataPath=%q", cfg.DataPath)
	}
	if cfg.ModuleTimeout != 2*time.Minute {
		t.Fatalf("ModuleTimeout=%s", cfg.ModuleTimeout)
	}
	// Unparsable durations fall back rather than failing startup.
	if cfg.SessionTTL != 30*time.Second {
		t.Fatalf("SessionTTL=%s", cfg.SessionTTL)
	}
}
