// Package config loads runtime configuration from the environment, with an
// optional .env file.
package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config collects every tunable of the application.
type Config struct {
	DataPath string // persisted document
	KeyPath  string // field-encryption key

	ExportBin  string // binary record artifact
	ExportList string // companion identifier list
	ModulePath string // native module executable
	// ModuleTimeout bounds the native module run.
	ModuleTimeout time.Duration

	SessionSecret string
	SessionTTL    time.Duration
}

// Load reads .env when present, then the process environment, falling back
// to defaults. The artifact defaults keep the filenames compiled into the
// native module.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment variables")
	}

	return &Config{
		DataPath:      getEnv("DATA_PATH", "dados.json"),
		KeyPath:       getEnv("KEY_PATH", "key.bin"),
		ExportBin:     getEnv("EXPORT_BIN", "dados_notas.dat"),
		ExportList:    getEnv("EXPORT_LIST", "ras_para_c.txt"),
		ModulePath:    getEnv("MODULE_PATH", "./modulo_c"),
		ModuleTimeout: parseDuration(getEnv("MODULE_TIMEOUT", "30s")),
		SessionSecret: getEnv("SESSION_SECRET", "change-me"),
		SessionTTL:    parseDuration(getEnv("SESSION_TTL", "15m")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("invalid duration %q, using 30s", s)
		return 30 * time.Second
	}
	return d
}
