package config

import "time"

// ServerConfig covers the HTTP API process.
type ServerConfig struct {
	Addr            string
	RetentionPeriod time.Duration
	CleanupInterval time.Duration
}

func GetServerConfig() *ServerConfig {
	loadDotEnv()
	cfg := &ServerConfig{
		Addr:            getEnv("SERVER_ADDR", ":8080"),
		RetentionPeriod: 24 * time.Hour,
		CleanupInterval: time.Hour,
	}
	if d, err := time.ParseDuration(getEnv("RETENTION_PERIOD", "24h")); err == nil && d > 0 {
		cfg.RetentionPeriod = d
	}
	return cfg
}
