package config

import (
	"os"
	"strconv"
)

func loadDevelopmentConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./tmp/data.sqlite"
	cfg.ServerHost = "127.0.0.1"
	cfg.AssetBackend = AssetBackendDatabase
	cfg.JWTSecret = "development-secret"
}

func loadTestConfig(cfg *Config) {
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.AssetBackend = AssetBackendDatabase
	cfg.JWTSecret = "test-secret"
	cfg.BookCacheSize = 8
}

func loadProductionConfig(cfg *Config) {
	cfg.DatabaseFilePath = "/data/booka.sqlite"
	cfg.AssetBackend = AssetBackendS3
}
