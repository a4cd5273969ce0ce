package main

import (
	"fmt"
	"os"

	"booklibrary/internal/config"

	"github.com/ilyakaznacheev/cleanenv"
)

// storeConfig reads only the store section, so migrating does not require
// the rest of the application configuration to be valid.
func storeConfig() (config.StoreConfig, error) {
	config.LoadEnvFiles()

	var cfg config.StoreConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return config.StoreConfig{}, fmt.Errorf("read env: %w", err)
	}
	if v := os.Getenv("MIGRATE_DRIVER"); v != "" {
		cfg.Driver = v
	}
	return cfg, nil
}
