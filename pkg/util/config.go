package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lintang-b-s/amodpower/pkg"
	"github.com/spf13/viper"
)

func SetConfigDefaults() {
	viper.SetDefault("solver.tolerance", pkg.SIMPLEX_TOLERANCE)
	viper.SetDefault("solver.max_dense_entries", pkg.MAX_DENSE_ENTRIES)
	viper.SetDefault("solver.perturbation", pkg.SIMPLEX_PERTURBATION)
	viper.SetDefault("solver.max_iterations", 0)
	viper.SetDefault("solver.timeout", "10m")
	viper.SetDefault("routes.workers", 4)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("metrics.textfile", "")

	viper.SetDefault("API_PORT", 6060)
	viper.SetDefault("API_TIMEOUT", "1000s")
	viper.SetDefault("API_RATE_LIMIT", 5.0)
	viper.SetDefault("API_RATE_BURST", 10)
	viper.SetDefault("API_RATE_LIMIT_IDLE", "10m")
	viper.SetDefault("API_TRUSTED_PROXIES", []string{})
	viper.SetDefault("API_MAX_BODY_BYTES", 8<<20)
}

// ReadConfig loads ./data/config.* (or configDir) on top of the defaults. a missing config file is not an error,
// every key has a default and can be overridden from the environment (solver.timeout -> SOLVER_TIMEOUT).
func ReadConfig(configDir string) error {
	SetConfigDefaults()

	viper.SetConfigName("config")
	if configDir == "" {
		configDir = "./data/"
	}
	viper.AddConfigPath(configDir)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}
