package app

import (
	"github.com/openshelf/bibliograph-backend/internal/platform/envutil"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

// Config carries the settings app.New wires through by hand. Anything a
// single component owns (POSTGRES_*, REDIS_ADDR, NEO4J_*, the GRAPH_*
// and DISCOVERY_* knobs) is read where it is used.
type Config struct {
	Port        string
	MetricsAddr string
	RedisAddr   string
	Environment string
	Version     string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		MetricsAddr: envutil.String("METRICS_ADDR", ""),
		RedisAddr:   envutil.String("REDIS_ADDR", ""),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
	}
	log.Info("Config loaded",
		"port", cfg.Port,
		"metrics_addr", cfg.MetricsAddr,
		"environment", cfg.Environment,
		"version", cfg.Version,
	)
	return cfg
}
