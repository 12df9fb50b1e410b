// File: config/config.go
// Author: yoyo-hu
//
// CLI/config collaborator (component J): stdlib flag for command-line
// arguments, an optional BurntSushi/toml file providing the same fields.
// Flags take precedence over the file, mirroring the original's single
// flat constructor argument list (port, trigMode, timeoutMs, openLinger,
// sql*, connPoolNum, threadNum, logLevel) reshaped into a struct a CLI
// loader can populate from two sources.

package config

import (
	"flag"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds every field the embedding binary needs to start a Server.
type Config struct {
	Port          int    `toml:"port"`
	TriggerMode   int    `toml:"trigger_mode"`
	IdleTimeoutMs int64  `toml:"idle_timeout_ms"`
	OpenLinger    bool   `toml:"open_linger"`
	WorkerCount   int    `toml:"worker_count"`
	MySQLDSN      string `toml:"mysql_dsn"`
	LogLevel      string `toml:"log_level"`
}

// Default returns the baseline configuration, mirroring the original
// TinyWebServer's own main.cpp defaults (port 1316, LT/LT, 60s timeout,
// linger off, 6 connection-pool slots, 6 worker threads).
func Default() Config {
	return Config{
		Port:          1316,
		TriggerMode:   0,
		IdleTimeoutMs: 60_000,
		OpenLinger:    false,
		WorkerCount:   6,
		LogLevel:      "info",
	}
}

// Load parses CLI flags from args, optionally overlaying a TOML file
// named by -config before flags are re-applied, so flags always win.
func Load(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("ehttpd", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a TOML config file")
	port := fs.Int("port", cfg.Port, "listening TCP port, 1024-65535")
	trigMode := fs.Int("trigmode", cfg.TriggerMode, "trigger mode 0-3 (LT/LT, ET conn, ET listen, ET/ET)")
	timeoutMs := fs.Int64("timeout", cfg.IdleTimeoutMs, "idle timeout in ms, <=0 disables")
	linger := fs.Bool("linger", cfg.OpenLinger, "enable graceful SO_LINGER on close")
	workers := fs.Int("workers", cfg.WorkerCount, "worker pool size")
	dsn := fs.String("mysql-dsn", cfg.MySQLDSN, "go-sql-driver/mysql DSN for /api/ routes, empty disables")
	logLevel := fs.String("log-level", cfg.LogLevel, "logrus level name")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: parse flags: %w", err)
	}

	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", *configPath, err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "trigmode":
			cfg.TriggerMode = *trigMode
		case "timeout":
			cfg.IdleTimeoutMs = *timeoutMs
		case "linger":
			cfg.OpenLinger = *linger
		case "workers":
			cfg.WorkerCount = *workers
		case "mysql-dsn":
			cfg.MySQLDSN = *dsn
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	return cfg, nil
}
