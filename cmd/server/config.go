package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/EliasAN1/Stacktictoe/internal/factory"
	"github.com/EliasAN1/Stacktictoe/internal/services/lobby"
)

type Config struct {
	bind               string
	port               int
	storage            string
	redisURL           string
	reservationGrace   time.Duration
	sessionIdleTimeout time.Duration
	passwordCost       int
	allowedOrigins     []string
	logLevel           string
	logFormat          string
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	switch c.storage {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.redisURL == "" {
			return errors.New("--redis-url is required when --storage=redis")
		}
	default:
		return fmt.Errorf("invalid storage type (must be memory or redis): %q", c.storage)
	}
	if c.reservationGrace <= 0 {
		return errors.New("--reservation-grace must be positive")
	}
	if c.sessionIdleTimeout < 0 {
		return errors.New("--session-idle-timeout must not be negative")
	}
	if c.passwordCost < bcrypt.MinCost || c.passwordCost > bcrypt.MaxCost {
		return fmt.Errorf("invalid password cost (must be between %d-%d inclusive): %d", bcrypt.MinCost, bcrypt.MaxCost, c.passwordCost)
	}
	if _, err := parseLevel(c.logLevel); err != nil {
		return err
	}
	if c.logFormat != "json" && c.logFormat != "text" {
		return fmt.Errorf("invalid log format (must be json or text): %q", c.logFormat)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level: %q", s)
	}
	return level, nil
}

func (c *Config) logger() *slog.Logger {
	level, _ := parseLevel(c.logLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.logFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("STACKTICTOE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "stacktictoe-server",
		Short:         "Realtime session server for Stacktictoe.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: STACKTICTOE_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 3000, "port to listen on (env: STACKTICTOE_PORT)")
	fs.StringVar(&cfg.storage, "storage", factory.StorageTypeMemory, "table backend, memory or redis (env: STACKTICTOE_STORAGE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis connection url (env: STACKTICTOE_REDIS_URL)")
	fs.DurationVar(&cfg.reservationGrace, "reservation-grace", 5*time.Second, "time a reserved name is held before a connection binds it (env: STACKTICTOE_RESERVATION_GRACE)")
	fs.DurationVar(&cfg.sessionIdleTimeout, "session-idle-timeout", 0, "end sessions untouched for this long, 0 disables (env: STACKTICTOE_SESSION_IDLE_TIMEOUT)")
	fs.IntVar(&cfg.passwordCost, "password-cost", lobby.DefaultPasswordCost, "bcrypt cost for offer passwords (env: STACKTICTOE_PASSWORD_COST)")
	fs.StringSliceVar(&cfg.allowedOrigins, "allowed-origins", nil, "origins allowed to connect, empty allows any (env: STACKTICTOE_ALLOWED_ORIGINS)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "debug, info, warn or error (env: STACKTICTOE_LOG_LEVEL)")
	fs.StringVar(&cfg.logFormat, "log-format", "json", "json or text (env: STACKTICTOE_LOG_FORMAT)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
