package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/BTreeMap/YonkeBot/internal/api"
	"github.com/BTreeMap/YonkeBot/internal/lockfile"
	"github.com/BTreeMap/YonkeBot/internal/store"
	"github.com/BTreeMap/YonkeBot/internal/twiliowhatsapp"
	"github.com/BTreeMap/YonkeBot/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for YonkeBot state data
	DefaultStateDir = "/var/lib/yonkebot"
	// DefaultAppDBFileName is the default SQLite database for users and listings
	DefaultAppDBFileName = "yonkebot.db"
	// DefaultWhatsAppDBFileName is the default SQLite database for the whatsmeow device store
	DefaultWhatsAppDBFileName = "whatsmeow.db"
)

// Config holds environment configuration
type Config struct {
	StateDir           string        `env:"YONKEBOT_STATE_DIR" envDefault:"/var/lib/yonkebot"`
	DatabaseURL        string        `env:"DATABASE_URL"`
	APIAddr            string        `env:"API_ADDR" envDefault:":8080"`
	Transport          string        `env:"TRANSPORT" envDefault:"whatsapp"`
	TwilioAccountSID   string        `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string        `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber   string        `env:"TWILIO_FROM_NUMBER"`
	TwilioWebhookURL   string        `env:"TWILIO_WEBHOOK_URL"`
	WhatsAppDBDSN      string        `env:"WHATSAPP_DB_DSN"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"0s"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Flags holds command line values; each one defaults to its Config field.
type Flags struct {
	qrOutput    string
	numeric     bool
	stateDir    string
	dbDSN       string
	waDSN       string
	apiAddr     string
	transport   string
	idleTimeout time.Duration
	logLevel    string
}

func main() {
	if err := godotenv.Load(); err != nil {
		// No .env is the normal case in production.
		fmt.Fprintln(os.Stderr, "no .env file loaded:", err)
	}

	config, err := loadEnvironmentConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		os.Exit(2)
	}
	initializeLogger(flags.logLevel)
	slog.Debug("Final configuration",
		"state_dir", flags.stateDir,
		"dsn_set", flags.dbDSN != "",
		"api_addr", flags.apiAddr,
		"transport", flags.transport,
		"idle_timeout", flags.idleTimeout,
		"twilio_sid_set", config.TwilioAccountSID != "",
		"twilio_webhook_url", config.TwilioWebhookURL)

	lock, err := lockfile.AcquireLock(flags.stateDir)
	if err != nil {
		var lockErr *lockfile.LockError
		if errors.As(err, &lockErr) {
			fmt.Fprintln(os.Stderr, lockErr.Error())
		}
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping YonkeBot with configured modules")
	runErr := api.Run(context.Background(),
		buildWhatsAppOptions(flags),
		buildTwilioOptions(config),
		buildStoreOptions(flags),
		buildAPIOptions(flags, config))
	lock.Release()
	if runErr != nil {
		slog.Error("YonkeBot failed to run", "error", runErr)
		os.Exit(1)
	}
	slog.Info("YonkeBot exited successfully")
}

// loadEnvironmentConfig parses the environment and fills file-based defaults
// under the state directory.
func loadEnvironmentConfig() (Config, error) {
	var config Config
	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultAppDBFileName)
	}
	if config.WhatsAppDBDSN == "" {
		config.WhatsAppDBDSN = defaultWhatsAppDSN(config.StateDir)
	}
	return config, nil
}

func defaultWhatsAppDSN(stateDir string) string {
	return "file:" + filepath.Join(stateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
}

// parseCommandLineFlags parses args with environment defaults. File-based
// DSNs that were defaulted follow a -state-dir override.
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	var f Flags
	fs.StringVar(&f.qrOutput, "qr-output", "", "path to write login QR code")
	fs.BoolVar(&f.numeric, "numeric-code", false, "use numeric login code instead of QR code")
	fs.StringVar(&f.stateDir, "state-dir", config.StateDir, "state directory for YonkeBot data (overrides $YONKEBOT_STATE_DIR)")
	fs.StringVar(&f.dbDSN, "db-dsn", config.DatabaseURL, "users and listings database DSN (overrides $DATABASE_URL)")
	fs.StringVar(&f.waDSN, "whatsapp-db-dsn", config.WhatsAppDBDSN, "whatsmeow device store DSN (overrides $WHATSAPP_DB_DSN)")
	fs.StringVar(&f.apiAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	fs.StringVar(&f.transport, "transport", config.Transport, "chat transport: whatsapp or twilio (overrides $TRANSPORT)")
	fs.DurationVar(&f.idleTimeout, "session-idle-timeout", config.SessionIdleTimeout, "drop conversations idle this long, 0 disables (overrides $SESSION_IDLE_TIMEOUT)")
	fs.StringVar(&f.logLevel, "log-level", config.LogLevel, "debug, info, warn or error (overrides $LOG_LEVEL)")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	if f.stateDir != config.StateDir {
		if f.dbDSN == filepath.Join(config.StateDir, DefaultAppDBFileName) {
			f.dbDSN = filepath.Join(f.stateDir, DefaultAppDBFileName)
		}
		if f.waDSN == defaultWhatsAppDSN(config.StateDir) {
			f.waDSN = defaultWhatsAppDSN(f.stateDir)
		}
	}
	return f, nil
}

// initializeLogger installs a text slog handler on stdout at the given level.
func initializeLogger(level string) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	slog.SetDefault(logger)
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// buildWhatsAppOptions constructs WhatsApp configuration options
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var waOpts []whatsapp.Option
	if flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(flags.qrOutput))
	}
	if flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	if flags.waDSN != "" {
		waOpts = append(waOpts, whatsapp.WithDBDSN(flags.waDSN))
	}
	return waOpts
}

// buildTwilioOptions constructs Twilio client options
func buildTwilioOptions(config Config) []twiliowhatsapp.Option {
	return []twiliowhatsapp.Option{
		twiliowhatsapp.WithAccountSID(config.TwilioAccountSID),
		twiliowhatsapp.WithAuthToken(config.TwilioAuthToken),
		twiliowhatsapp.WithFromWhats(config.TwilioFromNumber),
	}
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	if flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return nil
	}
	if store.DetectDSNType(flags.dbDSN) == store.DriverPostgres {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return []store.Option{store.WithPostgresDSN(flags.dbDSN)}
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", flags.dbDSN)
	return []store.Option{store.WithSQLiteDSN(flags.dbDSN)}
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, config Config) []api.Option {
	opts := []api.Option{
		api.WithAddr(flags.apiAddr),
		api.WithTransport(flags.transport),
	}
	if config.TwilioWebhookURL != "" {
		opts = append(opts, api.WithWebhookURL(config.TwilioWebhookURL))
	}
	if flags.idleTimeout > 0 {
		opts = append(opts, api.WithIdleTimeout(flags.idleTimeout))
	}
	return opts
}
