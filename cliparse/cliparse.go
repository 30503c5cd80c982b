package cliparse

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultPort            = 3318
	DefaultDBPort          = "5432"
	DefaultSSLMode         = "disable"
	DefaultConnectionLimit = 1
	DefaultEnvFile         = ".env"
)

// Config keys, also the long flag names. Env vars are the upper-cased key
// with dashes replaced by underscores (db-host -> DB_HOST).
const (
	keyPort            = "port"
	keyDatabaseURL     = "database-url"
	keyDBHost          = "db-host"
	keyDBPort          = "db-port"
	keyDBUser          = "db-user"
	keyDBPass          = "db-pass"
	keyDBName          = "db-name"
	keyDBSSLMode       = "db-sslmode"
	keyConnectionLimit = "db-connection-limit"
	keyLogLevel        = "log-level"
	keyEnvFile         = "env-file"
)

type Config struct {
	Port            int
	DatabaseURL     string
	DBHost          string
	DBPort          string
	DBUser          string
	DBPass          string
	DBName          string
	DBSSLMode       string
	ConnectionLimit int
	LogLevel        string
}

// RegisterFlags adds every configuration flag to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.IntP(keyPort, "p", DefaultPort, "Server port")
	fs.StringP(keyDatabaseURL, "d", "", "Database URL (overrides the db-* settings)")
	fs.String(keyDBHost, "", "Database host")
	fs.String(keyDBPort, DefaultDBPort, "Database port")
	fs.String(keyDBUser, "", "Database user")
	fs.String(keyDBPass, "", "Database password (prefer env)")
	fs.String(keyDBName, "", "Database name")
	fs.String(keyDBSSLMode, DefaultSSLMode, "Database sslmode")
	fs.Int(keyConnectionLimit, DefaultConnectionLimit, "Maximum open database connections")
	fs.String(keyLogLevel, "info", "Log level (debug, info, warn, error)")
	fs.String(keyEnvFile, DefaultEnvFile, "Env file loaded before reading the environment")
}

// ParseFlags parses args and resolves the configuration
func ParseFlags(args []string) (Config, error) {
	flags := pflag.NewFlagSet("commonspace", pflag.ContinueOnError)
	RegisterFlags(flags)
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	return Load(flags)
}

// Load resolves the configuration from already parsed flags. Flags that were
// set explicitly win over environment variables, which win over defaults.
// Variables from the env file never override ones already in the environment.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	if envFile := v.GetString(keyEnvFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := Config{
		Port:            v.GetInt(keyPort),
		DatabaseURL:     v.GetString(keyDatabaseURL),
		DBHost:          v.GetString(keyDBHost),
		DBPort:          v.GetString(keyDBPort),
		DBUser:          v.GetString(keyDBUser),
		DBPass:          v.GetString(keyDBPass),
		DBName:          v.GetString(keyDBName),
		DBSSLMode:       v.GetString(keyDBSSLMode),
		ConnectionLimit: v.GetInt(keyConnectionLimit),
		LogLevel:        v.GetString(keyLogLevel),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ConnectionLimit < 1 {
		return errors.New("DB_CONNECTION_LIMIT must be at least 1")
	}
	if c.DatabaseURL != "" {
		return nil
	}
	if c.DBHost == "" {
		return errors.New("DB_HOST required (or use -d / DATABASE_URL)")
	}
	if c.DBUser == "" {
		return errors.New("DB_USER required")
	}
	if c.DBName == "" {
		return errors.New("DB_NAME required")
	}
	return nil
}

// DSN returns the lib/pq connection string
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	parts := []string{
		"host=" + quoteDSNValue(c.DBHost),
		"port=" + quoteDSNValue(c.DBPort),
		"user=" + quoteDSNValue(c.DBUser),
		"password=" + quoteDSNValue(c.DBPass),
		"dbname=" + quoteDSNValue(c.DBName),
		"sslmode=" + quoteDSNValue(c.DBSSLMode),
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a key=value connection string value when it is empty
// or contains spaces, quotes or backslashes.
func quoteDSNValue(s string) string {
	if s != "" && !strings.ContainsAny(s, " '\\") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}
