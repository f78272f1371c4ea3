// Package config loads tracker settings from defaults, an optional YAML file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"tracker/internal/tables"

	"github.com/spf13/viper"
)

const (
	BackendFile   = "file"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	PolicyLenient = "lenient"
	PolicyStrict  = "strict"
)

var (
	validBackends = []string{BackendFile, BackendSheets, BackendSQLite, BackendMemory}
	validPolicies = []string{PolicyLenient, PolicyStrict}
	validLevels   = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Storage
	DataBackend  string
	DataDir      string
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Table names
	HabitsTable   string
	ExpensesTable string
	GymTable      string
	ConfigTable   string

	// Derivation and load policy
	HabitTargetCount int
	LoadPolicy       string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Mirror worker target backend, empty to disable
	MirrorBackend string

	LogLevel string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8081")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("data_backend", BackendFile)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("sqlite_db_path", "./data/tracker.db")
	v.SetDefault("google_spreadsheet_id", "")
	v.SetDefault("google_service_account_json", "")
	v.SetDefault("google_service_account_file", "")
	v.SetDefault("habits_table", "habitos")
	v.SetDefault("expenses_table", "gastos")
	v.SetDefault("gym_table", "gym")
	v.SetDefault("config_table", "config")
	v.SetDefault("habit_target_count", "9")
	v.SetDefault("load_policy", PolicyLenient)
	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "tracker")
	v.SetDefault("amqp_queue", "table_appended")
	v.SetDefault("mirror_backend", "")
	v.SetDefault("log_level", "info")
}

// Load reads configuration. configFile may be empty, in which case
// tracker.yaml is looked up in the working directory and a missing file is
// not an error. Environment variables (PORT, DATA_BACKEND, ...) override
// both.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("tracker")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	target, err := strconv.Atoi(strings.TrimSpace(v.GetString("habit_target_count")))
	if err != nil {
		return nil, fmt.Errorf("invalid HABIT_TARGET_COUNT %q: must be a number", v.GetString("habit_target_count"))
	}
	shutdown, err := time.ParseDuration(strings.TrimSpace(v.GetString("shutdown_timeout")))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: %v", v.GetString("shutdown_timeout"), err)
	}

	get := func(key string) string { return strings.TrimSpace(v.GetString(key)) }
	return &Config{
		Port:            get("port"),
		ShutdownTimeout: shutdown,

		DataBackend:  strings.ToLower(get("data_backend")),
		DataDir:      get("data_dir"),
		SQLiteDBPath: get("sqlite_db_path"),

		GoogleSpreadsheetID:      get("google_spreadsheet_id"),
		GoogleServiceAccountJSON: get("google_service_account_json"),
		GoogleServiceAccountFile: get("google_service_account_file"),

		HabitsTable:   get("habits_table"),
		ExpensesTable: get("expenses_table"),
		GymTable:      get("gym_table"),
		ConfigTable:   get("config_table"),

		HabitTargetCount: target,
		LoadPolicy:       strings.ToLower(get("load_policy")),

		AMQPURL:      get("amqp_url"),
		AMQPExchange: get("amqp_exchange"),
		AMQPQueue:    get("amqp_queue"),

		MirrorBackend: strings.ToLower(get("mirror_backend")),

		LogLevel: strings.ToLower(get("log_level")),
	}, nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("invalid shutdown timeout %v: must be positive", c.ShutdownTimeout))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	errs = append(errs, c.validateBackend(c.DataBackend)...)

	seen := map[string]string{}
	for _, tbl := range []struct{ key, name string }{
		{"HABITS_TABLE", c.HabitsTable},
		{"EXPENSES_TABLE", c.ExpensesTable},
		{"GYM_TABLE", c.GymTable},
		{"CONFIG_TABLE", c.ConfigTable},
	} {
		if err := tables.ValidateName(tbl.name); err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", tbl.key, err))
			continue
		}
		if other, dup := seen[tbl.name]; dup {
			errs = append(errs, fmt.Sprintf("%s and %s both name table '%s'", other, tbl.key, tbl.name))
		}
		seen[tbl.name] = tbl.key
	}

	if c.HabitTargetCount < 0 {
		errs = append(errs, fmt.Sprintf("invalid habit target count %d: must be 0 (dynamic) or positive", c.HabitTargetCount))
	}
	if !slices.Contains(validPolicies, c.LoadPolicy) {
		errs = append(errs, fmt.Sprintf("invalid load policy '%s': must be one of %v", c.LoadPolicy, validPolicies))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.MirrorBackend != "" {
		switch {
		case !slices.Contains(validBackends, c.MirrorBackend):
			errs = append(errs, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validBackends))
		case c.MirrorBackend == c.DataBackend:
			errs = append(errs, fmt.Sprintf("mirror backend '%s' must differ from the data backend", c.MirrorBackend))
		default:
			errs = append(errs, c.validateBackend(c.MirrorBackend)...)
		}
		if c.AMQPURL == "" {
			errs = append(errs, "AMQP URL is required when a mirror backend is configured")
		}
	}

	if !slices.Contains(validLevels, c.LogLevel) {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) validateBackend(backend string) []string {
	var errs []string
	switch backend {
	case BackendFile:
		if c.DataDir == "" {
			errs = append(errs, "data directory cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "Google Spreadsheet ID is required when using sheets backend")
		}
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}
	return errs
}

// TableNames lists the configured tables in display order.
func (c *Config) TableNames() []string {
	return []string{c.HabitsTable, c.ExpensesTable, c.GymTable, c.ConfigTable}
}

// Strict reports whether an unreachable backend fails requests.
func (c *Config) Strict() bool { return c.LoadPolicy == PolicyStrict }
