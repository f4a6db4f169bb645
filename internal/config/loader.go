package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is built once at process start and handed to every collaborator.
type Config struct {
	Drive  DriveConfig
	Sink   SinkConfig
	Ledger LedgerConfig
	Server ServerConfig

	// DataDir is the local directory files are fetched into and listed from.
	DataDir string
	// QuantityColumn and UnitPriceColumn name the source columns multiplied into total_sale.
	QuantityColumn  string
	UnitPriceColumn string
}

// DriveConfig holds the Google Drive folder and credentials.
type DriveConfig struct {
	FolderID string
	// Token is an authorized-user or service-account credentials JSON document.
	Token string
}

// SinkConfig holds the warehouse connection.
type SinkConfig struct {
	DatabaseURL string
	Table       string
}

// LedgerConfig holds the embedded ledger location.
type LedgerConfig struct {
	Path string
}

// ServerConfig holds HTTP shell settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Sink: SinkConfig{
			Table: "vendas_calculado",
		},
		Ledger: LedgerConfig{
			Path: "historico.duckdb",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:8080"},
		},
		DataDir:         "gdown",
		QuantityColumn:  "quantity",
		UnitPriceColumn: "unit_price",
	}
}

var envBindings = map[string]string{
	"drive.folder_id":        "FOLDER_ID",
	"drive.token":            "TOKEN",
	"sink.database_url":      "DATABASE_URL",
	"sink.table":             "SINK_TABLE",
	"ledger.path":            "LEDGER_PATH",
	"server.addr":            "HTTP_ADDR",
	"server.allowed_origins": "ALLOWED_ORIGINS",
	"data_dir":               "DATA_DIR",
	"columns.quantity":       "QUANTITY_COLUMN",
	"columns.unit_price":     "UNIT_PRICE_COLUMN",
}

// Load reads config.yaml (when present) and a .env file (when present) from configPath,
// then applies environment overrides on top of DefaultConfig. configPath may be a
// directory or a config file.
func Load(configPath string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configPath)
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return cfg, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := mergeDotEnv(v, configPath); err != nil {
		return cfg, err
	}

	if v.IsSet("drive.folder_id") {
		cfg.Drive.FolderID = v.GetString("drive.folder_id")
	}
	if v.IsSet("drive.token") {
		cfg.Drive.Token = v.GetString("drive.token")
	}
	if v.IsSet("sink.database_url") {
		cfg.Sink.DatabaseURL = v.GetString("sink.database_url")
	}
	if v.IsSet("sink.table") {
		cfg.Sink.Table = v.GetString("sink.table")
	}
	if v.IsSet("ledger.path") {
		cfg.Ledger.Path = v.GetString("ledger.path")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = splitList(v.GetStringSlice("server.allowed_origins"))
	}
	if v.IsSet("data_dir") {
		cfg.DataDir = v.GetString("data_dir")
	}
	if v.IsSet("columns.quantity") {
		cfg.QuantityColumn = v.GetString("columns.quantity")
	}
	if v.IsSet("columns.unit_price") {
		cfg.UnitPriceColumn = v.GetString("columns.unit_price")
	}

	return cfg, cfg.Validate()
}

// mergeDotEnv loads KEY=VALUE pairs from a .env file next to the config. Real environment
// variables still win because they are bound on v.
func mergeDotEnv(v *viper.Viper, configPath string) error {
	dir := configPath
	if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
		dir = filepath.Dir(configPath)
	}
	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err != nil {
		return nil
	}

	dotenv := viper.New()
	dotenv.SetConfigFile(envFile)
	dotenv.SetConfigType("env")
	if err := dotenv.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	for key, env := range envBindings {
		if _, ok := os.LookupEnv(env); ok {
			continue
		}
		lower := strings.ToLower(env)
		if dotenv.IsSet(lower) {
			v.Set(key, dotenv.Get(lower))
		}
	}
	return nil
}

func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Sink.Table) == "" {
		return errors.New("sink table is required")
	}
	if strings.TrimSpace(c.Ledger.Path) == "" {
		return errors.New("ledger path is required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data directory is required")
	}
	if c.QuantityColumn == "" || c.UnitPriceColumn == "" {
		return errors.New("quantity and unit price column names are required")
	}
	return nil
}
