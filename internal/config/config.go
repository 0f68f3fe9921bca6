package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "path_recorder.cfg.json"

// RecorderConfig holds settings shared by the saver and the server.
type RecorderConfig struct {
	FrameID          string  `json:"frameId" mapstructure:"frameId"`
	Rate             float64 `json:"rate" mapstructure:"rate"`
	TerminalSentinel bool    `json:"terminalSentinel" mapstructure:"terminalSentinel"`
	BufferSize       int     `json:"bufferSize" mapstructure:"bufferSize"`
}

// ServerConfig holds HTTP surface settings.
type ServerConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Listen  string `json:"listen" mapstructure:"listen"`
}

// PostgresConfig holds connection settings for the postgres catalog.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`
}

// CatalogConfig selects and configures the recording catalog database.
type CatalogConfig struct {
	Enabled    bool           `json:"enabled" mapstructure:"enabled"`
	Type       string         `json:"type" mapstructure:"type"`
	SQLitePath string         `json:"sqlitePath" mapstructure:"sqlitePath"`
	Postgres   PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// InfluxConfig holds InfluxDB connection settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`

	// BackupPath receives gzipped line protocol while the server is
	// unreachable. Empty disables the backup.
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// GraylogConfig holds GELF output settings.
type GraylogConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Address  string `json:"address" mapstructure:"address"`
	Facility string `json:"facility" mapstructure:"facility"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "")

	viper.SetDefault("frameId", "map")
	viper.SetDefault("rate", 6.0)
	viper.SetDefault("recorder.terminalSentinel", false)
	viper.SetDefault("dispatcher.bufferSize", 1024)

	viper.SetDefault("server.enabled", true)
	viper.SetDefault("server.listen", ":8080")

	viper.SetDefault("catalog.enabled", false)
	viper.SetDefault("catalog.type", "sqlite")
	viper.SetDefault("catalog.sqlitePath", "./path_recorder.db")
	viper.SetDefault("catalog.postgres.host", "localhost")
	viper.SetDefault("catalog.postgres.port", "5432")
	viper.SetDefault("catalog.postgres.username", "postgres")
	viper.SetDefault("catalog.postgres.password", "postgres")
	viper.SetDefault("catalog.postgres.database", "path_recorder")
	viper.SetDefault("catalog.postgres.sslmode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "path-recorder")
	viper.SetDefault("influx.bucket", "paths")
	viper.SetDefault("influx.backupPath", "./path_recorder_influx.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
	viper.SetDefault("graylog.facility", "path_recorder")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "path-recorder")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load sets defaults and merges path_recorder.cfg.json from configDir.
// A missing file is fine; an unreadable or malformed one is an error.
func Load(configDir string) error {
	setDefaults()

	if configDir == "" {
		configDir = "."
	}
	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// Set overrides a value, taking precedence over the file and defaults.
func Set(key string, value any) {
	viper.Set(key, value)
}

// GetRecorderConfig returns recorder settings.
func GetRecorderConfig() RecorderConfig {
	return RecorderConfig{
		FrameID:          viper.GetString("frameId"),
		Rate:             viper.GetFloat64("rate"),
		TerminalSentinel: viper.GetBool("recorder.terminalSentinel"),
		BufferSize:       viper.GetInt("dispatcher.bufferSize"),
	}
}

// GetServerConfig returns HTTP settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Enabled: viper.GetBool("server.enabled"),
		Listen:  viper.GetString("server.listen"),
	}
}

// GetCatalogConfig returns catalog database settings.
func GetCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Enabled:    viper.GetBool("catalog.enabled"),
		Type:       viper.GetString("catalog.type"),
		SQLitePath: viper.GetString("catalog.sqlitePath"),
		Postgres: PostgresConfig{
			Host:     viper.GetString("catalog.postgres.host"),
			Port:     viper.GetString("catalog.postgres.port"),
			Username: viper.GetString("catalog.postgres.username"),
			Password: viper.GetString("catalog.postgres.password"),
			Database: viper.GetString("catalog.postgres.database"),
			SSLMode:  viper.GetString("catalog.postgres.sslmode"),
		},
	}
}

// GetInfluxConfig returns InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),

		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetGraylogConfig returns GELF output settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled:  viper.GetBool("graylog.enabled"),
		Address:  viper.GetString("graylog.address"),
		Facility: viper.GetString("graylog.facility"),
	}
}

// OTelConfig holds OpenTelemetry log export settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GetOTelConfig returns OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"rate":     "rate",
	"frame-id": "frameId",
	"listen":   "server.listen",
}

// BindFlags makes explicitly set flags override the file and defaults.
func BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}
