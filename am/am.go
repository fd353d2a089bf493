// Package am holds entorm's configuration: which database to open, how
// entity values are encoded, where schema declarations live and how loud
// logging is.
package am

// Config represents the entorm configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database" yaml:"database" json:"database"`
	Entity   EntityConfig   `mapstructure:"entity" toml:"entity" yaml:"entity" json:"entity"`
	Schema   SchemaConfig   `mapstructure:"schema" toml:"schema" yaml:"schema" json:"schema"`
	Log      LogConfig      `mapstructure:"log" toml:"log" yaml:"log" json:"log"`
}

// DatabaseConfig selects the driver and connection target
type DatabaseConfig struct {
	Driver        string `mapstructure:"driver" toml:"driver" yaml:"driver" json:"driver"`                                  // sqlite3 or pgx
	Path          string `mapstructure:"path" toml:"path" yaml:"path" json:"path"`                                          // sqlite3 file
	DSN           string `mapstructure:"dsn" toml:"dsn,omitempty" yaml:"dsn,omitempty" json:"dsn,omitempty"`                // pgx connection string
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms" toml:"busy_timeout_ms" yaml:"busy_timeout_ms" json:"busy_timeout_ms"` // sqlite3 only
}

// EntityConfig configures value encoding and result sizing
type EntityConfig struct {
	ArraySeparator  string `mapstructure:"array_separator" toml:"array_separator" yaml:"array_separator" json:"array_separator"`       // used when a schema declares none
	DefaultPageSize int    `mapstructure:"default_page_size" toml:"default_page_size" yaml:"default_page_size" json:"default_page_size"` // CLI list size when --limit is omitted
	MaxPageSize     int    `mapstructure:"max_page_size" toml:"max_page_size" yaml:"max_page_size" json:"max_page_size"`
}

// SchemaConfig lists entity schema declaration files (TOML or YAML)
type SchemaConfig struct {
	Paths []string `mapstructure:"paths" toml:"paths" yaml:"paths" json:"paths"`
}

// LogConfig configures the global logger
type LogConfig struct {
	JSON      bool `mapstructure:"json" toml:"json" yaml:"json" json:"json"`
	Verbosity int  `mapstructure:"verbosity" toml:"verbosity" yaml:"verbosity" json:"verbosity"` // 0-4, same scale as -v flags
}

// Driver names accepted in database.driver
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// DefaultDirPermissions is used for ~/.entorm
const DefaultDirPermissions = 0750
