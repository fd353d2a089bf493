package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "entorm.db")
	v.SetDefault("database.busy_timeout_ms", 5000)

	// Entity defaults
	v.SetDefault("entity.array_separator", ",")
	v.SetDefault("entity.default_page_size", 25)
	v.SetDefault("entity.max_page_size", 500)

	// Schema defaults: nothing registered until declared
	v.SetDefault("schema.paths", []string{})

	// Log defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.verbosity", 0)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	// Postgres DSNs usually carry credentials; DATABASE_URL is the common convention
	v.BindEnv("database.dsn", "ENTORM_DATABASE_DSN", "DATABASE_URL")
}
