package am

import "github.com/teranos/entorm/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		// Empty path falls back to the default on load; an explicit empty string is a mistake
		if c.Database.Path == "" {
			return errors.New("database.path cannot be empty for the sqlite3 driver")
		}
		if c.Database.BusyTimeoutMS < 0 {
			return errors.Newf("database.busy_timeout_ms must be >= 0, got %d", c.Database.BusyTimeoutMS)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.WithHint(errors.New("database.dsn is required for the pgx driver"),
				"set ENTORM_DATABASE_DSN or DATABASE_URL")
		}
	default:
		return errors.Newf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	if c.Entity.ArraySeparator == "" {
		return errors.New("entity.array_separator cannot be empty")
	}
	if c.Entity.DefaultPageSize <= 0 {
		return errors.Newf("entity.default_page_size must be > 0, got %d", c.Entity.DefaultPageSize)
	}
	if c.Entity.MaxPageSize <= 0 {
		return errors.Newf("entity.max_page_size must be > 0, got %d", c.Entity.MaxPageSize)
	}
	if c.Entity.DefaultPageSize > c.Entity.MaxPageSize {
		return errors.Newf("entity.default_page_size (%d) cannot exceed entity.max_page_size (%d)",
			c.Entity.DefaultPageSize, c.Entity.MaxPageSize)
	}

	if c.Log.Verbosity < 0 {
		return errors.Newf("log.verbosity must be >= 0, got %d", c.Log.Verbosity)
	}

	return nil
}

// ClampPageSize applies the configured default and maximum to a requested page size.
func (c *Config) ClampPageSize(requested int) int {
	if requested <= 0 {
		return c.Entity.DefaultPageSize
	}
	if requested > c.Entity.MaxPageSize {
		return c.Entity.MaxPageSize
	}
	return requested
}
