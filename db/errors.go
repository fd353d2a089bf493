package db

import (
	"strings"

	"github.com/teranos/entorm/errors"
)

// ErrDatabaseClosed is returned when a statement runs on a closed *sql.DB,
// typically a lazy relation load issued after the caller closed the
// connection its entities were hydrated through.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks if an error indicates the database connection is closed.
// Drivers return their own error values, so the message is matched as a fallback.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

// NormalizeError maps driver "closed" errors onto ErrDatabaseClosed, keeping
// the driver error attached as secondary context. Other errors pass through.
func NormalizeError(err error) error {
	if err == nil || errors.Is(err, ErrDatabaseClosed) || !IsDatabaseClosed(err) {
		return err
	}
	return errors.WithSecondaryError(errors.WithStack(ErrDatabaseClosed), err)
}
