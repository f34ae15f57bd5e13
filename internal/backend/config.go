package backend

import (
	"errors"
	"fmt"

	"finx/internal/config"
)

var (
	ErrNilConfig      = errors.New("backend: app config is nil")
	ErrUnknownBackend = errors.New("backend: unknown data backend")
	ErrMissingPath    = errors.New("backend: database path is required")
)

// FromAppConfig picks the backend fields out of the application config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, ErrNilConfig
	}
	c := Config{
		Type:         BackendType(app.DataBackend),
		BoltDBPath:   app.BoltDBPath,
		SQLiteDBPath: app.SQLiteDBPath,
		AMQPURL:      app.AMQPURL,
		AMQPExchange: app.AMQPExchange,
		AMQPQueue:    app.AMQPQueue,
	}
	if !c.Type.IsValid() {
		return Config{}, fmt.Errorf("%w %q", ErrUnknownBackend, app.DataBackend)
	}
	return c, nil
}

// Validate checks that file-backed slots know where their file lives.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Type)
	}
	if path, file := c.path(); file && path == "" {
		return fmt.Errorf("%w for %s", ErrMissingPath, c.Type)
	}
	return nil
}

// path reports the database file for the configured type and whether the
// type is file-backed at all.
func (c Config) path() (string, bool) {
	switch c.Type {
	case BoltBackend:
		return c.BoltDBPath, true
	case SQLiteBackend:
		return c.SQLiteDBPath, true
	default:
		return "", false
	}
}
