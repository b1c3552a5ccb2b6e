package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// connect opens a short-lived pgx connection to the given database on this
// instance. Callers own the returned connection and must Close it.
func (i *Instance) connect(ctx context.Context, database string) (*pgx.Conn, error) {
	i.mu.Lock()
	if i.state != StateRunning {
		i.mu.Unlock()
		return nil, ErrNotRunning
	}
	info := i.connectionInfoLocked()
	i.mu.Unlock()

	if database != "" {
		info = info.forDatabase(database)
	}
	conn, err := pgx.Connect(ctx, info.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", info.SafeConnectionString(), err)
	}
	return conn, nil
}

// CreateDatabase creates a database with the given name. Creating a name
// that already exists fails with the server's duplicate-database error.
func (i *Instance) CreateDatabase(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyDatabaseName
	}
	conn, err := i.connect(ctx, "")
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	// CREATE DATABASE cannot be parameterized; quote the identifier.
	sql := fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{name}.Sanitize())
	if _, err := conn.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create database %q: %w", name, err)
	}
	i.log.Debug("database created", "database", name)
	return nil
}

// DropDatabase drops the database if it exists. Dropping an absent
// database succeeds silently.
func (i *Instance) DropDatabase(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyDatabaseName
	}
	conn, err := i.connect(ctx, "")
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	sql := fmt.Sprintf("DROP DATABASE IF EXISTS %s", pgx.Identifier{name}.Sanitize())
	if _, err := conn.Exec(ctx, sql); err != nil {
		return fmt.Errorf("drop database %q: %w", name, err)
	}
	i.log.Debug("database dropped", "database", name)
	return nil
}

// DatabaseExists reports whether a database with the given name exists.
// An absent database is (false, nil), not an error.
func (i *Instance) DatabaseExists(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, ErrEmptyDatabaseName
	}
	conn, err := i.connect(ctx, "")
	if err != nil {
		return false, err
	}
	defer conn.Close(ctx)

	var one int
	err = conn.QueryRow(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", name).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query pg_database for %q: %w", name, err)
	}
	return true, nil
}

// IsHealthy reports whether the server responds to a trivial query. It is
// a point-in-time probe: false covers every failure mode, from not running
// to a connection refusal.
func (i *Instance) IsHealthy(ctx context.Context) bool {
	conn, err := i.connect(ctx, "")
	if err != nil {
		return false
	}
	defer conn.Close(ctx)
	return conn.Ping(ctx) == nil
}
