// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/singleflight"
)

// Open connects to a Postgres database and pings it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

// OpenFunc opens the database behind a routing key.
type OpenFunc func(ctx context.Context, routingKey string) (*sql.DB, error)

// Registry keeps one connection pool per tenant source database, opened on first use.
// Opening one key never blocks lookups of another.
type Registry struct {
	open    OpenFunc
	opening singleflight.Group

	mu    sync.Mutex
	conns map[string]*sql.DB
}

func NewRegistry(open OpenFunc) *Registry {
	return &Registry{open: open, conns: make(map[string]*sql.DB)}
}

// NewDSNRegistry opens source databases from a DSN template with one %s.
func NewDSNRegistry(dsnFor func(database string) string) *Registry {
	return NewRegistry(func(ctx context.Context, key string) (*sql.DB, error) {
		return Open(ctx, dsnFor(key))
	})
}

func (r *Registry) Get(ctx context.Context, routingKey string) (*sql.DB, error) {
	if routingKey == "" {
		return nil, fmt.Errorf("empty routing key")
	}

	if conn, ok := r.lookup(routingKey); ok {
		return conn, nil
	}

	v, err, _ := r.opening.Do(routingKey, func() (any, error) {
		if conn, ok := r.lookup(routingKey); ok {
			return conn, nil
		}
		conn, err := r.open(ctx, routingKey)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.conns[routingKey] = conn
		r.mu.Unlock()
		return conn, nil
	})
	if err != nil {
		return nil, fmt.Errorf("source database %s: %w", routingKey, err)
	}
	return v.(*sql.DB), nil
}

func (r *Registry) lookup(routingKey string) (*sql.DB, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[routingKey]
	return conn, ok
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for key, conn := range r.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.conns, key)
	}
	return firstErr
}
