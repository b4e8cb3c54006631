package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Client wraps the PostgreSQL connection pool with an explicit reconnect
// path. It is constructed once at startup and shared by all requests;
// repositories call Reconnect after a failed query and retry exactly once.
type Client struct {
	mu  sync.RWMutex
	uri string
	db  *sqlx.DB
}

// Connect opens and verifies a PostgreSQL connection.
func Connect(ctx context.Context, uri string) (*Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("POSTGRES_URI is required")
	}

	c := &Client{uri: uri}
	pool, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	c.db = pool
	return c, nil
}

func (c *Client) open(ctx context.Context) (*sqlx.DB, error) {
	pool, err := sqlx.ConnectContext(ctx, "postgres", c.uri)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(25)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(1 * time.Minute)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	return pool, nil
}

// DB returns the current pool handle.
func (c *Client) DB() *sqlx.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Ping verifies connectivity on the current handle.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB().PingContext(ctx)
}

// Reconnect discards the current pool and establishes a fresh one. Safe for
// concurrent use; requests holding the old handle finish against it.
func (c *Client) Reconnect(ctx context.Context) error {
	pool, err := c.open(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.db
	c.db = pool
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Close shuts down the pool.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
