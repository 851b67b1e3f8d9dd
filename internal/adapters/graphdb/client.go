// Package graphdb exports built relationship graphs to Neo4j (or Memgraph)
// over Bolt for exploration.
package graphdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/okian/wrestlerank/pkg/logger"
)

// ErrNoURI is returned when no Bolt URI is configured.
var ErrNoURI = errors.New("neo4j uri not configured")

// Config holds graph database connection settings.
type Config struct {
	URI      string
	Username string
	Password string
}

// Client wraps the Neo4j driver.
type Client struct {
	driver neo4j.DriverWithContext
	log    logger.Logger
}

// NewClient creates a client. Credentials are optional.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.URI == "" {
		return nil, ErrNoURI
	}
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph driver: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{driver: driver, log: log}, nil
}

// VerifyConnectivity checks that the database is reachable.
func (c *Client) VerifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close closes the driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Write runs one statement in a managed write transaction and waits for
// its summary.
func (c *Client) Write(ctx context.Context, cypher string, params map[string]any) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		c.log.Error(ctx, "graph write failed", logger.Error(err))
		return fmt.Errorf("graph write: %w", err)
	}
	return nil
}
