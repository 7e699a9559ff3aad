package app

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/openshelf/bibliograph-backend/internal/clients/redis"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
	"github.com/openshelf/bibliograph-backend/internal/platform/neo4jdb"
)

// Clients holds the optional side stores. Both constructors return nil
// when their address env vars are unset, and every consumer tolerates a
// nil client, so a bare Postgres deployment still boots.
type Clients struct {
	Cache *redisclient.Cache
	Neo4j *neo4jdb.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	cache, err := redisclient.NewCache(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis cache: %w", err)
	}

	neo4jClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return Clients{}, fmt.Errorf("init neo4j client: %w", err)
	}

	return Clients{
		Cache: cache,
		Neo4j: neo4jClient,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.Neo4j != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = c.Neo4j.Close(ctx)
		cancel()
	}
}
