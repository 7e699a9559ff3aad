package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
	"github.com/openshelf/bibliograph-backend/internal/platform/neo4jdb"
)

// UpsertResourceGraph mirrors resources and their explicit edges into
// Neo4j. The mirror is best-effort: a nil client is a no-op, and callers
// are expected to log failures and carry on rather than fail the write
// path that triggered the sync.
func UpsertResourceGraph(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, resources []*types.Resource, edges []*types.GraphEdge) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	nodes := make([]map[string]any, 0, len(resources))
	for _, r := range resources {
		if r == nil || r.ID == uuid.Nil {
			continue
		}
		nodes = append(nodes, map[string]any{
			"id":            r.ID.String(),
			"title":         r.Title,
			"resource_type": r.ResourceType,
			"taxonomy_code": r.TaxonomyCode,
			"subjects_json": func() string {
				if len(r.Subjects) == 0 {
					return ""
				}
				return string(r.Subjects)
			}(),
			"quality_score": r.QualityScore,
			"synced_at":     now,
		})
	}

	rels := make([]map[string]any, 0, len(edges))
	byType := map[string][]map[string]any{}
	for _, e := range edges {
		if e == nil || e.SourceID == uuid.Nil || e.TargetID == uuid.Nil || e.EdgeType == "" {
			continue
		}
		rec := map[string]any{
			"id":        e.ID.String(),
			"source_id": e.SourceID.String(),
			"target_id": e.TargetID.String(),
			"edge_type": e.EdgeType,
			"weight":    e.Weight,
			"synced_at": now,
		}
		rels = append(rels, rec)
		byType[e.EdgeType] = append(byType[e.EdgeType], rec)
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	// Create schema helpers (best-effort; may fail for restricted users).
	if res, err := session.Run(ctx, `CREATE CONSTRAINT resource_id_unique IF NOT EXISTS FOR (r:Resource) REQUIRE r.id IS UNIQUE`, nil); err != nil {
		if log != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	} else {
		_, _ = res.Consume(ctx)
	}
	if res, err := session.Run(ctx, `CREATE INDEX resource_type_idx IF NOT EXISTS FOR (r:Resource) ON (r.resource_type)`, nil); err != nil {
		if log != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(nodes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (r:Resource {id: n.id})
SET r += n
`, map[string]any{"nodes": nodes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(rels) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (a:Resource {id: r.source_id})
MATCH (b:Resource {id: r.target_id})
MERGE (a)-[e:RESOURCE_EDGE {edge_type: r.edge_type}]->(b)
SET e.id = r.id,
    e.weight = r.weight,
    e.synced_at = r.synced_at
`, map[string]any{"rels": rels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		// Convenience edges for fast traversals without property filtering.
		for edgeType, recs := range byType {
			relName, ok := mirrorRelNames[edgeType]
			if !ok || len(recs) == 0 {
				continue
			}
			res, err := tx.Run(ctx, fmt.Sprintf(`
UNWIND $rels AS r
MATCH (a:Resource {id: r.source_id})
MATCH (b:Resource {id: r.target_id})
MERGE (a)-[e:%s]->(b)
SET e.id = r.id,
    e.weight = r.weight,
    e.synced_at = r.synced_at
`, relName), map[string]any{"rels": recs})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	return err
}

var mirrorRelNames = map[string]string{
	types.EdgeTypeCitation:          "CITES",
	types.EdgeTypeCoAuthorship:      "CO_AUTHORED_WITH",
	types.EdgeTypeSubjectSimilarity: "SHARES_SUBJECTS",
	types.EdgeTypeTemporal:          "TEMPORAL_LINK",
	types.EdgeTypeSemantic:          "SEMANTIC_LINK",
}

// UpsertValidatedHypothesis records a curator-accepted hypothesis as a
// direct relationship between the A and C endpoints.
func UpsertValidatedHypothesis(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, h *types.DiscoveryHypothesis) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if h == nil {
		return fmt.Errorf("neo4j hypothesis sync: missing hypothesis")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	bridgeIDs := types.DecodeUUIDs(h.BResourceIDs)
	bridges := make([]string, 0, len(bridgeIDs))
	for _, id := range bridgeIDs {
		bridges = append(bridges, id.String())
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (a:Resource {id: $a_id})
MERGE (c:Resource {id: $c_id})
MERGE (a)-[e:VALIDATED_CONNECTION {hypothesis_type: $hypothesis_type}]->(c)
SET e.id = $id,
    e.plausibility = $plausibility,
    e.path_strength = $path_strength,
    e.path_length = $path_length,
    e.bridge_ids = $bridge_ids,
    e.synced_at = $synced_at
`, map[string]any{
			"a_id":            h.AResourceID.String(),
			"c_id":            h.CResourceID.String(),
			"hypothesis_type": h.HypothesisType,
			"id":              h.ID.String(),
			"plausibility":    h.Plausibility,
			"path_strength":   h.PathStrength,
			"path_length":     int64(h.PathLength),
			"bridge_ids":      bridges,
			"synced_at":       time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}
