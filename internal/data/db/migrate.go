package db

import (
	"fmt"

	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Catalog (rows written by the ingestion pipeline, read here)
		&types.Resource{},

		// Knowledge graph
		&types.GraphEdge{},
		&types.DiscoveryHypothesis{},
	)
}

// EnsureGraphIndexes adds the composite indexes the traversal and discovery
// scans lean on. AutoMigrate covers the single-column ones.
func EnsureGraphIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_graph_edge_source_weight
		ON graph_edge (source_id, weight DESC)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_graph_edge_source_weight: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_graph_edge_target_weight
		ON graph_edge (target_id, weight DESC)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_graph_edge_target_weight: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_discovery_hypothesis_a_type_plausibility
		ON discovery_hypothesis (a_resource_id, hypothesis_type, plausibility DESC)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_discovery_hypothesis_a_type_plausibility: %w", err)
	}

	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureGraphIndexes(s.db); err != nil {
		s.log.Error("Graph index migration failed", "error", err)
		return err
	}
	return nil
}
