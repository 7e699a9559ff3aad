package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EdgeTypeCitation          = "citation"
	EdgeTypeCoAuthorship      = "co_authorship"
	EdgeTypeSubjectSimilarity = "subject_similarity"
	EdgeTypeTemporal          = "temporal"
	EdgeTypeSemantic          = "semantic"
)

// EdgeTypes lists the explicit relation kinds in their canonical order.
var EdgeTypes = []string{
	EdgeTypeCitation,
	EdgeTypeCoAuthorship,
	EdgeTypeSubjectSimilarity,
	EdgeTypeTemporal,
	EdgeTypeSemantic,
}

func IsValidEdgeType(t string) bool {
	for _, known := range EdgeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// GraphEdge is a directed, typed, weighted relation between two resources.
// One row per (source, target, type); re-deriving an edge refreshes its
// weight in place.
type GraphEdge struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SourceID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_graph_edge,unique,priority:1" json:"source_id"`
	TargetID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_graph_edge,unique,priority:2" json:"target_id"`
	EdgeType string    `gorm:"column:edge_type;not null;index:idx_graph_edge,unique,priority:3" json:"edge_type"`
	Weight   float64   `gorm:"column:weight;not null;default:0" json:"weight"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GraphEdge) TableName() string { return "graph_edge" }
