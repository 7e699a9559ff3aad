package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	HypothesisTypeOpen   = "open"
	HypothesisTypeClosed = "closed"
)

// DiscoveryHypothesis records a candidate hidden connection between two
// resources, produced by a discovery run. One row per (A, C, type); re-runs
// refresh scores and bridges. IsValidated stays nil until a curator rules.
type DiscoveryHypothesis struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	AResourceID    uuid.UUID      `gorm:"type:uuid;not null;index;index:idx_discovery_hypothesis,unique,priority:1" json:"a_resource_id"`
	CResourceID    uuid.UUID      `gorm:"type:uuid;not null;index;index:idx_discovery_hypothesis,unique,priority:2" json:"c_resource_id"`
	HypothesisType string         `gorm:"column:hypothesis_type;not null;index:idx_discovery_hypothesis,unique,priority:3" json:"hypothesis_type"`
	BResourceIDs   datatypes.JSON `gorm:"column:b_resource_ids;type:jsonb;not null;default:'[]'" json:"b_resource_ids"`

	Plausibility    float64 `gorm:"column:plausibility;not null;default:0;index" json:"plausibility"`
	PathStrength    float64 `gorm:"column:path_strength;not null;default:0" json:"path_strength"`
	PathLength      int     `gorm:"column:path_length;not null;default:0" json:"path_length"`
	CommonNeighbors int     `gorm:"column:common_neighbors;not null;default:0" json:"common_neighbors"`

	IsValidated     *bool  `gorm:"column:is_validated" json:"is_validated,omitempty"`
	ValidationNotes string `gorm:"column:validation_notes;type:text" json:"validation_notes,omitempty"`

	DiscoveredAt time.Time `gorm:"column:discovered_at;not null;default:now();index" json:"discovered_at"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DiscoveryHypothesis) TableName() string { return "discovery_hypothesis" }
