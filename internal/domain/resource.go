package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Resource is a catalog item (book, paper, thesis, dataset). Rows are
// written by the ingestion pipeline; this service reads them.
type Resource struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Title        string `gorm:"column:title;not null" json:"title"`
	ResourceType string `gorm:"column:resource_type;not null;index" json:"resource_type"`

	Embedding    datatypes.JSON `gorm:"column:embedding;type:jsonb" json:"embedding,omitempty"`
	TaxonomyCode string         `gorm:"column:taxonomy_code;index" json:"taxonomy_code,omitempty"`
	Subjects     datatypes.JSON `gorm:"column:subjects;type:jsonb;not null;default:'[]'" json:"subjects"`

	QualityScore float64 `gorm:"column:quality_score;not null;default:0.5" json:"quality_score"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Resource) TableName() string { return "resource" }
