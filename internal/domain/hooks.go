package domain

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ids are assigned app-side so inserts also work on drivers without
// uuid_generate_v4 (sqlite dev mode).

func (r *Resource) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (e *GraphEdge) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (h *DiscoveryHypothesis) BeforeCreate(_ *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
