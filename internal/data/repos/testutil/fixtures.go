package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedResource(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, embedding []float32, subjects []string, taxonomy string, quality float64) *types.Resource {
	tb.Helper()
	r := &types.Resource{
		ID:           uuid.New(),
		Title:        title,
		ResourceType: "paper",
		Embedding:    types.EncodeEmbedding(embedding),
		Subjects:     types.EncodeSubjects(subjects),
		TaxonomyCode: taxonomy,
		QualityScore: quality,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed resource: %v", err)
	}
	return r
}

func SeedEdge(tb testing.TB, ctx context.Context, tx *gorm.DB, sourceID, targetID uuid.UUID, edgeType string, weight float64) *types.GraphEdge {
	tb.Helper()
	e := &types.GraphEdge{
		ID:       uuid.New(),
		SourceID: sourceID,
		TargetID: targetID,
		EdgeType: edgeType,
		Weight:   weight,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed edge: %v", err)
	}
	return e
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrBool(v bool) *bool { return &v }
