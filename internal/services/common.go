package services

import (
	"sort"

	"github.com/google/uuid"

	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"github.com/openshelf/bibliograph-backend/internal/pkg/scoring"
)

// ResourceSummary is the node payload shared by the graph and discovery
// endpoints. Embeddings stay server-side.
type ResourceSummary struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	ResourceType string    `json:"resource_type"`
	TaxonomyCode string    `json:"taxonomy_code,omitempty"`
	QualityScore float64   `json:"quality_score"`
}

func summarize(r *types.Resource) ResourceSummary {
	if r == nil {
		return ResourceSummary{}
	}
	return ResourceSummary{
		ID:           r.ID,
		Title:        r.Title,
		ResourceType: r.ResourceType,
		TaxonomyCode: r.TaxonomyCode,
		QualityScore: r.QualityScore,
	}
}

// EdgeSignals carries the raw per-signal affinities that fed a hybrid
// weight, so clients can explain an edge without recomputing it.
type EdgeSignals struct {
	Vector   float64 `json:"vector"`
	Subject  float64 `json:"subject"`
	Taxonomy float64 `json:"taxonomy"`
}

// signalsBetween computes the three hybrid inputs for a pair of loaded
// resources. Vector affinity is 0 when either embedding is missing or the
// dimensions disagree; mixed embedding generations must not fail a scan.
func signalsBetween(a, b *types.Resource) EdgeSignals {
	var out EdgeSignals
	if a == nil || b == nil {
		return out
	}
	if va, ok := types.DecodeEmbedding(a.Embedding); ok {
		if vb, ok := types.DecodeEmbedding(b.Embedding); ok {
			if sim, err := scoring.Cosine(va, vb); err == nil {
				out.Vector = scoring.Clamp01(sim)
			}
		}
	}
	out.Subject = scoring.Jaccard(types.DecodeSubjects(a.Subjects), types.DecodeSubjects(b.Subjects))
	out.Taxonomy = scoring.TaxonomyAffinity(a.TaxonomyCode, b.TaxonomyCode)
	return out
}

// semanticAffinity is the clamped cosine between two resources, 0 when
// either side has no usable embedding.
func semanticAffinity(a, b *types.Resource) float64 {
	va, ok := types.DecodeEmbedding(a.Embedding)
	if !ok {
		return 0
	}
	vb, ok := types.DecodeEmbedding(b.Embedding)
	if !ok {
		return 0
	}
	sim, err := scoring.Cosine(va, vb)
	if err != nil {
		return 0
	}
	return scoring.Clamp01(sim)
}

func clampInt(v, def, min, max int) int {
	if v <= 0 {
		v = def
	}
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}

func dedupeUUIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
