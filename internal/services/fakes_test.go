package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/bibliograph-backend/internal/data/repos"
	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"github.com/openshelf/bibliograph-backend/internal/platform/apierr"
	"github.com/openshelf/bibliograph-backend/internal/platform/dbctx"
)

// In-memory repo fakes shared by the service tests. Ordering matches the
// real queries so the determinism assertions mean something.

func testDBC(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx}
}

func assertAPIStatus(t *testing.T, err error, wantStatus int, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d/%s error, got nil", wantStatus, wantCode)
	}
	status, code := apierr.Status(err)
	if status != wantStatus || code != wantCode {
		t.Fatalf("error mapping: want=%d/%s got=%d/%s (%v)", wantStatus, wantCode, status, code, err)
	}
}

type fakeResourceRepo struct {
	resources map[uuid.UUID]*types.Resource
}

func newFakeResourceRepo() *fakeResourceRepo {
	return &fakeResourceRepo{resources: map[uuid.UUID]*types.Resource{}}
}

func (f *fakeResourceRepo) add(r *types.Resource) *types.Resource {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	f.resources[r.ID] = r
	return r
}

func (f *fakeResourceRepo) Create(_ dbctx.Context, rows []*types.Resource) ([]*types.Resource, error) {
	for _, r := range rows {
		f.add(r)
	}
	return rows, nil
}

func (f *fakeResourceRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Resource, error) {
	return f.resources[id], nil
}

func (f *fakeResourceRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Resource, error) {
	out := make([]*types.Resource, 0, len(ids))
	for _, id := range ids {
		if r, ok := f.resources[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResourceRepo) ListWithEmbeddings(_ dbctx.Context, excludeID uuid.UUID, limit int) ([]*types.Resource, error) {
	out := make([]*types.Resource, 0, len(f.resources))
	for _, r := range f.resources {
		if r.ID == excludeID {
			continue
		}
		if _, ok := types.DecodeEmbedding(r.Embedding); !ok {
			continue
		}
		out = append(out, r)
	}
	sortResourcesByID(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeResourceRepo) ListWithSubjects(_ dbctx.Context, excludeID uuid.UUID, limit int) ([]*types.Resource, error) {
	out := make([]*types.Resource, 0, len(f.resources))
	for _, r := range f.resources {
		if r.ID == excludeID {
			continue
		}
		if len(types.DecodeSubjects(r.Subjects)) == 0 {
			continue
		}
		out = append(out, r)
	}
	sortResourcesByID(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeResourceRepo) Count(_ dbctx.Context) (int64, error) {
	return int64(len(f.resources)), nil
}

func sortResourcesByID(rows []*types.Resource) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID.String() < rows[j].ID.String() })
}

type fakeEdgeRepo struct {
	edges []*types.GraphEdge

	updateWeightErr error
	updateCalls     int
}

func newFakeEdgeRepo() *fakeEdgeRepo {
	return &fakeEdgeRepo{}
}

func (f *fakeEdgeRepo) add(sourceID, targetID uuid.UUID, edgeType string, weight float64) *types.GraphEdge {
	e := &types.GraphEdge{
		ID:       uuid.New(),
		SourceID: sourceID,
		TargetID: targetID,
		EdgeType: edgeType,
		Weight:   weight,
	}
	f.edges = append(f.edges, e)
	return e
}

func (f *fakeEdgeRepo) Create(_ dbctx.Context, rows []*types.GraphEdge) ([]*types.GraphEdge, error) {
	for _, e := range rows {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		f.edges = append(f.edges, e)
	}
	return rows, nil
}

func (f *fakeEdgeRepo) Upsert(_ dbctx.Context, row *types.GraphEdge) error {
	for _, e := range f.edges {
		if e.SourceID == row.SourceID && e.TargetID == row.TargetID && e.EdgeType == row.EdgeType {
			e.Weight = row.Weight
			return nil
		}
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	f.edges = append(f.edges, row)
	return nil
}

func (f *fakeEdgeRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.GraphEdge, error) {
	for _, e := range f.edges {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeEdgeRepo) GetBySourceIDs(_ dbctx.Context, sourceIDs []uuid.UUID) ([]*types.GraphEdge, error) {
	want := toIDSet(sourceIDs)
	out := make([]*types.GraphEdge, 0, len(f.edges))
	for _, e := range f.edges {
		if want[e.SourceID] {
			out = append(out, e)
		}
	}
	sortEdgesSourceWeight(out)
	return out, nil
}

func (f *fakeEdgeRepo) GetByTargetIDs(_ dbctx.Context, targetIDs []uuid.UUID) ([]*types.GraphEdge, error) {
	want := toIDSet(targetIDs)
	out := make([]*types.GraphEdge, 0, len(f.edges))
	for _, e := range f.edges {
		if want[e.TargetID] {
			out = append(out, e)
		}
	}
	sortEdgesSourceWeight(out)
	return out, nil
}

func (f *fakeEdgeRepo) GetByResourceIDs(_ dbctx.Context, resourceIDs []uuid.UUID) ([]*types.GraphEdge, error) {
	want := toIDSet(resourceIDs)
	out := make([]*types.GraphEdge, 0, len(f.edges))
	for _, e := range f.edges {
		if want[e.SourceID] || want[e.TargetID] {
			out = append(out, e)
		}
	}
	sortEdgesSourceWeight(out)
	return out, nil
}

func (f *fakeEdgeRepo) GetBetween(_ dbctx.Context, sourceID, targetID uuid.UUID) ([]*types.GraphEdge, error) {
	out := make([]*types.GraphEdge, 0, 2)
	for _, e := range f.edges {
		if e.SourceID == sourceID && e.TargetID == targetID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].EdgeType < out[j].EdgeType
	})
	return out, nil
}

func (f *fakeEdgeRepo) DegreeCounts(_ dbctx.Context, resourceIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	want := toIDSet(resourceIDs)
	out := make(map[uuid.UUID]int, len(resourceIDs))
	for _, e := range f.edges {
		if want[e.SourceID] {
			out[e.SourceID]++
		}
		if want[e.TargetID] {
			out[e.TargetID]++
		}
	}
	return out, nil
}

func (f *fakeEdgeRepo) UpdateWeight(_ dbctx.Context, id uuid.UUID, weight float64) error {
	f.updateCalls++
	if f.updateWeightErr != nil {
		return f.updateWeightErr
	}
	for _, e := range f.edges {
		if e.ID == id {
			e.Weight = weight
			return nil
		}
	}
	return nil
}

func (f *fakeEdgeRepo) Count(_ dbctx.Context) (int64, error) {
	return int64(len(f.edges)), nil
}

func (f *fakeEdgeRepo) CountByType(_ dbctx.Context) ([]repos.EdgeTypeCount, error) {
	counts := map[string]int64{}
	for _, e := range f.edges {
		counts[e.EdgeType]++
	}
	typesSorted := make([]string, 0, len(counts))
	for et := range counts {
		typesSorted = append(typesSorted, et)
	}
	sort.Strings(typesSorted)
	out := make([]repos.EdgeTypeCount, 0, len(typesSorted))
	for _, et := range typesSorted {
		out = append(out, repos.EdgeTypeCount{EdgeType: et, Count: counts[et]})
	}
	return out, nil
}

func (f *fakeEdgeRepo) weightOf(id uuid.UUID) float64 {
	for _, e := range f.edges {
		if e.ID == id {
			return e.Weight
		}
	}
	return -1
}

func toIDSet(ids []uuid.UUID) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func sortEdgesSourceWeight(edges []*types.GraphEdge) {
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID.String() < edges[j].SourceID.String()
		}
		if edges[i].Weight != edges[j].Weight {
			return edges[i].Weight > edges[j].Weight
		}
		return edges[i].TargetID.String() < edges[j].TargetID.String()
	})
}

type hypothesisKey struct {
	a, c uuid.UUID
	kind string
}

type fakeHypothesisRepo struct {
	rows map[hypothesisKey]*types.DiscoveryHypothesis

	upsertCalls int
}

func newFakeHypothesisRepo() *fakeHypothesisRepo {
	return &fakeHypothesisRepo{rows: map[hypothesisKey]*types.DiscoveryHypothesis{}}
}

func (f *fakeHypothesisRepo) Upsert(_ dbctx.Context, row *types.DiscoveryHypothesis) error {
	f.upsertCalls++
	key := hypothesisKey{a: row.AResourceID, c: row.CResourceID, kind: row.HypothesisType}
	if existing, ok := f.rows[key]; ok {
		existing.BResourceIDs = row.BResourceIDs
		existing.Plausibility = row.Plausibility
		existing.PathStrength = row.PathStrength
		existing.PathLength = row.PathLength
		existing.CommonNeighbors = row.CommonNeighbors
		existing.DiscoveredAt = row.DiscoveredAt
		return nil
	}
	stored := *row
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.DiscoveredAt.IsZero() {
		stored.DiscoveredAt = time.Now().UTC()
	}
	f.rows[key] = &stored
	return nil
}

func (f *fakeHypothesisRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.DiscoveryHypothesis, error) {
	for _, h := range f.rows {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, nil
}

func (f *fakeHypothesisRepo) GetByKey(_ dbctx.Context, aID, cID uuid.UUID, hypothesisType string) (*types.DiscoveryHypothesis, error) {
	return f.rows[hypothesisKey{a: aID, c: cID, kind: hypothesisType}], nil
}

func (f *fakeHypothesisRepo) List(_ dbctx.Context, filter repos.HypothesisFilter) ([]*types.DiscoveryHypothesis, error) {
	out := make([]*types.DiscoveryHypothesis, 0, len(f.rows))
	for _, h := range f.rows {
		if filter.AResourceID != uuid.Nil && h.AResourceID != filter.AResourceID {
			continue
		}
		if filter.HypothesisType != "" && h.HypothesisType != filter.HypothesisType {
			continue
		}
		switch filter.Validated {
		case "true":
			if h.IsValidated == nil || !*h.IsValidated {
				continue
			}
		case "false":
			if h.IsValidated == nil || *h.IsValidated {
				continue
			}
		case "pending":
			if h.IsValidated != nil {
				continue
			}
		}
		if filter.MinPlausibility > 0 && h.Plausibility < filter.MinPlausibility {
			continue
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Plausibility != out[j].Plausibility {
			return out[i].Plausibility > out[j].Plausibility
		}
		if !out[i].DiscoveredAt.Equal(out[j].DiscoveredAt) {
			return out[i].DiscoveredAt.After(out[j].DiscoveredAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*types.DiscoveryHypothesis{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeHypothesisRepo) SetValidation(_ dbctx.Context, id uuid.UUID, isValid bool, notes string) error {
	for _, h := range f.rows {
		if h.ID == id {
			v := isValid
			h.IsValidated = &v
			h.ValidationNotes = notes
			return nil
		}
	}
	return nil
}

func (f *fakeHypothesisRepo) Count(_ dbctx.Context) (int64, error) {
	return int64(len(f.rows)), nil
}

func (f *fakeHypothesisRepo) CountByValidation(_ dbctx.Context) (repos.ValidationCounts, error) {
	var out repos.ValidationCounts
	for _, h := range f.rows {
		switch {
		case h.IsValidated == nil:
			out.Pending++
		case *h.IsValidated:
			out.Accepted++
		default:
			out.Rejected++
		}
	}
	return out, nil
}
