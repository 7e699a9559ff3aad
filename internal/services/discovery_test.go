package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/openshelf/bibliograph-backend/internal/data/repos"
	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

func newDiscoveryServiceForTest(t *testing.T, resourceRepo *fakeResourceRepo, edgeRepo *fakeEdgeRepo, hypothesisRepo *fakeHypothesisRepo) DiscoveryService {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewDiscoveryService(nil, log, resourceRepo, edgeRepo, hypothesisRepo, nil)
}

func TestDiscoverOpenFindsBridgedTargets(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	edgeRepo := newFakeEdgeRepo()
	hypothesisRepo := newFakeHypothesisRepo()

	a := resourceRepo.add(&types.Resource{
		Title:     "A",
		Embedding: types.EncodeEmbedding([]float32{1, 0, 0}),
	})
	b1 := resourceRepo.add(&types.Resource{Title: "B1"})
	b2 := resourceRepo.add(&types.Resource{Title: "B2"})
	c := resourceRepo.add(&types.Resource{
		Title:     "C",
		Embedding: types.EncodeEmbedding([]float32{1, 0, 0}),
	})
	direct := resourceRepo.add(&types.Resource{Title: "Already Linked"})

	edgeRepo.add(a.ID, b1.ID, types.EdgeTypeCitation, 0.9)
	edgeRepo.add(a.ID, b2.ID, types.EdgeTypeCitation, 0.8)
	edgeRepo.add(a.ID, direct.ID, types.EdgeTypeSemantic, 0.7)
	edgeRepo.add(b1.ID, c.ID, types.EdgeTypeCitation, 0.6)
	edgeRepo.add(b2.ID, c.ID, types.EdgeTypeCitation, 0.5)
	edgeRepo.add(b1.ID, direct.ID, types.EdgeTypeCitation, 0.6)
	edgeRepo.add(b2.ID, a.ID, types.EdgeTypeCitation, 0.4)

	svc := newDiscoveryServiceForTest(t, resourceRepo, edgeRepo, hypothesisRepo)
	got, err := svc.DiscoverOpen(context.Background(), a.ID, 0.3, 10)
	if err != nil {
		t.Fatalf("DiscoverOpen: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("hypothesis count: want=1 got=%d", len(got))
	}

	h := got[0]
	if h.ID == uuid.Nil {
		t.Fatalf("persisted hypothesis must carry an id")
	}
	if h.CResourceID != c.ID {
		t.Fatalf("target: want=%s got=%s", c.ID, h.CResourceID)
	}
	if h.CommonNeighbors != 2 || h.PathLength != 3 {
		t.Fatalf("aggregation: got common=%d length=%d", h.CommonNeighbors, h.PathLength)
	}
	if h.PathStrength != 1.0 {
		t.Fatalf("open path strength: want=1.0 got=%v", h.PathStrength)
	}
	// 0.4*1.0 + 0.3*1.0 + 0.3*(2/5)
	if h.Plausibility < 0.819 || h.Plausibility > 0.821 {
		t.Fatalf("plausibility: want=0.82 got=%v", h.Plausibility)
	}
	bridges := types.DecodeUUIDs(h.BResourceIDs)
	if len(bridges) != 2 {
		t.Fatalf("bridge count: want=2 got=%d", len(bridges))
	}
	if bridges[0].String() > bridges[1].String() {
		t.Fatalf("bridges must be id-ordered: %v", bridges)
	}
	if h.IsValidated != nil {
		t.Fatalf("fresh hypothesis must be pending")
	}

	stored, err := hypothesisRepo.GetByKey(testDBC(context.Background()), a.ID, c.ID, types.HypothesisTypeOpen)
	if err != nil || stored == nil {
		t.Fatalf("hypothesis not persisted: %v", err)
	}
}

func TestDiscoverOpenRespectsMinPlausibility(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	edgeRepo := newFakeEdgeRepo()
	hypothesisRepo := newFakeHypothesisRepo()

	a := resourceRepo.add(&types.Resource{Title: "A"})
	b := resourceRepo.add(&types.Resource{Title: "B"})
	c := resourceRepo.add(&types.Resource{Title: "C"})
	edgeRepo.add(a.ID, b.ID, types.EdgeTypeCitation, 0.9)
	edgeRepo.add(b.ID, c.ID, types.EdgeTypeCitation, 0.9)

	svc := newDiscoveryServiceForTest(t, resourceRepo, edgeRepo, hypothesisRepo)

	// No embeddings: 0.4 + 0 + 0.3*(1/5) = 0.46.
	got, err := svc.DiscoverOpen(context.Background(), a.ID, 0.5, 10)
	if err != nil {
		t.Fatalf("DiscoverOpen: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("hypothesis count: want=0 got=%d", len(got))
	}
	if hypothesisRepo.upsertCalls != 0 {
		t.Fatalf("rejected candidates must not be persisted")
	}

	got, err = svc.DiscoverOpen(context.Background(), a.ID, 0.4, 10)
	if err != nil {
		t.Fatalf("DiscoverOpen: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("hypothesis count: want=1 got=%d", len(got))
	}
	if got[0].Plausibility < 0.459 || got[0].Plausibility > 0.461 {
		t.Fatalf("plausibility: want=0.46 got=%v", got[0].Plausibility)
	}
}

func TestDiscoverOpenUnknownResource(t *testing.T) {
	svc := newDiscoveryServiceForTest(t, newFakeResourceRepo(), newFakeEdgeRepo(), newFakeHypothesisRepo())

	_, err := svc.DiscoverOpen(context.Background(), uuid.New(), 0.3, 10)
	assertAPIStatus(t, err, http.StatusNotFound, "resource_not_found")
}

func TestDiscoverClosedDirectPathFirst(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	edgeRepo := newFakeEdgeRepo()
	hypothesisRepo := newFakeHypothesisRepo()

	a := resourceRepo.add(&types.Resource{
		Title:     "A",
		Embedding: types.EncodeEmbedding([]float32{1, 0}),
	})
	b := resourceRepo.add(&types.Resource{Title: "B"})
	c := resourceRepo.add(&types.Resource{
		Title:     "C",
		Embedding: types.EncodeEmbedding([]float32{1, 0}),
	})
	edgeRepo.add(a.ID, c.ID, types.EdgeTypeCitation, 0.66)
	edgeRepo.add(a.ID, b.ID, types.EdgeTypeCitation, 0.9)
	edgeRepo.add(b.ID, c.ID, types.EdgeTypeCitation, 0.9)

	svc := newDiscoveryServiceForTest(t, resourceRepo, edgeRepo, hypothesisRepo)
	paths, err := svc.DiscoverClosed(context.Background(), a.ID, c.ID, 2)
	if err != nil {
		t.Fatalf("DiscoverClosed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("path count: want=2 got=%d", len(paths))
	}

	directPath := paths[0]
	if directPath.PathLength != 1 || len(directPath.BridgeIDs) != 0 {
		t.Fatalf("direct path first: got length=%d bridges=%d", directPath.PathLength, len(directPath.BridgeIDs))
	}
	if directPath.Plausibility != 1.0 {
		t.Fatalf("direct plausibility: want=1.0 got=%v", directPath.Plausibility)
	}
	if directPath.PathStrength != 0.66 {
		t.Fatalf("direct strength: want=0.66 got=%v", directPath.PathStrength)
	}

	twoHop := paths[1]
	if twoHop.PathLength != 2 || len(twoHop.BridgeIDs) != 1 || twoHop.BridgeIDs[0] != b.ID {
		t.Fatalf("two-hop path: got length=%d bridges=%v", twoHop.PathLength, twoHop.BridgeIDs)
	}
	if twoHop.PathStrength != 0.7 {
		t.Fatalf("two-hop strength: want=0.7 got=%v", twoHop.PathStrength)
	}
	// 0.6*0.7 + 0.4*1.0
	if twoHop.Plausibility < 0.819 || twoHop.Plausibility > 0.821 {
		t.Fatalf("two-hop plausibility: want=0.82 got=%v", twoHop.Plausibility)
	}

	stored, err := hypothesisRepo.GetByKey(testDBC(context.Background()), a.ID, c.ID, types.HypothesisTypeClosed)
	if err != nil || stored == nil {
		t.Fatalf("top path not persisted: %v", err)
	}
	if stored.PathLength != 1 || stored.Plausibility != 1.0 {
		t.Fatalf("persisted top path: got length=%d plausibility=%v", stored.PathLength, stored.Plausibility)
	}
	if stored.CommonNeighbors != 1 {
		t.Fatalf("common neighbors: want=1 got=%d", stored.CommonNeighbors)
	}
}

func TestDiscoverClosedThreeHopGating(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	edgeRepo := newFakeEdgeRepo()
	hypothesisRepo := newFakeHypothesisRepo()

	a := resourceRepo.add(&types.Resource{Title: "A"})
	b1 := resourceRepo.add(&types.Resource{Title: "B1"})
	b2 := resourceRepo.add(&types.Resource{Title: "B2"})
	c := resourceRepo.add(&types.Resource{Title: "C"})
	edgeRepo.add(a.ID, b1.ID, types.EdgeTypeCitation, 0.9)
	edgeRepo.add(b1.ID, b2.ID, types.EdgeTypeCitation, 0.9)
	edgeRepo.add(b2.ID, c.ID, types.EdgeTypeCitation, 0.9)

	svc := newDiscoveryServiceForTest(t, resourceRepo, edgeRepo, hypothesisRepo)

	paths, err := svc.DiscoverClosed(context.Background(), a.ID, c.ID, 2)
	if err != nil {
		t.Fatalf("DiscoverClosed: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("two-hop budget must not reach three-hop paths, got %d", len(paths))
	}
	if hypothesisRepo.upsertCalls != 0 {
		t.Fatalf("no paths means nothing to persist")
	}

	paths, err = svc.DiscoverClosed(context.Background(), a.ID, c.ID, 3)
	if err != nil {
		t.Fatalf("DiscoverClosed: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("path count: want=1 got=%d", len(paths))
	}
	p := paths[0]
	if p.PathLength != 3 || len(p.BridgeIDs) != 2 || p.BridgeIDs[0] != b1.ID || p.BridgeIDs[1] != b2.ID {
		t.Fatalf("three-hop path: got length=%d bridges=%v", p.PathLength, p.BridgeIDs)
	}
	if p.PathStrength < 0.349 || p.PathStrength > 0.351 {
		t.Fatalf("three-hop strength: want=0.35 got=%v", p.PathStrength)
	}
	// 0.6*0.35 + 0.4*0
	if p.Plausibility < 0.209 || p.Plausibility > 0.211 {
		t.Fatalf("three-hop plausibility: want=0.21 got=%v", p.Plausibility)
	}

	// maxHops 4 is accepted but adds nothing beyond three hops.
	deeper, err := svc.DiscoverClosed(context.Background(), a.ID, c.ID, 4)
	if err != nil {
		t.Fatalf("DiscoverClosed: %v", err)
	}
	if len(deeper) != 1 {
		t.Fatalf("four-hop budget: want=1 path got=%d", len(deeper))
	}
}

func TestDiscoverClosedValidatesArguments(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	a := resourceRepo.add(&types.Resource{Title: "A"})
	c := resourceRepo.add(&types.Resource{Title: "C"})
	svc := newDiscoveryServiceForTest(t, resourceRepo, newFakeEdgeRepo(), newFakeHypothesisRepo())
	ctx := context.Background()

	_, err := svc.DiscoverClosed(ctx, a.ID, c.ID, 1)
	assertAPIStatus(t, err, http.StatusBadRequest, "invalid_max_hops")

	_, err = svc.DiscoverClosed(ctx, a.ID, c.ID, 5)
	assertAPIStatus(t, err, http.StatusBadRequest, "invalid_max_hops")

	_, err = svc.DiscoverClosed(ctx, a.ID, a.ID, 2)
	assertAPIStatus(t, err, http.StatusBadRequest, "identical_endpoints")

	_, err = svc.DiscoverClosed(ctx, uuid.New(), c.ID, 2)
	assertAPIStatus(t, err, http.StatusNotFound, "resource_not_found")

	_, err = svc.DiscoverClosed(ctx, a.ID, uuid.New(), 2)
	assertAPIStatus(t, err, http.StatusNotFound, "resource_not_found")
}

func TestListHypothesesRejectsBadFilters(t *testing.T) {
	svc := newDiscoveryServiceForTest(t, newFakeResourceRepo(), newFakeEdgeRepo(), newFakeHypothesisRepo())
	ctx := context.Background()

	_, err := svc.ListHypotheses(ctx, repos.HypothesisFilter{Validated: "maybe"})
	assertAPIStatus(t, err, http.StatusBadRequest, "invalid_validated_filter")

	_, err = svc.ListHypotheses(ctx, repos.HypothesisFilter{HypothesisType: "speculative"})
	assertAPIStatus(t, err, http.StatusBadRequest, "invalid_hypothesis_type")
}

func TestListHypothesesFiltersPending(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	hypothesisRepo := newFakeHypothesisRepo()
	a := resourceRepo.add(&types.Resource{Title: "A"})
	ctx := context.Background()
	dbc := testDBC(ctx)

	seed := func(cID uuid.UUID, plausibility float64) *types.DiscoveryHypothesis {
		row := &types.DiscoveryHypothesis{
			AResourceID:    a.ID,
			CResourceID:    cID,
			HypothesisType: types.HypothesisTypeOpen,
			Plausibility:   plausibility,
		}
		if err := hypothesisRepo.Upsert(dbc, row); err != nil {
			t.Fatalf("seed: %v", err)
		}
		stored, err := hypothesisRepo.GetByKey(dbc, a.ID, cID, types.HypothesisTypeOpen)
		if err != nil || stored == nil {
			t.Fatalf("seed lookup: %v", err)
		}
		return stored
	}

	high := seed(uuid.New(), 0.9)
	low := seed(uuid.New(), 0.4)
	ruled := seed(uuid.New(), 0.7)
	if err := hypothesisRepo.SetValidation(dbc, ruled.ID, false, "spurious"); err != nil {
		t.Fatalf("seed validation: %v", err)
	}

	svc := newDiscoveryServiceForTest(t, resourceRepo, newFakeEdgeRepo(), hypothesisRepo)
	got, err := svc.ListHypotheses(ctx, repos.HypothesisFilter{AResourceID: a.ID, Validated: "pending"})
	if err != nil {
		t.Fatalf("ListHypotheses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("pending count: want=2 got=%d", len(got))
	}
	if got[0].ID != high.ID || got[1].ID != low.ID {
		t.Fatalf("ordering: want high then low, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestValidateHypothesisUnknown(t *testing.T) {
	svc := newDiscoveryServiceForTest(t, newFakeResourceRepo(), newFakeEdgeRepo(), newFakeHypothesisRepo())

	_, _, err := svc.ValidateHypothesis(context.Background(), uuid.New(), true, "")
	assertAPIStatus(t, err, http.StatusNotFound, "hypothesis_not_found")
}

func TestValidateHypothesisAcceptReinforcesOpenBridges(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	edgeRepo := newFakeEdgeRepo()
	hypothesisRepo := newFakeHypothesisRepo()
	ctx := context.Background()
	dbc := testDBC(ctx)

	a := resourceRepo.add(&types.Resource{Title: "A"})
	b := resourceRepo.add(&types.Resource{Title: "B"})
	c := resourceRepo.add(&types.Resource{Title: "C"})
	d := resourceRepo.add(&types.Resource{Title: "D"})
	e := resourceRepo.add(&types.Resource{Title: "E"})
	ab := edgeRepo.add(a.ID, b.ID, types.EdgeTypeCitation, 0.95)
	bc := edgeRepo.add(b.ID, c.ID, types.EdgeTypeCitation, 0.5)
	unrelated := edgeRepo.add(d.ID, e.ID, types.EdgeTypeCitation, 0.4)

	if err := hypothesisRepo.Upsert(dbc, &types.DiscoveryHypothesis{
		AResourceID:    a.ID,
		CResourceID:    c.ID,
		HypothesisType: types.HypothesisTypeOpen,
		BResourceIDs:   types.EncodeUUIDs([]uuid.UUID{b.ID}),
		Plausibility:   0.6,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	stored, err := hypothesisRepo.GetByKey(dbc, a.ID, c.ID, types.HypothesisTypeOpen)
	if err != nil || stored == nil {
		t.Fatalf("seed lookup: %v", err)
	}

	svc := newDiscoveryServiceForTest(t, resourceRepo, edgeRepo, hypothesisRepo)
	got, reinforced, err := svc.ValidateHypothesis(ctx, stored.ID, true, "checked both sources")
	if err != nil {
		t.Fatalf("ValidateHypothesis: %v", err)
	}
	if got.IsValidated == nil || !*got.IsValidated {
		t.Fatalf("ruling not recorded")
	}
	if got.ValidationNotes != "checked both sources" {
		t.Fatalf("notes: got=%q", got.ValidationNotes)
	}
	if reinforced != 2 {
		t.Fatalf("reinforced count: want=2 got=%d", reinforced)
	}

	// 0.95*1.1 caps at 1.0; 0.5*1.1 = 0.55; unrelated edges stay put.
	if w := edgeRepo.weightOf(ab.ID); w != 1.0 {
		t.Fatalf("A->B weight: want=1.0 got=%v", w)
	}
	if w := edgeRepo.weightOf(bc.ID); w < 0.549 || w > 0.551 {
		t.Fatalf("B->C weight: want=0.55 got=%v", w)
	}
	if w := edgeRepo.weightOf(unrelated.ID); w != 0.4 {
		t.Fatalf("unrelated weight: want=0.4 got=%v", w)
	}
}

func TestValidateHypothesisClosedChainReinforcement(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	edgeRepo := newFakeEdgeRepo()
	hypothesisRepo := newFakeHypothesisRepo()
	ctx := context.Background()
	dbc := testDBC(ctx)

	a := resourceRepo.add(&types.Resource{Title: "A"})
	b1 := resourceRepo.add(&types.Resource{Title: "B1"})
	b2 := resourceRepo.add(&types.Resource{Title: "B2"})
	c := resourceRepo.add(&types.Resource{Title: "C"})
	ab1 := edgeRepo.add(a.ID, b1.ID, types.EdgeTypeCitation, 0.5)
	b1b2 := edgeRepo.add(b1.ID, b2.ID, types.EdgeTypeCitation, 0.5)
	b2c := edgeRepo.add(b2.ID, c.ID, types.EdgeTypeCitation, 0.5)
	offChain := edgeRepo.add(a.ID, b2.ID, types.EdgeTypeCitation, 0.5)

	if err := hypothesisRepo.Upsert(dbc, &types.DiscoveryHypothesis{
		AResourceID:    a.ID,
		CResourceID:    c.ID,
		HypothesisType: types.HypothesisTypeClosed,
		BResourceIDs:   types.EncodeUUIDs([]uuid.UUID{b1.ID, b2.ID}),
		Plausibility:   0.21,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	stored, err := hypothesisRepo.GetByKey(dbc, a.ID, c.ID, types.HypothesisTypeClosed)
	if err != nil || stored == nil {
		t.Fatalf("seed lookup: %v", err)
	}

	svc := newDiscoveryServiceForTest(t, resourceRepo, edgeRepo, hypothesisRepo)
	_, reinforced, err := svc.ValidateHypothesis(ctx, stored.ID, true, "")
	if err != nil {
		t.Fatalf("ValidateHypothesis: %v", err)
	}
	if reinforced != 3 {
		t.Fatalf("reinforced count: want=3 got=%d", reinforced)
	}

	for _, id := range []uuid.UUID{ab1.ID, b1b2.ID, b2c.ID} {
		if w := edgeRepo.weightOf(id); w < 0.549 || w > 0.551 {
			t.Fatalf("chain edge weight: want=0.55 got=%v", w)
		}
	}
	if w := edgeRepo.weightOf(offChain.ID); w != 0.5 {
		t.Fatalf("off-chain edge must stay put, got=%v", w)
	}
}

func TestValidateHypothesisRejectLeavesEdges(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	edgeRepo := newFakeEdgeRepo()
	hypothesisRepo := newFakeHypothesisRepo()
	ctx := context.Background()
	dbc := testDBC(ctx)

	a := resourceRepo.add(&types.Resource{Title: "A"})
	b := resourceRepo.add(&types.Resource{Title: "B"})
	c := resourceRepo.add(&types.Resource{Title: "C"})
	ab := edgeRepo.add(a.ID, b.ID, types.EdgeTypeCitation, 0.5)

	if err := hypothesisRepo.Upsert(dbc, &types.DiscoveryHypothesis{
		AResourceID:    a.ID,
		CResourceID:    c.ID,
		HypothesisType: types.HypothesisTypeOpen,
		BResourceIDs:   types.EncodeUUIDs([]uuid.UUID{b.ID}),
		Plausibility:   0.6,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	stored, _ := hypothesisRepo.GetByKey(dbc, a.ID, c.ID, types.HypothesisTypeOpen)

	svc := newDiscoveryServiceForTest(t, resourceRepo, edgeRepo, hypothesisRepo)
	got, reinforced, err := svc.ValidateHypothesis(ctx, stored.ID, false, "no causal link")
	if err != nil {
		t.Fatalf("ValidateHypothesis: %v", err)
	}
	if got.IsValidated == nil || *got.IsValidated {
		t.Fatalf("rejection not recorded")
	}
	if reinforced != 0 {
		t.Fatalf("rejection must not reinforce, got %d", reinforced)
	}
	if edgeRepo.updateCalls != 0 {
		t.Fatalf("rejection must not touch edges, got %d updates", edgeRepo.updateCalls)
	}
	if w := edgeRepo.weightOf(ab.ID); w != 0.5 {
		t.Fatalf("edge weight drifted: got=%v", w)
	}
}

func TestValidateHypothesisSwallowsReinforcementFailures(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	edgeRepo := newFakeEdgeRepo()
	edgeRepo.updateWeightErr = errors.New("connection reset")
	hypothesisRepo := newFakeHypothesisRepo()
	ctx := context.Background()
	dbc := testDBC(ctx)

	a := resourceRepo.add(&types.Resource{Title: "A"})
	b := resourceRepo.add(&types.Resource{Title: "B"})
	c := resourceRepo.add(&types.Resource{Title: "C"})
	edgeRepo.add(a.ID, b.ID, types.EdgeTypeCitation, 0.5)
	edgeRepo.add(b.ID, c.ID, types.EdgeTypeCitation, 0.5)

	if err := hypothesisRepo.Upsert(dbc, &types.DiscoveryHypothesis{
		AResourceID:    a.ID,
		CResourceID:    c.ID,
		HypothesisType: types.HypothesisTypeOpen,
		BResourceIDs:   types.EncodeUUIDs([]uuid.UUID{b.ID}),
		Plausibility:   0.6,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	stored, _ := hypothesisRepo.GetByKey(dbc, a.ID, c.ID, types.HypothesisTypeOpen)

	svc := newDiscoveryServiceForTest(t, resourceRepo, edgeRepo, hypothesisRepo)
	got, reinforced, err := svc.ValidateHypothesis(ctx, stored.ID, true, "still stands")
	if err != nil {
		t.Fatalf("validation must survive reinforcement failures: %v", err)
	}
	if got.IsValidated == nil || !*got.IsValidated {
		t.Fatalf("ruling not recorded")
	}
	if edgeRepo.updateCalls == 0 {
		t.Fatalf("reinforcement should have been attempted")
	}
	if reinforced != 0 {
		t.Fatalf("failed updates must not count as reinforced, got %d", reinforced)
	}
}
