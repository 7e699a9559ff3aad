package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

func newTraversalServiceForTest(t *testing.T, resourceRepo *fakeResourceRepo, edgeRepo *fakeEdgeRepo) TraversalService {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewTraversalService(log, resourceRepo, edgeRepo)
}

func TestMultihopRejectsInvalidArguments(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	origin := resourceRepo.add(&types.Resource{Title: "Origin"})
	svc := newTraversalServiceForTest(t, resourceRepo, newFakeEdgeRepo())
	ctx := context.Background()

	_, err := svc.Multihop(ctx, origin.ID, 3, nil, 0, 10)
	assertAPIStatus(t, err, http.StatusBadRequest, "invalid_hops")

	_, err = svc.Multihop(ctx, origin.ID, 1, nil, 1.5, 10)
	assertAPIStatus(t, err, http.StatusBadRequest, "invalid_min_weight")

	_, err = svc.Multihop(ctx, origin.ID, 1, []string{"friendship"}, 0, 10)
	assertAPIStatus(t, err, http.StatusBadRequest, "invalid_edge_type")
}

func TestMultihopUnknownResource(t *testing.T) {
	svc := newTraversalServiceForTest(t, newFakeResourceRepo(), newFakeEdgeRepo())

	_, err := svc.Multihop(context.Background(), uuid.New(), 1, nil, 0, 10)
	assertAPIStatus(t, err, http.StatusNotFound, "resource_not_found")
}

func TestMultihopKeepsStrongestPathAndCountsAll(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	edgeRepo := newFakeEdgeRepo()

	a := resourceRepo.add(&types.Resource{Title: "A", QualityScore: 0.5})
	b := resourceRepo.add(&types.Resource{Title: "B", QualityScore: 0.5})
	c := resourceRepo.add(&types.Resource{Title: "C", QualityScore: 0.5})
	edgeRepo.add(a.ID, b.ID, types.EdgeTypeCitation, 0.5)
	edgeRepo.add(a.ID, c.ID, types.EdgeTypeCitation, 0.9)
	edgeRepo.add(c.ID, b.ID, types.EdgeTypeCitation, 0.8)

	svc := newTraversalServiceForTest(t, resourceRepo, edgeRepo)
	got, err := svc.Multihop(context.Background(), a.ID, 2, nil, 0, 10)
	if err != nil {
		t.Fatalf("Multihop: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("result count: want=2 got=%d", len(got))
	}

	byID := map[uuid.UUID]MultihopResult{}
	for _, r := range got {
		byID[r.Resource.ID] = r
	}

	rb, ok := byID[b.ID]
	if !ok {
		t.Fatalf("missing result for B")
	}
	// Direct path 0.5 loses to 0.9*0.8 through C.
	if rb.PathStrength < 0.719 || rb.PathStrength > 0.721 {
		t.Fatalf("B path strength: want=0.72 got=%v", rb.PathStrength)
	}
	if rb.Hops != 2 {
		t.Fatalf("B hops: want=2 got=%d", rb.Hops)
	}
	if rb.PathsFound != 2 {
		t.Fatalf("B paths found: want=2 got=%d", rb.PathsFound)
	}
	if len(rb.Path) != 3 || rb.Path[0] != a.ID || rb.Path[1] != c.ID || rb.Path[2] != b.ID {
		t.Fatalf("B best path: got=%v", rb.Path)
	}

	rc := byID[c.ID]
	if rc.PathStrength != 0.9 || rc.Hops != 1 || rc.PathsFound != 1 {
		t.Fatalf("C result: got strength=%v hops=%d paths=%d", rc.PathStrength, rc.Hops, rc.PathsFound)
	}

	// Both have degree 2, quality 0.5; C ranks first on path strength.
	if got[0].Resource.ID != c.ID {
		t.Fatalf("rank order: want C first, got %s", got[0].Resource.ID)
	}
}

func TestMultihopFiltersByTypeAndWeight(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	edgeRepo := newFakeEdgeRepo()

	a := resourceRepo.add(&types.Resource{Title: "A"})
	b := resourceRepo.add(&types.Resource{Title: "B"})
	c := resourceRepo.add(&types.Resource{Title: "C"})
	d := resourceRepo.add(&types.Resource{Title: "D"})
	edgeRepo.add(a.ID, b.ID, types.EdgeTypeCitation, 0.9)
	edgeRepo.add(a.ID, c.ID, types.EdgeTypeTemporal, 0.9)
	edgeRepo.add(a.ID, d.ID, types.EdgeTypeCitation, 0.3)

	svc := newTraversalServiceForTest(t, resourceRepo, edgeRepo)
	got, err := svc.Multihop(context.Background(), a.ID, 1, []string{types.EdgeTypeCitation}, 0.5, 10)
	if err != nil {
		t.Fatalf("Multihop: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("result count: want=1 got=%d", len(got))
	}
	if got[0].Resource.ID != b.ID {
		t.Fatalf("filtered result: want=%s got=%s", b.ID, got[0].Resource.ID)
	}
}

func TestMultihopNeverReturnsOrigin(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	edgeRepo := newFakeEdgeRepo()

	a := resourceRepo.add(&types.Resource{Title: "A"})
	b := resourceRepo.add(&types.Resource{Title: "B"})
	edgeRepo.add(a.ID, b.ID, types.EdgeTypeCitation, 0.9)
	edgeRepo.add(b.ID, a.ID, types.EdgeTypeCitation, 0.9)

	svc := newTraversalServiceForTest(t, resourceRepo, edgeRepo)
	got, err := svc.Multihop(context.Background(), a.ID, 2, nil, 0, 10)
	if err != nil {
		t.Fatalf("Multihop: %v", err)
	}
	if len(got) != 1 || got[0].Resource.ID != b.ID {
		t.Fatalf("cycle handling: want only B, got %d results", len(got))
	}
}

func TestMultihopNoveltyFromDegree(t *testing.T) {
	resourceRepo := newFakeResourceRepo()
	edgeRepo := newFakeEdgeRepo()

	a := resourceRepo.add(&types.Resource{Title: "A"})
	hub := resourceRepo.add(&types.Resource{Title: "Hub", QualityScore: 0.5})
	leaf := resourceRepo.add(&types.Resource{Title: "Leaf", QualityScore: 0.5})
	edgeRepo.add(a.ID, hub.ID, types.EdgeTypeCitation, 0.5)
	edgeRepo.add(a.ID, leaf.ID, types.EdgeTypeCitation, 0.5)
	// Extra fan-in makes the hub less novel.
	for i := 0; i < 3; i++ {
		other := resourceRepo.add(&types.Resource{Title: "Other"})
		edgeRepo.add(other.ID, hub.ID, types.EdgeTypeSemantic, 0.4)
	}

	svc := newTraversalServiceForTest(t, resourceRepo, edgeRepo)
	got, err := svc.Multihop(context.Background(), a.ID, 1, nil, 0, 10)
	if err != nil {
		t.Fatalf("Multihop: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("result count: want=2 got=%d", len(got))
	}
	if got[0].Resource.ID != leaf.ID {
		t.Fatalf("novelty ordering: want leaf first, got %s", got[0].Resource.ID)
	}
	if got[0].Novelty <= got[1].Novelty {
		t.Fatalf("novelty: leaf=%v should exceed hub=%v", got[0].Novelty, got[1].Novelty)
	}
}
