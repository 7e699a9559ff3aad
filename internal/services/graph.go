package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	redisclient "github.com/openshelf/bibliograph-backend/internal/clients/redis"
	"github.com/openshelf/bibliograph-backend/internal/data/repos"
	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"github.com/openshelf/bibliograph-backend/internal/observability"
	"github.com/openshelf/bibliograph-backend/internal/pkg/scoring"
	"github.com/openshelf/bibliograph-backend/internal/platform/dbctx"
	"github.com/openshelf/bibliograph-backend/internal/platform/envutil"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

// GraphEdgePayload is one scored connection in a returned graph. Weight is
// the hybrid blend of the per-signal affinities in Signals.
type GraphEdgePayload struct {
	SourceID uuid.UUID   `json:"source_id"`
	TargetID uuid.UUID   `json:"target_id"`
	Weight   float64     `json:"weight"`
	Signals  EdgeSignals `json:"signals"`
}

type Graph struct {
	Nodes []ResourceSummary  `json:"nodes"`
	Edges []GraphEdgePayload `json:"edges"`
}

type GraphStats struct {
	Resources          int64            `json:"resources"`
	Edges              int64            `json:"edges"`
	EdgesByType        map[string]int64 `json:"edges_by_type"`
	Hypotheses         int64            `json:"hypotheses"`
	HypothesesPending  int64            `json:"hypotheses_pending"`
	HypothesesAccepted int64            `json:"hypotheses_accepted"`
	HypothesesRejected int64            `json:"hypotheses_rejected"`
}

// GraphService assembles scored similarity graphs over the library. The
// neighbors view is anchored on one resource; the overview scores every
// qualifying pair under a bounded scan.
type GraphService interface {
	Neighbors(ctx context.Context, resourceID uuid.UUID, limit int) (*Graph, error)
	// Overview accepts a per-request vector threshold; pass 0 to keep the
	// configured default.
	Overview(ctx context.Context, edgeLimit int, vectorThreshold float64) (*Graph, error)
	Stats(ctx context.Context) (*GraphStats, error)
}

type graphService struct {
	log            *logger.Logger
	resourceRepo   repos.ResourceRepo
	edgeRepo       repos.GraphEdgeRepo
	hypothesisRepo repos.HypothesisRepo
	candidates     CandidateService
	cache          *redisclient.Cache

	weights           scoring.HybridWeights
	vectorThreshold   float64
	minSubjectOverlap int
	scanLimit         int
	concurrency       int
	overviewTTL       time.Duration
}

func NewGraphService(baseLog *logger.Logger, resourceRepo repos.ResourceRepo, edgeRepo repos.GraphEdgeRepo, hypothesisRepo repos.HypothesisRepo, candidates CandidateService, cache *redisclient.Cache) GraphService {
	serviceLog := baseLog.With("service", "GraphService")
	cfg, err := scoring.Load()
	if err != nil {
		serviceLog.Warn("scoring weights fell back to defaults", "error", err)
	}
	return &graphService{
		log:               serviceLog,
		resourceRepo:      resourceRepo,
		edgeRepo:          edgeRepo,
		hypothesisRepo:    hypothesisRepo,
		candidates:        candidates,
		cache:             cache,
		weights:           cfg.Hybrid,
		vectorThreshold:   envutil.FloatInRange("GRAPH_VECTOR_THRESHOLD", DefaultVectorThreshold, 0.1, 0.99),
		minSubjectOverlap: envutil.IntInRange("GRAPH_MIN_SUBJECT_OVERLAP", 2, 1, 10),
		scanLimit:         envutil.IntInRange("GRAPH_SCAN_LIMIT", 1000, 100, 5000),
		concurrency:       envutil.IntInRange("GRAPH_OVERVIEW_CONCURRENCY", 4, 1, 16),
		overviewTTL:       time.Duration(envutil.IntInRange("GRAPH_OVERVIEW_CACHE_SECONDS", 60, 0, 3600)) * time.Second,
	}
}

func (gs *graphService) Neighbors(ctx context.Context, resourceID uuid.UUID, limit int) (*Graph, error) {
	limit = clampInt(limit, 10, 1, 50)
	gs.log.Info("Neighbors", "resource_id", resourceID, "limit", limit)

	dbc := dbctx.Context{Ctx: ctx}
	anchor, err := gs.resourceRepo.GetByID(dbc, resourceID)
	if err != nil {
		gs.log.Error("Neighbors failed", "resource_id", resourceID, "error", err)
		return nil, fmt.Errorf("neighbors: %w", err)
	}
	if anchor == nil {
		// Unknown anchors yield an empty graph; earlier clients poll for
		// resources that may not be ingested yet.
		return &Graph{Nodes: []ResourceSummary{}, Edges: []GraphEdgePayload{}}, nil
	}

	pool := make(map[uuid.UUID]EdgeSignals)

	vecCands, err := gs.candidates.FindByVector(ctx, anchor, gs.vectorThreshold, limit*3)
	if err != nil {
		gs.log.Error("Neighbors failed", "resource_id", resourceID, "error", err)
		return nil, fmt.Errorf("neighbors: %w", err)
	}
	for _, c := range vecCands {
		pool[c.Resource.ID] = EdgeSignals{
			Vector:   scoring.Clamp01(c.VectorSimilarity),
			Subject:  c.SubjectJaccard,
			Taxonomy: scoring.TaxonomyAffinity(anchor.TaxonomyCode, c.Resource.TaxonomyCode),
		}
	}

	subjCands, err := gs.candidates.FindBySharedSubjects(ctx, anchor, limit*3)
	if err != nil {
		gs.log.Error("Neighbors failed", "resource_id", resourceID, "error", err)
		return nil, fmt.Errorf("neighbors: %w", err)
	}
	for _, c := range subjCands {
		if _, ok := pool[c.Resource.ID]; ok {
			continue
		}
		pool[c.Resource.ID] = EdgeSignals{
			Vector:   scoring.Clamp01(c.VectorSimilarity),
			Subject:  c.SubjectJaccard,
			Taxonomy: scoring.TaxonomyAffinity(anchor.TaxonomyCode, c.Resource.TaxonomyCode),
		}
	}

	// Explicit-edge partners join the pool even when neither finder picked
	// them up; they are rescored like everything else.
	edges, err := gs.edgeRepo.GetByResourceIDs(dbc, []uuid.UUID{anchor.ID})
	if err != nil {
		gs.log.Error("Neighbors failed", "resource_id", resourceID, "error", err)
		return nil, fmt.Errorf("neighbors: %w", err)
	}
	partnerIDs := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		other := e.TargetID
		if other == anchor.ID {
			other = e.SourceID
		}
		if other == anchor.ID {
			continue
		}
		if _, ok := pool[other]; !ok {
			partnerIDs = append(partnerIDs, other)
		}
	}
	partnerIDs = dedupeUUIDs(partnerIDs)
	if len(partnerIDs) > 0 {
		partners, err := gs.resourceRepo.GetByIDs(dbc, partnerIDs)
		if err != nil {
			gs.log.Error("Neighbors failed", "resource_id", resourceID, "error", err)
			return nil, fmt.Errorf("neighbors: %w", err)
		}
		for _, p := range partners {
			pool[p.ID] = signalsBetween(anchor, p)
		}
	}

	type scored struct {
		id      uuid.UUID
		signals EdgeSignals
		weight  float64
	}
	ranked := make([]scored, 0, len(pool))
	for id, sig := range pool {
		ranked = append(ranked, scored{
			id:      id,
			signals: sig,
			weight:  gs.weights.Combine(sig.Vector, sig.Subject, sig.Taxonomy),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].id.String() < ranked[j].id.String()
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	keptIDs := make([]uuid.UUID, 0, len(ranked))
	for _, s := range ranked {
		keptIDs = append(keptIDs, s.id)
	}
	neighbors, err := gs.resourceRepo.GetByIDs(dbc, keptIDs)
	if err != nil {
		gs.log.Error("Neighbors failed", "resource_id", resourceID, "error", err)
		return nil, fmt.Errorf("neighbors: %w", err)
	}
	byID := make(map[uuid.UUID]*types.Resource, len(neighbors))
	for _, n := range neighbors {
		byID[n.ID] = n
	}

	graph := &Graph{
		Nodes: []ResourceSummary{summarize(anchor)},
		Edges: make([]GraphEdgePayload, 0, len(ranked)),
	}
	for _, s := range ranked {
		n, ok := byID[s.id]
		if !ok {
			continue
		}
		graph.Nodes = append(graph.Nodes, summarize(n))
		graph.Edges = append(graph.Edges, GraphEdgePayload{
			SourceID: anchor.ID,
			TargetID: n.ID,
			Weight:   s.weight,
			Signals:  s.signals,
		})
	}
	observability.Current().AddScoredEdges("neighbors", len(graph.Edges))
	return graph, nil
}

const overviewCacheKeyPrefix = "bibliograph:graph:overview:v1"

func (gs *graphService) Overview(ctx context.Context, edgeLimit int, vectorThreshold float64) (*Graph, error) {
	edgeLimit = clampInt(edgeLimit, 100, 1, 200)
	threshold := gs.vectorThreshold
	if vectorThreshold > 0 {
		threshold = scoring.Clamp01(vectorThreshold)
	}
	gs.log.Info("Overview", "edge_limit", edgeLimit, "vector_threshold", threshold)

	// Threshold is part of the key; overrides must not poison the default view.
	cacheKey := fmt.Sprintf("%s:%d:%.2f", overviewCacheKeyPrefix, edgeLimit, threshold)
	if gs.cache != nil && gs.overviewTTL > 0 {
		var cached Graph
		hit, err := gs.cache.GetJSON(ctx, cacheKey, &cached)
		switch {
		case err != nil:
			observability.Current().IncOverviewCache("error")
			gs.log.Warn("overview cache read failed (recomputing)", "error", err)
		case hit:
			observability.Current().IncOverviewCache("hit")
			return &cached, nil
		default:
			observability.Current().IncOverviewCache("miss")
		}
	}

	start := time.Now()
	graph, err := gs.computeOverview(ctx, edgeLimit, threshold)
	if err != nil {
		observability.Current().ObserveGraphOperation("overview", "error", time.Since(start))
		gs.log.Error("Overview failed", "error", err)
		return nil, fmt.Errorf("overview: %w", err)
	}
	observability.Current().ObserveGraphOperation("overview", "ok", time.Since(start))
	observability.Current().AddScoredEdges("overview", len(graph.Edges))

	if gs.cache != nil && gs.overviewTTL > 0 {
		if err := gs.cache.SetJSON(ctx, cacheKey, graph, gs.overviewTTL); err != nil {
			gs.log.Warn("overview cache write failed", "error", err)
		}
	}
	return graph, nil
}

func (gs *graphService) computeOverview(ctx context.Context, edgeLimit int, vectorThreshold float64) (*Graph, error) {
	dbc := dbctx.Context{Ctx: ctx}

	withVec, err := gs.resourceRepo.ListWithEmbeddings(dbc, uuid.Nil, gs.scanLimit)
	if err != nil {
		return nil, err
	}
	withSubj, err := gs.resourceRepo.ListWithSubjects(dbc, uuid.Nil, gs.scanLimit)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*types.Resource, len(withVec)+len(withSubj))
	for _, r := range withVec {
		byID[r.ID] = r
	}
	for _, r := range withSubj {
		byID[r.ID] = r
	}
	all := make([]*types.Resource, 0, len(byID))
	for _, r := range byID {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })

	// Decode once; the pair loop is O(n^2) over the capped scan.
	vectors := make([][]float32, len(all))
	subjects := make([][]string, len(all))
	for i, r := range all {
		if v, ok := types.DecodeEmbedding(r.Embedding); ok {
			vectors[i] = v
		}
		subjects[i] = types.DecodeSubjects(r.Subjects)
	}

	var (
		mu    sync.Mutex
		edges []GraphEdgePayload
	)
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(gs.concurrency)
	for i := range all {
		i := i
		eg.Go(func() error {
			var local []GraphEdgePayload
			for j := i + 1; j < len(all); j++ {
				sig := EdgeSignals{
					Subject:  scoring.Jaccard(subjects[i], subjects[j]),
					Taxonomy: scoring.TaxonomyAffinity(all[i].TaxonomyCode, all[j].TaxonomyCode),
				}
				qualifies := false
				if vectors[i] != nil && vectors[j] != nil {
					if sim, err := scoring.Cosine(vectors[i], vectors[j]); err == nil {
						sig.Vector = scoring.Clamp01(sim)
						if sim >= vectorThreshold {
							qualifies = true
						}
					}
				}
				if !qualifies && scoring.OverlapCount(subjects[i], subjects[j]) >= gs.minSubjectOverlap {
					qualifies = true
				}
				if !qualifies {
					continue
				}
				local = append(local, GraphEdgePayload{
					SourceID: all[i].ID,
					TargetID: all[j].ID,
					Weight:   gs.weights.Combine(sig.Vector, sig.Subject, sig.Taxonomy),
					Signals:  sig,
				})
			}
			if len(local) > 0 {
				mu.Lock()
				edges = append(edges, local...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Weight != edges[j].Weight {
			return edges[i].Weight > edges[j].Weight
		}
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID.String() < edges[j].SourceID.String()
		}
		return edges[i].TargetID.String() < edges[j].TargetID.String()
	})
	if len(edges) > edgeLimit {
		edges = edges[:edgeLimit]
	}

	nodeSet := make(map[uuid.UUID]bool, len(edges)*2)
	nodes := make([]ResourceSummary, 0, len(edges)*2)
	for _, e := range edges {
		for _, id := range []uuid.UUID{e.SourceID, e.TargetID} {
			if nodeSet[id] {
				continue
			}
			nodeSet[id] = true
			nodes = append(nodes, summarize(byID[id]))
		}
	}

	return &Graph{Nodes: nodes, Edges: edges}, nil
}

func (gs *graphService) Stats(ctx context.Context) (*GraphStats, error) {
	gs.log.Info("Stats")

	dbc := dbctx.Context{Ctx: ctx}
	out := &GraphStats{EdgesByType: map[string]int64{}}

	var err error
	if out.Resources, err = gs.resourceRepo.Count(dbc); err != nil {
		gs.log.Error("Stats failed", "error", err)
		return nil, fmt.Errorf("graph stats: %w", err)
	}
	if out.Edges, err = gs.edgeRepo.Count(dbc); err != nil {
		gs.log.Error("Stats failed", "error", err)
		return nil, fmt.Errorf("graph stats: %w", err)
	}
	byType, err := gs.edgeRepo.CountByType(dbc)
	if err != nil {
		gs.log.Error("Stats failed", "error", err)
		return nil, fmt.Errorf("graph stats: %w", err)
	}
	for _, row := range byType {
		out.EdgesByType[row.EdgeType] = row.Count
	}
	if out.Hypotheses, err = gs.hypothesisRepo.Count(dbc); err != nil {
		gs.log.Error("Stats failed", "error", err)
		return nil, fmt.Errorf("graph stats: %w", err)
	}
	counts, err := gs.hypothesisRepo.CountByValidation(dbc)
	if err != nil {
		gs.log.Error("Stats failed", "error", err)
		return nil, fmt.Errorf("graph stats: %w", err)
	}
	out.HypothesesPending = counts.Pending
	out.HypothesesAccepted = counts.Accepted
	out.HypothesesRejected = counts.Rejected
	return out, nil
}
