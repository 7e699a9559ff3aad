package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/bibliograph-backend/internal/data/repos"
	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"github.com/openshelf/bibliograph-backend/internal/observability"
	"github.com/openshelf/bibliograph-backend/internal/pkg/scoring"
	"github.com/openshelf/bibliograph-backend/internal/platform/apierr"
	"github.com/openshelf/bibliograph-backend/internal/platform/dbctx"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

// MultihopResult is one node reachable from the origin within the hop
// budget. Path is the strongest path found (ordered origin first);
// PathsFound counts every distinct qualifying path to the node.
type MultihopResult struct {
	Resource     ResourceSummary `json:"resource"`
	Path         []uuid.UUID     `json:"path"`
	Hops         int             `json:"hops"`
	PathStrength float64         `json:"path_strength"`
	Quality      float64         `json:"quality"`
	Novelty      float64         `json:"novelty"`
	PathsFound   int             `json:"paths_found"`
	Rank         float64         `json:"rank"`
}

// TraversalService walks explicit edges outward from a resource,
// scoring what it reaches.
type TraversalService interface {
	Multihop(ctx context.Context, resourceID uuid.UUID, hops int, edgeTypes []string, minWeight float64, limit int) ([]MultihopResult, error)
}

type traversalService struct {
	log          *logger.Logger
	resourceRepo repos.ResourceRepo
	edgeRepo     repos.GraphEdgeRepo
	weights      scoring.MultihopWeights
}

func NewTraversalService(baseLog *logger.Logger, resourceRepo repos.ResourceRepo, edgeRepo repos.GraphEdgeRepo) TraversalService {
	serviceLog := baseLog.With("service", "TraversalService")
	cfg, err := scoring.Load()
	if err != nil {
		serviceLog.Warn("scoring weights fell back to defaults", "error", err)
	}
	return &traversalService{
		log:          serviceLog,
		resourceRepo: resourceRepo,
		edgeRepo:     edgeRepo,
		weights:      cfg.Multihop,
	}
}

func (ts *traversalService) Multihop(ctx context.Context, resourceID uuid.UUID, hops int, edgeTypes []string, minWeight float64, limit int) ([]MultihopResult, error) {
	if hops != 1 && hops != 2 {
		return nil, apierr.InvalidArgument("invalid_hops", fmt.Errorf("hops must be 1 or 2, got %d", hops))
	}
	if minWeight < 0 || minWeight > 1 {
		return nil, apierr.InvalidArgument("invalid_min_weight", fmt.Errorf("min weight must be within [0,1], got %v", minWeight))
	}
	typeFilter := make(map[string]bool, len(edgeTypes))
	for _, et := range edgeTypes {
		if !types.IsValidEdgeType(et) {
			return nil, apierr.InvalidArgument("invalid_edge_type", fmt.Errorf("unknown edge type %q", et))
		}
		typeFilter[et] = true
	}
	limit = clampInt(limit, 20, 1, 100)

	ts.log.Info("Multihop", "resource_id", resourceID, "hops", hops, "min_weight", minWeight, "limit", limit)

	dbc := dbctx.Context{Ctx: ctx}
	origin, err := ts.resourceRepo.GetByID(dbc, resourceID)
	if err != nil {
		ts.log.Error("Multihop failed", "resource_id", resourceID, "error", err)
		return nil, fmt.Errorf("multihop: %w", err)
	}
	if origin == nil {
		return nil, apierr.NotFound("resource_not_found", fmt.Errorf("resource %s not found", resourceID))
	}
	start := time.Now()

	type reach struct {
		strength float64
		path     []uuid.UUID
		hops     int
		count    int
	}
	best := make(map[uuid.UUID]*reach)
	frontier := map[uuid.UUID]*reach{
		origin.ID: {strength: 1.0, path: []uuid.UUID{origin.ID}, count: 1},
	}

	for depth := 1; depth <= hops; depth++ {
		sourceIDs := make([]uuid.UUID, 0, len(frontier))
		for id := range frontier {
			sourceIDs = append(sourceIDs, id)
		}
		sortUUIDs(sourceIDs)

		edges, err := ts.edgeRepo.GetBySourceIDs(dbc, sourceIDs)
		if err != nil {
			ts.log.Error("Multihop failed", "resource_id", resourceID, "error", err)
			return nil, fmt.Errorf("multihop: %w", err)
		}

		next := make(map[uuid.UUID]*reach)
		for _, e := range edges {
			if len(typeFilter) > 0 && !typeFilter[e.EdgeType] {
				continue
			}
			if e.Weight < minWeight {
				continue
			}
			if e.TargetID == origin.ID || e.TargetID == e.SourceID {
				continue
			}
			parent := frontier[e.SourceID]
			if parent == nil {
				continue
			}

			strength := parent.strength * e.Weight
			path := make([]uuid.UUID, 0, len(parent.path)+1)
			path = append(path, parent.path...)
			path = append(path, e.TargetID)

			if cur, ok := best[e.TargetID]; ok {
				cur.count += parent.count
				if strength > cur.strength {
					cur.strength = strength
					cur.path = path
					cur.hops = depth
				}
			} else {
				best[e.TargetID] = &reach{strength: strength, path: path, hops: depth, count: parent.count}
			}

			if nxt, ok := next[e.TargetID]; ok {
				nxt.count += parent.count
				if strength > nxt.strength {
					nxt.strength = strength
					nxt.path = path
				}
			} else {
				next[e.TargetID] = &reach{strength: strength, path: path, hops: depth, count: parent.count}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	if len(best) == 0 {
		observability.Current().ObserveGraphOperation("multihop", "ok", time.Since(start))
		return []MultihopResult{}, nil
	}

	reachedIDs := make([]uuid.UUID, 0, len(best))
	for id := range best {
		reachedIDs = append(reachedIDs, id)
	}
	sortUUIDs(reachedIDs)

	resources, err := ts.resourceRepo.GetByIDs(dbc, reachedIDs)
	if err != nil {
		ts.log.Error("Multihop failed", "resource_id", resourceID, "error", err)
		return nil, fmt.Errorf("multihop: %w", err)
	}
	byID := make(map[uuid.UUID]*types.Resource, len(resources))
	for _, r := range resources {
		byID[r.ID] = r
	}

	degrees, err := ts.edgeRepo.DegreeCounts(dbc, reachedIDs)
	if err != nil {
		ts.log.Error("Multihop failed", "resource_id", resourceID, "error", err)
		return nil, fmt.Errorf("multihop: %w", err)
	}

	out := make([]MultihopResult, 0, len(best))
	for id, r := range best {
		res, ok := byID[id]
		if !ok {
			// Dangling edge target; the edge survived a resource removal.
			continue
		}
		novelty := 1.0 / (1.0 + float64(degrees[id]))
		out = append(out, MultihopResult{
			Resource:     summarize(res),
			Path:         r.path,
			Hops:         r.hops,
			PathStrength: r.strength,
			Quality:      res.QualityScore,
			Novelty:      novelty,
			PathsFound:   r.count,
			Rank:         ts.weights.Rank(r.strength, res.QualityScore, novelty),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].Resource.ID.String() < out[j].Resource.ID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	observability.Current().ObserveGraphOperation("multihop", "ok", time.Since(start))
	return out, nil
}
