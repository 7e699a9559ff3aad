package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	graphdata "github.com/openshelf/bibliograph-backend/internal/data/graph"
	"github.com/openshelf/bibliograph-backend/internal/data/repos"
	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"github.com/openshelf/bibliograph-backend/internal/observability"
	"github.com/openshelf/bibliograph-backend/internal/pkg/scoring"
	"github.com/openshelf/bibliograph-backend/internal/platform/apierr"
	"github.com/openshelf/bibliograph-backend/internal/platform/dbctx"
	"github.com/openshelf/bibliograph-backend/internal/platform/envutil"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
	"github.com/openshelf/bibliograph-backend/internal/platform/neo4jdb"
)

// DiscoveryPath is one candidate connection between two chosen endpoints,
// ordered strongest first in DiscoverClosed results.
type DiscoveryPath struct {
	AResourceID  uuid.UUID   `json:"a_resource_id"`
	CResourceID  uuid.UUID   `json:"c_resource_id"`
	BridgeIDs    []uuid.UUID `json:"bridge_ids"`
	PathLength   int         `json:"path_length"`
	PathStrength float64     `json:"path_strength"`
	Plausibility float64     `json:"plausibility"`
}

// DiscoveryService finds non-obvious connections through bridge resources
// and manages the hypothesis review loop.
type DiscoveryService interface {
	// DiscoverOpen proposes targets for A that share bridges with it but
	// have no direct edge yet. Survivors are persisted as open hypotheses.
	DiscoverOpen(ctx context.Context, aID uuid.UUID, minPlausibility float64, limit int) ([]*types.DiscoveryHypothesis, error)

	// DiscoverClosed enumerates paths between two chosen endpoints up to
	// maxHops and persists the strongest as the closed hypothesis.
	DiscoverClosed(ctx context.Context, aID, cID uuid.UUID, maxHops int) ([]DiscoveryPath, error)

	ListHypotheses(ctx context.Context, filter repos.HypothesisFilter) ([]*types.DiscoveryHypothesis, error)

	// ValidateHypothesis records the curator ruling. Accepting reinforces
	// the explicit edges along the hypothesis path; reinforcement failures
	// never fail the validation itself. The int reports how many edges the
	// ruling moved.
	ValidateHypothesis(ctx context.Context, hypothesisID uuid.UUID, isValid bool, notes string) (*types.DiscoveryHypothesis, int, error)
}

type discoveryService struct {
	db             *gorm.DB
	log            *logger.Logger
	resourceRepo   repos.ResourceRepo
	edgeRepo       repos.GraphEdgeRepo
	hypothesisRepo repos.HypothesisRepo
	neo4jClient    *neo4jdb.Client

	openWeights   scoring.OpenDiscoveryWeights
	closedWeights scoring.ClosedDiscoveryWeights
	reinforcement float64
	maxBridges    int
	maxPaths      int
}

func NewDiscoveryService(db *gorm.DB, baseLog *logger.Logger, resourceRepo repos.ResourceRepo, edgeRepo repos.GraphEdgeRepo, hypothesisRepo repos.HypothesisRepo, neo4jClient *neo4jdb.Client) DiscoveryService {
	serviceLog := baseLog.With("service", "DiscoveryService")
	cfg, err := scoring.Load()
	if err != nil {
		serviceLog.Warn("scoring weights fell back to defaults", "error", err)
	}
	return &discoveryService{
		db:             db,
		log:            serviceLog,
		resourceRepo:   resourceRepo,
		edgeRepo:       edgeRepo,
		hypothesisRepo: hypothesisRepo,
		neo4jClient:    neo4jClient,
		openWeights:    cfg.OpenDiscovery,
		closedWeights:  cfg.ClosedDiscovery,
		reinforcement:  cfg.Validation.Reinforcement,
		maxBridges:     envutil.IntInRange("DISCOVERY_MAX_BRIDGES", 200, 10, 1000),
		maxPaths:       envutil.IntInRange("DISCOVERY_MAX_PATHS", 25, 1, 100),
	}
}

// inTx runs fn inside a transaction when the service owns a handle;
// otherwise the repos fall back to their own connections.
func (ds *discoveryService) inTx(ctx context.Context, fn func(txc dbctx.Context) error) error {
	if ds.db == nil {
		return fn(dbctx.Context{Ctx: ctx})
	}
	return ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

func (ds *discoveryService) DiscoverOpen(ctx context.Context, aID uuid.UUID, minPlausibility float64, limit int) ([]*types.DiscoveryHypothesis, error) {
	minPlausibility = scoring.Clamp01(minPlausibility)
	limit = clampInt(limit, 10, 1, 50)

	ds.log.Info("DiscoverOpen", "a_resource_id", aID, "min_plausibility", minPlausibility, "limit", limit)

	dbc := dbctx.Context{Ctx: ctx}
	a, err := ds.resourceRepo.GetByID(dbc, aID)
	if err != nil {
		ds.log.Error("DiscoverOpen failed", "a_resource_id", aID, "error", err)
		return nil, fmt.Errorf("discover open: %w", err)
	}
	if a == nil {
		return nil, apierr.NotFound("resource_not_found", fmt.Errorf("resource %s not found", aID))
	}
	start := time.Now()

	abEdges, err := ds.edgeRepo.GetBySourceIDs(dbc, []uuid.UUID{a.ID})
	if err != nil {
		ds.log.Error("DiscoverOpen failed", "a_resource_id", aID, "error", err)
		return nil, fmt.Errorf("discover open: %w", err)
	}
	directTargets := make(map[uuid.UUID]bool, len(abEdges))
	bridgeIDs := make([]uuid.UUID, 0, len(abEdges))
	for _, e := range abEdges {
		if e.TargetID == a.ID {
			continue
		}
		directTargets[e.TargetID] = true
		bridgeIDs = append(bridgeIDs, e.TargetID)
	}
	// GetBySourceIDs orders strongest first, so the fan-out cap keeps the
	// best-connected bridges.
	bridgeIDs = dedupeUUIDs(bridgeIDs)
	if len(bridgeIDs) > ds.maxBridges {
		bridgeIDs = bridgeIDs[:ds.maxBridges]
	}
	if len(bridgeIDs) == 0 {
		return []*types.DiscoveryHypothesis{}, nil
	}

	bcEdges, err := ds.edgeRepo.GetBySourceIDs(dbc, bridgeIDs)
	if err != nil {
		ds.log.Error("DiscoverOpen failed", "a_resource_id", aID, "error", err)
		return nil, fmt.Errorf("discover open: %w", err)
	}
	bridgesByC := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, e := range bcEdges {
		c := e.TargetID
		if c == a.ID || c == e.SourceID || directTargets[c] {
			continue
		}
		if bridgesByC[c] == nil {
			bridgesByC[c] = make(map[uuid.UUID]bool)
		}
		bridgesByC[c][e.SourceID] = true
	}
	if len(bridgesByC) == 0 {
		return []*types.DiscoveryHypothesis{}, nil
	}

	cIDs := make([]uuid.UUID, 0, len(bridgesByC))
	for c := range bridgesByC {
		cIDs = append(cIDs, c)
	}
	sortUUIDs(cIDs)
	cRows, err := ds.resourceRepo.GetByIDs(dbc, cIDs)
	if err != nil {
		ds.log.Error("DiscoverOpen failed", "a_resource_id", aID, "error", err)
		return nil, fmt.Errorf("discover open: %w", err)
	}
	cByID := make(map[uuid.UUID]*types.Resource, len(cRows))
	for _, r := range cRows {
		cByID[r.ID] = r
	}

	now := time.Now().UTC()
	rows := make([]*types.DiscoveryHypothesis, 0, len(cIDs))
	for _, cID := range cIDs {
		cRes, ok := cByID[cID]
		if !ok {
			continue
		}
		bSet := bridgesByC[cID]
		bList := make([]uuid.UUID, 0, len(bSet))
		for b := range bSet {
			bList = append(bList, b)
		}
		sortUUIDs(bList)

		semantic := semanticAffinity(a, cRes)
		plausibility := ds.openWeights.Plausibility(1.0, semantic, len(bList))
		if plausibility < minPlausibility {
			continue
		}
		rows = append(rows, &types.DiscoveryHypothesis{
			AResourceID:     a.ID,
			CResourceID:     cID,
			HypothesisType:  types.HypothesisTypeOpen,
			BResourceIDs:    types.EncodeUUIDs(bList),
			Plausibility:    plausibility,
			PathStrength:    1.0,
			PathLength:      len(bList) + 1,
			CommonNeighbors: len(bList),
			DiscoveredAt:    now,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Plausibility != rows[j].Plausibility {
			return rows[i].Plausibility > rows[j].Plausibility
		}
		return rows[i].CResourceID.String() < rows[j].CResourceID.String()
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if len(rows) == 0 {
		observability.Current().ObserveGraphOperation("discover_open", "ok", time.Since(start))
		return []*types.DiscoveryHypothesis{}, nil
	}

	err = ds.inTx(ctx, func(txc dbctx.Context) error {
		for _, row := range rows {
			if err := ds.hypothesisRepo.Upsert(txc, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		ds.log.Error("DiscoverOpen failed", "a_resource_id", aID, "error", err)
		return nil, fmt.Errorf("discover open: %w", err)
	}

	// Re-read so callers see the canonical rows (stable ids on refresh).
	out := make([]*types.DiscoveryHypothesis, 0, len(rows))
	for _, row := range rows {
		stored, err := ds.hypothesisRepo.GetByKey(dbc, row.AResourceID, row.CResourceID, types.HypothesisTypeOpen)
		if err != nil {
			ds.log.Error("DiscoverOpen failed", "a_resource_id", aID, "error", err)
			return nil, fmt.Errorf("discover open: %w", err)
		}
		if stored != nil {
			out = append(out, stored)
		}
	}
	observability.Current().AddHypotheses(types.HypothesisTypeOpen, len(out))
	observability.Current().ObserveGraphOperation("discover_open", "ok", time.Since(start))
	return out, nil
}

func (ds *discoveryService) DiscoverClosed(ctx context.Context, aID, cID uuid.UUID, maxHops int) ([]DiscoveryPath, error) {
	if maxHops < 2 || maxHops > 4 {
		return nil, apierr.InvalidArgument("invalid_max_hops", fmt.Errorf("max hops must be within [2,4], got %d", maxHops))
	}
	if aID == cID {
		return nil, apierr.InvalidArgument("identical_endpoints", fmt.Errorf("endpoints must differ"))
	}

	ds.log.Info("DiscoverClosed", "a_resource_id", aID, "c_resource_id", cID, "max_hops", maxHops)

	dbc := dbctx.Context{Ctx: ctx}
	a, err := ds.resourceRepo.GetByID(dbc, aID)
	if err != nil {
		ds.log.Error("DiscoverClosed failed", "a_resource_id", aID, "error", err)
		return nil, fmt.Errorf("discover closed: %w", err)
	}
	if a == nil {
		return nil, apierr.NotFound("resource_not_found", fmt.Errorf("resource %s not found", aID))
	}
	c, err := ds.resourceRepo.GetByID(dbc, cID)
	if err != nil {
		ds.log.Error("DiscoverClosed failed", "c_resource_id", cID, "error", err)
		return nil, fmt.Errorf("discover closed: %w", err)
	}
	if c == nil {
		return nil, apierr.NotFound("resource_not_found", fmt.Errorf("resource %s not found", cID))
	}
	start := time.Now()

	semantic := semanticAffinity(a, c)
	paths := make([]DiscoveryPath, 0, 8)

	direct, err := ds.edgeRepo.GetBetween(dbc, a.ID, c.ID)
	if err != nil {
		ds.log.Error("DiscoverClosed failed", "a_resource_id", aID, "error", err)
		return nil, fmt.Errorf("discover closed: %w", err)
	}
	if len(direct) > 0 {
		paths = append(paths, DiscoveryPath{
			AResourceID:  a.ID,
			CResourceID:  c.ID,
			BridgeIDs:    []uuid.UUID{},
			PathLength:   1,
			PathStrength: direct[0].Weight,
			Plausibility: 1.0,
		})
	}

	abEdges, err := ds.edgeRepo.GetBySourceIDs(dbc, []uuid.UUID{a.ID})
	if err != nil {
		ds.log.Error("DiscoverClosed failed", "a_resource_id", aID, "error", err)
		return nil, fmt.Errorf("discover closed: %w", err)
	}
	b1IDs := make([]uuid.UUID, 0, len(abEdges))
	for _, e := range abEdges {
		if e.TargetID == a.ID || e.TargetID == c.ID {
			continue
		}
		b1IDs = append(b1IDs, e.TargetID)
	}
	b1IDs = dedupeUUIDs(b1IDs)
	if len(b1IDs) > ds.maxBridges {
		b1IDs = b1IDs[:ds.maxBridges]
	}

	twoHopBridges := make([]uuid.UUID, 0, len(b1IDs))
	var b1Edges []*types.GraphEdge
	if len(b1IDs) > 0 {
		b1Edges, err = ds.edgeRepo.GetBySourceIDs(dbc, b1IDs)
		if err != nil {
			ds.log.Error("DiscoverClosed failed", "a_resource_id", aID, "error", err)
			return nil, fmt.Errorf("discover closed: %w", err)
		}
		seen := make(map[uuid.UUID]bool, len(b1IDs))
		for _, e := range b1Edges {
			if e.TargetID != c.ID || seen[e.SourceID] {
				continue
			}
			seen[e.SourceID] = true
			twoHopBridges = append(twoHopBridges, e.SourceID)
		}
		sortUUIDs(twoHopBridges)
		base := ds.closedWeights.BaseStrength(2)
		plausibility := ds.closedWeights.Plausibility(base, semantic)
		for _, b := range twoHopBridges {
			paths = append(paths, DiscoveryPath{
				AResourceID:  a.ID,
				CResourceID:  c.ID,
				BridgeIDs:    []uuid.UUID{b},
				PathLength:   2,
				PathStrength: base,
				Plausibility: plausibility,
			})
		}
	}

	// maxHops 4 is accepted for request compatibility but the search stops
	// at three hops.
	if maxHops >= 3 && len(b1IDs) > 0 {
		type pair struct{ b1, b2 uuid.UUID }
		pairSeen := make(map[pair]bool)
		pairs := make([]pair, 0, 32)
		b2Set := make(map[uuid.UUID]bool)
		for _, e := range b1Edges {
			b2 := e.TargetID
			if b2 == a.ID || b2 == c.ID || b2 == e.SourceID {
				continue
			}
			p := pair{b1: e.SourceID, b2: b2}
			if pairSeen[p] {
				continue
			}
			pairSeen[p] = true
			pairs = append(pairs, p)
			b2Set[b2] = true
		}

		if len(b2Set) > 0 {
			b2IDs := make([]uuid.UUID, 0, len(b2Set))
			for id := range b2Set {
				b2IDs = append(b2IDs, id)
			}
			sortUUIDs(b2IDs)
			if len(b2IDs) > ds.maxBridges {
				b2IDs = b2IDs[:ds.maxBridges]
			}
			b2Edges, err := ds.edgeRepo.GetBySourceIDs(dbc, b2IDs)
			if err != nil {
				ds.log.Error("DiscoverClosed failed", "a_resource_id", aID, "error", err)
				return nil, fmt.Errorf("discover closed: %w", err)
			}
			linksC := make(map[uuid.UUID]bool, len(b2Edges))
			for _, e := range b2Edges {
				if e.TargetID == c.ID {
					linksC[e.SourceID] = true
				}
			}
			base := ds.closedWeights.BaseStrength(3)
			plausibility := ds.closedWeights.Plausibility(base, semantic)
			for _, p := range pairs {
				if !linksC[p.b2] || p.b1 == p.b2 {
					continue
				}
				paths = append(paths, DiscoveryPath{
					AResourceID:  a.ID,
					CResourceID:  c.ID,
					BridgeIDs:    []uuid.UUID{p.b1, p.b2},
					PathLength:   3,
					PathStrength: base,
					Plausibility: plausibility,
				})
			}
		}
	}

	sort.SliceStable(paths, func(i, j int) bool {
		if paths[i].Plausibility != paths[j].Plausibility {
			return paths[i].Plausibility > paths[j].Plausibility
		}
		if paths[i].PathLength != paths[j].PathLength {
			return paths[i].PathLength < paths[j].PathLength
		}
		return bridgeKey(paths[i].BridgeIDs) < bridgeKey(paths[j].BridgeIDs)
	})
	if len(paths) > ds.maxPaths {
		paths = paths[:ds.maxPaths]
	}
	if len(paths) == 0 {
		observability.Current().ObserveGraphOperation("discover_closed", "ok", time.Since(start))
		return []DiscoveryPath{}, nil
	}

	top := paths[0]
	row := &types.DiscoveryHypothesis{
		AResourceID:     a.ID,
		CResourceID:     c.ID,
		HypothesisType:  types.HypothesisTypeClosed,
		BResourceIDs:    types.EncodeUUIDs(top.BridgeIDs),
		Plausibility:    top.Plausibility,
		PathStrength:    top.PathStrength,
		PathLength:      top.PathLength,
		CommonNeighbors: len(twoHopBridges),
		DiscoveredAt:    time.Now().UTC(),
	}
	if err := ds.hypothesisRepo.Upsert(dbc, row); err != nil {
		ds.log.Error("DiscoverClosed failed", "a_resource_id", aID, "error", err)
		return nil, fmt.Errorf("discover closed: %w", err)
	}
	observability.Current().AddHypotheses(types.HypothesisTypeClosed, 1)
	observability.Current().ObserveGraphOperation("discover_closed", "ok", time.Since(start))
	return paths, nil
}

func (ds *discoveryService) ListHypotheses(ctx context.Context, filter repos.HypothesisFilter) ([]*types.DiscoveryHypothesis, error) {
	switch filter.Validated {
	case "", "true", "false", "pending":
	default:
		return nil, apierr.InvalidArgument("invalid_validated_filter", fmt.Errorf("validated must be true, false or pending, got %q", filter.Validated))
	}
	if filter.HypothesisType != "" && filter.HypothesisType != types.HypothesisTypeOpen && filter.HypothesisType != types.HypothesisTypeClosed {
		return nil, apierr.InvalidArgument("invalid_hypothesis_type", fmt.Errorf("unknown hypothesis type %q", filter.HypothesisType))
	}
	filter.Limit = clampInt(filter.Limit, 50, 1, 200)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	ds.log.Info("ListHypotheses", "a_resource_id", filter.AResourceID, "type", filter.HypothesisType, "validated", filter.Validated)

	out, err := ds.hypothesisRepo.List(dbctx.Context{Ctx: ctx}, filter)
	if err != nil {
		ds.log.Error("ListHypotheses failed", "error", err)
		return nil, fmt.Errorf("list hypotheses: %w", err)
	}
	return out, nil
}

func (ds *discoveryService) ValidateHypothesis(ctx context.Context, hypothesisID uuid.UUID, isValid bool, notes string) (*types.DiscoveryHypothesis, int, error) {
	ds.log.Info("ValidateHypothesis", "hypothesis_id", hypothesisID, "is_valid", isValid)

	dbc := dbctx.Context{Ctx: ctx}
	h, err := ds.hypothesisRepo.GetByID(dbc, hypothesisID)
	if err != nil {
		ds.log.Error("ValidateHypothesis failed", "hypothesis_id", hypothesisID, "error", err)
		return nil, 0, fmt.Errorf("validate hypothesis: %w", err)
	}
	if h == nil {
		return nil, 0, apierr.NotFound("hypothesis_not_found", fmt.Errorf("hypothesis %s not found", hypothesisID))
	}

	if err := ds.hypothesisRepo.SetValidation(dbc, h.ID, isValid, notes); err != nil {
		ds.log.Error("ValidateHypothesis failed", "hypothesis_id", hypothesisID, "error", err)
		return nil, 0, fmt.Errorf("validate hypothesis: %w", err)
	}
	observability.Current().IncHypothesisRuling(isValid)

	reinforcedEdges := 0
	if isValid {
		reinforcedEdges = ds.reinforcePathEdges(ctx, h)
	}

	stored, err := ds.hypothesisRepo.GetByID(dbc, h.ID)
	if err != nil {
		ds.log.Error("ValidateHypothesis failed", "hypothesis_id", hypothesisID, "error", err)
		return nil, 0, fmt.Errorf("validate hypothesis: %w", err)
	}
	if isValid && ds.neo4jClient != nil {
		if err := graphdata.UpsertValidatedHypothesis(ctx, ds.neo4jClient, ds.log, stored); err != nil {
			ds.log.Warn("neo4j hypothesis sync failed (continuing)", "hypothesis_id", h.ID, "error", err)
			observability.Current().IncGraphSync("hypothesis", "error")
		} else {
			observability.Current().IncGraphSync("hypothesis", "ok")
		}
	}
	return stored, reinforcedEdges, nil
}

// reinforcePathEdges bumps the weight of every explicit edge along the
// hypothesis path by the reinforcement factor, capped at 1.0, and reports
// how many edges moved. Failures are logged and swallowed; a curator
// ruling must stick even when an edge update cannot.
func (ds *discoveryService) reinforcePathEdges(ctx context.Context, h *types.DiscoveryHypothesis) int {
	bridges := types.DecodeUUIDs(h.BResourceIDs)

	var hops [][2]uuid.UUID
	if h.HypothesisType == types.HypothesisTypeOpen {
		// Open bridges are parallel A->b->C routes, not a chain.
		for _, b := range bridges {
			hops = append(hops, [2]uuid.UUID{h.AResourceID, b}, [2]uuid.UUID{b, h.CResourceID})
		}
		if len(bridges) == 0 {
			hops = append(hops, [2]uuid.UUID{h.AResourceID, h.CResourceID})
		}
	} else {
		chain := append(append([]uuid.UUID{h.AResourceID}, bridges...), h.CResourceID)
		for i := 0; i+1 < len(chain); i++ {
			hops = append(hops, [2]uuid.UUID{chain[i], chain[i+1]})
		}
	}

	dbc := dbctx.Context{Ctx: ctx}
	reinforced := make([]*types.GraphEdge, 0, len(hops))
	for _, hop := range hops {
		edges, err := ds.edgeRepo.GetBetween(dbc, hop[0], hop[1])
		if err != nil {
			ds.log.Warn("reinforcement lookup failed (continuing)", "hypothesis_id", h.ID, "error", err)
			continue
		}
		for _, e := range edges {
			weight := e.Weight * ds.reinforcement
			if weight > 1.0 {
				weight = 1.0
			}
			if weight == e.Weight {
				continue
			}
			if err := ds.edgeRepo.UpdateWeight(dbc, e.ID, weight); err != nil {
				ds.log.Warn("reinforcement update failed (continuing)", "hypothesis_id", h.ID, "edge_id", e.ID, "error", err)
				continue
			}
			e.Weight = weight
			reinforced = append(reinforced, e)
			observability.Current().IncEdgeReinforcement(e.EdgeType)
		}
	}
	if len(reinforced) == 0 || ds.neo4jClient == nil {
		return len(reinforced)
	}

	nodeIDs := dedupeUUIDs(append([]uuid.UUID{h.AResourceID, h.CResourceID}, bridges...))
	nodes, err := ds.resourceRepo.GetByIDs(dbc, nodeIDs)
	if err != nil {
		ds.log.Warn("reinforcement mirror skipped", "hypothesis_id", h.ID, "error", err)
		return len(reinforced)
	}
	if err := graphdata.UpsertResourceGraph(ctx, ds.neo4jClient, ds.log, nodes, reinforced); err != nil {
		ds.log.Warn("neo4j edge sync failed (continuing)", "hypothesis_id", h.ID, "error", err)
		observability.Current().IncGraphSync("edges", "error")
	} else {
		observability.Current().IncGraphSync("edges", "ok")
	}
	return len(reinforced)
}

func bridgeKey(ids []uuid.UUID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return strings.Join(parts, ",")
}
