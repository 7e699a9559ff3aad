package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/openshelf/bibliograph-backend/internal/data/repos"
	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"github.com/openshelf/bibliograph-backend/internal/pkg/scoring"
	"github.com/openshelf/bibliograph-backend/internal/platform/dbctx"
	"github.com/openshelf/bibliograph-backend/internal/platform/envutil"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

// DefaultVectorThreshold is the minimum cosine similarity for a vector
// candidate when the caller does not supply one.
const DefaultVectorThreshold = 0.70

// EdgeCandidate is one potential partner for an anchor resource, with the
// raw signals that qualified it.
type EdgeCandidate struct {
	Resource         ResourceSummary `json:"resource"`
	VectorSimilarity float64         `json:"vector_similarity"`
	SharedSubjects   int             `json:"shared_subjects"`
	SubjectJaccard   float64         `json:"subject_jaccard"`
}

// CandidateService scans the library for resources worth connecting to an
// anchor, either by embedding proximity or by shared subject tags. Callers
// pass a loaded anchor; resolving unknown ids is their concern.
type CandidateService interface {
	FindByVector(ctx context.Context, anchor *types.Resource, threshold float64, limit int) ([]EdgeCandidate, error)
	FindBySharedSubjects(ctx context.Context, anchor *types.Resource, limit int) ([]EdgeCandidate, error)
}

type candidateService struct {
	log          *logger.Logger
	resourceRepo repos.ResourceRepo
	scanLimit    int
}

func NewCandidateService(baseLog *logger.Logger, resourceRepo repos.ResourceRepo) CandidateService {
	return &candidateService{
		log:          baseLog.With("service", "CandidateService"),
		resourceRepo: resourceRepo,
		scanLimit:    envutil.IntInRange("CANDIDATE_SCAN_LIMIT", 1000, 100, 5000),
	}
}

func (cs *candidateService) FindByVector(ctx context.Context, anchor *types.Resource, threshold float64, limit int) ([]EdgeCandidate, error) {
	if anchor == nil || anchor.ID == uuid.Nil {
		return []EdgeCandidate{}, nil
	}
	if threshold <= 0 {
		threshold = DefaultVectorThreshold
	}
	limit = clampInt(limit, 20, 1, 100)

	anchorVec, ok := types.DecodeEmbedding(anchor.Embedding)
	if !ok {
		return []EdgeCandidate{}, nil
	}
	anchorSubjects := types.DecodeSubjects(anchor.Subjects)

	cs.log.Info("FindByVector", "resource_id", anchor.ID, "threshold", threshold, "limit", limit)

	dbc := dbctx.Context{Ctx: ctx}
	rows, err := cs.resourceRepo.ListWithEmbeddings(dbc, anchor.ID, cs.scanLimit)
	if err != nil {
		cs.log.Error("FindByVector failed", "resource_id", anchor.ID, "error", err)
		return nil, fmt.Errorf("find by vector: %w", err)
	}

	out := make([]EdgeCandidate, 0, limit)
	for _, row := range rows {
		vec, ok := types.DecodeEmbedding(row.Embedding)
		if !ok {
			continue
		}
		sim, err := scoring.Cosine(anchorVec, vec)
		if err != nil {
			// Mixed embedding generations; skip rather than fail the scan.
			continue
		}
		if sim < threshold {
			continue
		}
		subjects := types.DecodeSubjects(row.Subjects)
		out = append(out, EdgeCandidate{
			Resource:         summarize(row),
			VectorSimilarity: sim,
			SharedSubjects:   scoring.OverlapCount(anchorSubjects, subjects),
			SubjectJaccard:   scoring.Jaccard(anchorSubjects, subjects),
		})
	}

	sortCandidatesByVector(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (cs *candidateService) FindBySharedSubjects(ctx context.Context, anchor *types.Resource, limit int) ([]EdgeCandidate, error) {
	if anchor == nil || anchor.ID == uuid.Nil {
		return []EdgeCandidate{}, nil
	}
	limit = clampInt(limit, 20, 1, 100)

	anchorSubjects := types.DecodeSubjects(anchor.Subjects)
	if len(anchorSubjects) == 0 {
		return []EdgeCandidate{}, nil
	}
	anchorVec, hasVec := types.DecodeEmbedding(anchor.Embedding)

	cs.log.Info("FindBySharedSubjects", "resource_id", anchor.ID, "limit", limit)

	dbc := dbctx.Context{Ctx: ctx}
	rows, err := cs.resourceRepo.ListWithSubjects(dbc, anchor.ID, cs.scanLimit)
	if err != nil {
		cs.log.Error("FindBySharedSubjects failed", "resource_id", anchor.ID, "error", err)
		return nil, fmt.Errorf("find by shared subjects: %w", err)
	}

	out := make([]EdgeCandidate, 0, limit)
	for _, row := range rows {
		subjects := types.DecodeSubjects(row.Subjects)
		overlap := scoring.OverlapCount(anchorSubjects, subjects)
		if overlap == 0 {
			continue
		}
		cand := EdgeCandidate{
			Resource:       summarize(row),
			SharedSubjects: overlap,
			SubjectJaccard: scoring.Jaccard(anchorSubjects, subjects),
		}
		if hasVec {
			if vec, ok := types.DecodeEmbedding(row.Embedding); ok {
				if sim, err := scoring.Cosine(anchorVec, vec); err == nil {
					cand.VectorSimilarity = sim
				}
			}
		}
		out = append(out, cand)
	}

	sortCandidatesBySubjects(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortCandidatesByVector(cands []EdgeCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].VectorSimilarity != cands[j].VectorSimilarity {
			return cands[i].VectorSimilarity > cands[j].VectorSimilarity
		}
		return cands[i].Resource.ID.String() < cands[j].Resource.ID.String()
	})
}

func sortCandidatesBySubjects(cands []EdgeCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].SharedSubjects != cands[j].SharedSubjects {
			return cands[i].SharedSubjects > cands[j].SharedSubjects
		}
		return cands[i].Resource.ID.String() < cands[j].Resource.ID.String()
	})
}
