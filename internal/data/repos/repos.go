package repos

import (
	"gorm.io/gorm"

	"github.com/openshelf/bibliograph-backend/internal/data/repos/graph"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

type ResourceRepo = graph.ResourceRepo
type GraphEdgeRepo = graph.GraphEdgeRepo
type HypothesisRepo = graph.HypothesisRepo

type HypothesisFilter = graph.HypothesisFilter
type ValidationCounts = graph.ValidationCounts
type EdgeTypeCount = graph.EdgeTypeCount

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
	return graph.NewResourceRepo(db, baseLog)
}
func NewGraphEdgeRepo(db *gorm.DB, baseLog *logger.Logger) GraphEdgeRepo {
	return graph.NewGraphEdgeRepo(db, baseLog)
}
func NewHypothesisRepo(db *gorm.DB, baseLog *logger.Logger) HypothesisRepo {
	return graph.NewHypothesisRepo(db, baseLog)
}
