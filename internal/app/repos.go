package app

import (
	"gorm.io/gorm"

	"github.com/openshelf/bibliograph-backend/internal/data/repos"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

type Repos struct {
	Resource   repos.ResourceRepo
	GraphEdge  repos.GraphEdgeRepo
	Hypothesis repos.HypothesisRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Resource:   repos.NewResourceRepo(db, log),
		GraphEdge:  repos.NewGraphEdgeRepo(db, log),
		Hypothesis: repos.NewHypothesisRepo(db, log),
	}
}
