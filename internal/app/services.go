package app

import (
	"gorm.io/gorm"

	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
	"github.com/openshelf/bibliograph-backend/internal/services"
)

type Services struct {
	Candidates services.CandidateService
	Graph      services.GraphService
	Traversal  services.TraversalService
	Discovery  services.DiscoveryService
}

func wireServices(db *gorm.DB, log *logger.Logger, reposet Repos, clients Clients) Services {
	log.Info("Wiring services...")

	candidates := services.NewCandidateService(log, reposet.Resource)
	graph := services.NewGraphService(log, reposet.Resource, reposet.GraphEdge, reposet.Hypothesis, candidates, clients.Cache)
	traversal := services.NewTraversalService(log, reposet.Resource, reposet.GraphEdge)
	discovery := services.NewDiscoveryService(db, log, reposet.Resource, reposet.GraphEdge, reposet.Hypothesis, clients.Neo4j)

	return Services{
		Candidates: candidates,
		Graph:      graph,
		Traversal:  traversal,
		Discovery:  discovery,
	}
}
