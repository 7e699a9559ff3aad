package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/openshelf/bibliograph-backend/internal/app"
	graphdata "github.com/openshelf/bibliograph-backend/internal/data/graph"
	types "github.com/openshelf/bibliograph-backend/internal/domain"
)

// Pushes the full Postgres catalog graph into the Neo4j projection.
// Meant for enabling the mirror on an existing library; the service
// itself only mirrors incrementally on writes.
func main() {
	var batch int
	var dryRun bool
	flag.IntVar(&batch, "batch", 500, "rows per mirror write")
	flag.BoolVar(&dryRun, "dry-run", false, "count rows without writing to neo4j")
	flag.Parse()
	if batch <= 0 {
		batch = 500
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if application.Clients.Neo4j == nil && !dryRun {
		fmt.Println("neo4j mirror not configured (NEO4J_URI missing)")
		os.Exit(1)
	}

	ctx := context.Background()

	// Nodes first: the edge sync matches endpoints instead of creating
	// them, so every resource has to exist before any edge lands.
	mirroredResources := 0
	for offset := 0; ; offset += batch {
		var resources []*types.Resource
		if err := application.DB.WithContext(ctx).
			Order("id asc").
			Limit(batch).
			Offset(offset).
			Find(&resources).Error; err != nil {
			fmt.Printf("load resources: %v\n", err)
			os.Exit(1)
		}
		if len(resources) == 0 {
			break
		}

		if dryRun {
			fmt.Printf("[dry-run] would mirror %d resources (offset=%d)\n", len(resources), offset)
		} else if err := graphdata.UpsertResourceGraph(ctx, application.Clients.Neo4j, application.Log, resources, nil); err != nil {
			fmt.Printf("mirror resources at offset %d: %v\n", offset, err)
			os.Exit(1)
		}
		mirroredResources += len(resources)

		if len(resources) < batch {
			break
		}
	}

	mirroredEdges := 0
	for offset := 0; ; offset += batch {
		var edges []*types.GraphEdge
		if err := application.DB.WithContext(ctx).
			Order("id asc").
			Limit(batch).
			Offset(offset).
			Find(&edges).Error; err != nil {
			fmt.Printf("load edges: %v\n", err)
			os.Exit(1)
		}
		if len(edges) == 0 {
			break
		}

		if dryRun {
			fmt.Printf("[dry-run] would mirror %d edges (offset=%d)\n", len(edges), offset)
		} else if err := graphdata.UpsertResourceGraph(ctx, application.Clients.Neo4j, application.Log, nil, edges); err != nil {
			fmt.Printf("mirror edges at offset %d: %v\n", offset, err)
			os.Exit(1)
		}
		mirroredEdges += len(edges)

		if len(edges) < batch {
			break
		}
	}

	fmt.Printf("done; resources=%d edges=%d\n", mirroredResources, mirroredEdges)
}
