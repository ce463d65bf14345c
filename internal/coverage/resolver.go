package coverage

import (
	"github.com/jengzang/streetscore-go/internal/streetgraph"
)

// Resolve returns the ids of edges whose start and end endpoints were both
// visited. Ids come out sorted since the graph keeps edges ordered by id.
// The result is never nil.
func Resolve(visited Visited, g *streetgraph.Graph) []string {
	ids := []string{}
	if len(visited) == 0 {
		return ids
	}
	for _, e := range g.Edges() {
		if visited.Has(e.StartKey()) && visited.Has(e.EndKey()) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
