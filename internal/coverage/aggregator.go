package coverage

import (
	"math"
	"sort"

	"github.com/jengzang/streetscore-go/internal/models"
	"github.com/jengzang/streetscore-go/internal/streetgraph"
)

// Aggregator converts coverage records into scores against one graph
type Aggregator struct {
	graph *streetgraph.Graph
}

// NewAggregator creates an aggregator for the graph
func NewAggregator(g *streetgraph.Graph) *Aggregator {
	return &Aggregator{graph: g}
}

// ScoreForUser sums the lengths of the distinct segments across records, in
// meters, floored. Ids missing from the graph are skipped.
func (a *Aggregator) ScoreForUser(records []models.CoverageRecord) int64 {
	union := make(map[string]struct{})
	for _, r := range records {
		for _, id := range r.SegmentIDs {
			union[id] = struct{}{}
		}
	}
	return a.sum(union)
}

// ScoreForAllUsers groups records by user and scores each group the same way
// ScoreForUser does.
func (a *Aggregator) ScoreForAllUsers(records []models.CoverageRecord) map[string]int64 {
	byUser := make(map[string]map[string]struct{})
	for _, r := range records {
		union, ok := byUser[r.UserID]
		if !ok {
			union = make(map[string]struct{})
			byUser[r.UserID] = union
		}
		for _, id := range r.SegmentIDs {
			union[id] = struct{}{}
		}
	}

	scores := make(map[string]int64, len(byUser))
	for userID, union := range byUser {
		scores[userID] = a.sum(union)
	}
	return scores
}

// GlobalTotal is the floored length of the whole network
func (a *Aggregator) GlobalTotal() int64 {
	return int64(math.Floor(a.graph.TotalLengthM()))
}

// sum adds lengths in id order so the float result does not depend on map
// iteration order.
func (a *Aggregator) sum(union map[string]struct{}) int64 {
	ids := make([]string, 0, len(union))
	for id := range union {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var total float64
	for _, id := range ids {
		if e, ok := a.graph.Edge(id); ok {
			total += e.LengthM
		}
	}
	return int64(math.Floor(total))
}
