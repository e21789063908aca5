package report

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/nao1215/drivercatalog/internal/catalog"
)

// Summary is the aggregated view of a tree that the writers render.
type Summary struct {
	GeneratedAt time.Time
	Total       int
	Tally       map[catalog.OutcomeKind]int

	// ProductTypes are sorted by label.
	ProductTypes []ProductTypeSummary
}

// ProductTypeSummary aggregates the leaves below one product type.
type ProductTypeSummary struct {
	ID    string
	Name  string
	Total int
	Tally map[catalog.OutcomeKind]int

	// Drivers are the resolved leaves in key order.
	Drivers []Driver
}

// Driver is one resolved leaf with the labels along its path.
type Driver struct {
	Key    catalog.LookupKey
	Labels [catalog.Depth]string
	URL    string
}

// NewSummary aggregates tree.
func NewSummary(tree *catalog.Tree, now time.Time) *Summary {
	s := &Summary{
		GeneratedAt: now,
		Tally:       make(map[catalog.OutcomeKind]int),
	}
	if tree == nil {
		return s
	}
	for _, id := range slices.Sorted(maps.Keys(tree.Roots)) {
		node := tree.Roots[id]
		pt := ProductTypeSummary{
			ID:    id,
			Name:  node.Name,
			Tally: make(map[catalog.OutcomeKind]int),
		}
		var labels [catalog.Depth]string
		labels[0] = node.Name
		collect(&pt, node.Children, []string{id}, labels)

		s.Total += pt.Total
		for kind, n := range pt.Tally {
			s.Tally[kind] += n
		}
		s.ProductTypes = append(s.ProductTypes, pt)
	}
	slices.SortStableFunc(s.ProductTypes, func(a, b ProductTypeSummary) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return s
}

func collect(pt *ProductTypeSummary, children map[string]*catalog.Node, path []string, labels [catalog.Depth]string) {
	depth := len(path)
	for _, id := range slices.Sorted(maps.Keys(children)) {
		node := children[id]
		labels[depth] = node.Name
		next := append(path[:depth:depth], id)
		if depth+1 < catalog.Depth {
			collect(pt, node.Children, next, labels)
			continue
		}

		pt.Total++
		pt.Tally[node.Outcome.Kind]++
		if node.Outcome.Kind != catalog.Resolved {
			continue
		}
		key, err := catalog.KeyFromPath(next)
		if err != nil {
			continue
		}
		pt.Drivers = append(pt.Drivers, Driver{Key: key, Labels: labels, URL: node.Outcome.URL})
	}
}

// Coverage returns the share of leaves holding a terminal answer, in [0, 1].
func (s *Summary) Coverage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Tally[catalog.Resolved]+s.Tally[catalog.NotFound]) / float64(s.Total)
}

// Recoverable returns the number of leaves a cleanup would retry, not
// counting unresolved ones.
func (s *Summary) Recoverable() int {
	return s.Tally[catalog.AccessDenied] + s.Tally[catalog.TransientError]
}
