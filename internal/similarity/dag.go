// Package similarity computes similarity matrices over ontology DAGs and
// streams the results into the graph store. Both methods it implements
// (Relevance and Co-annotation vector) share a skeleton: restrict the
// target vocabulary's internal graph to IS_A ∪ PART_OF, compute a
// per-node annotationCount in topological order, then enumerate pairs in
// a bounded worker pool, per spec.md §4.8.
package similarity

import (
	"bioterms/internal/model"
	"bioterms/internal/store/graph"
)

// isRestrictedLabel reports whether an internal-relationship label is part
// of the DAG the similarity engine reasons over.
func isRestrictedLabel(label model.RelationLabel) bool {
	return label == model.RelationIsA || label == model.RelationPartOf
}

// dag is the IS_A ∪ PART_OF subgraph of a vocabulary's internal graph,
// with children/parents adjacency precomputed (parents[x] are x's direct
// ancestors; children[x] are the nodes whose edges point to x).
type dag struct {
	nodeIDs  []string
	parents  map[string]map[string]struct{}
	children map[string]map[string]struct{}
}

func buildDAG(g *graph.Graph) *dag {
	d := &dag{
		parents:  make(map[string]map[string]struct{}),
		children: make(map[string]map[string]struct{}),
	}
	for id := range g.Nodes {
		d.nodeIDs = append(d.nodeIDs, id)
	}
	for from, rels := range g.Edges {
		for _, r := range rels {
			if !isRestrictedLabel(r.Label) {
				continue
			}
			if d.parents[from] == nil {
				d.parents[from] = map[string]struct{}{}
			}
			d.parents[from][r.ToID] = struct{}{}
			if d.children[r.ToID] == nil {
				d.children[r.ToID] = map[string]struct{}{}
			}
			d.children[r.ToID][from] = struct{}{}
		}
	}
	return d
}

// annotationCounts assigns each node its direct annotation degree plus the
// sum of its children's counts, processed in topological order (leaves
// first) via a Kahn's-algorithm sweep over the reversed (child -> parent)
// adjacency. Cyclic nodes (which should not occur once REPLACED_BY chains
// are collapsed and loaders only emit IS_A/PART_OF among distinct nodes)
// simply never reach pending==0: they still receive the counts of children
// that were processed, but never pass their own count on to their parents.
func (d *dag) annotationCounts(direct map[string]int64) map[string]int64 {
	counts := make(map[string]int64, len(d.nodeIDs))
	pending := make(map[string]int, len(d.nodeIDs))
	queue := make([]string, 0, len(d.nodeIDs))

	for _, id := range d.nodeIDs {
		counts[id] = direct[id]
		pending[id] = len(d.children[id])
		if pending[id] == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for parent := range d.parents[node] {
			counts[parent] += counts[node]
			pending[parent]--
			if pending[parent] == 0 {
				queue = append(queue, parent)
			}
		}
	}
	return counts
}

// ancestors returns the set of nodes reachable from id by following parent
// edges, including id itself.
func (d *dag) ancestors(id string) map[string]struct{} {
	seen := map[string]struct{}{id: {}}
	queue := []string{id}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for parent := range d.parents[node] {
			if _, ok := seen[parent]; ok {
				continue
			}
			seen[parent] = struct{}{}
			queue = append(queue, parent)
		}
	}
	return seen
}

// descendants returns the set of nodes reachable from id by following
// child edges, including id itself.
func (d *dag) descendants(id string) map[string]struct{} {
	seen := map[string]struct{}{id: {}}
	queue := []string{id}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for child := range d.children[node] {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return seen
}

// directAnnotationCounts maps each target-prefix concept to the number of
// distinct corpus-prefix concepts it is directly annotated against,
// accepting annotation edges in either direction.
func directAnnotationCounts(annotations []model.Annotation, target model.Prefix) map[string]int64 {
	sets := map[string]map[string]struct{}{}
	add := func(nodeID, corpusID string) {
		if sets[nodeID] == nil {
			sets[nodeID] = map[string]struct{}{}
		}
		sets[nodeID][corpusID] = struct{}{}
	}
	for _, a := range annotations {
		switch {
		case a.PrefixFrom == target:
			add(a.ConceptIDFrom, string(a.PrefixTo)+":"+a.ConceptIDTo)
		case a.PrefixTo == target:
			add(a.ConceptIDTo, string(a.PrefixFrom)+":"+a.ConceptIDFrom)
		}
	}
	out := make(map[string]int64, len(sets))
	for id, set := range sets {
		out[id] = int64(len(set))
	}
	return out
}

// directAnnotationSets maps each target-prefix concept to the set of
// corpus-prefix concept keys it is directly annotated against.
func directAnnotationSets(annotations []model.Annotation, target model.Prefix) map[string]map[string]struct{} {
	sets := map[string]map[string]struct{}{}
	add := func(nodeID, corpusID string) {
		if sets[nodeID] == nil {
			sets[nodeID] = map[string]struct{}{}
		}
		sets[nodeID][corpusID] = struct{}{}
	}
	for _, a := range annotations {
		switch {
		case a.PrefixFrom == target:
			add(a.ConceptIDFrom, string(a.PrefixTo)+":"+a.ConceptIDTo)
		case a.PrefixTo == target:
			add(a.ConceptIDTo, string(a.PrefixFrom)+":"+a.ConceptIDFrom)
		}
	}
	return sets
}
