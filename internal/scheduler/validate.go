package scheduler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gammazero/toposort"
)

// ValidateGraph checks a dependency graph given as identity -> dependency
// identities. It returns a topological order, or an error naming the first
// unknown dependency or reporting a cycle.
//
// The scheduler never needs the order to run; this is a diagnostic for
// graphs that would otherwise requeue forever.
func ValidateGraph(graph map[string][]string) ([]string, error) {
	if len(graph) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(graph))
	for key := range graph {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	// Verify every dependency names a known task
	for _, key := range keys {
		for _, dep := range graph[key] {
			if _, ok := graph[dep]; !ok {
				return nil, fmt.Errorf("task %q depends on unknown task %q", key, dep)
			}
		}
	}

	var edges []toposort.Edge
	for _, key := range keys {
		deps := graph[key]
		if len(deps) == 0 {
			// Root: edge from nil keeps it in the output
			edges = append(edges, toposort.Edge{nil, key})
			continue
		}
		for _, dep := range deps {
			// (dep, key): dep must come before key
			edges = append(edges, toposort.Edge{dep, key})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("dependency graph contains cycle: %w", err)
	}

	order := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}

	if len(order) != len(graph) {
		found := make(map[string]bool, len(order))
		for _, id := range order {
			found[id] = true
		}
		var missing []string
		for _, key := range keys {
			if !found[key] {
				missing = append(missing, key)
			}
		}
		return nil, fmt.Errorf("dependency graph contains cycle through %d tasks: %s", len(missing), strings.Join(missing, ", "))
	}

	return order, nil
}

// graphOf builds the identity graph for a set of tasks. Tasks sharing an
// identity are merged.
func graphOf[C any](tasks []*Task[C]) map[string][]string {
	graph := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		graph[t.key] = append(graph[t.key], t.desc.DependsOn...)
	}
	for key, deps := range graph {
		slices.Sort(deps)
		graph[key] = slices.Compact(deps)
	}
	return graph
}
