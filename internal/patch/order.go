package patch

// resolveOrder topologically sorts the requested modules by their declared
// dependencies using Kahn's algorithm.
//
// The sort is deterministic: among modules whose dependencies are all
// satisfied, the one earliest in the requested order is placed next. The
// same requested set in the same order always yields the same result.
// Duplicate names in the request collapse to their first occurrence.
//
// deps maps each requested module to its declared dependencies. Every
// dependency must itself be in the requested set; otherwise a
// missing-dependency error is returned. A cycle among the requested modules
// returns a cyclic-dependency error carrying one cycle path.
func resolveOrder(names []string, deps map[string][]string) ([]string, error) {
	// Dedupe on first occurrence: a module requested twice is installed
	// once, and a repeated name must not read as an unsatisfiable node.
	requested := make(map[string]bool, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if !requested[name] {
			requested[name] = true
			unique = append(unique, name)
		}
	}
	names = unique

	// Indegree = number of unsatisfied dependencies per module.
	indegree := make(map[string]int, len(names))
	dependents := make(map[string][]string)
	for _, name := range names {
		indegree[name] = 0
	}
	for _, name := range names {
		for _, dep := range deps[name] {
			if !requested[dep] {
				return nil, NewMissingDependencyError(name, dep)
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	order := make([]string, 0, len(names))
	placed := make(map[string]bool, len(names))
	for len(order) < len(names) {
		// Pick the earliest requested module with no unsatisfied deps.
		next := ""
		for _, name := range names {
			if !placed[name] && indegree[name] == 0 {
				next = name
				break
			}
		}
		if next == "" {
			// Every remaining module waits on another - a cycle.
			return nil, NewCycleError(findCycle(names, deps, placed))
		}

		order = append(order, next)
		placed[next] = true
		for _, dependent := range dependents[next] {
			indegree[dependent]--
		}
	}

	return order, nil
}

// findCycle reconstructs one dependency cycle among the unplaced modules by
// walking declared dependencies until a module repeats.
func findCycle(names []string, deps map[string][]string, placed map[string]bool) []string {
	// Start from the first unplaced module.
	start := ""
	for _, name := range names {
		if !placed[name] {
			start = name
			break
		}
	}
	if start == "" {
		return nil
	}

	visited := make(map[string]int) // module -> position in path
	path := []string{}
	current := start
	for {
		if pos, seen := visited[current]; seen {
			cycle := append([]string{}, path[pos:]...)
			return append(cycle, current)
		}
		visited[current] = len(path)
		path = append(path, current)

		// Follow the first unplaced dependency.
		next := ""
		for _, dep := range deps[current] {
			if !placed[dep] {
				next = dep
				break
			}
		}
		if next == "" {
			return path // unreachable when called on a true cycle
		}
		current = next
	}
}
