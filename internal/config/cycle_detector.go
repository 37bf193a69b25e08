package config

import "sort"

// detectCycle returns the operations participating in a dependency cycle, or
// nil if no cycle exists. Disabled operations and their edges are ignored.
func detectCycle(ops []Operation) []string {
	enabled := make(map[string]bool, len(ops))
	for _, op := range ops {
		if op.Enabled {
			enabled[op.ID] = true
		}
	}

	graph := make(map[string][]string, len(enabled))
	for _, op := range ops {
		if !enabled[op.ID] {
			continue
		}
		deps := make([]string, 0, len(op.Requires))
		for _, dep := range op.Requires {
			if enabled[dep] {
				deps = append(deps, dep)
			}
		}
		graph[op.ID] = deps
	}

	visiting := make(map[string]bool, len(ops))
	visited := make(map[string]bool, len(ops))
	var stack []string

	var cycle []string
	var dfs func(string) bool
	dfs = func(node string) bool {
		visiting[node] = true
		stack = append(stack, node)

		for _, dep := range graph[node] {
			if !visited[dep] {
				if visiting[dep] {
					idx := indexOf(stack, dep)
					if idx >= 0 {
						cycle = append([]string{}, stack[idx:]...)
						cycle = append(cycle, dep)
					}
					return true
				}
				if dfs(dep) {
					return true
				}
			}
		}

		visiting[node] = false
		visited[node] = true
		stack = stack[:len(stack)-1]
		return false
	}

	ids := make([]string, 0, len(enabled))
	for id := range enabled {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if visited[id] {
			continue
		}
		if dfs(id) {
			break
		}
	}

	return cycle
}

func indexOf(slice []string, target string) int {
	for i, v := range slice {
		if v == target {
			return i
		}
	}
	return -1
}
