// Package experiment implements the parameter-sweep harness of spec
// §4.7: enumerate a ParameterGrid's Cartesian product, run the GA once
// per point with stats collection enabled, and aggregate sensitivity
// and convergence results. Grounded on the teacher's benchmarks.TestSuite,
// generalized from a fixed problem list to a Cartesian parameter grid.
package experiment

import "sort"

// ParameterGrid maps a parameter name to the set of values to sweep
// over it.
type ParameterGrid map[string][]float64

// Point is one concrete assignment of every parameter in a grid.
type Point map[string]float64

// Enumerate returns every point in the Cartesian product of grid, in a
// deterministic order: parameter names sorted, then nested loops in
// that order (so point[i] and point[i+1] differ only in the
// last-varying parameter, useful for convergence-curve readability).
func Enumerate(grid ParameterGrid) []Point {
	names := sortedNames(grid)
	if len(names) == 0 {
		return nil
	}
	points := []Point{{}}
	for _, name := range names {
		values := grid[name]
		next := make([]Point, 0, len(points)*len(values))
		for _, p := range points {
			for _, v := range values {
				np := make(Point, len(p)+1)
				for k, pv := range p {
					np[k] = pv
				}
				np[name] = v
				next = append(next, np)
			}
		}
		points = next
	}
	return points
}

func sortedNames(grid ParameterGrid) []string {
	names := make([]string, 0, len(grid))
	for name := range grid {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
