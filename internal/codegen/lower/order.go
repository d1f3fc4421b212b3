package lower

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Alia5/featurec/internal/codegen/feature"
)

func (l *lowerer) orderTypes() ([]*feature.DataTypeDefinition, error) {
	entries := stabilize(l.types)
	if l.o.strict {
		var err error
		if entries, err = topological(l.types); err != nil {
			return nil, err
		}
	}
	out := make([]*feature.DataTypeDefinition, len(entries))
	for i, e := range entries {
		out[i] = e.def
	}
	return out, nil
}

// stabilize reinserts the entries one by one, each before the earliest
// inserted entry that depends on it. Cycles can leave forward references.
func stabilize(entries []*typeEntry) []*typeEntry {
	out := make([]*typeEntry, 0, len(entries))
	for _, e := range entries {
		pos := slices.IndexFunc(out, func(o *typeEntry) bool { return slices.Contains(o.deps, e.id) })
		if pos < 0 {
			pos = len(out)
		}
		out = slices.Insert(out, pos, e)
	}
	return out
}

// topological orders entries so that every entry follows the entries it
// depends on. Ties keep discovery order. A type may refer to itself.
func topological(entries []*typeEntry) ([]*typeEntry, error) {
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.id] = i
	}
	indegree := make([]int, len(entries))
	dependents := make([][]int, len(entries))
	for i, e := range entries {
		for _, dep := range e.deps {
			j, ok := index[dep]
			if !ok || j == i {
				continue
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready, order []int
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}
	for len(ready) > 0 {
		slices.Sort(ready)
		i := ready[0]
		ready = ready[1:]
		order = append(order, i)
		for _, j := range dependents[i] {
			if indegree[j]--; indegree[j] == 0 {
				ready = append(ready, j)
			}
		}
	}
	if len(order) != len(entries) {
		var cycle []string
		for i, d := range indegree {
			if d > 0 {
				cycle = append(cycle, entries[i].id)
			}
		}
		return nil, fatal(fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(cycle, ", ")))
	}

	out := make([]*typeEntry, len(order))
	for k, i := range order {
		out[k] = entries[i]
	}
	return out, nil
}
