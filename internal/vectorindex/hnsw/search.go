package hnsw

import "sort"

// greedyClosest walks layer from entry towards query, one greedy hop at a
// time, returning the closest node found — the standard upper-layer
// descent step used both during construction and search.
func (g *Graph) greedyClosest(query []float32, entry uint32, layer int) uint32 {
	best := entry
	bestScore, ok := g.scoreOffsets(query, best)
	if !ok {
		return entry
	}

	improved := true
	for improved {
		improved = false
		for _, n := range g.links[layer][best] {
			score, ok := g.scoreOffsets(query, n)
			if !ok {
				continue
			}
			if score > bestScore {
				best, bestScore = n, score
				improved = true
			}
		}
	}
	return best
}

// searchLayer runs a bounded beam search at layer starting from entry,
// returning up to ef candidates sorted by descending score.
func (g *Graph) searchLayer(query []float32, entry uint32, ef int, layer int) []candidate {
	visited := map[uint32]bool{entry: true}

	entryScore, ok := g.scoreOffsets(query, entry)
	if !ok {
		return nil
	}

	candidates := []candidate{{offset: entry, score: entryScore}}
	results := []candidate{{offset: entry, score: entryScore}}

	for len(candidates) > 0 {
		// Pop the best-scoring candidate off the frontier.
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
		cur := candidates[0]
		candidates = candidates[1:]

		worstResult := results[len(results)-1].score
		if len(results) >= ef && cur.score < worstResult {
			break
		}

		for _, n := range g.links[layer][cur.offset] {
			if visited[n] {
				continue
			}
			visited[n] = true

			score, ok := g.scoreOffsets(query, n)
			if !ok {
				continue
			}

			if len(results) < ef || score > results[len(results)-1].score {
				candidates = append(candidates, candidate{offset: n, score: score})
				results = insertSorted(results, candidate{offset: n, score: score})
				if len(results) > ef {
					results = results[:ef]
				}
			}
		}
	}

	return results
}

func insertSorted(results []candidate, c candidate) []candidate {
	i := sort.Search(len(results), func(i int) bool { return results[i].score <= c.score })
	results = append(results, candidate{})
	copy(results[i+1:], results[i:])
	results[i] = c
	return results
}

// Result is one scored offset returned by Search.
type Result struct {
	Offset uint32
	Score  float32
}

// Search runs a layered-graph search with ef = max(top, ef), where
// ef <= 0 selects the configured EfSearch. With a non-nil accept,
// candidates it rejects are still traversed (their neighbors may pass)
// but never count towards the ef results; ef itself is not enlarged.
// Choosing between this graph walk and an exhaustive scan of a small
// filtered set is left to the caller (vectorindex.Hnsw).
func (g *Graph) Search(query []float32, top int, ef int, accept func(uint32) bool) []Result {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasEntry {
		return nil
	}

	if ef <= 0 {
		ef = g.cfg.EfSearch
	}
	if ef < top {
		ef = top
	}

	entry := g.entryPoint
	topLayer := len(g.links) - 1
	for l := topLayer; l > 0; l-- {
		entry = g.greedyClosest(query, entry, l)
	}

	candidates := g.searchLayerFiltered(query, entry, ef, 0, accept)
	if len(candidates) > top {
		candidates = candidates[:top]
	}

	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{Offset: c.offset, Score: c.score}
	}
	return results
}

// searchLayerFiltered is searchLayer with an acceptance predicate applied
// before a candidate counts towards the result set, so rejected nodes
// still get traversed (their neighbors may pass) without polluting
// results — spec.md §4.5's "reject at scoring time" behavior.
func (g *Graph) searchLayerFiltered(query []float32, entry uint32, ef int, layer int, accept func(uint32) bool) []candidate {
	if accept == nil {
		return g.searchLayer(query, entry, ef, layer)
	}

	visited := map[uint32]bool{entry: true}
	entryScore, ok := g.scoreOffsets(query, entry)
	if !ok {
		return nil
	}

	candidates := []candidate{{offset: entry, score: entryScore}}
	var results []candidate
	if accept(entry) {
		results = []candidate{{offset: entry, score: entryScore}}
	}

	for len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
		cur := candidates[0]
		candidates = candidates[1:]

		if len(results) >= ef && len(results) > 0 && cur.score < results[len(results)-1].score {
			break
		}

		for _, n := range g.links[layer][cur.offset] {
			if visited[n] {
				continue
			}
			visited[n] = true

			score, ok := g.scoreOffsets(query, n)
			if !ok {
				continue
			}

			candidates = append(candidates, candidate{offset: n, score: score})

			if !accept(n) {
				continue
			}
			if len(results) < ef || score > results[len(results)-1].score {
				results = insertSorted(results, candidate{offset: n, score: score})
				if len(results) > ef {
					results = results[:ef]
				}
			}
		}
	}

	return results
}
