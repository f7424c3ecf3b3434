package hnsw

// Insert adds offset (with its already-stored vector) into the graph.
// vector is passed in explicitly (rather than re-fetched from
// VectorSource) since construction always runs immediately after the
// vector was written to storage.
func (g *Graph) Insert(offset uint32, vector []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	newLevel := g.randomLevel()
	g.ensureLayer(newLevel)
	g.level[offset] = newLevel
	g.vecCache[offset] = vector

	if !g.hasEntry {
		g.entryPoint = offset
		g.hasEntry = true
		return
	}

	entry := g.entryPoint
	entryLevel := g.level[entry]

	// Greedily descend from the top layer down to newLevel+1, updating
	// the entry point to the closest node found at each layer.
	for l := entryLevel; l > newLevel; l-- {
		entry = g.greedyClosest(vector, entry, l)
	}

	// From min(entryLevel, newLevel) down to 0, run a bounded search and
	// connect to the best M candidates found at each layer.
	for l := min(entryLevel, newLevel); l >= 0; l-- {
		candidates := g.searchLayer(vector, entry, g.cfg.EfConstruct, l)
		neighbors := selectNeighbors(candidates, g.cfg.M)
		for _, c := range neighbors {
			g.connect(l, offset, c.offset)
			g.connect(l, c.offset, offset)
			g.pruneLinks(l, c.offset)
		}
		if len(candidates) > 0 {
			entry = candidates[0].offset
		}
	}

	if newLevel > entryLevel {
		g.entryPoint = offset
	}
}

func (g *Graph) connect(layer int, from, to uint32) {
	g.links[layer][from] = append(g.links[layer][from], to)
}

// pruneLinks trims node's neighbor list at layer back down to M,
// keeping the closest ones — without this, degree grows unbounded as
// other nodes connect back to popular hubs.
func (g *Graph) pruneLinks(layer int, node uint32) {
	neighbors := g.links[layer][node]
	if len(neighbors) <= g.cfg.M {
		return
	}
	nodeVec, ok := g.vecCache[node]
	if !ok {
		return
	}
	scored := make([]candidate, 0, len(neighbors))
	for _, n := range neighbors {
		if score, ok := g.scoreOffsets(nodeVec, n); ok {
			scored = append(scored, candidate{offset: n, score: score})
		}
	}
	selected := selectNeighbors(scored, g.cfg.M)
	trimmed := make([]uint32, len(selected))
	for i, c := range selected {
		trimmed[i] = c.offset
	}
	g.links[layer][node] = trimmed
}

// scoreOffsets scores query against node's stored vector through
// VectorSource; it reports false when vector storage no longer holds
// node. The vector cache is not consulted here — it only supplies the
// query side (see pruneLinks).
func (g *Graph) scoreOffsets(query []float32, node uint32) (float32, bool) {
	return g.vectors.Score(query, node)
}

// candidate is one scored offset considered during construction or search.
type candidate struct {
	offset uint32
	score  float32
}

// selectNeighbors keeps the top-n highest-scoring candidates.
func selectNeighbors(candidates []candidate, n int) []candidate {
	sorted := append([]candidate(nil), candidates...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].score > sorted[j-1].score; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ReinforceBlock adds extra links from every offset in a payload block
// to other members of the block, up to PayloadM new links per offset
// (each link is added in one direction only) — spec.md §4.5
// step 3: "reinforce in-graph links per payload block ... so that
// queries filtered to a block remain well-connected." Layer 0 only,
// since that's where filtered search ultimately resolves candidates.
func (g *Graph) ReinforceBlock(offsets []uint32) {
	if g.cfg.PayloadM <= 0 || len(offsets) < 2 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for i, a := range offsets {
		added := 0
		for j := 0; j < len(offsets) && added < g.cfg.PayloadM; j++ {
			if i == j {
				continue
			}
			b := offsets[j]
			if !contains(g.links[0][a], b) {
				g.connect(0, a, b)
				added++
			}
		}
	}
}

func contains(s []uint32, v uint32) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
