package segment

// flowGraph is an s-t flow network stored as an arc arena with intrusive
// adjacency lists. Arcs come in pairs: arc i and arc i^1 are each other's
// reverse, so residual updates never chase pointers. Nodes 0..n-1 are
// pixels; the two virtual terminals live at n and n+1.
type flowGraph struct {
	head   []int32 // first arc per node, -1 when none
	arcs   []flowArc
	level  []int32
	iter   []int32
	queue  []int32
	source int32
	sink   int32
}

type flowArc struct {
	to   int32
	next int32
	cap  float64
}

func newFlowGraph(pixels int, arcHint int) *flowGraph {
	n := pixels + 2
	g := &flowGraph{
		head:   make([]int32, n),
		arcs:   make([]flowArc, 0, arcHint*2),
		level:  make([]int32, n),
		iter:   make([]int32, n),
		queue:  make([]int32, 0, n),
		source: int32(pixels),
		sink:   int32(pixels + 1),
	}
	for i := range g.head {
		g.head[i] = -1
	}
	return g
}

// addEdge inserts a residual arc pair u->v / v->u with the given
// capacities.
func (g *flowGraph) addEdge(u, v int32, capUV, capVU float64) {
	g.arcs = append(g.arcs, flowArc{to: v, next: g.head[u], cap: capUV})
	g.head[u] = int32(len(g.arcs) - 1)
	g.arcs = append(g.arcs, flowArc{to: u, next: g.head[v], cap: capVU})
	g.head[v] = int32(len(g.arcs) - 1)
}

// addTerminal links pixel u to the two terminals: sourceCap is the cost of
// cutting u away from the foreground terminal, sinkCap from the background
// terminal.
func (g *flowGraph) addTerminal(u int32, sourceCap, sinkCap float64) {
	if sourceCap > 0 {
		g.addEdge(g.source, u, sourceCap, 0)
	}
	if sinkCap > 0 {
		g.addEdge(u, g.sink, sinkCap, 0)
	}
}

// bfsLevels builds the level graph from the source over residual arcs.
func (g *flowGraph) bfsLevels() bool {
	for i := range g.level {
		g.level[i] = -1
	}
	g.queue = g.queue[:0]
	g.level[g.source] = 0
	g.queue = append(g.queue, g.source)
	for qi := 0; qi < len(g.queue); qi++ {
		u := g.queue[qi]
		for a := g.head[u]; a != -1; a = g.arcs[a].next {
			arc := &g.arcs[a]
			if arc.cap > 0 && g.level[arc.to] == -1 {
				g.level[arc.to] = g.level[u] + 1
				g.queue = append(g.queue, arc.to)
			}
		}
	}
	return g.level[g.sink] != -1
}

// augment pushes a blocking-flow path fragment from u with headroom f.
func (g *flowGraph) augment(u int32, f float64) float64 {
	if u == g.sink {
		return f
	}
	for ; g.iter[u] != -1; g.iter[u] = g.arcs[g.iter[u]].next {
		a := g.iter[u]
		arc := &g.arcs[a]
		if arc.cap <= 0 || g.level[arc.to] != g.level[u]+1 {
			continue
		}
		pushed := g.augment(arc.to, minFloat(f, arc.cap))
		if pushed > 0 {
			arc.cap -= pushed
			g.arcs[a^1].cap += pushed
			return pushed
		}
	}
	return 0
}

// maxFlow runs Dinic's algorithm to saturation and returns the total flow,
// which equals the minimum cut weight.
func (g *flowGraph) maxFlow() float64 {
	const inf = 1e30
	total := 0.0
	for g.bfsLevels() {
		copy(g.iter, g.head)
		for {
			pushed := g.augment(g.source, inf)
			if pushed == 0 {
				break
			}
			total += pushed
		}
	}
	return total
}

// minCut returns, per pixel node, whether it stays on the source
// (foreground) side of the minimum cut. Must be called after maxFlow.
func (g *flowGraph) minCut() []bool {
	reachable := make([]bool, len(g.head))
	g.queue = g.queue[:0]
	reachable[g.source] = true
	g.queue = append(g.queue, g.source)
	for qi := 0; qi < len(g.queue); qi++ {
		u := g.queue[qi]
		for a := g.head[u]; a != -1; a = g.arcs[a].next {
			arc := &g.arcs[a]
			if arc.cap > 0 && !reachable[arc.to] {
				reachable[arc.to] = true
				g.queue = append(g.queue, arc.to)
			}
		}
	}
	return reachable[:g.source]
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
