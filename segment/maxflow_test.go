package segment

import (
	"math"
	"testing"
)

func TestMaxFlowTwoPixelChain(t *testing.T) {
	// source -(10)-> 0 -(5)-> 1 -(10)-> sink: the middle edge bottlenecks.
	g := newFlowGraph(2, 4)
	g.addTerminal(0, 10, 0)
	g.addTerminal(1, 0, 10)
	g.addEdge(0, 1, 5, 5)

	flow := g.maxFlow()
	if math.Abs(flow-5) > 1e-9 {
		t.Fatalf("maxFlow = %v, want 5", flow)
	}

	cut := g.minCut()
	if !cut[0] {
		t.Errorf("pixel 0 should stay on the source side")
	}
	if cut[1] {
		t.Errorf("pixel 1 should fall on the sink side")
	}
}

func TestMaxFlowTerminalDominates(t *testing.T) {
	// Both pixels are pinned hard to opposite terminals; the weak link
	// between them is the only thing to cut.
	g := newFlowGraph(2, 4)
	g.addTerminal(0, 1000, 0)
	g.addTerminal(1, 0, 1000)
	g.addEdge(0, 1, 1, 1)

	if flow := g.maxFlow(); math.Abs(flow-1) > 1e-9 {
		t.Fatalf("maxFlow = %v, want 1", flow)
	}
	cut := g.minCut()
	if !cut[0] || cut[1] {
		t.Fatalf("cut = %v, want [true false]", cut)
	}
}

func TestMaxFlowIsolatedPixel(t *testing.T) {
	// A pixel with only a sink link never reaches the source side.
	g := newFlowGraph(1, 2)
	g.addTerminal(0, 0, 3)

	if flow := g.maxFlow(); flow != 0 {
		t.Fatalf("maxFlow = %v, want 0", flow)
	}
	if cut := g.minCut(); cut[0] {
		t.Fatalf("isolated pixel should be background")
	}
}
