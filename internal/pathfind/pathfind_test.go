package pathfind

import (
	"testing"

	"openfront/engine/internal/gamemap"
)

func TestPathFinderAroundIsland(t *testing.T) {
	gm := gamemap.MustParse(
		"~~~~~~~",
		"~~~#~~~",
		"~~~#~~~",
		"~~~#~~~",
		"~~~~~~~",
	)
	pf := Mini(gm, 100)
	curr := gm.Ref(1, 2)
	dst := gm.Ref(5, 2)
	for i := 0; i < 50; i++ {
		step := pf.NextTile(curr, dst, 1)
		switch step.Result {
		case Completed:
			if curr != dst {
				t.Fatalf("completed at %d, want %d", curr, dst)
			}
			return
		case NextTile:
			if gm.IsLand(step.Tile) {
				t.Fatalf("water path crossed land at (%d,%d)", gm.X(step.Tile), gm.Y(step.Tile))
			}
			if gm.ManhattanDist(curr, step.Tile) != 1 {
				t.Fatalf("step jumped from %d to %d", curr, step.Tile)
			}
			curr = step.Tile
		case PathNotFound:
			t.Fatal("path should exist")
		}
	}
	t.Fatal("did not arrive within 50 steps")
}

func TestPathFinderBudgetYieldsPending(t *testing.T) {
	gm := gamemap.NewPlains(40, 40)
	pf := New(gm, 1, true, 1000)
	step := pf.NextTile(gm.Ref(0, 0), gm.Ref(39, 39), 1)
	if step.Result != Pending {
		t.Fatalf("expected pending with a one-node budget, got %s", step.Result)
	}
}

func TestPathFinderUnreachable(t *testing.T) {
	gm := gamemap.MustParse(
		"~#~",
		"~#~",
		"~#~",
	)
	pf := New(gm, 100, false, 3)
	var last Result
	for i := 0; i < 5; i++ {
		last = pf.NextTile(gm.Ref(0, 1), gm.Ref(2, 1), 1).Result
		if last == PathNotFound {
			return
		}
	}
	t.Fatalf("expected PathNotFound, last result %s", last)
}

func TestPathFinderRetargets(t *testing.T) {
	gm := gamemap.NewPlains(10, 1)
	pf := New(gm, 100, true, 0)
	step := pf.NextTile(gm.Ref(5, 0), gm.Ref(9, 0), 1)
	if step.Result != NextTile || step.Tile != gm.Ref(6, 0) {
		t.Fatalf("unexpected first step %+v", step)
	}
	step = pf.NextTile(step.Tile, gm.Ref(0, 0), 1)
	if step.Result != NextTile || step.Tile != gm.Ref(5, 0) {
		t.Fatalf("expected to turn around, got %+v", step)
	}
}

func TestParabolaArrivesInThreeSteps(t *testing.T) {
	gm := gamemap.NewPlains(10, 10)
	p := NewParabola(gm)
	p.ComputeControlPoints(gm.Ref(1, 1), gm.Ref(7, 7), true)
	if n := len(p.Tiles()); n != 12 {
		t.Fatalf("expected 12 samples, got %d", n)
	}
	if p.Tiles()[0] != gm.Ref(1, 1) || p.Tiles()[11] != gm.Ref(7, 7) {
		t.Fatal("trajectory must start at the source and end at the target")
	}
	for i := 0; i < 2; i++ {
		if _, arrived := p.NextTile(4); arrived {
			t.Fatalf("arrived early on step %d", i+1)
		}
	}
	tile, arrived := p.NextTile(4)
	if !arrived || tile != gm.Ref(7, 7) {
		t.Fatalf("expected arrival at target, got tile %d arrived=%v", tile, arrived)
	}
}

func TestFlatParabolaStaysLow(t *testing.T) {
	gm := gamemap.NewPlains(30, 30)
	p := NewParabola(gm)
	p.ComputeControlPoints(gm.Ref(2, 20), gm.Ref(26, 20), false)
	for _, tile := range p.Tiles() {
		if gm.Y(tile) != 20 {
			t.Fatalf("flat arc left the row: y=%d", gm.Y(tile))
		}
	}
}

func TestStepToward(t *testing.T) {
	gm := gamemap.NewPlains(10, 10)
	if got := StepToward(gm, gm.Ref(2, 2), gm.Ref(6, 3)); got != gm.Ref(3, 2) {
		t.Fatalf("unexpected step %d", got)
	}
	if got := StepToward(gm, gm.Ref(2, 2), gm.Ref(2, 2)); got != gm.Ref(2, 2) {
		t.Fatal("step at target should stay put")
	}
}
