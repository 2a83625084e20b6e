package migration

import (
	"fmt"
	"testing"

	"github.com/fly-io/gridmigrate/pkg/grid"
	"github.com/fly-io/gridmigrate/pkg/gridstate"
	"github.com/google/go-cmp/cmp"
)

func app(identity string, screen, x, y int) grid.Item {
	return grid.Item{
		Identity:  identity,
		Intent:    identity,
		Container: grid.ContainerDesktop,
		ScreenID:  screen,
		CellX:     x,
		CellY:     y,
		SpanX:     1,
		SpanY:     1,
	}
}

func widget(identity string, screen, x, y, spanX, spanY int) grid.Item {
	it := app(identity, screen, x, y)
	it.Type = grid.ItemTypeAppWidget
	it.SpanX, it.SpanY = spanX, spanY
	return it
}

func hotseat(identity string, slot int) grid.Item {
	return grid.Item{
		Identity:    identity,
		Intent:      identity,
		Container:   grid.ContainerHotseat,
		HotseatSlot: slot,
		SpanX:       1,
		SpanY:       1,
	}
}

func layoutOf(items ...grid.Item) *grid.Layout {
	l := grid.NewLayout()
	for _, it := range items {
		if it.InHotseat() {
			l.Hotseat = append(l.Hotseat, it)
			continue
		}
		l.Workspace[it.ScreenID] = append(l.Workspace[it.ScreenID], it)
	}
	grid.SortHotseat(l.Hotseat)
	for screen := range l.Workspace {
		grid.SortRowMajor(l.Workspace[screen])
	}
	return l
}

// slots renders placed hotseat items as "identity@slot".
func slots(items []grid.Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, fmt.Sprintf("%s@%d", it.Identity, it.HotseatSlot))
	}
	return out
}

// cells renders placed desktop items as "identity:screen(x,y)".
func cells(items []grid.Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, fmt.Sprintf("%s:%d(%d,%d)", it.Identity, it.ScreenID, it.CellX, it.CellY))
	}
	return out
}

func identitiesOf(items []grid.Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Identity)
	}
	return out
}

func params(srcCols, srcRows, srcHotseat, dstCols, dstRows, dstHotseat int, strategy gridstate.Strategy) Params {
	return Params{
		Source:                grid.Geometry{Size: grid.Size{Columns: srcCols, Rows: srcRows}, Hotseat: srcHotseat},
		Destination:           grid.Geometry{Size: grid.Size{Columns: dstCols, Rows: dstRows}, Hotseat: dstHotseat},
		Strategy:              strategy,
		ReflowColumnThreshold: DefaultReflowColumnThreshold,
	}
}

func TestCompute_HotseatKeepsExistingSlot(t *testing.T) {
	src := layoutOf(hotseat("p1", 0), hotseat("p2", 1), hotseat("p3", 2), hotseat("p4", 3))
	dest := layoutOf(hotseat("p2", 1))

	plan := Compute(src, dest, params(4, 4, 4, 4, 4, 4, gridstate.StrategyLegacy))

	if diff := cmp.Diff([]string{"p1@0", "p3@2", "p4@3"}, slots(plan.Hotseat)); diff != "" {
		t.Errorf("hotseat placement mismatch (-want +got):\n%s", diff)
	}
	if plan.HotseatSkipped != 1 {
		t.Errorf("expected the existing item to be skipped once, got %d", plan.HotseatSkipped)
	}
	if len(plan.HotseatDropped) != 0 {
		t.Errorf("expected nothing dropped, got %v", identitiesOf(plan.HotseatDropped))
	}
}

func TestCompute_HotseatToLarger(t *testing.T) {
	src := layoutOf(hotseat("p1", 0), hotseat("p2", 1), hotseat("p3", 2), hotseat("p4", 3))

	plan := Compute(src, grid.NewLayout(), params(4, 4, 4, 4, 4, 6, gridstate.StrategyLegacy))

	if diff := cmp.Diff([]string{"p1@0", "p2@1", "p3@2", "p4@3"}, slots(plan.Hotseat)); diff != "" {
		t.Errorf("hotseat placement mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_HotseatToSmaller(t *testing.T) {
	src := layoutOf(hotseat("p1", 0), hotseat("p2", 2), hotseat("p3", 3), hotseat("p4", 4), hotseat("p5", 5))

	plan := Compute(src, grid.NewLayout(), params(4, 4, 6, 4, 4, 4, gridstate.StrategyLegacy))

	if diff := cmp.Diff([]string{"p1@0", "p2@1", "p3@2", "p4@3"}, slots(plan.Hotseat)); diff != "" {
		t.Errorf("hotseat placement mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p5"}, identitiesOf(plan.HotseatDropped)); diff != "" {
		t.Errorf("dropped mismatch (-want +got):\n%s", diff)
	}
	// dropped hotseat items never show up on the desktop
	if len(plan.Workspace) != 0 {
		t.Errorf("dropped hotseat items leaked onto the desktop: %v", cells(plan.Workspace))
	}
}

func TestCompute_HotseatCapacityAndRank(t *testing.T) {
	first := hotseat("p1", 1)
	first.Rank = 2
	second := hotseat("p2", 1)
	second.Rank = 1
	src := layoutOf(first, second, hotseat("p3", 0))
	dest := layoutOf(hotseat("other", 0))

	plan := Compute(src, dest, params(4, 4, 4, 4, 4, 2, gridstate.StrategyLegacy))

	// p3 has the lowest slot, then rank breaks the tie between p2 and p1; one free slot remains
	if diff := cmp.Diff([]string{"p3@1"}, slots(plan.Hotseat)); diff != "" {
		t.Errorf("hotseat placement mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p2", "p1"}, identitiesOf(plan.HotseatDropped)); diff != "" {
		t.Errorf("dropped mismatch (-want +got):\n%s", diff)
	}

	none := Compute(src, grid.NewLayout(), params(4, 4, 4, 4, 4, 0, gridstate.StrategyLegacy))
	if len(none.Hotseat) != 0 || len(none.HotseatDropped) != 3 {
		t.Errorf("zero-size hotseat should drop everything, got placed=%v dropped=%v",
			slots(none.Hotseat), identitiesOf(none.HotseatDropped))
	}
}

func TestCompute_HotseatCapacityCountsEveryExistingItem(t *testing.T) {
	src := layoutOf(hotseat("p1", 0), hotseat("p2", 1), hotseat("p3", 2), hotseat("p4", 3))
	// left over from a wider hotseat
	dest := layoutOf(hotseat("x", 5))

	plan := Compute(src, dest, params(4, 4, 6, 4, 4, 4, gridstate.StrategyLegacy))

	if diff := cmp.Diff([]string{"p1@0", "p2@1", "p3@2"}, slots(plan.Hotseat)); diff != "" {
		t.Errorf("hotseat placement mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p4"}, identitiesOf(plan.HotseatDropped)); diff != "" {
		t.Errorf("dropped mismatch (-want +got):\n%s", diff)
	}

	full := layoutOf(hotseat("x", 4), hotseat("y", 5), hotseat("z", 6), hotseat("w", 7))
	none := Compute(src, full, params(4, 4, 8, 4, 4, 4, gridstate.StrategyLegacy))
	if len(none.Hotseat) != 0 || len(none.HotseatDropped) != 4 {
		t.Errorf("full hotseat should drop everything, got placed=%v", slots(none.Hotseat))
	}
}

func TestCompute_BlockedSpaceStaysOccupied(t *testing.T) {
	src := layoutOf(hotseat("a", 0), app("b", 0, 0, 0))
	dest := grid.NewLayout()
	dest.Blocked = []grid.Item{
		{Container: grid.ContainerHotseat, HotseatSlot: 0, SpanX: 1, SpanY: 1},
		{Container: grid.ContainerDesktop, ScreenID: 0, CellX: 0, CellY: 0, SpanX: 2, SpanY: 1},
	}

	plan := Compute(src, dest, params(4, 4, 4, 4, 4, 4, gridstate.StrategyLegacy))

	if diff := cmp.Diff([]string{"a@1"}, slots(plan.Hotseat)); diff != "" {
		t.Errorf("hotseat placement mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b:0(2,0)"}, cells(plan.Workspace)); diff != "" {
		t.Errorf("workspace placement mismatch (-want +got):\n%s", diff)
	}

	// a blocked slot also counts against capacity
	small := Compute(layoutOf(hotseat("a", 0), hotseat("c", 1)), dest, params(4, 4, 4, 4, 4, 2, gridstate.StrategyLegacy))
	if diff := cmp.Diff([]string{"a@1"}, slots(small.Hotseat)); diff != "" {
		t.Errorf("hotseat placement mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c"}, identitiesOf(small.HotseatDropped)); diff != "" {
		t.Errorf("dropped mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_LegacyPreservesFreeCells(t *testing.T) {
	// _ _ _ _ _
	// _ _ _ _ 5
	// _ _ 6 _ 7
	// _ _ 8 _ 9
	src := layoutOf(app("p5", 0, 4, 1), app("p6", 0, 2, 2), app("p7", 0, 4, 2), app("p8", 0, 2, 3), app("p9", 0, 4, 3))
	dest := layoutOf(app("p10", 0, 2, 2))

	plan := Compute(src, dest, params(5, 5, 5, 4, 4, 4, gridstate.StrategyLegacy))

	if plan.Mode != ModePreserve {
		t.Fatalf("expected preserve mode, got %v", plan.Mode)
	}
	// p8 keeps its free cell; out-of-bounds and blocked items fill from the top
	want := []string{"p5:0(0,0)", "p6:0(1,0)", "p7:0(2,0)", "p9:0(3,0)", "p8:0(2,3)"}
	if diff := cmp.Diff(want, cells(plan.Workspace)); diff != "" {
		t.Errorf("workspace placement mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_LegacyReservedRows(t *testing.T) {
	src := layoutOf(app("p5", 0, 4, 1), app("p6", 0, 2, 2), app("p7", 0, 4, 2), app("p8", 0, 2, 3), app("p9", 0, 4, 3))
	dest := layoutOf(app("p10", 0, 2, 2))

	p := params(5, 5, 5, 4, 4, 4, gridstate.StrategyLegacy)
	p.ReservedRows = 1
	plan := Compute(src, dest, p)

	want := []string{"p5:0(0,1)", "p6:0(1,1)", "p7:0(2,1)", "p9:0(3,1)", "p8:0(2,3)"}
	if diff := cmp.Diff(want, cells(plan.Workspace)); diff != "" {
		t.Errorf("workspace placement mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_SmallDifferenceKeepsPages(t *testing.T) {
	src := layoutOf(app("p1", 0, 2, 2), app("p2", 0, 2, 3), app("p3", 1, 3, 1), app("p4", 1, 3, 2), app("p5", 2, 3, 3))

	plan := Compute(src, grid.NewLayout(), params(4, 4, 4, 6, 5, 4, gridstate.StrategySizeAware))

	if plan.Mode != ModePreserve {
		t.Fatalf("expected preserve mode for a 2 column difference, got %v", plan.Mode)
	}
	want := []string{"p1:0(2,2)", "p2:0(2,3)", "p3:1(3,1)", "p4:1(3,2)", "p5:2(3,3)"}
	if diff := cmp.Diff(want, cells(plan.Workspace)); diff != "" {
		t.Errorf("workspace placement mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_BigDifferenceReflows(t *testing.T) {
	src := layoutOf(app("p1", 0, 0, 1), app("p2", 0, 1, 1), app("p3", 1, 0, 0), app("p4", 1, 1, 0), app("p5", 2, 0, 0))

	plan := Compute(src, grid.NewLayout(), params(2, 2, 4, 5, 5, 4, gridstate.StrategySizeAware))

	if plan.Mode != ModeReflow {
		t.Fatalf("expected reflow mode for a 3 column difference, got %v", plan.Mode)
	}
	want := []string{"p1:0(0,0)", "p2:0(1,0)", "p3:0(2,0)", "p4:0(3,0)", "p5:0(4,0)"}
	if diff := cmp.Diff(want, cells(plan.Workspace)); diff != "" {
		t.Errorf("workspace placement mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_FlagOffNeverReflows(t *testing.T) {
	src := layoutOf(app("p1", 0, 0, 1), app("p2", 1, 0, 0))

	plan := Compute(src, grid.NewLayout(), params(2, 2, 4, 5, 5, 4, gridstate.StrategyLegacy))

	if plan.Mode != ModePreserve {
		t.Fatalf("expected preserve mode with the flag off, got %v", plan.Mode)
	}
	if diff := cmp.Diff([]string{"p1:0(0,1)", "p2:1(0,0)"}, cells(plan.Workspace)); diff != "" {
		t.Errorf("workspace placement mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_ShrinkStrategy(t *testing.T) {
	src := layoutOf(app("p1", 0, 0, 1), app("p2", 0, 1, 1), app("p3", 1, 0, 0), app("p4", 1, 1, 0), app("p5", 2, 0, 0))

	preserve := Compute(src, grid.NewLayout(), params(5, 5, 4, 4, 4, 4, gridstate.StrategySizeAware))
	if preserve.Mode != ModePreserve {
		t.Fatalf("expected preserve mode by default, got %v", preserve.Mode)
	}
	if diff := cmp.Diff([]string{"p1:0(0,1)", "p2:0(1,1)", "p3:1(0,0)", "p4:1(1,0)", "p5:2(0,0)"}, cells(preserve.Workspace)); diff != "" {
		t.Errorf("preserve placement mismatch (-want +got):\n%s", diff)
	}

	p := params(5, 5, 4, 4, 4, 4, gridstate.StrategySizeAware)
	p.ReflowOnShrink = true
	reflow := Compute(src, grid.NewLayout(), p)
	if reflow.Mode != ModeReflow {
		t.Fatalf("expected reflow mode on shrink, got %v", reflow.Mode)
	}
	if diff := cmp.Diff([]string{"p1:0(0,0)", "p2:0(1,0)", "p3:0(2,0)", "p4:0(3,0)", "p5:0(0,1)"}, cells(reflow.Workspace)); diff != "" {
		t.Errorf("reflow placement mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_LegacyOverflowsToLaterScreens(t *testing.T) {
	dest := layoutOf(
		app("x1", 0, 0, 0), app("x2", 0, 1, 0), app("x3", 0, 0, 1), app("x4", 0, 1, 1),
		app("y1", 3, 0, 0),
	)
	src := layoutOf(app("a", 0, 0, 0), app("b", 0, 1, 0), app("c", 0, 0, 1), app("d", 0, 1, 1), app("e", 3, 1, 1))

	plan := Compute(src, dest, params(2, 2, 4, 2, 2, 4, gridstate.StrategyLegacy))

	// e keeps its spot on screen 3; the rest move to the next screen with room, then a new one
	want := []string{"a:3(1,0)", "b:3(0,1)", "e:3(1,1)", "c:4(0,0)", "d:4(1,0)"}
	if diff := cmp.Diff(want, cells(plan.Workspace)); diff != "" {
		t.Errorf("workspace placement mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_SpanAwarePacking(t *testing.T) {
	src := layoutOf(
		app("a", 0, 0, 0),
		widget("w", 0, 1, 0, 2, 2),
		app("b", 0, 3, 0),
		widget("huge", 1, 0, 0, 4, 1),
	)

	plan := Compute(src, grid.NewLayout(), params(6, 6, 4, 3, 3, 4, gridstate.StrategySizeAware))

	if plan.Mode != ModeReflow {
		t.Fatalf("expected reflow mode, got %v", plan.Mode)
	}
	if diff := cmp.Diff([]string{"a:0(0,0)", "w:0(1,0)", "b:0(0,1)"}, cells(plan.Workspace)); diff != "" {
		t.Errorf("workspace placement mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"huge"}, identitiesOf(plan.WorkspaceDropped)); diff != "" {
		t.Errorf("dropped mismatch (-want +got):\n%s", diff)
	}

	// a widget whose original rectangle overlaps an existing item is moved as a whole
	dest := layoutOf(app("z", 0, 2, 1))
	legacy := Compute(layoutOf(widget("w", 0, 1, 0, 2, 2)), dest, params(3, 3, 4, 3, 3, 4, gridstate.StrategyLegacy))
	if diff := cmp.Diff([]string{"w:0(0,0)"}, cells(legacy.Workspace)); diff != "" {
		t.Errorf("legacy widget placement mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_ReflowOpensNewScreens(t *testing.T) {
	var items []grid.Item
	for i := 0; i < 5; i++ {
		items = append(items, app(fmt.Sprintf("p%d", i), i, 0, 0))
	}

	plan := Compute(layoutOf(items...), grid.NewLayout(), params(6, 6, 4, 2, 1, 4, gridstate.StrategySizeAware))

	want := []string{"p0:0(0,0)", "p1:0(1,0)", "p2:1(0,0)", "p3:1(1,0)", "p4:2(0,0)"}
	if diff := cmp.Diff(want, cells(plan.Workspace)); diff != "" {
		t.Errorf("workspace placement mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_ReflowCursorOnlyAdvances(t *testing.T) {
	src := layoutOf(app("a", 0, 0, 0), widget("w", 0, 1, 0, 4, 1), app("b", 0, 5, 0))

	plan := Compute(src, grid.NewLayout(), params(8, 4, 4, 4, 4, 4, gridstate.StrategySizeAware))

	// w wraps to the next row; b follows it rather than filling (1,0)
	want := []string{"a:0(0,0)", "w:0(0,1)", "b:0(0,2)"}
	if diff := cmp.Diff(want, cells(plan.Workspace)); diff != "" {
		t.Errorf("workspace placement mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_ExistingIdentitiesNeverMoved(t *testing.T) {
	src := layoutOf(app("a", 0, 0, 0), app("b", 0, 1, 0), hotseat("h", 0))
	dest := layoutOf(app("a", 2, 3, 3), hotseat("h", 3))

	plan := Compute(src, dest, params(4, 4, 4, 4, 4, 4, gridstate.StrategySizeAware))

	if diff := cmp.Diff([]string{"b:0(1,0)"}, cells(plan.Workspace)); diff != "" {
		t.Errorf("workspace placement mismatch (-want +got):\n%s", diff)
	}
	if len(plan.Hotseat) != 0 || plan.HotseatSkipped != 1 || plan.WorkspaceSkipped != 1 {
		t.Errorf("unexpected plan %+v", plan)
	}

	// applying the plan and planning again places nothing
	merged := layoutOf(append(append(dest.WorkspaceItems(), dest.Hotseat...), plan.Workspace...)...)
	again := Compute(src, merged, params(4, 4, 4, 4, 4, 4, gridstate.StrategySizeAware))
	if len(again.Hotseat)+len(again.Workspace) != 0 {
		t.Errorf("second plan should be empty, got hotseat=%v workspace=%v", slots(again.Hotseat), cells(again.Workspace))
	}
}

func TestSelectMode(t *testing.T) {
	tests := []struct {
		name   string
		p      Params
		shrink bool
		want   Mode
	}{
		{"legacy flag", params(2, 2, 4, 6, 6, 4, gridstate.StrategyLegacy), false, ModePreserve},
		{"delta 2", params(4, 4, 4, 6, 6, 4, gridstate.StrategySizeAware), false, ModePreserve},
		{"delta 3", params(4, 4, 4, 7, 4, 4, gridstate.StrategySizeAware), false, ModeReflow},
		{"negative delta 3", params(7, 4, 4, 4, 4, 4, gridstate.StrategySizeAware), false, ModeReflow},
		{"unknown source", params(0, 0, 0, 6, 6, 4, gridstate.StrategySizeAware), false, ModePreserve},
		{"rows shrink", params(4, 6, 4, 4, 5, 4, gridstate.StrategySizeAware), true, ModeReflow},
		{"grow with shrink option", params(4, 4, 4, 5, 5, 4, gridstate.StrategySizeAware), true, ModePreserve},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.p.ReflowOnShrink = tt.shrink
			if got := SelectMode(tt.p); got != tt.want {
				t.Errorf("SelectMode = %v, want %v", got, tt.want)
			}
		})
	}
}
