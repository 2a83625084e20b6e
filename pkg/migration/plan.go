package migration

import (
	"sort"

	"github.com/fly-io/gridmigrate/pkg/grid"
	"github.com/fly-io/gridmigrate/pkg/gridstate"
)

// Mode is the desktop placement actually applied by a plan.
type Mode int

const (
	// ModePreserve keeps items on their page and cell when that spot is free.
	ModePreserve Mode = iota
	// ModeReflow discards coordinates and packs items from screen 0.
	ModeReflow
)

func (m Mode) String() string {
	if m == ModeReflow {
		return "reflow"
	}
	return "preserve"
}

// Params are the inputs of Plan besides the two layouts.
type Params struct {
	Source      grid.Geometry
	Destination grid.Geometry
	Strategy    gridstate.Strategy

	ReflowColumnThreshold int
	ReflowOnShrink        bool
	ReservedRows          int
}

// Plan is the set of items to insert into the destination, with their new
// coordinates, plus what was left behind.
type Plan struct {
	Mode Mode

	Hotseat        []grid.Item
	HotseatDropped []grid.Item
	HotseatSkipped int

	Workspace        []grid.Item
	WorkspaceDropped []grid.Item
	WorkspaceSkipped int
}

// SelectMode decides between page-preserving placement and reflow.
func SelectMode(p Params) Mode {
	if p.Strategy != gridstate.StrategySizeAware {
		return ModePreserve
	}
	src, dst := p.Source.Size, p.Destination.Size
	if src.Columns < 1 || src.Rows < 1 {
		// nothing to compare against
		return ModePreserve
	}
	if abs(dst.Columns-src.Columns) > p.ReflowColumnThreshold {
		return ModeReflow
	}
	if p.ReflowOnShrink && (dst.Columns < src.Columns || dst.Rows < src.Rows) {
		return ModeReflow
	}
	return ModePreserve
}

// Compute places every source item missing from dest into the destination
// geometry. Neither layout is modified.
func Compute(src, dest *grid.Layout, p Params) *Plan {
	plan := &Plan{Mode: SelectMode(p)}

	plan.Hotseat, plan.HotseatDropped, plan.HotseatSkipped =
		planHotseat(src.Hotseat, dest.Hotseat, dest.BlockedHotseat(), p.Destination.Hotseat)

	d := newDesktop(p.Destination.Size, p.ReservedRows)
	for _, it := range append(dest.WorkspaceItems(), dest.BlockedWorkspace()...) {
		d.page(it.ScreenID).MarkItem(it)
	}

	existing := dest.WorkspaceIdentities()
	var candidates []grid.Item
	for _, it := range src.WorkspaceItems() {
		if _, ok := existing[it.Identity]; ok {
			plan.WorkspaceSkipped++
			continue
		}
		if it.SpanX > p.Destination.Columns || it.SpanY > p.Destination.Rows {
			plan.WorkspaceDropped = append(plan.WorkspaceDropped, it)
			continue
		}
		candidates = append(candidates, it)
	}

	var placed, dropped []grid.Item
	if plan.Mode == ModeReflow {
		placed, dropped = d.reflow(candidates)
	} else {
		placed, dropped = d.preserve(candidates)
	}
	plan.Workspace = placed
	plan.WorkspaceDropped = append(plan.WorkspaceDropped, dropped...)

	return plan
}

// planHotseat first-fits source items, in slot order, into the free slots of
// the destination hotseat. Items already in the destination keep their slot
// and, like blocked rows, count against its size wherever they sit.
func planHotseat(src, dest, blocked []grid.Item, size int) (placed, dropped []grid.Item, skipped int) {
	taken := make([]bool, max(size, 0))
	existing := make(map[string]struct{}, len(dest))
	for _, it := range dest {
		existing[it.Identity] = struct{}{}
	}
	for _, it := range append(append([]grid.Item(nil), dest...), blocked...) {
		if it.HotseatSlot >= 0 && it.HotseatSlot < size {
			taken[it.HotseatSlot] = true
		}
	}
	free := max(size-len(dest)-len(blocked), 0)

	ordered := append([]grid.Item(nil), src...)
	grid.SortHotseat(ordered)

	slot := 0
	for _, it := range ordered {
		if _, ok := existing[it.Identity]; ok {
			skipped++
			continue
		}
		for slot < size && taken[slot] {
			slot++
		}
		if slot >= size || len(placed) >= free {
			dropped = append(dropped, it)
			continue
		}

		it.Container = grid.ContainerHotseat
		it.HotseatSlot = slot
		it.ScreenID = 0
		it.CellX, it.CellY = slot, 0
		taken[slot] = true
		placed = append(placed, it)
	}
	return placed, dropped, skipped
}

// desktop tracks the occupancy of every destination page.
type desktop struct {
	size     grid.Size
	reserved int
	pages    map[int]*grid.Occupancy
}

func newDesktop(size grid.Size, reservedRows int) *desktop {
	return &desktop{size: size, reserved: reservedRows, pages: make(map[int]*grid.Occupancy)}
}

func (d *desktop) page(screen int) *grid.Occupancy {
	pg, ok := d.pages[screen]
	if !ok {
		pg = grid.NewOccupancy(d.size)
		if screen == 0 && d.reserved > 0 {
			pg.ReserveRows(d.reserved)
		}
		d.pages[screen] = pg
	}
	return pg
}

func (d *desktop) screens() []int {
	ids := make([]int, 0, len(d.pages))
	for id := range d.pages {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (d *desktop) place(it grid.Item, screen, x, y int) grid.Item {
	d.page(screen).MarkCells(x, y, it.SpanX, it.SpanY, true)
	it.Container = grid.ContainerDesktop
	it.ScreenID = screen
	it.CellX, it.CellY = x, y
	return it
}

// preserve keeps items whose original rectangle is free, then first-fits the
// rest starting at their own page, moving to later pages and finally to a
// new page after the last one.
func (d *desktop) preserve(items []grid.Item) (placed, dropped []grid.Item) {
	for _, it := range items {
		d.page(it.ScreenID)
	}

	var displaced []grid.Item
	for _, it := range items {
		if d.page(it.ScreenID).IsRegionVacant(it.CellX, it.CellY, it.SpanX, it.SpanY) {
			placed = append(placed, d.place(it, it.ScreenID, it.CellX, it.CellY))
			continue
		}
		displaced = append(displaced, it)
	}

	for _, it := range displaced {
		if moved, ok := d.firstFit(it); ok {
			placed = append(placed, moved)
			continue
		}
		dropped = append(dropped, it)
	}

	grid.SortRowMajor(placed)
	return placed, dropped
}

func (d *desktop) firstFit(it grid.Item) (grid.Item, bool) {
	screens := d.screens()
	for _, screen := range screens {
		if screen < it.ScreenID {
			continue
		}
		if x, y, ok := d.page(screen).FindVacant(0, 0, it.SpanX, it.SpanY); ok {
			return d.place(it, screen, x, y), true
		}
	}

	next := screens[len(screens)-1] + 1
	if x, y, ok := d.page(next).FindVacant(0, 0, it.SpanX, it.SpanY); ok {
		return d.place(it, next, x, y), true
	}
	return it, false
}

// reflow packs items row-major from screen 0 cell (0,0), continuing after the
// last placed item and opening the next page when the current one is full.
// The cursor never moves back, so cells skipped when a wide item wraps to the
// next row stay empty.
func (d *desktop) reflow(items []grid.Item) (placed, dropped []grid.Item) {
	screen, cx, cy := 0, 0, 0
	for _, it := range items {
		ok := false
		for attempts := 0; attempts <= len(d.pages)+1; attempts++ {
			var x, y int
			if x, y, ok = d.page(screen).FindVacant(cx, cy, it.SpanX, it.SpanY); ok {
				placed = append(placed, d.place(it, screen, x, y))
				cx, cy = x+it.SpanX, y
				break
			}
			screen, cx, cy = screen+1, 0, 0
		}
		if !ok {
			dropped = append(dropped, it)
		}
	}
	return placed, dropped
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
