// Package grid models home-screen items and the grids they are placed on,
// and reads them from favorites tables.
package grid

import (
	"fmt"
	"sort"
)

// ItemType is the kind of a home-screen entry. Values match the itemType column.
type ItemType int

const (
	ItemTypeApplication  ItemType = 0
	ItemTypeShortcut     ItemType = 1
	ItemTypeFolder       ItemType = 2
	ItemTypeAppWidget    ItemType = 4
	ItemTypeCustomWidget ItemType = 5
	ItemTypeDeepShortcut ItemType = 6
)

func (t ItemType) String() string {
	switch t {
	case ItemTypeApplication:
		return "app"
	case ItemTypeShortcut:
		return "shortcut"
	case ItemTypeFolder:
		return "folder"
	case ItemTypeAppWidget:
		return "widget"
	case ItemTypeCustomWidget:
		return "custom_widget"
	case ItemTypeDeepShortcut:
		return "deep_shortcut"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// IsWidget reports whether items of this type are identified by their provider.
func (t ItemType) IsWidget() bool {
	return t == ItemTypeAppWidget || t == ItemTypeCustomWidget
}

// Container values. Any positive container is the id of the folder holding the item.
const (
	ContainerDesktop int64 = -100
	ContainerHotseat int64 = -101
)

// Size is the cell dimensions of a desktop page.
type Size struct {
	Columns int
	Rows    int
}

func (s Size) String() string {
	return fmt.Sprintf("%d,%d", s.Columns, s.Rows)
}

// Geometry is a desktop page size plus the number of hotseat slots.
type Geometry struct {
	Size
	Hotseat int
}

// Item is one placed home-screen entry.
type Item struct {
	ID                int64
	Type              ItemType
	Container         int64
	ScreenID          int
	HotseatSlot       int
	CellX             int
	CellY             int
	SpanX             int
	SpanY             int
	Rank              int
	Title             string
	Intent            string
	AppWidgetProvider string
	AppWidgetID       int

	// Identity correlates an item across source and destination tables.
	Identity string
	// Package is the installed package the item depends on. Empty for folders.
	Package string
	// Contents holds the children of a folder, ordered by rank.
	Contents []Item
}

// InHotseat reports whether the item sits in the hotseat.
func (it Item) InHotseat() bool {
	return it.Container == ContainerHotseat
}

// Layout is one table's worth of items split by container.
type Layout struct {
	// Hotseat is ordered by slot, then rank, then id.
	Hotseat []Item
	// Workspace maps a screen id to the items on it in row-major order.
	Workspace map[int][]Item
	// Blocked holds top-level rows that were not read but still sit in the
	// table. Their hotseat slots and cells are occupied.
	Blocked []Item
}

// NewLayout returns an empty layout.
func NewLayout() *Layout {
	return &Layout{Workspace: make(map[int][]Item)}
}

// Screens returns the workspace screen ids in ascending order.
func (l *Layout) Screens() []int {
	screens := make([]int, 0, len(l.Workspace))
	for id := range l.Workspace {
		screens = append(screens, id)
	}
	sort.Ints(screens)
	return screens
}

// WorkspaceItems returns every workspace item ordered by screen, then row-major.
func (l *Layout) WorkspaceItems() []Item {
	var items []Item
	for _, screen := range l.Screens() {
		items = append(items, l.Workspace[screen]...)
	}
	return items
}

// HotseatIdentities returns the set of identities present in the hotseat.
func (l *Layout) HotseatIdentities() map[string]struct{} {
	return identities(l.Hotseat)
}

// WorkspaceIdentities returns the set of identities present on any screen.
func (l *Layout) WorkspaceIdentities() map[string]struct{} {
	return identities(l.WorkspaceItems())
}

// Len returns the number of top-level items in the layout.
func (l *Layout) Len() int {
	n := len(l.Hotseat)
	for _, items := range l.Workspace {
		n += len(items)
	}
	return n
}

// BlockedHotseat returns the unread rows that occupy hotseat slots.
func (l *Layout) BlockedHotseat() []Item {
	var items []Item
	for _, it := range l.Blocked {
		if it.InHotseat() {
			items = append(items, it)
		}
	}
	return items
}

// BlockedWorkspace returns the unread rows that occupy desktop cells.
func (l *Layout) BlockedWorkspace() []Item {
	var items []Item
	for _, it := range l.Blocked {
		if !it.InHotseat() {
			items = append(items, it)
		}
	}
	return items
}

// rowCount counts top-level items and folder children.
func (l *Layout) rowCount() int {
	n := 0
	for _, it := range append(l.WorkspaceItems(), l.Hotseat...) {
		n += 1 + len(it.Contents)
	}
	return n
}

func identities(items []Item) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it.Identity] = struct{}{}
	}
	return set
}

// SortRowMajor orders items by screen, then cellY, then cellX, then id.
func SortRowMajor(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ScreenID != b.ScreenID {
			return a.ScreenID < b.ScreenID
		}
		if a.CellY != b.CellY {
			return a.CellY < b.CellY
		}
		if a.CellX != b.CellX {
			return a.CellX < b.CellX
		}
		return a.ID < b.ID
	})
}

// SortHotseat orders items by slot, then rank, then id.
func SortHotseat(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.HotseatSlot != b.HotseatSlot {
			return a.HotseatSlot < b.HotseatSlot
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.ID < b.ID
	})
}
