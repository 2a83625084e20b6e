package grid

import (
	"context"
	"log/slog"
	"sort"

	"github.com/fly-io/gridmigrate/pkg/db"
	"github.com/fly-io/gridmigrate/pkg/errors"
)

// ValiditySet holds the installed packages. An empty set accepts every package.
type ValiditySet map[string]struct{}

// NewValiditySet builds a set from package names.
func NewValiditySet(packages ...string) ValiditySet {
	v := make(ValiditySet, len(packages))
	for _, p := range packages {
		v[p] = struct{}{}
	}
	return v
}

// Allows reports whether items of pkg may be read.
func (v ValiditySet) Allows(pkg string) bool {
	if len(v) == 0 {
		return true
	}
	_, ok := v[pkg]
	return ok
}

// Reader loads the layout stored in one favorites table.
type Reader struct {
	table string
	valid ValiditySet
}

// NewReader creates a reader for table that filters with valid.
func NewReader(table string, valid ValiditySet) *Reader {
	return &Reader{table: table, valid: valid}
}

// Table returns the table the reader loads from.
func (r *Reader) Table() string {
	return r.table
}

// Read loads every valid item in the table. Rows whose launch target is
// malformed or whose package is not installed are skipped, as are folders left
// without children and duplicate identities within a container. Skipped
// hotseat and desktop rows are kept in Layout.Blocked.
func (r *Reader) Read(ctx context.Context, q db.Querier) (*Layout, error) {
	rows, err := db.ListFavorites(ctx, q, r.table)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", r.table)
	}

	var top, placedRows []Item
	children := make(map[int64][]Item)

	for _, row := range rows {
		it := itemFromRow(row)
		if it.Container == ContainerDesktop || it.Container == ContainerHotseat {
			placedRows = append(placedRows, it)
		}

		if it.Type != ItemTypeFolder {
			if err := r.resolve(&it); err != nil {
				slog.Debug("grid_row_skipped", "table", r.table, "id", it.ID, "reason", err)
				continue
			}
		}

		switch {
		case it.Container == ContainerDesktop || it.Container == ContainerHotseat:
			top = append(top, it)
		case it.Container > 0 && it.Type != ItemTypeFolder && !it.Type.IsWidget():
			children[it.Container] = append(children[it.Container], it)
		default:
			slog.Debug("grid_row_skipped", "table", r.table, "id", it.ID, "reason", "unsupported container")
		}
	}

	layout := NewLayout()
	var hotseat, workspace []Item
	for _, it := range top {
		if it.Type == ItemTypeFolder {
			it.Contents = dedupe(sortedByRank(children[it.ID]))
			if len(it.Contents) == 0 {
				slog.Debug("grid_row_skipped", "table", r.table, "id", it.ID, "reason", "empty folder")
				continue
			}
			it.Identity = FolderIdentity(it.Contents)
		}
		if it.InHotseat() {
			hotseat = append(hotseat, it)
		} else {
			workspace = append(workspace, it)
		}
	}

	SortHotseat(hotseat)
	slots := make(map[int]struct{})
	for _, it := range dedupe(hotseat) {
		if _, taken := slots[it.HotseatSlot]; taken {
			slog.Debug("grid_row_skipped", "table", r.table, "id", it.ID, "reason", "hotseat slot taken")
			continue
		}
		slots[it.HotseatSlot] = struct{}{}
		layout.Hotseat = append(layout.Hotseat, it)
	}

	SortRowMajor(workspace)
	for _, it := range dedupe(workspace) {
		layout.Workspace[it.ScreenID] = append(layout.Workspace[it.ScreenID], it)
	}

	read := make(map[int64]struct{}, len(placedRows))
	for _, it := range append(layout.WorkspaceItems(), layout.Hotseat...) {
		read[it.ID] = struct{}{}
	}
	for _, it := range placedRows {
		if _, ok := read[it.ID]; !ok {
			layout.Blocked = append(layout.Blocked, it)
		}
	}

	slog.Info("grid_read_complete",
		"table", r.table,
		"rows", len(rows),
		"skipped_rows", len(rows)-layout.rowCount(),
		"hotseat_items", len(layout.Hotseat),
		"workspace_screens", len(layout.Workspace),
		"workspace_items", layout.Len()-len(layout.Hotseat),
		"blocked_items", len(layout.Blocked))

	return layout, nil
}

// resolve fills in the identity and package of a non-folder item.
func (r *Reader) resolve(it *Item) error {
	source := it.Intent
	if it.Type.IsWidget() {
		source = it.AppWidgetProvider
	}

	target, err := ParseTarget(source)
	if err != nil {
		return err
	}
	if !r.valid.Allows(target.Package) {
		return errors.New("package not installed: " + target.Package)
	}

	it.Package = target.Package
	if it.Type.IsWidget() {
		it.Identity = WidgetIdentity(target)
	} else {
		it.Identity = target.Key()
	}
	return nil
}

func itemFromRow(row *db.Favorite) Item {
	it := Item{
		ID:                row.ID,
		Type:              ItemType(row.ItemType),
		Container:         row.Container,
		ScreenID:          row.Screen,
		CellX:             row.CellX,
		CellY:             row.CellY,
		SpanX:             max(row.SpanX, 1),
		SpanY:             max(row.SpanY, 1),
		Rank:              row.Rank,
		Title:             row.Title,
		Intent:            row.Intent,
		AppWidgetProvider: row.AppWidgetProvider,
		AppWidgetID:       row.AppWidgetID,
	}
	if it.Container == ContainerHotseat {
		// The screen column holds the slot for hotseat rows.
		it.HotseatSlot = row.Screen
		it.ScreenID = 0
	}
	return it
}

func sortedByRank(items []Item) []Item {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Rank != items[j].Rank {
			return items[i].Rank < items[j].Rank
		}
		return items[i].ID < items[j].ID
	})
	return items
}

// dedupe keeps the first item of every identity, preserving order.
func dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		if _, ok := seen[it.Identity]; ok {
			continue
		}
		seen[it.Identity] = struct{}{}
		out = append(out, it)
	}
	return out
}
