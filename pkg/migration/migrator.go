// Package migration moves a home-screen layout from one grid geometry to
// another. Source items already present in the destination are left alone;
// everything else is placed into free hotseat slots and desktop cells and
// inserted into the destination table in a single transaction.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fly-io/gridmigrate/pkg/db"
	"github.com/fly-io/gridmigrate/pkg/errors"
	"github.com/fly-io/gridmigrate/pkg/grid"
	"github.com/fly-io/gridmigrate/pkg/gridstate"
)

// Migrator copies the items of a source table into a destination table laid
// out for a different grid.
type Migrator struct {
	repo        *db.Repository
	src         *grid.Reader
	dest        *grid.Reader
	destHotseat int
	destSize    grid.Size
	opts        options
}

// Result summarises one migration run.
type Result struct {
	Mode             Mode
	HotseatPlaced    int
	HotseatDropped   int
	HotseatSkipped   int
	WorkspacePlaced  int
	WorkspaceDropped int
	WorkspaceSkipped int
	// RowsInserted includes folder contents.
	RowsInserted int
}

// New creates a Migrator writing into repo. The destination table, and the
// source table unless WithSourceDB is given, live in repo.
func New(repo *db.Repository, src, dest *grid.Reader, destHotseat int, destSize grid.Size, opts ...Option) *Migrator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Migrator{
		repo:        repo,
		src:         src,
		dest:        dest,
		destHotseat: destHotseat,
		destSize:    destSize,
		opts:        o,
	}
}

// Migrate reads both layouts, plans the placement and inserts the new rows.
// srcState supplies the geometry the source layout was made for; destState's
// migration flag selects the strategy. Either every row is inserted or none is.
func (m *Migrator) Migrate(ctx context.Context, srcState, destState gridstate.State) (*Result, error) {
	if m.destHotseat < 0 {
		return nil, fmt.Errorf("destination hotseat size must be non-negative, got %d", m.destHotseat)
	}
	if m.destSize.Columns < 1 || m.destSize.Rows < 1 {
		return nil, fmt.Errorf("destination grid must be at least 1x1, got %s", m.destSize)
	}
	if m.opts.reservedRows < 0 || m.opts.reservedRows >= m.destSize.Rows {
		return nil, fmt.Errorf("reserved rows %d out of range for %d rows", m.opts.reservedRows, m.destSize.Rows)
	}

	slog.Info("migration_start",
		"src_table", m.src.Table(),
		"dest_table", m.dest.Table(),
		"src_state", srcState.String(),
		"dest_state", destState.String(),
		"dest_grid", m.destSize.String(),
		"dest_hotseat", m.destHotseat)

	tx, err := m.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var srcQ db.Querier = tx
	if m.opts.sourceDB != nil {
		srcQ = m.opts.sourceDB
	}

	srcLayout, err := m.src.Read(ctx, srcQ)
	if err != nil {
		slog.Error("migration_read_source_failed", "table", m.src.Table(), "error", err)
		return nil, errors.Wrap(err, "read source layout")
	}
	destLayout, err := m.dest.Read(ctx, tx)
	if err != nil {
		slog.Error("migration_read_destination_failed", "table", m.dest.Table(), "error", err)
		return nil, errors.Wrap(err, "read destination layout")
	}

	plan := Compute(srcLayout, destLayout, Params{
		Source:                srcState.Geometry(),
		Destination:           grid.Geometry{Size: m.destSize, Hotseat: m.destHotseat},
		Strategy:              destState.Strategy(),
		ReflowColumnThreshold: m.opts.reflowThreshold,
		ReflowOnShrink:        m.opts.reflowOnShrink,
		ReservedRows:          m.opts.reservedRows,
	})

	for _, it := range plan.HotseatDropped {
		slog.Info("migration_hotseat_item_dropped", "identity", it.Identity, "slot", it.HotseatSlot)
	}
	for _, it := range plan.WorkspaceDropped {
		slog.Info("migration_workspace_item_dropped", "identity", it.Identity, "span_x", it.SpanX, "span_y", it.SpanY)
	}

	inserted := 0
	now := time.Now().UnixMilli()
	for _, it := range append(append([]grid.Item(nil), plan.Hotseat...), plan.Workspace...) {
		n, err := m.insert(ctx, tx, it, now)
		if err != nil {
			slog.Error("migration_insert_failed", "identity", it.Identity, "error", err)
			return nil, errors.Wrap(err, "write destination layout")
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed_to_commit_transaction", "error", err)
		return nil, errors.Wrap(err, "commit migration")
	}

	res := &Result{
		Mode:             plan.Mode,
		HotseatPlaced:    len(plan.Hotseat),
		HotseatDropped:   len(plan.HotseatDropped),
		HotseatSkipped:   plan.HotseatSkipped,
		WorkspacePlaced:  len(plan.Workspace),
		WorkspaceDropped: len(plan.WorkspaceDropped),
		WorkspaceSkipped: plan.WorkspaceSkipped,
		RowsInserted:     inserted,
	}

	slog.Info("migration_complete",
		"mode", res.Mode.String(),
		"hotseat_placed", res.HotseatPlaced,
		"hotseat_dropped", res.HotseatDropped,
		"hotseat_skipped", res.HotseatSkipped,
		"workspace_placed", res.WorkspacePlaced,
		"workspace_dropped", res.WorkspaceDropped,
		"workspace_skipped", res.WorkspaceSkipped,
		"rows_inserted", res.RowsInserted)

	return res, nil
}

// insert writes it and, for folders, its contents. It returns the number of rows written.
func (m *Migrator) insert(ctx context.Context, q db.Querier, it grid.Item, modified int64) (int, error) {
	row := toFavorite(it, modified)
	if it.InHotseat() {
		// hotseat rows keep their slot in the screen column
		row.Screen = it.HotseatSlot
	}
	if err := db.InsertFavorite(ctx, q, m.dest.Table(), row); err != nil {
		return 0, err
	}

	n := 1
	for _, child := range it.Contents {
		c := toFavorite(child, modified)
		c.Container = row.ID
		if err := db.InsertFavorite(ctx, q, m.dest.Table(), c); err != nil {
			return n, errors.Wrapf(err, "folder %d contents", row.ID)
		}
		n++
	}
	return n, nil
}

func toFavorite(it grid.Item, modified int64) *db.Favorite {
	return &db.Favorite{
		Title:             it.Title,
		Intent:            it.Intent,
		Container:         it.Container,
		Screen:            it.ScreenID,
		CellX:             it.CellX,
		CellY:             it.CellY,
		SpanX:             it.SpanX,
		SpanY:             it.SpanY,
		ItemType:          int(it.Type),
		AppWidgetID:       it.AppWidgetID,
		AppWidgetProvider: it.AppWidgetProvider,
		Rank:              it.Rank,
		Modified:          modified,
	}
}
