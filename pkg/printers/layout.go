// Package printers renders layouts, profiles and backups for the terminal.
package printers

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/fly-io/gridmigrate/pkg/grid"
	"github.com/fly-io/gridmigrate/pkg/profile"
	"github.com/fly-io/gridmigrate/pkg/storage"
	"github.com/gosuri/uitable"
)

const labels = "123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Printer writes to Out, color.Output when nil.
type Printer struct {
	Out io.Writer
}

func (p *Printer) out() io.Writer {
	if p.Out == nil {
		return color.Output
	}
	return p.Out
}

func bold(s string) string {
	return color.New(color.Bold).Sprint(s)
}

func faint(s string) string {
	return color.New(color.Faint).Sprint(s)
}

func (p *Printer) title(s string) {
	_, _ = fmt.Fprintln(p.out(), color.New(color.Bold, color.Underline).Sprint(s))
}

// Items prints one row per hotseat and desktop item.
func (p *Printer) Items(l *grid.Layout) {
	if l.Len() == 0 {
		_, _ = fmt.Fprintln(p.out(), faint("no items"))
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.AddRow(bold("CONTAINER"), bold("SCREEN"), bold("CELL"), bold("SPAN"), bold("TYPE"), bold("IDENTITY"))

	for _, it := range l.Hotseat {
		tbl.AddRow("hotseat", fmt.Sprintf("slot %d", it.HotseatSlot), "-", "1x1", it.Type, identity(it))
	}
	for _, it := range l.WorkspaceItems() {
		tbl.AddRow("desktop", it.ScreenID,
			fmt.Sprintf("%d,%d", it.CellX, it.CellY),
			fmt.Sprintf("%dx%d", it.SpanX, it.SpanY),
			it.Type, identity(it))
	}

	_, _ = fmt.Fprintln(p.out(), tbl)
}

func identity(it grid.Item) string {
	if it.Type == grid.ItemTypeFolder {
		return fmt.Sprintf("%s (%d items)", it.Title, len(it.Contents))
	}
	return it.Identity
}

// Map draws every desktop screen as a cell map. A zero size is derived from
// the items themselves.
func (p *Printer) Map(l *grid.Layout, size grid.Size) {
	for _, screen := range l.Screens() {
		items := l.Workspace[screen]
		s := size
		if s.Columns < 1 || s.Rows < 1 {
			s = extent(items)
		}

		p.title(fmt.Sprintf("screen %d", screen))
		_, _ = fmt.Fprint(p.out(), render(items, s))

		legend := uitable.New()
		legend.Separator = "  "
		for i, it := range items {
			legend.AddRow(label(i), identity(it))
		}
		_, _ = fmt.Fprintln(p.out(), legend)
		_, _ = fmt.Fprintln(p.out())
	}
}

func label(i int) string {
	return string(labels[i%len(labels)])
}

func extent(items []grid.Item) grid.Size {
	var s grid.Size
	for _, it := range items {
		s.Columns = max(s.Columns, it.CellX+it.SpanX)
		s.Rows = max(s.Rows, it.CellY+it.SpanY)
	}
	return s
}

// render returns rows of cells, "." for empty and "#" for overlaps.
func render(items []grid.Item, size grid.Size) string {
	cells := make([][]byte, size.Rows)
	for y := range cells {
		cells[y] = []byte(strings.Repeat(".", size.Columns))
	}
	for i, it := range items {
		for x := it.CellX; x < it.CellX+it.SpanX && x < size.Columns; x++ {
			for y := it.CellY; y < it.CellY+it.SpanY && y < size.Rows; y++ {
				if x < 0 || y < 0 {
					continue
				}
				if cells[y][x] != '.' {
					cells[y][x] = '#'
					continue
				}
				cells[y][x] = labels[i%len(labels)]
			}
		}
	}

	var b strings.Builder
	for _, row := range cells {
		b.WriteString(strings.Join(strings.Split(string(row), ""), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// Profiles prints the available grid profiles.
func (p *Printer) Profiles(profiles []profile.Profile, current string) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold("NAME"), bold("GRID"), bold("HOTSEAT"), bold("DEVICE"))
	for _, pr := range profiles {
		name := pr.Name
		if name == current {
			name = color.New(color.FgGreen).Sprint(name + " *")
		}
		tbl.AddRow(name, fmt.Sprintf("%dx%d", pr.Geometry.Columns, pr.Geometry.Rows), pr.Geometry.Hotseat, pr.DeviceType)
	}
	_, _ = fmt.Fprintln(p.out(), tbl)
}

// Backups prints a backup listing.
func (p *Printer) Backups(objects []storage.Object) {
	if len(objects) == 0 {
		_, _ = fmt.Fprintln(p.out(), faint("no backups found"))
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold("KEY"), bold("SIZE"), bold("MODIFIED"))
	for _, o := range objects {
		tbl.AddRow(o.Key, o.Size, o.LastModified.Format("2006-01-02 15:04"))
	}
	_, _ = fmt.Fprintln(p.out(), tbl)
}
