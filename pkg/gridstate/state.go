// Package gridstate describes the grid a device profile was laid out for and
// remembers the last one a layout was migrated to.
package gridstate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fly-io/gridmigrate/pkg/grid"
)

// DeviceType distinguishes device form factors; layouts never migrate
// silently between them.
type DeviceType string

const (
	DeviceTypePhone        DeviceType = "phone"
	DeviceTypeMultiDisplay DeviceType = "multi_display"
	DeviceTypeTablet       DeviceType = "tablet"
)

// ParseDeviceType validates a device type name. The empty string means phone.
func ParseDeviceType(s string) (DeviceType, error) {
	switch DeviceType(s) {
	case "", DeviceTypePhone:
		return DeviceTypePhone, nil
	case DeviceTypeMultiDisplay, DeviceTypeTablet:
		return DeviceType(s), nil
	}
	return "", fmt.Errorf("unknown device type %q", s)
}

// Provenance records where a State came from.
type Provenance int

const (
	// Live states describe the profile the device is using now.
	Live Provenance = iota
	// Persisted states were read back from the state store.
	Persisted
)

func (p Provenance) String() string {
	if p == Persisted {
		return "persisted"
	}
	return "live"
}

// Strategy selects how desktop items are moved between grids.
type Strategy int

const (
	// StrategyLegacy keeps items at their original page and cell where possible.
	StrategyLegacy Strategy = iota
	// StrategySizeAware reflows items when the grids differ by more than a threshold.
	StrategySizeAware
)

func (s Strategy) String() string {
	if s == StrategySizeAware {
		return "size_aware"
	}
	return "legacy"
}

// State is a snapshot of a grid geometry and the migration settings that came with it.
type State struct {
	// WorkspaceSize has the form "<columns>,<rows>".
	WorkspaceSize     string
	Hotseat           int
	DeviceType        DeviceType
	NewMigrationLogic bool
	Provenance        Provenance
}

// FromGeometry builds the live state for a device profile.
func FromGeometry(g grid.Geometry, deviceType DeviceType, newMigrationLogic bool) State {
	return State{
		WorkspaceSize:     g.Size.String(),
		Hotseat:           g.Hotseat,
		DeviceType:        deviceType,
		NewMigrationLogic: newMigrationLogic,
		Provenance:        Live,
	}
}

// Parse reads a "<columns>,<rows>" workspace size.
func Parse(s string) (grid.Size, error) {
	cols, rows, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return grid.Size{}, fmt.Errorf("workspace size %q: expected <columns>,<rows>", s)
	}
	c, err := strconv.Atoi(strings.TrimSpace(cols))
	if err != nil {
		return grid.Size{}, fmt.Errorf("workspace size %q: columns: %w", s, err)
	}
	r, err := strconv.Atoi(strings.TrimSpace(rows))
	if err != nil {
		return grid.Size{}, fmt.Errorf("workspace size %q: rows: %w", s, err)
	}
	if c < 1 || r < 1 {
		return grid.Size{}, fmt.Errorf("workspace size %q: dimensions must be positive", s)
	}
	return grid.Size{Columns: c, Rows: r}, nil
}

// Size parses the workspace size; an unparseable value yields the zero Size.
func (s State) Size() grid.Size {
	size, _ := Parse(s.WorkspaceSize)
	return size
}

// Columns returns the number of workspace columns, or 0 when unknown.
func (s State) Columns() int {
	return s.Size().Columns
}

// Rows returns the number of workspace rows, or 0 when unknown.
func (s State) Rows() int {
	return s.Size().Rows
}

// Geometry returns the workspace size together with the hotseat count.
func (s State) Geometry() grid.Geometry {
	return grid.Geometry{Size: s.Size(), Hotseat: s.Hotseat}
}

// Strategy maps the migration flag onto a strategy.
func (s State) Strategy() Strategy {
	if s.NewMigrationLogic {
		return StrategySizeAware
	}
	return StrategyLegacy
}

// IsCompatible reports whether a layout made for s fits other without migration.
func (s State) IsCompatible(other State) bool {
	return s.WorkspaceSize == other.WorkspaceSize &&
		s.Hotseat == other.Hotseat &&
		s.DeviceType == other.DeviceType
}

// Equal reports whether two states carry the same values, ignoring provenance.
func (s State) Equal(other State) bool {
	return s.IsCompatible(other) && s.NewMigrationLogic == other.NewMigrationLogic
}

func (s State) String() string {
	return fmt.Sprintf("%s hotseat=%d device=%s %s", s.WorkspaceSize, s.Hotseat, s.DeviceType, s.Provenance)
}
