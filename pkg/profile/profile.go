// Package profile loads the grid options a device can switch between.
package profile

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/fly-io/gridmigrate/pkg/errors"
	"github.com/fly-io/gridmigrate/pkg/grid"
	"github.com/fly-io/gridmigrate/pkg/gridstate"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

//go:embed default_profiles.hcl
var defaultProfiles []byte

// ErrUnknownProfile is returned by Lookup for names not in the set.
var ErrUnknownProfile = errors.New("unknown grid profile")

// Profile is one named grid option.
type Profile struct {
	Name       string
	Geometry   grid.Geometry
	DeviceType gridstate.DeviceType
}

// State returns the grid state a device reports after switching to p.
func (p Profile) State(newMigrationLogic bool) gridstate.State {
	return gridstate.FromGeometry(p.Geometry, p.DeviceType, newMigrationLogic)
}

// Set holds profiles by name.
type Set struct {
	profiles map[string]Profile
}

type hclFile struct {
	Grids []*hclGrid `hcl:"grid,block"`
}

type hclGrid struct {
	Name       string  `hcl:"name,label"`
	Columns    int     `hcl:"columns"`
	Rows       int     `hcl:"rows"`
	Hotseat    int     `hcl:"hotseat"`
	DeviceType *string `hcl:"device_type,optional"`
}

// Default returns the built-in profiles.
func Default() (*Set, error) {
	return Parse(defaultProfiles, "default_profiles.hcl")
}

// Load parses the HCL file at path.
func Load(path string) (*Set, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse profiles %s: %w", path, diags)
	}
	return decode(file.Body, path)
}

// Parse parses profiles from src; filename is only used in diagnostics.
func Parse(src []byte, filename string) (*Set, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse profiles %s: %w", filename, diags)
	}
	return decode(file.Body, filename)
}

func decode(body hcl.Body, filename string) (*Set, error) {
	var parsed hclFile
	if diags := gohcl.DecodeBody(body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode profiles %s: %w", filename, diags)
	}

	set := &Set{profiles: make(map[string]Profile, len(parsed.Grids))}
	for _, g := range parsed.Grids {
		p, err := g.profile()
		if err != nil {
			return nil, errors.Wrapf(err, "%s: grid %q", filename, g.Name)
		}
		if _, dup := set.profiles[p.Name]; dup {
			return nil, fmt.Errorf("%s: grid %q defined more than once", filename, p.Name)
		}
		set.profiles[p.Name] = p
	}
	return set, nil
}

func (g *hclGrid) profile() (Profile, error) {
	if g.Columns < 1 || g.Rows < 1 {
		return Profile{}, fmt.Errorf("grid must be at least 1x1, got %dx%d", g.Columns, g.Rows)
	}
	if g.Hotseat < 0 {
		return Profile{}, fmt.Errorf("hotseat must be non-negative, got %d", g.Hotseat)
	}

	deviceType := gridstate.DeviceTypePhone
	if g.DeviceType != nil {
		dt, err := gridstate.ParseDeviceType(*g.DeviceType)
		if err != nil {
			return Profile{}, err
		}
		deviceType = dt
	}

	return Profile{
		Name: g.Name,
		Geometry: grid.Geometry{
			Size:    grid.Size{Columns: g.Columns, Rows: g.Rows},
			Hotseat: g.Hotseat,
		},
		DeviceType: deviceType,
	}, nil
}

// Lookup returns the profile called name.
func (s *Set) Lookup(name string) (Profile, error) {
	p, ok := s.profiles[name]
	if !ok {
		return Profile{}, errors.Wrapf(ErrUnknownProfile, "%q", name)
	}
	return p, nil
}

// Profiles returns every profile ordered by name.
func (s *Set) Profiles() []Profile {
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
