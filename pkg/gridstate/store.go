package gridstate

import (
	"log/slog"
	"strconv"

	"github.com/fly-io/gridmigrate/pkg/errors"
	"github.com/peterbourgon/diskv/v3"
)

// ErrNoState is returned by Load when nothing has been saved yet.
var ErrNoState = errors.New("no persisted grid state")

// Preference keys, one file each under the store directory.
const (
	KeyWorkspaceSize     = "migration_src_workspace_size"
	KeyHotseatCount      = "migration_src_hotseat_count"
	KeyDeviceType        = "migration_src_device_type"
	KeyNewMigrationLogic = "enable_new_migration_logic"
)

// Store persists the grid state a layout was last migrated to.
type Store struct {
	d *diskv.Diskv
}

// NewStore opens a state store rooted at dir.
func NewStore(dir string) *Store {
	slog.Info("grid_state_store_init", "dir", dir)

	return &Store{d: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 64 * 1024,
	})}
}

// Load reads the persisted state.
func (s *Store) Load() (State, error) {
	if !s.d.Has(KeyWorkspaceSize) {
		return State{}, ErrNoState
	}

	size, err := s.d.Read(KeyWorkspaceSize)
	if err != nil {
		return State{}, errors.Wrap(err, "read workspace size")
	}
	if _, err := Parse(string(size)); err != nil {
		return State{}, errors.Wrap(err, "persisted workspace size")
	}

	st := State{WorkspaceSize: string(size), DeviceType: DeviceTypePhone, Provenance: Persisted}

	if s.d.Has(KeyHotseatCount) {
		raw, err := s.d.Read(KeyHotseatCount)
		if err != nil {
			return State{}, errors.Wrap(err, "read hotseat count")
		}
		if st.Hotseat, err = strconv.Atoi(string(raw)); err != nil {
			return State{}, errors.Wrap(err, "persisted hotseat count")
		}
	}

	if s.d.Has(KeyDeviceType) {
		raw, err := s.d.Read(KeyDeviceType)
		if err != nil {
			return State{}, errors.Wrap(err, "read device type")
		}
		if st.DeviceType, err = ParseDeviceType(string(raw)); err != nil {
			return State{}, errors.Wrap(err, "persisted device type")
		}
	}

	if s.d.Has(KeyNewMigrationLogic) {
		raw, err := s.d.Read(KeyNewMigrationLogic)
		if err != nil {
			return State{}, errors.Wrap(err, "read migration flag")
		}
		if st.NewMigrationLogic, err = strconv.ParseBool(string(raw)); err != nil {
			return State{}, errors.Wrap(err, "persisted migration flag")
		}
	}

	slog.Info("grid_state_loaded", "state", st.String())
	return st, nil
}

// Save writes every key of st.
func (s *Store) Save(st State) error {
	if _, err := Parse(st.WorkspaceSize); err != nil {
		return errors.Wrap(err, "refusing to persist state")
	}

	values := map[string]string{
		KeyWorkspaceSize:     st.WorkspaceSize,
		KeyHotseatCount:      strconv.Itoa(st.Hotseat),
		KeyDeviceType:        string(st.DeviceType),
		KeyNewMigrationLogic: strconv.FormatBool(st.NewMigrationLogic),
	}
	for key, value := range values {
		if err := s.d.Write(key, []byte(value)); err != nil {
			slog.Error("grid_state_write_failed", "key", key, "error", err)
			return errors.Wrapf(err, "write %s", key)
		}
	}

	slog.Info("grid_state_saved", "state", st.String())
	return nil
}

// Clear removes every persisted key.
func (s *Store) Clear() error {
	return s.d.EraseAll()
}
