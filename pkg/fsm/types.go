package fsm

// MigrationRequest is the FSM input
type MigrationRequest struct {
	RunID string

	SrcTable  string
	DestTable string

	// Destination grid
	Profile           string
	Columns           int
	Rows              int
	Hotseat           int
	DeviceType        string
	NewMigrationLogic bool

	// BackupKey names a layout database in S3 to migrate from instead of
	// SrcTable in the local database.
	BackupKey string

	// Force migrates even when the persisted grid matches the destination.
	Force bool

	InstalledPackages []string
}

// MigrationResponse is the FSM output (accumulated across transitions)
type MigrationResponse struct {
	// From CheckState
	SrcWorkspaceSize string
	SrcHotseat       int
	SrcDeviceType    string
	Skipped          bool

	// From FetchBackup
	BackupPath   string
	BackupSHA256 string
	BackupSize   int64

	// From Migrate
	Mode             string
	HotseatPlaced    int
	HotseatDropped   int
	WorkspacePlaced  int
	WorkspaceDropped int
	RowsInserted     int

	// From Complete/Failed
	Status       string
	ErrorMessage string
}

// State names
const (
	StateCheckState   = "check_state"
	StateFetchBackup  = "fetch_backup"
	StateMigrate      = "migrate"
	StatePersistState = "persist_state"
	StateComplete     = "complete"
	StateFailed       = "failed"
)

// Run statuses
const (
	StatusSkipped  = "skipped"
	StatusComplete = "complete"
)
