// Package fsm implements the grid migration finite state machine workflow.
// It checks the persisted grid state, optionally fetches a layout backup
// from S3, migrates the layout and records the new grid using the
// superfly/fsm library.
package fsm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fly-io/gridmigrate/pkg/db"
	"github.com/fly-io/gridmigrate/pkg/errors"
	"github.com/fly-io/gridmigrate/pkg/gridstate"
	"github.com/fly-io/gridmigrate/pkg/migration"
	"github.com/fly-io/gridmigrate/pkg/security"
	"github.com/fly-io/gridmigrate/pkg/storage"
	"github.com/superfly/fsm"
)

// Machine holds dependencies for FSM transitions
type Machine struct {
	repo       *db.Repository
	backups    *storage.Client
	validator  *security.Validator
	store      *gridstate.Store
	workDir    string
	maxRetries int
	opts       []migration.Option
}

// NewMachine creates a new FSM machine with dependencies. backups may be nil
// when no run fetches a backup.
func NewMachine(
	repo *db.Repository,
	backups *storage.Client,
	validator *security.Validator,
	store *gridstate.Store,
	workDir string,
	maxRetries int,
	opts ...migration.Option,
) *Machine {
	return &Machine{
		repo:       repo,
		backups:    backups,
		validator:  validator,
		store:      store,
		workDir:    workDir,
		maxRetries: maxRetries,
		opts:       opts,
	}
}

// Register registers the grid migration FSM
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[MigrationRequest, MigrationResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[MigrationRequest, MigrationResponse](manager, "grid-migrate").
		Start(StateCheckState, m.handler(StateCheckState, m.checkState)).
		To(StateFetchBackup, m.handler(StateFetchBackup, m.fetchBackup)).
		To(StateMigrate, m.handler(StateMigrate, m.migrate)).
		To(StatePersistState, m.handler(StatePersistState, m.persistState)).
		To(StateComplete, m.handler(StateComplete, m.complete)).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}

	return start, resume, nil
}

type step func(ctx context.Context, req *MigrationRequest, resp *MigrationResponse) error

// abortError marks failures that retrying cannot fix.
type abortError struct{ err error }

func (e *abortError) Error() string { return e.err.Error() }
func (e *abortError) Unwrap() error { return e.err }

func abort(err error) error {
	return &abortError{err: err}
}

// handler adapts a step to an fsm transition, enforcing the retry limit.
func (m *Machine) handler(state string, fn step) func(context.Context, *fsm.Request[MigrationRequest, MigrationResponse]) (*fsm.Response[MigrationResponse], error) {
	return func(ctx context.Context, req *fsm.Request[MigrationRequest, MigrationResponse]) (*fsm.Response[MigrationResponse], error) {
		slog.Info("fsm_state_"+state, "run_id", req.Msg.RunID)

		if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
			slog.Error("max_retries_exceeded", "run_id", req.Msg.RunID, "state", state, "max_retries", m.maxRetries)
			return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
		}

		resp := req.W.Msg
		if resp == nil {
			resp = &MigrationResponse{}
		}

		if err := fn(ctx, req.Msg, resp); err != nil {
			var ae *abortError
			if errors.As(err, &ae) {
				return nil, fsm.Abort(ae.err)
			}
			return nil, err
		}
		return fsm.NewResponse(resp), nil
	}
}
