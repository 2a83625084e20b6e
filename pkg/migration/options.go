package migration

import "github.com/fly-io/gridmigrate/pkg/db"

// DefaultReflowColumnThreshold is the column difference above which the
// size-aware strategy stops preserving pages and reflows instead.
const DefaultReflowColumnThreshold = 2

type options struct {
	sourceDB        db.Querier
	reflowThreshold int
	reflowOnShrink  bool
	reservedRows    int
}

func defaultOptions() options {
	return options{reflowThreshold: DefaultReflowColumnThreshold}
}

// Option configures a Migrator.
type Option func(*options)

// WithSourceDB reads the source table from q instead of the destination
// database, e.g. a layout backup restored from another device.
func WithSourceDB(q db.Querier) Option {
	return func(o *options) { o.sourceDB = q }
}

// WithReflowThreshold overrides DefaultReflowColumnThreshold.
func WithReflowThreshold(columns int) Option {
	return func(o *options) { o.reflowThreshold = columns }
}

// WithReflowOnShrink also reflows when the destination grid is smaller than
// the source in either dimension.
func WithReflowOnShrink(enabled bool) Option {
	return func(o *options) { o.reflowOnShrink = enabled }
}

// WithReservedRows keeps the top rows of screen 0 free, e.g. for a search bar.
func WithReservedRows(rows int) Option {
	return func(o *options) { o.reservedRows = rows }
}
