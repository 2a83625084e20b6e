package db

import "fmt"

// Default table names. The live layout is kept in favorites; the layout of the
// previous grid is copied to favorites_tmp before it is migrated back.
const (
	TableFavorites = "favorites"
	TableTmp       = "favorites_tmp"
)

// schemaTemplate defines one favorites table. It is instantiated per table
// name, so source and destination layouts can share a database file.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS %[1]s (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT,
    intent TEXT,
    container INTEGER NOT NULL DEFAULT -100,
    screen INTEGER NOT NULL DEFAULT 0,
    cellX INTEGER NOT NULL DEFAULT 0,
    cellY INTEGER NOT NULL DEFAULT 0,
    spanX INTEGER NOT NULL DEFAULT 1,
    spanY INTEGER NOT NULL DEFAULT 1,
    itemType INTEGER NOT NULL,
    appWidgetId INTEGER NOT NULL DEFAULT -1,
    appWidgetProvider TEXT,
    rank INTEGER NOT NULL DEFAULT 0,
    modified INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_container ON %[1]s(container);
CREATE INDEX IF NOT EXISTS idx_%[1]s_screen ON %[1]s(container, screen);
`

// Schema returns the DDL for a favorites table. table must already be validated.
func Schema(table string) string {
	return fmt.Sprintf(schemaTemplate, table)
}

// Favorite is one raw row of a favorites table
type Favorite struct {
	ID                int64
	Title             string
	Intent            string
	Container         int64
	Screen            int
	CellX             int
	CellY             int
	SpanX             int
	SpanY             int
	ItemType          int
	AppWidgetID       int
	AppWidgetProvider string
	Rank              int
	Modified          int64
}
