// This file seeds the default master layout on first run.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Grid of the seeded default layout.
const (
	seedLayoutCols = 4
	seedLayoutRows = 6
)

// seedDefaultLayout creates an empty default layout when the layouts table
// is empty after loading. Slots are added later through the designer.
func seedDefaultLayout(db *sql.DB, dataDir string) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM layouts").Scan(&count); err != nil {
		return fmt.Errorf("counting layouts: %w", err)
	}
	if count > 0 {
		return nil
	}
	if _, err := db.Exec("INSERT INTO layouts (layout_id, grid_cols, grid_rows) VALUES (?, ?, ?)",
		types.DefaultLayoutID, seedLayoutCols, seedLayoutRows); err != nil {
		return fmt.Errorf("inserting default layout: %w", err)
	}
	return persistTables(context.Background(), db, dataDir, types.LayoutsTable)
}
