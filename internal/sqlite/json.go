package sqlite

import (
	"time"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// JSONL file names, one per table.
const (
	kitsJSONL           = "kits.jsonl"
	modulesJSONL        = "modules.jsonl"
	layoutsJSONL        = "layouts.jsonl"
	layoutSlotsJSONL    = "layout_slots.jsonl"
	catalogJSONL        = "catalog.jsonl"
	articlesJSONL       = "articles.jsonl"
	recipesJSONL        = "recipes.jsonl"
	moduleContentsJSONL = "module_contents.jsonl"
)

// dateLayout is the on-disk form of content expiry dates.
const dateLayout = "2006-01-02"

// tableSpec ties a SQLite table to its JSONL file and column list. The
// first column is the primary key and the persistence order.
type tableSpec struct {
	name    string
	file    string
	columns []string
}

// tableSpecs lists every table in load order.
var tableSpecs = []tableSpec{
	{types.KitsTable, kitsJSONL, []string{"kit_id", "qr_code", "name", "hospital", "type", "last_sync", "battery_level", "operational_status", "grid_cols", "grid_rows"}},
	{types.ModulesTable, modulesJSONL, []string{"module_id", "name", "status", "last_update", "kit_id", "color", "calculated_expiry", "pos_x", "pos_y", "width", "height"}},
	{types.LayoutsTable, layoutsJSONL, []string{"layout_id", "grid_cols", "grid_rows"}},
	{types.LayoutSlotsTable, layoutSlotsJSONL, []string{"slot_id", "layout_id", "name", "color", "pos_x", "pos_y", "width", "height"}},
	{types.CatalogTable, catalogJSONL, []string{"code", "name", "description", "default_width", "default_height"}},
	{types.ArticlesTable, articlesJSONL, []string{"article_id", "name", "category", "manufacturer", "unit", "instructions", "min_stock_warning"}},
	{types.RecipesTable, recipesJSONL, []string{"recipe_id", "catalog_code", "article_id", "quantity"}},
	{types.ModuleContentsTable, moduleContentsJSONL, []string{"content_id", "module_id", "article_name", "batch_number", "expiry_date", "quantity"}},
}

func specFor(table string) (tableSpec, bool) {
	for _, s := range tableSpecs {
		if s.name == table {
			return s, true
		}
	}
	return tableSpec{}, false
}

// formatTime renders t for storage; the zero time is stored as NULL.
func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTime accepts RFC 3339 timestamps and bare dates. Unparseable values
// read as the zero time.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t
	}
	return time.Time{}
}

func parseTimePtr(s string) *time.Time {
	t := parseTime(s)
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
