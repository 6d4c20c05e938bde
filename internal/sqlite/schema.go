// Package sqlite implements the SQLite storage backend for smartgrid.
// SQLite is the query engine; JSONL files in the data directory are the
// source of truth.
package sqlite

// Schema DDL for all tables.
const (
	createKits = `CREATE TABLE kits (
    kit_id TEXT PRIMARY KEY,
    qr_code TEXT UNIQUE,
    name TEXT NOT NULL,
    hospital TEXT,
    type TEXT,
    last_sync TEXT,
    battery_level INTEGER DEFAULT 100,
    operational_status TEXT DEFAULT 'NEEDS_ATTENTION',
    grid_cols INTEGER DEFAULT 4,
    grid_rows INTEGER DEFAULT 4
);`

	createModules = `CREATE TABLE modules (
    module_id TEXT PRIMARY KEY,
    name TEXT,
    status TEXT DEFAULT 'WAITING_FOR_MATCHMAKING',
    last_update TEXT,
    kit_id TEXT,
    color TEXT,
    calculated_expiry TEXT,
    pos_x INTEGER DEFAULT 0,
    pos_y INTEGER DEFAULT 0,
    width INTEGER DEFAULT 1,
    height INTEGER DEFAULT 1
);`

	createLayouts = `CREATE TABLE layouts (
    layout_id TEXT PRIMARY KEY,
    grid_cols INTEGER NOT NULL,
    grid_rows INTEGER NOT NULL
);`

	createLayoutSlots = `CREATE TABLE layout_slots (
    slot_id TEXT PRIMARY KEY,
    layout_id TEXT NOT NULL,
    name TEXT,
    color TEXT,
    pos_x INTEGER NOT NULL,
    pos_y INTEGER NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL
);`

	createCatalog = `CREATE TABLE catalog (
    code TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    default_width INTEGER,
    default_height INTEGER
);`

	createArticles = `CREATE TABLE articles (
    article_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    category TEXT,
    manufacturer TEXT,
    unit TEXT,
    instructions TEXT,
    min_stock_warning INTEGER DEFAULT 0
);`

	createRecipes = `CREATE TABLE recipes (
    recipe_id TEXT PRIMARY KEY,
    catalog_code TEXT NOT NULL,
    article_id TEXT NOT NULL,
    quantity INTEGER DEFAULT 1
);`

	createModuleContents = `CREATE TABLE module_contents (
    content_id TEXT PRIMARY KEY,
    module_id TEXT NOT NULL,
    article_name TEXT,
    batch_number TEXT,
    expiry_date TEXT,
    quantity INTEGER DEFAULT 1
);`
)

// Index DDL for common queries.
const (
	idxModulesKit          = `CREATE INDEX idx_modules_kit ON modules(kit_id);`
	idxLayoutSlotsLayout   = `CREATE INDEX idx_layout_slots_layout ON layout_slots(layout_id);`
	idxRecipesUnique       = `CREATE UNIQUE INDEX idx_recipes_unique ON recipes(catalog_code, article_id);`
	idxModuleContentsOwner = `CREATE INDEX idx_module_contents_module ON module_contents(module_id);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createKits,
	createModules,
	createLayouts,
	createLayoutSlots,
	createCatalog,
	createArticles,
	createRecipes,
	createModuleContents,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxModulesKit,
	idxLayoutSlotsLayout,
	idxRecipesUnique,
	idxModuleContentsOwner,
}
