package types

// Standard table names. Change signals carry one of these.
const (
	KitsTable           = "kits"
	ModulesTable        = "modules"
	LayoutsTable        = "layouts"
	LayoutSlotsTable    = "layout_slots"
	CatalogTable        = "catalog"
	ArticlesTable       = "articles"
	RecipesTable        = "recipes"
	ModuleContentsTable = "module_contents"
)

// StandardTableNames lists all standard table names for enumeration.
var StandardTableNames = []string{
	KitsTable,
	ModulesTable,
	LayoutsTable,
	LayoutSlotsTable,
	CatalogTable,
	ArticlesTable,
	RecipesTable,
	ModuleContentsTable,
}
