package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Catalog returns every content definition ordered by code.
func (b *Backend) Catalog(ctx context.Context) ([]types.ContentDefinition, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	rows, err := b.db.QueryContext(ctx, `SELECT code, name, COALESCE(description, ''),
    COALESCE(default_width, 0), COALESCE(default_height, 0)
FROM catalog ORDER BY code`)
	if err != nil {
		return nil, types.Transport("catalog", err)
	}
	defer rows.Close()
	var out []types.ContentDefinition
	for rows.Next() {
		var c types.ContentDefinition
		if err := rows.Scan(&c.Code, &c.Name, &c.Description, &c.DefaultWidth, &c.DefaultHeight); err != nil {
			return nil, types.Transport("catalog", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.Transport("catalog", err)
	}
	return out, nil
}

// contentName looks up a catalog name by code. The caller must hold b.mu.
func (b *Backend) contentName(ctx context.Context, code string) (string, error) {
	var name string
	err := b.db.QueryRowContext(ctx, "SELECT name FROM catalog WHERE code = ?", types.PadCode(code)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return types.UnknownContentName, nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// ContentName returns the catalog name for a content code, or
// types.UnknownContentName.
func (b *Backend) ContentName(ctx context.Context, code string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return "", types.ErrDetached
	}
	name, err := b.contentName(ctx, code)
	if err != nil {
		return "", types.Transport("content name", err)
	}
	return name, nil
}

func validCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AddContentDefinition inserts or replaces a catalog entry. The code is
// left-padded to four digits.
func (b *Backend) AddContentDefinition(ctx context.Context, def types.ContentDefinition) (types.ContentDefinition, error) {
	def.Code = types.PadCode(def.Code)
	if !validCode(def.Code) {
		return def, fmt.Errorf("%w: content code %q", types.ErrFormat, def.Code)
	}
	if strings.TrimSpace(def.Name) == "" {
		return def, types.ErrInvalidName
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return def, types.ErrDetached
	}

	err := b.update(ctx, "add content definition", def.Code, []string{types.CatalogTable}, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO catalog (code, name, description, default_width, default_height)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(code) DO UPDATE SET name = excluded.name, description = excluded.description,
    default_width = excluded.default_width, default_height = excluded.default_height`,
			def.Code, def.Name, nullString(def.Description), def.DefaultWidth, def.DefaultHeight)
		return err
	})
	if err != nil {
		return def, types.Transport("add content definition", err)
	}
	return def, nil
}

// Articles returns every stock article ordered by name.
func (b *Backend) Articles(ctx context.Context) ([]types.Article, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	rows, err := b.db.QueryContext(ctx, articleSelect+" ORDER BY name, article_id")
	if err != nil {
		return nil, types.Transport("articles", err)
	}
	defer rows.Close()
	var out []types.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, types.Transport("articles", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.Transport("articles", err)
	}
	return out, nil
}

const articleSelect = `SELECT article_id, name, COALESCE(category, ''), COALESCE(manufacturer, ''),
    COALESCE(unit, ''), COALESCE(instructions, ''), COALESCE(min_stock_warning, 0)
FROM articles`

func scanArticle(row rowScanner) (*types.Article, error) {
	var a types.Article
	if err := row.Scan(&a.ID, &a.Name, &a.Category, &a.Manufacturer, &a.Unit,
		&a.Instructions, &a.MinStockWarning); err != nil {
		return nil, err
	}
	return &a, nil
}

// AddArticle inserts a stock article. An empty ID gets a UUID v7.
func (b *Backend) AddArticle(ctx context.Context, a types.Article) (types.Article, error) {
	if strings.TrimSpace(a.Name) == "" {
		return a, types.ErrInvalidName
	}
	if a.MinStockWarning < 0 {
		return a, fmt.Errorf("%w: negative min stock warning", types.ErrInvalidData)
	}
	if a.ID == "" {
		a.ID = generateUUID()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return a, types.ErrDetached
	}

	err := b.update(ctx, "add article", a.ID, []string{types.ArticlesTable}, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO articles
    (article_id, name, category, manufacturer, unit, instructions, min_stock_warning)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Name, nullString(a.Category), nullString(a.Manufacturer), nullString(a.Unit),
			nullString(a.Instructions), a.MinStockWarning)
		return err
	})
	if err != nil {
		return a, types.Transport("add article", err)
	}
	return a, nil
}

// Recipe returns the articles a catalog content should hold, with each
// article joined in.
func (b *Backend) Recipe(ctx context.Context, code string) ([]types.RecipeItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	rows, err := b.db.QueryContext(ctx, `SELECT r.recipe_id, r.catalog_code, r.article_id,
    COALESCE(r.quantity, 1), a.article_id, COALESCE(a.name, ''), COALESCE(a.category, ''),
    COALESCE(a.manufacturer, ''), COALESCE(a.unit, ''), COALESCE(a.instructions, ''),
    COALESCE(a.min_stock_warning, 0)
FROM recipes r LEFT JOIN articles a ON a.article_id = r.article_id
WHERE r.catalog_code = ? ORDER BY a.name, r.recipe_id`, types.PadCode(code))
	if err != nil {
		return nil, types.Transport("recipe", err)
	}
	defer rows.Close()
	var out []types.RecipeItem
	for rows.Next() {
		var (
			it        types.RecipeItem
			a         types.Article
			articleID sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.CatalogCode, &it.ArticleID, &it.Quantity, &articleID,
			&a.Name, &a.Category, &a.Manufacturer, &a.Unit, &a.Instructions, &a.MinStockWarning); err != nil {
			return nil, types.Transport("recipe", err)
		}
		if articleID.Valid {
			a.ID = articleID.String
			it.Article = &a
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, types.Transport("recipe", err)
	}
	return out, nil
}

// AddToRecipe sets how many of an article a catalog content holds,
// replacing any earlier quantity for the same pair.
func (b *Backend) AddToRecipe(ctx context.Context, code, articleID string, quantity int) (types.RecipeItem, error) {
	it := types.RecipeItem{CatalogCode: types.PadCode(code), ArticleID: articleID, Quantity: quantity}
	if quantity < 1 {
		return it, fmt.Errorf("%w: quantity must be positive", types.ErrInvalidData)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return it, types.ErrDetached
	}

	a, err := scanArticle(b.db.QueryRowContext(ctx, articleSelect+" WHERE article_id = ?", articleID))
	if errors.Is(err, sql.ErrNoRows) {
		return it, fmt.Errorf("article %s: %w", articleID, types.ErrNotFound)
	}
	if err != nil {
		return it, types.Transport("add to recipe", err)
	}
	var n int
	if err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog WHERE code = ?", it.CatalogCode).Scan(&n); err != nil {
		return it, types.Transport("add to recipe", err)
	}
	if n == 0 {
		return it, fmt.Errorf("catalog code %s: %w", it.CatalogCode, types.ErrNotFound)
	}

	newID := generateUUID()
	err = b.update(ctx, "add to recipe", newID, []string{types.RecipesTable}, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `INSERT INTO recipes (recipe_id, catalog_code, article_id, quantity)
VALUES (?, ?, ?, ?)
ON CONFLICT(catalog_code, article_id) DO UPDATE SET quantity = excluded.quantity
RETURNING recipe_id`, newID, it.CatalogCode, articleID, quantity).Scan(&it.ID)
	})
	if err != nil {
		return it, types.Transport("add to recipe", err)
	}
	it.Article = a
	return it, nil
}

// RemoveFromRecipe deletes one recipe line.
// Returns ErrNotFound if it does not exist.
func (b *Backend) RemoveFromRecipe(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	err := b.update(ctx, "remove from recipe", id, []string{types.RecipesTable}, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM recipes WHERE recipe_id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("recipe item %s: %w", id, types.ErrNotFound)
		}
		return nil
	})
	if errors.Is(err, types.ErrNotFound) {
		return err
	}
	if err != nil {
		return types.Transport("remove from recipe", err)
	}
	return nil
}
