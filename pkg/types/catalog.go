package types

import (
	"strings"
	"time"
)

// UnknownContentName is the display name for a content code missing from the
// catalog.
const UnknownContentName = "Unknown content"

// ContentDefinition is a catalog entry: the type of pouch a content code
// stands for.
type ContentDefinition struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	DefaultWidth  int    `json:"default_width,omitempty"`
	DefaultHeight int    `json:"default_height,omitempty"`
}

// PadCode left-pads a content code with zeros to four digits.
func PadCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) >= 4 {
		return code
	}
	return strings.Repeat("0", 4-len(code)) + code
}

// Article is a stock item that can be packed into a module.
type Article struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	Manufacturer    string `json:"manufacturer,omitempty"`
	Unit            string `json:"unit,omitempty"`
	Instructions    string `json:"instructions,omitempty"`
	MinStockWarning int    `json:"min_stock_warning,omitempty"`
}

// RecipeItem says how many of an article a catalog content should hold.
type RecipeItem struct {
	ID          string   `json:"id"`
	CatalogCode string   `json:"catalog_code"`
	ArticleID   string   `json:"article_id"`
	Quantity    int      `json:"quantity"`
	Article     *Article `json:"article,omitempty"`
}

// ModuleContent is what was actually packed into one physical module.
type ModuleContent struct {
	ID          string    `json:"id"`
	ModuleID    string    `json:"module_id"`
	ArticleName string    `json:"article_name"`
	BatchNumber string    `json:"batch_number"`
	Expiry      time.Time `json:"expiry_date"`
	Quantity    int       `json:"quantity"`
}

// EarliestExpiry returns the soonest expiry among contents, or nil when
// there are none.
func EarliestExpiry(contents []ModuleContent) *time.Time {
	var earliest *time.Time
	for i := range contents {
		e := contents[i].Expiry
		if e.IsZero() {
			continue
		}
		if earliest == nil || e.Before(*earliest) {
			v := e
			earliest = &v
		}
	}
	return earliest
}
