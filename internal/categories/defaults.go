// Package categories seeds and indexes a user's category set.
package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/store"
)

// Names of the application-managed transfer categories.
const (
	TransferInName  = "Transfer In"
	TransferOutName = "Transfer Out"
)

// Defaults returns the starter category set for a new user. IDs are left
// empty for the store to assign.
func Defaults(userID string) []model.Category {
	income := []string{"Salary", "Freelance", "Gifts", "Interest", "Cashback", "Other Income"}
	expense := []string{
		"Groceries", "Restaurants", "Transport", "Utilities", "Rent", "Health",
		"Entertainment", "Shopping", "Travel", "Subscriptions", "Other Expense",
	}

	out := make([]model.Category, 0, len(income)+len(expense)+2)
	for _, n := range income {
		out = append(out, model.Category{UserID: userID, Name: n, Type: model.TypeIncome})
	}
	for _, n := range expense {
		out = append(out, model.Category{UserID: userID, Name: n, Type: model.TypeExpense})
	}
	out = append(out,
		model.Category{UserID: userID, Name: TransferInName, Type: model.TypeIncome, System: model.SystemTransferIn},
		model.Category{UserID: userID, Name: TransferOutName, Type: model.TypeExpense, System: model.SystemTransferOut},
	)
	return out
}

// Seed creates the default categories when the user has none. It returns
// the number created.
func Seed(ctx context.Context, s store.Categories, userID string) (int, error) {
	existing, err := s.ListCategories(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("listing categories: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	defaults := Defaults(userID)
	for i := range defaults {
		if err := s.CreateCategory(ctx, &defaults[i]); err != nil {
			return i, fmt.Errorf("creating category %q: %w", defaults[i].Name, err)
		}
	}
	return len(defaults), nil
}

// Index provides lookup over a user's categories.
type Index struct {
	all  []model.Category
	byID map[string]model.Category
}

// NewIndex builds an Index.
func NewIndex(cats []model.Category) *Index {
	byID := make(map[string]model.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	return &Index{all: cats, byID: byID}
}

// All returns every category.
func (x *Index) All() []model.Category { return x.all }

// Get returns a category by ID.
func (x *Index) Get(id string) (model.Category, bool) {
	c, ok := x.byID[id]
	return c, ok
}

// Lookup finds a category by ID or by case-insensitive name.
func (x *Index) Lookup(ref string) (model.Category, bool) {
	if c, ok := x.byID[ref]; ok {
		return c, true
	}
	for _, c := range x.all {
		if strings.EqualFold(c.Name, ref) {
			return c, true
		}
	}
	return model.Category{}, false
}

// ByType returns the non-system categories of the given type.
func (x *Index) ByType(t model.TransactionType) []model.Category {
	var out []model.Category
	for _, c := range x.all {
		if c.Type == t && !c.IsSystem() {
			out = append(out, c)
		}
	}
	return out
}
