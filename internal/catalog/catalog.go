package catalog

import (
	"errors"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/receipt/internal/basket"
)

// ErrInvalidCatalog is returned when catalog entries cannot be decoded or fail validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

var validate = validator.New()

// Entry classifies one product name.
type Entry struct {
	Name     string `yaml:"name" validate:"required,max=200"`
	Category string `yaml:"category" validate:"max=64"`
}

// Catalog maps product names to categories. Lookups ignore case and surrounding spaces.
type Catalog struct {
	categories map[string]string
}

// New validates the entries and builds a catalog. A later duplicate name replaces an earlier one.
func New(entries ...Entry) (*Catalog, error) {
	c := &Catalog{categories: make(map[string]string, len(entries))}
	for i, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		e.Category = strings.TrimSpace(e.Category)
		if err := validate.Struct(e); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidCatalog, i+1, err)
		}
		c.categories[normalize(e.Name)] = e.Category
	}
	return c, nil
}

// Default returns the built-in catalog used when no catalog file is configured.
func Default() *Catalog {
	c, err := New(
		Entry{Name: "book", Category: "book"},
		Entry{Name: "chocolate bar", Category: "food"},
		Entry{Name: "box of chocolates", Category: "food"},
		Entry{Name: "packet of headache pills", Category: "medical"},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Len reports the number of known products.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.categories)
}

// Category returns the category of name and whether the name is known.
func (c *Catalog) Category(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	category, ok := c.categories[normalize(name)]
	return category, ok
}

// ProductByName implements basket.ProductLookup. Unknown names get an empty category.
func (c *Catalog) ProductByName(name string) basket.Product {
	category, _ := c.Category(name)
	return basket.Product{Name: name, Category: category}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
