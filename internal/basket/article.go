package basket

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/receipt/internal/pricing"
)

var (
	// ErrInvalidArticle is returned when an article violates its constructor contract.
	ErrInvalidArticle = errors.New("invalid article")
	// ErrInvalidProduct is returned when a product name is blank.
	ErrInvalidProduct = errors.New("invalid product")
)

// PurchasedItem is one parsed line of a basket file.
type PurchasedItem struct {
	Quantity    int
	ProductName string
	UnitPrice   pricing.Money
	Imported    bool
}

// Product identifies what was bought. An empty Category means the category is unknown.
type Product struct {
	Name     string
	Category string
}

// NewProduct trims the name and rejects blank ones.
func NewProduct(name, category string) (Product, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Product{}, fmt.Errorf("%w: name %q is blank", ErrInvalidProduct, name)
	}
	return Product{Name: trimmed, Category: category}, nil
}

// Article is a validated basket line.
type Article struct {
	Product              Product
	Quantity             int
	UnitPriceBeforeTaxes pricing.Money
	Imported             bool
}

// NewArticle validates quantity and unit price before building the article.
func NewArticle(product Product, quantity int, unitPrice pricing.Money, imported bool) (Article, error) {
	if quantity <= 0 {
		return Article{}, fmt.Errorf("%w: quantity must be positive: %d", ErrInvalidArticle, quantity)
	}
	if unitPrice.IsNegative() {
		return Article{}, fmt.Errorf("%w: unit price can't be negative: %s", ErrInvalidArticle, unitPrice)
	}
	return Article{
		Product:              product,
		Quantity:             quantity,
		UnitPriceBeforeTaxes: unitPrice,
		Imported:             imported,
	}, nil
}
