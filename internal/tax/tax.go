package tax

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/receipt/internal/basket"
	"github.com/noah-isme/receipt/internal/pricing"
)

// ErrInvalidTax is returned when a tax is built with a non-positive rate.
var ErrInvalidTax = errors.New("invalid tax")

// Tax is a named rate applied to a unit price.
type Tax struct {
	ID   string
	Rate pricing.Money
}

// New validates the rate before building the tax.
func New(id string, rate pricing.Money) (Tax, error) {
	if rate.Sign() <= 0 {
		return Tax{}, fmt.Errorf("%w: rate must be positive: %s", ErrInvalidTax, rate)
	}
	return Tax{ID: id, Rate: rate}, nil
}

func mustNew(id, rate string) Tax {
	t, err := New(id, decimal.RequireFromString(rate))
	if err != nil {
		panic(err)
	}
	return t
}

var (
	// Import is the surcharge applied to imported articles.
	Import = mustNew("import", "0.05")
	// GeneralSales applies to every article whose category is not exempt.
	GeneralSales = mustNew("non-exempt-category", "0.10")
)

// ExemptCategories lists the product categories not subject to GeneralSales.
var ExemptCategories = []string{"book", "food", "medical"}

// IsExempt reports whether category is exempt from the general sales tax.
// An unknown (empty) category is never exempt.
func IsExempt(category string) bool {
	for _, c := range ExemptCategories {
		if category == c {
			return true
		}
	}
	return false
}

// ApplicableTaxes returns the taxes due on a, import first.
func ApplicableTaxes(a basket.Article) []Tax {
	var taxes []Tax
	if a.Imported {
		taxes = append(taxes, Import)
	}
	if !IsExempt(strings.TrimSpace(a.Product.Category)) {
		taxes = append(taxes, GeneralSales)
	}
	return taxes
}

// CalculateTaxAmount multiplies price by the tax rate and rounds to the nearest 0.05.
func CalculateTaxAmount(price pricing.Money, t Tax) pricing.Money {
	return pricing.RoundTaxAmount(price.Mul(t.Rate))
}

// Apply sums the independently rounded amounts of each tax.
func Apply(price pricing.Money, taxes []Tax) pricing.Money {
	total := pricing.Zero
	for _, t := range taxes {
		total = total.Add(CalculateTaxAmount(price, t))
	}
	return total
}

// TaxedArticle is an article annotated with the tax due per unit.
type TaxedArticle struct {
	basket.Article
	TaxAmountDuePerUnit pricing.Money
}

// TaxArticle computes the per-unit tax due on a.
func TaxArticle(a basket.Article) TaxedArticle {
	return TaxedArticle{
		Article:             a,
		TaxAmountDuePerUnit: Apply(a.UnitPriceBeforeTaxes, ApplicableTaxes(a)),
	}
}

// TaxArticles taxes every article, preserving order.
func TaxArticles(articles []basket.Article) []TaxedArticle {
	out := make([]TaxedArticle, 0, len(articles))
	for _, a := range articles {
		out = append(out, TaxArticle(a))
	}
	return out
}
