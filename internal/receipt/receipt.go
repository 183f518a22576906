package receipt

import (
	"fmt"
	"strings"

	"github.com/noah-isme/receipt/internal/pricing"
	"github.com/noah-isme/receipt/internal/tax"
)

const importedPrefix = "imported "

// Item is one priced line of a receipt.
type Item struct {
	Description       string
	Quantity          int
	SubtotalWithTaxes pricing.Money
	SubtotalTaxes     pricing.Money
}

// Receipt holds the ordered items and the running totals.
// TaxesDue and TotalDue always equal the sums over Items.
type Receipt struct {
	Items    []Item
	TaxesDue pricing.Money
	TotalDue pricing.Money
}

// Empty returns a receipt with no items and zero totals.
func Empty() Receipt {
	return Receipt{Items: []Item{}, TaxesDue: pricing.Zero, TotalDue: pricing.Zero}
}

// Describe returns the receipt description of a taxed article.
func Describe(a tax.TaxedArticle) string {
	if a.Imported {
		return importedPrefix + a.Product.Name
	}
	return a.Product.Name
}

// Add folds one taxed article into a copy of r.
func (r Receipt) Add(a tax.TaxedArticle) Receipt {
	summary := pricing.Compute(pricing.Line{
		Qty:        a.Quantity,
		UnitPrice:  a.UnitPriceBeforeTaxes,
		TaxPerUnit: a.TaxAmountDuePerUnit,
	})

	items := make([]Item, len(r.Items), len(r.Items)+1)
	copy(items, r.Items)
	items = append(items, Item{
		Description:       Describe(a),
		Quantity:          a.Quantity,
		SubtotalWithTaxes: summary.Subtotal,
		SubtotalTaxes:     summary.Tax,
	})

	return Receipt{
		Items:    items,
		TaxesDue: r.TaxesDue.Add(summary.Tax),
		TotalDue: r.TotalDue.Add(summary.Subtotal),
	}
}

// Build folds taxed articles into a receipt in order.
func Build(articles []tax.TaxedArticle) Receipt {
	r := Empty()
	for _, a := range articles {
		r = r.Add(a)
	}
	return r
}

// Render formats the receipt as text without a trailing newline.
func Render(r Receipt) string {
	lines := make([]string, 0, len(r.Items)+2)
	for _, it := range r.Items {
		lines = append(lines, fmt.Sprintf("%d %s: %s", it.Quantity, it.Description, pricing.Format(it.SubtotalWithTaxes)))
	}
	lines = append(lines,
		"Sales Taxes: "+pricing.Format(r.TaxesDue),
		"Total: "+pricing.Format(r.TotalDue),
	)
	return strings.Join(lines, "\n")
}
