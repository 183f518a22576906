package receipt

import (
	"encoding/json"

	"github.com/noah-isme/receipt/internal/pricing"
)

// ItemView is the JSON shape of a receipt line.
type ItemView struct {
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
	Subtotal    string `json:"subtotal"`
}

// View is the JSON shape of a receipt. Amounts are two-decimal strings.
type View struct {
	Items      []ItemView `json:"items"`
	SalesTaxes string     `json:"salesTaxes"`
	Total      string     `json:"total"`
}

// ToView maps a receipt to its JSON representation.
func ToView(r Receipt) View {
	items := make([]ItemView, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, ItemView{
			Quantity:    it.Quantity,
			Description: it.Description,
			Subtotal:    pricing.Format(it.SubtotalWithTaxes),
		})
	}
	return View{
		Items:      items,
		SalesTaxes: pricing.Format(r.TaxesDue),
		Total:      pricing.Format(r.TotalDue),
	}
}

// RenderJSON encodes the receipt view as indented JSON.
func RenderJSON(r Receipt) (string, error) {
	b, err := json.MarshalIndent(ToView(r), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
