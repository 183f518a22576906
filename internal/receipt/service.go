package receipt

import (
	"github.com/rs/zerolog"

	"github.com/noah-isme/receipt/internal/pricing"
	"github.com/noah-isme/receipt/internal/tax"
)

// Service builds receipts and logs each item.
type Service struct {
	Logger zerolog.Logger
}

// CreateReceipt folds the taxed articles into a receipt.
func (s *Service) CreateReceipt(articles []tax.TaxedArticle) Receipt {
	s.Logger.Info().Int("articles", len(articles)).Msg("creating receipt")
	r := Build(articles)
	for _, it := range r.Items {
		s.Logger.Debug().
			Str("description", it.Description).
			Int("quantity", it.Quantity).
			Str("subtotal", pricing.Format(it.SubtotalWithTaxes)).
			Msg("receipt item added")
	}
	s.Logger.Info().
		Str("taxes_due", pricing.Format(r.TaxesDue)).
		Str("total_due", pricing.Format(r.TotalDue)).
		Msg("receipt created")
	return r
}
