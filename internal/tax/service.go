package tax

import (
	"github.com/rs/zerolog"

	"github.com/noah-isme/receipt/internal/basket"
)

// Service taxes articles and logs the taxes applied to each one.
type Service struct {
	Logger zerolog.Logger
	// OnTaxApplied, when set, is called once per tax applied to an article.
	OnTaxApplied func(Tax)
}

// AddTaxes returns the taxed articles in input order.
func (s *Service) AddTaxes(articles []basket.Article) []TaxedArticle {
	s.Logger.Info().Int("articles", len(articles)).Msg("adding taxes to articles in basket")
	taxed := TaxArticles(articles)
	for _, a := range taxed {
		taxes := ApplicableTaxes(a.Article)
		ids := make([]string, 0, len(taxes))
		for _, t := range taxes {
			ids = append(ids, t.ID)
			if s.OnTaxApplied != nil {
				s.OnTaxApplied(t)
			}
		}
		s.Logger.Debug().
			Str("product", a.Product.Name).
			Strs("taxes", ids).
			Str("tax_per_unit", a.TaxAmountDuePerUnit.String()).
			Msg("article taxed")
	}
	s.Logger.Info().Msg("taxes added")
	return taxed
}
