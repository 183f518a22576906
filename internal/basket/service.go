package basket

import (
	"github.com/rs/zerolog"
)

// Service builds baskets and logs each step.
type Service struct {
	Logger   zerolog.Logger
	Products ProductLookup
}

// CreateBasket resolves each purchased item to a product and folds it into a basket.
func (s *Service) CreateBasket(items []PurchasedItem) ([]Article, error) {
	s.Logger.Info().Int("items", len(items)).Msg("creating basket")
	articles, err := Build(items, s.Products)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("basket rejected")
		return nil, err
	}
	for _, a := range articles {
		s.Logger.Debug().
			Str("product", a.Product.Name).
			Str("category", a.Product.Category).
			Int("quantity", a.Quantity).
			Str("unit_price", a.UnitPriceBeforeTaxes.String()).
			Bool("imported", a.Imported).
			Msg("article in basket")
	}
	s.Logger.Info().Int("articles", len(articles)).Msg("basket created")
	return articles, nil
}
