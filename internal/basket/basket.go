package basket

import (
	"fmt"
	"math"
)

// Key identifies a basket entry. UnitPrice holds the canonical decimal string so
// that 0.10 and 0.1 land on the same entry.
type Key struct {
	ProductName string
	UnitPrice   string
	Imported    bool
}

// KeyOf derives the basket key of an article.
func KeyOf(a Article) Key {
	return Key{
		ProductName: a.Product.Name,
		UnitPrice:   a.UnitPriceBeforeTaxes.String(),
		Imported:    a.Imported,
	}
}

// Basket is an insertion-ordered set of articles keyed by Key.
// The zero value is an empty basket. Add returns a new basket and leaves the receiver untouched.
type Basket struct {
	entries []Article
	index   map[Key]int
}

// Empty returns a basket without articles.
func Empty() Basket {
	return Basket{}
}

// Len reports the number of distinct entries.
func (b Basket) Len() int {
	return len(b.entries)
}

// Quantity returns the quantity stored under key, or zero.
func (b Basket) Quantity(key Key) int {
	if i, ok := b.index[key]; ok {
		return b.entries[i].Quantity
	}
	return 0
}

// Add merges the article into the basket. An existing key keeps its position and
// has its quantity increased; a new key is appended.
func (b Basket) Add(a Article) (Basket, error) {
	key := KeyOf(a)
	entries := make([]Article, len(b.entries), len(b.entries)+1)
	copy(entries, b.entries)
	index := make(map[Key]int, len(b.index)+1)
	for k, v := range b.index {
		index[k] = v
	}

	if i, ok := index[key]; ok {
		existing := entries[i]
		if a.Quantity > math.MaxInt-existing.Quantity {
			return b, fmt.Errorf("merge %q: %w: quantity overflows %d + %d", key.ProductName, ErrInvalidArticle, existing.Quantity, a.Quantity)
		}
		merged, err := NewArticle(existing.Product, existing.Quantity+a.Quantity, existing.UnitPriceBeforeTaxes, existing.Imported)
		if err != nil {
			return b, fmt.Errorf("merge %q: %w", key.ProductName, err)
		}
		entries[i] = merged
	} else {
		index[key] = len(entries)
		entries = append(entries, a)
	}
	return Basket{entries: entries, index: index}, nil
}

// Articles lists the entries in first-seen order.
func (b Basket) Articles() []Article {
	out := make([]Article, len(b.entries))
	copy(out, b.entries)
	return out
}

// ProductLookup resolves a product name to its classified Product.
// Implementations return a Product with an empty category for unknown names.
type ProductLookup interface {
	ProductByName(name string) Product
}

// LookupFunc adapts a plain function to ProductLookup.
type LookupFunc func(name string) Product

// ProductByName implements ProductLookup.
func (f LookupFunc) ProductByName(name string) Product {
	return f(name)
}

// Build folds purchased items into a basket and returns its articles in first-seen order.
func Build(items []PurchasedItem, lookup ProductLookup) ([]Article, error) {
	b := Empty()
	for _, item := range items {
		article, err := articleFor(item, lookup)
		if err != nil {
			return nil, err
		}
		if b, err = b.Add(article); err != nil {
			return nil, err
		}
	}
	return b.Articles(), nil
}

func articleFor(item PurchasedItem, lookup ProductLookup) (Article, error) {
	var product Product
	if lookup != nil {
		product = lookup.ProductByName(item.ProductName)
	}
	if product.Name == "" {
		product.Name = item.ProductName
	}
	product, err := NewProduct(product.Name, product.Category)
	if err != nil {
		return Article{}, err
	}
	return NewArticle(product, item.Quantity, item.UnitPrice, item.Imported)
}
