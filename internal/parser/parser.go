package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/receipt/internal/basket"
)

// ErrMalformedInput is returned for any line that does not match `<qty> <description> at <price>`.
var ErrMalformedInput = errors.New("malformed input")

// importedMarker flags an imported product when it appears as a whole word in the description.
const importedMarker = "imported"

var reLine = regexp.MustCompile(`^(?P<quantity>\d+)\s+(?P<description>.+)\s+(?i:at)\s+(?P<price>\d+(?:\.\d*)?)$`)

// LineError reports a malformed line together with its 1-based position in the input.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ParseLine turns one basket line into a purchased item.
func ParseLine(text string) (basket.PurchasedItem, error) {
	m := reLine.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return basket.PurchasedItem{}, fmt.Errorf("%w: expected \"<quantity> <description> at <price>\"", ErrMalformedInput)
	}

	qty, err := strconv.Atoi(m[reLine.SubexpIndex("quantity")])
	if err != nil || qty <= 0 {
		return basket.PurchasedItem{}, fmt.Errorf("%w: quantity must be a positive integer", ErrMalformedInput)
	}

	price, err := decimal.NewFromString(m[reLine.SubexpIndex("price")])
	if err != nil {
		return basket.PurchasedItem{}, fmt.Errorf("%w: unit price: %v", ErrMalformedInput, err)
	}

	name, imported := splitImported(m[reLine.SubexpIndex("description")])
	if name == "" {
		return basket.PurchasedItem{}, fmt.Errorf("%w: empty product name", ErrMalformedInput)
	}

	return basket.PurchasedItem{
		Quantity:    qty,
		ProductName: name,
		UnitPrice:   canonical(price),
		Imported:    imported,
	}, nil
}

// splitImported removes the first whole-word "imported" token and lower-cases the rest.
func splitImported(description string) (string, bool) {
	tokens := strings.Fields(description)
	imported := false
	for i, tok := range tokens {
		if strings.EqualFold(tok, importedMarker) {
			tokens = append(tokens[:i], tokens[i+1:]...)
			imported = true
			break
		}
	}
	return strings.ToLower(strings.Join(tokens, " ")), imported
}

// canonical strips trailing zeros so equal prices share one representation.
func canonical(d decimal.Decimal) decimal.Decimal {
	return decimal.RequireFromString(d.String())
}
